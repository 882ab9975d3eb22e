package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pitchfinderuk/pitchfinder-api/internal/api/respond"
	"github.com/pitchfinderuk/pitchfinder-api/internal/cache"
	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// ListTournaments serves the public search/listing endpoint with TTL cache
// and ETag revalidation.
// @Summary List published tournaments
// @Tags tournaments
// @Produce json
// @Param q query string false "Free-text search"
// @Param formats query string false "Comma-separated match formats"
// @Param ageGroups query string false "Comma-separated age groups"
// @Param teamTypes query string false "Comma-separated team types"
// @Param categories query string false "Comma-separated categories"
// @Param regions query string false "Comma-separated regions"
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Success 200 {array} tournaments.Tournament
// @Router /tournaments [get]
func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	params, err := searchParamsFromQuery(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	cacheKey := "tournaments:" + r.URL.RawQuery
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLListing, true)
		return
	}

	list, err := h.tournaments.Search(r.Context(), params)
	if err != nil {
		h.logger.Error("tournament search failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Search failed")
		return
	}
	if list == nil {
		list = []tournaments.Tournament{}
	}

	data, err := json.Marshal(map[string]interface{}{
		"tournaments": list,
		"count":       len(list),
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Encoding failed")
		return
	}

	etag := h.cache.Set(cacheKey, data, cache.TTLListing)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLListing, false)
}

// GetTournament serves one tournament by id.
// @Summary Get a tournament
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} tournaments.Tournament
// @Failure 404 {object} respond.ErrorResponse
// @Router /tournaments/{id} [get]
func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid tournament id")
		return
	}

	t, err := h.tournaments.GetByID(r.Context(), id)
	if errors.Is(err, tournaments.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Tournament not found")
		return
	}
	if err != nil {
		h.logger.Error("tournament lookup failed", "id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Lookup failed")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, t)
}

// CreateTournament inserts a new tournament (admin).
// @Summary Create a tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournament body tournaments.Tournament true "Tournament"
// @Success 201 {object} tournaments.Tournament
// @Failure 400 {object} respond.ErrorResponse
// @Security AdminToken
// @Router /tournaments [post]
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var t tournaments.Tournament
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if err := h.tournaments.Create(r.Context(), &t); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, t)
}

// UpdateTournament overwrites a tournament (admin).
// @Summary Update a tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path int true "Tournament ID"
// @Param tournament body tournaments.Tournament true "Tournament"
// @Success 200 {object} tournaments.Tournament
// @Failure 404 {object} respond.ErrorResponse
// @Security AdminToken
// @Router /tournaments/{id} [put]
func (h *Handler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid tournament id")
		return
	}

	var t tournaments.Tournament
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	t.ID = id

	err = h.tournaments.Update(r.Context(), &t)
	if errors.Is(err, tournaments.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Tournament not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, t)
}

// UnpublishTournament soft-removes a tournament from listings (admin).
// Records stay in place while delivery history references them.
// @Summary Unpublish a tournament
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Security AdminToken
// @Router /tournaments/{id} [delete]
func (h *Handler) UnpublishTournament(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid tournament id")
		return
	}

	err = h.tournaments.Unpublish(r.Context(), id)
	if errors.Is(err, tournaments.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Tournament not found")
		return
	}
	if err != nil {
		h.logger.Error("unpublish failed", "id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Unpublish failed")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"id": id, "published": false})
}

func searchParamsFromQuery(r *http.Request) (tournaments.SearchParams, error) {
	q := r.URL.Query()
	p := tournaments.SearchParams{
		Search:     strings.TrimSpace(q.Get("q")),
		Formats:    splitList(q.Get("formats")),
		AgeGroups:  splitList(q.Get("ageGroups")),
		TeamTypes:  splitList(q.Get("teamTypes")),
		Categories: splitList(q.Get("categories")),
		Regions:    splitList(q.Get("regions")),
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, errors.New("invalid 'from' timestamp")
		}
		p.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, errors.New("invalid 'to' timestamp")
		}
		p.To = &t
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Offset = n
		}
	}
	return p, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
