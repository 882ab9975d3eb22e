package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
	"github.com/pitchfinderuk/pitchfinder-api/internal/api/respond"
)

type subscribeRequest struct {
	Email     string          `json:"email"`
	Frequency string          `json:"frequency"`
	Criteria  json.RawMessage `json:"criteria"`
}

// Subscribe creates an unverified alert subscription and sends the
// double-opt-in email. No alerts are delivered until the link is clicked.
// @Summary Create an alert subscription
// @Tags alerts
// @Accept json
// @Produce json
// @Param subscription body subscribeRequest true "Subscription"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /alerts [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid email address")
		return
	}

	freq := alerts.Frequency(req.Frequency)
	if req.Frequency == "" {
		freq = alerts.FrequencyDaily
	}
	if !freq.Valid() {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Frequency must be instant, daily or weekly")
		return
	}

	criteria, err := alerts.ParseCriteria(req.Criteria)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid criteria")
		return
	}
	h.resolveLocation(r, &criteria)

	verifyToken, err := alerts.NewToken()
	if err != nil {
		h.subscribeFailed(w, err)
		return
	}
	mgmtToken, err := alerts.NewToken()
	if err != nil {
		h.subscribeFailed(w, err)
		return
	}

	sub := &alerts.Subscription{
		Email:           addr.Address,
		Criteria:        criteria,
		Frequency:       freq,
		VerifyToken:     verifyToken,
		ManagementToken: mgmtToken,
	}
	if err := h.alerts.CreateSubscription(r.Context(), sub); err != nil {
		h.subscribeFailed(w, err)
		return
	}

	// Verification email is best effort; an undelivered mail leaves the row
	// unverified and the purge ticker reclaims it.
	verifyURL := fmt.Sprintf("%s/api/v1/alerts/verify?token=%s", h.cfg.PublicURL, sub.VerifyToken)
	if err := h.mailer.SendVerification(r.Context(), sub.Email, verifyURL); err != nil {
		h.logger.Warn("verification email failed", "subscription_id", sub.ID, "error", err)
	}

	respond.WriteJSONObject(w, http.StatusCreated, map[string]interface{}{
		"id":     sub.ID,
		"status": "pending_verification",
	})
}

func (h *Handler) subscribeFailed(w http.ResponseWriter, err error) {
	h.logger.Error("subscribe failed", "error", err)
	respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Could not create subscription")
}

// resolveLocation forward-geocodes a postcode-only location filter so the
// matcher can apply the radius rule. Geocoding failures degrade to the
// place-name fallback rather than rejecting the subscription.
func (h *Handler) resolveLocation(r *http.Request, c *alerts.Criteria) {
	loc := c.Location
	if loc == nil || loc.Point != nil || loc.Postcode == "" {
		return
	}
	res, err := h.geocoder.Forward(r.Context(), loc.Postcode)
	if err != nil {
		h.logger.Warn("geocode failed, using text match", "postcode", loc.Postcode, "error", err)
		if loc.Text == "" {
			loc.Text = loc.Postcode
		}
		return
	}
	loc.Point = &alerts.Point{Longitude: res.Longitude, Latitude: res.Latitude}
	loc.Postcode = res.Postcode
}

// Verify confirms a subscription from the emailed link. Responds with a
// rendered HTML page, not JSON.
// @Summary Verify an alert subscription
// @Tags alerts
// @Produce html
// @Param token query string true "Verification token"
// @Success 200 {string} string "HTML confirmation page"
// @Router /alerts/verify [get]
func (h *Handler) VerifyAlert(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.htmlError(w, http.StatusBadRequest, "Missing verification token.")
		return
	}

	sub, err := h.alerts.VerifyByToken(r.Context(), token)
	if errors.Is(err, alerts.ErrSubscriptionNotFound) {
		h.htmlError(w, http.StatusNotFound, "This verification link is invalid or has already been removed.")
		return
	}
	if err != nil {
		h.logger.Error("verify failed", "error", err)
		h.htmlError(w, http.StatusInternalServerError, "Something went wrong confirming your alert. Please try again later.")
		return
	}

	respond.WriteHTMLPage(w, http.StatusOK, respond.Page{
		Title:   "Alert confirmed",
		Message: fmt.Sprintf("Tournament alerts for %s are now active. You can unsubscribe at any time from any alert email.", sub.Email),
		HomeURL: h.cfg.PublicURL,
	})
}

// Unsubscribe removes one subscription (token + alertId) or every
// subscription for the token owner's email (token only). Responds with a
// rendered HTML page, not JSON.
// @Summary Unsubscribe from alerts
// @Tags alerts
// @Produce html
// @Param token query string true "Management token"
// @Param alertId query int false "Limit removal to one subscription"
// @Success 200 {string} string "HTML confirmation page"
// @Router /alerts/unsubscribe [get]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.htmlError(w, http.StatusBadRequest, "Missing unsubscribe token.")
		return
	}

	sub, err := h.alerts.ByManagementToken(r.Context(), token)
	if errors.Is(err, alerts.ErrSubscriptionNotFound) {
		h.htmlError(w, http.StatusNotFound, "This unsubscribe link is invalid or the alert was already removed.")
		return
	}
	if err != nil {
		h.logger.Error("unsubscribe lookup failed", "error", err)
		h.htmlError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	if raw := r.URL.Query().Get("alertId"); raw != "" {
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || id != sub.ID {
			h.htmlError(w, http.StatusBadRequest, "This unsubscribe link does not match the alert it was sent for.")
			return
		}
		if err := h.alerts.DeleteSubscription(r.Context(), sub.ID); err != nil {
			h.logger.Error("unsubscribe delete failed", "subscription_id", sub.ID, "error", err)
			h.htmlError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			return
		}
		respond.WriteHTMLPage(w, http.StatusOK, respond.Page{
			Title:   "Alert removed",
			Message: "That tournament alert has been deleted. Other alerts for your email, if any, are unchanged.",
			HomeURL: h.cfg.PublicURL,
		})
		return
	}

	removed, err := h.alerts.DeleteAllForEmail(r.Context(), sub.Email)
	if err != nil {
		h.logger.Error("unsubscribe all failed", "email", sub.Email, "error", err)
		h.htmlError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}
	respond.WriteHTMLPage(w, http.StatusOK, respond.Page{
		Title:   "Unsubscribed",
		Message: fmt.Sprintf("All %d tournament alert(s) for %s have been deleted.", removed, sub.Email),
		HomeURL: h.cfg.PublicURL,
	})
}

type dispatchRequest struct {
	Frequency string `json:"frequency"`
}

// DispatchDigest triggers one digest cycle for a frequency class.
// @Summary Run a digest dispatch cycle
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body dispatchRequest true "Frequency: daily or weekly"
// @Success 200 {object} alerts.CycleResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Security AdminToken
// @Router /alerts/dispatch [post]
func (h *Handler) DispatchDigest(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Frequency == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Body must include frequency")
		return
	}

	freq := alerts.Frequency(req.Frequency)
	if freq != alerts.FrequencyDaily && freq != alerts.FrequencyWeekly {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Frequency must be daily or weekly")
		return
	}

	res, err := h.dispatcher.RunDigestCycle(r.Context(), freq, time.Now().UTC())
	if errors.Is(err, alerts.ErrCycleInProgress) {
		respond.WriteError(w, http.StatusConflict, "CYCLE_IN_PROGRESS", "A dispatch cycle for this frequency is already running")
		return
	}
	if err != nil {
		h.logger.Error("digest dispatch failed", "frequency", freq, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Dispatch failed")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}

type notifyRequest struct {
	TournamentID int64  `json:"tournamentId"`
	Action       string `json:"action"`
}

// NotifyInstant triggers the instant path for one tournament.
// @Summary Notify instant subscribers about a tournament
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body notifyRequest true "Tournament event"
// @Success 200 {object} alerts.CycleResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Security AdminToken
// @Router /alerts/notify [post]
func (h *Handler) NotifyInstant(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TournamentID == 0 {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Body must include tournamentId")
		return
	}

	res, err := h.dispatcher.RunInstant(r.Context(), req.TournamentID, time.Now().UTC())
	if errors.Is(err, alerts.ErrTournamentNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Tournament not found")
		return
	}
	if err != nil {
		h.logger.Error("instant dispatch failed", "tournament_id", req.TournamentID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Dispatch failed")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}

func (h *Handler) htmlError(w http.ResponseWriter, status int, message string) {
	respond.WriteHTMLPage(w, status, respond.Page{
		Title:   "Something went wrong",
		Message: message,
		HomeURL: h.cfg.PublicURL,
		IsError: true,
	})
}
