// Package handler provides HTTP handlers for all API endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
	"github.com/pitchfinderuk/pitchfinder-api/internal/api/respond"
	"github.com/pitchfinderuk/pitchfinder-api/internal/cache"
	"github.com/pitchfinderuk/pitchfinder-api/internal/config"
	"github.com/pitchfinderuk/pitchfinder-api/internal/geocode"
	"github.com/pitchfinderuk/pitchfinder-api/internal/mailer"
	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool        *pgxpool.Pool
	cache       *cache.Cache
	cfg         *config.Config
	tournaments *tournaments.Store
	alerts      *alerts.PGStore
	dispatcher  *alerts.Dispatcher
	mailer      *mailer.Mailer
	geocoder    *geocode.Client
	logger      *slog.Logger
}

// Deps bundles the constructor arguments.
type Deps struct {
	Pool       *pgxpool.Pool
	Cache      *cache.Cache
	Config     *config.Config
	Alerts     *alerts.PGStore
	Dispatcher *alerts.Dispatcher
	Mailer     *mailer.Mailer
	Geocoder   *geocode.Client
	Logger     *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	return &Handler{
		pool:        d.Pool,
		cache:       d.Cache,
		cfg:         d.Config,
		tournaments: tournaments.NewStore(d.Pool),
		alerts:      d.Alerts,
		dispatcher:  d.Dispatcher,
		mailer:      d.Mailer,
		geocoder:    d.Geocoder,
		logger:      d.Logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Pitchfinder API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
