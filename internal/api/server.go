package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/pitchfinderuk/pitchfinder-api/internal/api/handler"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps handler.Deps) *chi.Mux {
	cfg := deps.Config
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(deps)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Tournament catalogue (public)
		r.Get("/tournaments", h.ListTournaments)
		r.Get("/tournaments/{id}", h.GetTournament)

		// Alert subscriptions (public)
		r.Post("/alerts", h.Subscribe)
		r.Get("/alerts/verify", h.VerifyAlert)
		r.Get("/alerts/unsubscribe", h.Unsubscribe)

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminJWTSecret))

			r.Post("/tournaments", h.CreateTournament)
			r.Put("/tournaments/{id}", h.UpdateTournament)
			r.Delete("/tournaments/{id}", h.UnpublishTournament)

			r.Post("/alerts/dispatch", h.DispatchDigest)
			r.Post("/alerts/notify", h.NotifyInstant)
		})
	})

	return r
}
