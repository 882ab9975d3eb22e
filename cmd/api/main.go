// Command api is the Pitchfinder API server.
//
// Usage:
//
//	pitchfinder-api
//	API_PORT=8080 pitchfinder-api

// @title Pitchfinder API
// @version 1.0.0
// @description UK youth football tournament discovery API: searchable catalogue plus email alert subscriptions with instant, daily and weekly digest delivery.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Pitchfinder
// @license.name MIT
// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
	"github.com/pitchfinderuk/pitchfinder-api/internal/api"
	"github.com/pitchfinderuk/pitchfinder-api/internal/api/handler"
	"github.com/pitchfinderuk/pitchfinder-api/internal/cache"
	"github.com/pitchfinderuk/pitchfinder-api/internal/config"
	"github.com/pitchfinderuk/pitchfinder-api/internal/db"
	"github.com/pitchfinderuk/pitchfinder-api/internal/geocode"
	"github.com/pitchfinderuk/pitchfinder-api/internal/listener"
	"github.com/pitchfinderuk/pitchfinder-api/internal/mailer"
	"github.com/pitchfinderuk/pitchfinder-api/internal/maintenance"
	"github.com/pitchfinderuk/pitchfinder-api/internal/scheduler"

	_ "github.com/pitchfinderuk/pitchfinder-api/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Geocoder with optional Redis cache (falls back to in-process memory)
	geocoder := geocode.New(cfg.GeocodeBaseURL,
		geocode.NewRedisCache(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, logger))

	// Mailer (nil when SMTP is not configured; sends become logged no-ops)
	m := mailer.New(cfg, logger)
	if m == nil {
		logger.Info("Outbound email disabled (no SMTP_HOST)")
	}

	// Alert stores and dispatcher
	alertStore := alerts.NewPGStore(pool.Pool)
	dispatcher := alerts.NewDispatcher(alertStore, m, cfg.PublicURL, logger)

	// Start LISTEN/NOTIFY consumer for instant alerts on publish
	go listener.Start(ctx, cfg.DatabaseURL, dispatcher, logger)

	// Start digest cron schedules (daily and weekly)
	go scheduler.Start(ctx, cfg, dispatcher, logger)

	// Start maintenance tickers (purges, delisting)
	go maintenance.Start(ctx, pool.Pool, alertStore, maintenance.DefaultConfig(), logger)

	// Create router
	router := api.NewRouter(handler.Deps{
		Pool:       pool.Pool,
		Cache:      appCache,
		Config:     cfg,
		Alerts:     alertStore,
		Dispatcher: dispatcher,
		Mailer:     m,
		Geocoder:   geocoder,
		Logger:     logger,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Pitchfinder API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
