// Package maintenance runs periodic background tasks as Go tickers.
// Replaces pg_cron: all scheduled work is driven from Go since the API is
// already a persistent, long-running service (required for LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	DeliveryPurgeInterval   time.Duration // Old delivery audit rows
	UnverifiedPurgeInterval time.Duration // Abandoned double-opt-in subscriptions
	UnpublishInterval       time.Duration // Long-finished tournaments still listed
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		DeliveryPurgeInterval:   6 * time.Hour,
		UnverifiedPurgeInterval: 1 * time.Hour,
		UnpublishInterval:       12 * time.Hour,
	}
}

const (
	deliveryRetention   = 90 * 24 * time.Hour
	unverifiedRetention = 7 * 24 * time.Hour
)

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, store *alerts.PGStore, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"delivery_purge", cfg.DeliveryPurgeInterval,
		"unverified_purge", cfg.UnverifiedPurgeInterval,
		"unpublish", cfg.UnpublishInterval)

	tickers := make([]*time.Ticker, 0, 3)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Purge: delivery audit rows past retention
	if cfg.DeliveryPurgeInterval > 0 {
		t := time.NewTicker(cfg.DeliveryPurgeInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { purgeDeliveries(ctx, pool, logger) })
	}

	// Purge: subscriptions whose verification link was never clicked
	if cfg.UnverifiedPurgeInterval > 0 {
		t := time.NewTicker(cfg.UnverifiedPurgeInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { purgeUnverified(ctx, store, logger) })
	}

	// Unpublish: tournaments that finished long ago but are still listed
	if cfg.UnpublishInterval > 0 {
		t := time.NewTicker(cfg.UnpublishInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { unpublishFinished(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// purgeDeliveries removes delivery audit rows past retention. The delivered
// pair table is left alone so duplicate suppression keeps its full history.
func purgeDeliveries(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM alert_deliveries
		WHERE created_at < NOW() - INTERVAL '90 days'`)
	if err != nil {
		logger.Warn("Maintenance: failed to purge delivery rows", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Maintenance: purged delivery rows",
			"count", tag.RowsAffected(), "retention", deliveryRetention)
	}
}

// purgeUnverified deletes subscriptions whose double-opt-in window lapsed.
func purgeUnverified(ctx context.Context, store *alerts.PGStore, logger *slog.Logger) {
	n, err := store.PurgeUnverifiedBefore(ctx, time.Now().UTC().Add(-unverifiedRetention))
	if err != nil {
		logger.Warn("Maintenance: failed to purge unverified subscriptions", "error", err)
	} else if n > 0 {
		logger.Info("Maintenance: purged unverified subscriptions", "count", n)
	}
}

// unpublishFinished delists tournaments whose end date is more than 30 days
// in the past. Rows stay in place while delivery history references them.
func unpublishFinished(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		UPDATE tournaments
		SET published = false, updated_at = NOW()
		WHERE published = true
		  AND end_date < NOW() - INTERVAL '30 days'`)
	if err != nil {
		logger.Warn("Maintenance: failed to unpublish finished tournaments", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Maintenance: unpublished finished tournaments", "count", tag.RowsAffected())
	}
}
