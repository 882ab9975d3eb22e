// Package scheduler runs the recurring digest dispatch cycles on cron
// schedules. Daily and weekly digests each get their own schedule; the
// database advisory lock inside the dispatcher keeps concurrent triggers
// (scheduler plus manual API call, or two replicas) from double-sending.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
	"github.com/pitchfinderuk/pitchfinder-api/internal/config"
)

// Start registers the digest cron jobs and blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, cfg *config.Config, dispatcher *alerts.Dispatcher, logger *slog.Logger) {
	c := cron.New(cron.WithLocation(time.UTC))

	register := func(spec string, freq alerts.Frequency) {
		_, err := c.AddFunc(spec, func() {
			runCycle(ctx, dispatcher, freq, logger)
		})
		if err != nil {
			logger.Error("Invalid cron spec, digest schedule disabled",
				"frequency", freq, "spec", spec, "error", err)
			return
		}
		logger.Info("Digest schedule registered", "frequency", freq, "spec", spec)
	}

	register(cfg.DigestDailyCron, alerts.FrequencyDaily)
	register(cfg.DigestWeeklyCron, alerts.FrequencyWeekly)

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Digest scheduler stop timed out")
	}
	logger.Info("Digest scheduler stopped")
}

func runCycle(ctx context.Context, dispatcher *alerts.Dispatcher, freq alerts.Frequency, logger *slog.Logger) {
	start := time.Now()
	res, err := dispatcher.RunDigestCycle(ctx, freq, time.Now().UTC())
	if err == alerts.ErrCycleInProgress {
		logger.Info("Digest cycle already running elsewhere, skipping", "frequency", freq)
		return
	}
	if err != nil {
		logger.Error("Digest cycle failed", "frequency", freq, "error", err)
		return
	}

	logger.Info("Digest cycle complete",
		"frequency", freq,
		"processed", res.Processed,
		"sent", res.Sent,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", time.Since(start).Round(time.Millisecond))
}
