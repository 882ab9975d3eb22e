// Package listener provides a Postgres LISTEN/NOTIFY consumer that drives
// the instant alert path. It holds a dedicated pgx connection (not from the
// pool) listening on the `tournament_published` channel.
//
// When a tournament row is published, the Postgres trigger fires pg_notify
// and this consumer receives the event and runs the instant dispatch pass
// for matching verified subscriptions.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
)

const (
	channel          = "tournament_published"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// PublishedEvent is the JSON payload from pg_notify('tournament_published', ...).
type PublishedEvent struct {
	TournamentID int64  `json:"tournament_id"`
	Action       string `json:"action"`
}

// Start opens a dedicated connection and listens on the tournament_published
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, dispatcher *alerts.Dispatcher, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, dispatcher, logger)
		if ctx.Err() != nil {
			logger.Info("Tournament listener stopped (context cancelled)")
			return
		}

		logger.Error("Tournament listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, dispatcher *alerts.Dispatcher, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Tournament listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event PublishedEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse published event",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Info("Tournament published event received",
			"tournament_id", event.TournamentID,
			"action", event.Action)

		// Process asynchronously to avoid blocking the listener
		go handlePublished(ctx, dispatcher, event, logger)
	}
}

// handlePublished runs the instant alert pass for one published tournament.
func handlePublished(ctx context.Context, dispatcher *alerts.Dispatcher, event PublishedEvent, logger *slog.Logger) {
	res, err := dispatcher.RunInstant(ctx, event.TournamentID, time.Now().UTC())
	if err != nil {
		logger.Warn("Instant dispatch failed",
			"tournament_id", event.TournamentID, "error", err)
		return
	}

	if res.Processed > 0 {
		logger.Info("Instant alerts dispatched",
			"tournament_id", event.TournamentID,
			"processed", res.Processed,
			"sent", res.Sent,
			"failed", res.Failed,
			"skipped", res.Skipped)
	}
}
