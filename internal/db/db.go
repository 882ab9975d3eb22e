// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchfinderuk/pitchfinder-api/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements the hot paths use.
// Search queries are built dynamically and stay unprepared.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Tournaments
		"tournament_by_id": `
			SELECT id, name, description, venue_name, postcode, region, country,
			       longitude, latitude, start_date, end_date, reg_deadline,
			       format, age_groups, team_types, category, cost, currency,
			       source_url, published, created_at
			FROM tournaments WHERE id = $1`,
		"tournaments_since": `
			SELECT id, name, description, venue_name, postcode, region, country,
			       longitude, latitude, start_date, end_date, reg_deadline,
			       format, age_groups, team_types, category, cost, currency,
			       source_url, published, created_at
			FROM tournaments
			WHERE published AND created_at > $1 AND end_date >= $2
			ORDER BY start_date, id`,
		"tournament_unpublish": "UPDATE tournaments SET published = false, updated_at = NOW() WHERE id = $1",

		// Alert subscriptions
		"subscriptions_by_frequency": `
			SELECT id, email, criteria, frequency, active, verified_at,
			       last_sent_at, verify_token, management_token, created_at
			FROM alert_subscriptions
			WHERE active AND verified_at IS NOT NULL AND frequency = $1
			ORDER BY created_at, id`,
		"subscription_by_verify_token": `
			SELECT id, email, criteria, frequency, active, verified_at,
			       last_sent_at, verify_token, management_token, created_at
			FROM alert_subscriptions WHERE verify_token = $1`,
		"subscription_by_management_token": `
			SELECT id, email, criteria, frequency, active, verified_at,
			       last_sent_at, verify_token, management_token, created_at
			FROM alert_subscriptions WHERE management_token = $1`,
		"subscription_mark_verified": "UPDATE alert_subscriptions SET verified_at = NOW() WHERE id = $1 AND verified_at IS NULL",
		"subscription_update_last_sent": "UPDATE alert_subscriptions SET last_sent_at = $2 WHERE id = $1",
		"subscription_delete":           "DELETE FROM alert_subscriptions WHERE id = $1",
		"subscriptions_delete_by_email": "DELETE FROM alert_subscriptions WHERE email = $1",

		// Delivery log
		"delivery_insert": `
			INSERT INTO alert_deliveries (subscription_id, email, tournament_count, status, error_text)
			VALUES ($1, $2, $3, $4, $5)`,
		"deliveries_sent_since": `
			SELECT COUNT(*) FROM alert_deliveries
			WHERE email = $1 AND status = 'sent' AND created_at >= $2`,

		// Duplicate suppression
		"delivered_pairs": `
			SELECT tournament_id FROM alert_delivered_tournaments
			WHERE subscription_id = $1 AND tournament_id = ANY($2)`,
		"delivered_pair_insert": `
			INSERT INTO alert_delivered_tournaments (subscription_id, tournament_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
