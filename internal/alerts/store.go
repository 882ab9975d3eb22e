package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// ErrSubscriptionNotFound is returned for unknown ids or tokens.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// PGStore is the Postgres-backed alert store. Prepared statement names are
// registered in internal/db.
type PGStore struct {
	pool        *pgxpool.Pool
	tournaments *tournaments.Store
}

// NewPGStore creates the store on an existing pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, tournaments: tournaments.NewStore(pool)}
}

var _ Store = (*PGStore)(nil)

// ActiveSubscriptions returns verified, active subscriptions of one
// frequency, oldest first.
func (s *PGStore) ActiveSubscriptions(ctx context.Context, freq Frequency) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, "subscriptions_by_frequency", freq)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// PublishedSince delegates to the tournament catalogue.
func (s *PGStore) PublishedSince(ctx context.Context, since, now time.Time) ([]tournaments.Tournament, error) {
	return s.tournaments.PublishedSince(ctx, since, now)
}

// TournamentByID resolves a tournament, mapping the catalogue's not-found
// error to the alert path's sentinel.
func (s *PGStore) TournamentByID(ctx context.Context, id int64) (*tournaments.Tournament, error) {
	t, err := s.tournaments.GetByID(ctx, id)
	if errors.Is(err, tournaments.ErrNotFound) {
		return nil, ErrTournamentNotFound
	}
	return t, err
}

// SentCountSince counts "sent" delivery rows for a recipient since the cutoff.
func (s *PGStore) SentCountSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "deliveries_sent_since", email, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sent deliveries: %w", err)
	}
	return n, nil
}

// DeliveredTournaments returns which of the given tournament ids were already
// delivered for a subscription.
func (s *PGStore) DeliveredTournaments(ctx context.Context, subscriptionID int64, ids []int64) (map[int64]bool, error) {
	delivered := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return delivered, nil
	}
	rows, err := s.pool.Query(ctx, "delivered_pairs", subscriptionID, ids)
	if err != nil {
		return nil, fmt.Errorf("query delivered pairs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan delivered pair: %w", err)
		}
		delivered[id] = true
	}
	return delivered, rows.Err()
}

// RecordDelivery appends one audit row. The log is never mutated or deleted
// by the dispatch path.
func (s *PGStore) RecordDelivery(ctx context.Context, rec DeliveryRecord) error {
	var errText *string
	if rec.ErrorText != "" {
		errText = &rec.ErrorText
	}
	_, err := s.pool.Exec(ctx, "delivery_insert",
		rec.SubscriptionID, rec.Email, rec.TournamentCount, rec.Status, errText)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// MarkDelivered records (subscription, tournament) pairs for duplicate
// suppression.
func (s *PGStore) MarkDelivered(ctx context.Context, subscriptionID int64, ids []int64) error {
	for _, id := range ids {
		if _, err := s.pool.Exec(ctx, "delivered_pair_insert", subscriptionID, id); err != nil {
			return fmt.Errorf("insert delivered pair: %w", err)
		}
	}
	return nil
}

// UpdateLastSent stamps a subscription's last successful send.
func (s *PGStore) UpdateLastSent(ctx context.Context, subscriptionID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, "subscription_update_last_sent", subscriptionID, at)
	if err != nil {
		return fmt.Errorf("update last_sent: %w", err)
	}
	return nil
}

// Advisory lock keyspace for dispatch cycles.
const cycleLockBase = 0x50F0_0000

func cycleLockKey(freq Frequency) int64 {
	switch freq {
	case FrequencyDaily:
		return cycleLockBase + 1
	case FrequencyWeekly:
		return cycleLockBase + 2
	}
	return cycleLockBase
}

// TryAcquireCycleLock takes a per-frequency Postgres advisory lock on a
// pinned connection. The returned release func must be called exactly once
// when ok is true.
func (s *PGStore) TryAcquireCycleLock(ctx context.Context, freq Frequency) (func(), bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	key := cycleLockKey(freq)
	var got bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&got); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("advisory lock: %w", err)
	}
	if !got {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		// Unlock on a fresh context; the cycle's context may be done.
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", key)
		conn.Release()
	}
	return release, true, nil
}

// --------------------------------------------------------------------------
// Subscription lifecycle (handlers, maintenance)
// --------------------------------------------------------------------------

// CreateSubscription inserts an unverified subscription and returns it with
// its id and tokens populated.
func (s *PGStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	criteriaJSON, err := marshalCriteria(sub.Criteria)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO alert_subscriptions (email, criteria, frequency, active, verify_token, management_token)
		VALUES ($1, $2, $3, true, $4, $5)
		RETURNING id, created_at`,
		sub.Email, criteriaJSON, sub.Frequency, sub.VerifyToken, sub.ManagementToken,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// VerifyByToken marks the subscription with this verification token as
// verified. Idempotent: an already verified subscription is returned as-is.
func (s *PGStore) VerifyByToken(ctx context.Context, token string) (*Subscription, error) {
	sub, err := s.subscriptionBy(ctx, "subscription_by_verify_token", token)
	if err != nil {
		return nil, err
	}
	if sub.VerifiedAt == nil {
		if _, err := s.pool.Exec(ctx, "subscription_mark_verified", sub.ID); err != nil {
			return nil, fmt.Errorf("mark verified: %w", err)
		}
		now := time.Now().UTC()
		sub.VerifiedAt = &now
	}
	return sub, nil
}

// ByManagementToken resolves a subscription from its self-service token.
func (s *PGStore) ByManagementToken(ctx context.Context, token string) (*Subscription, error) {
	return s.subscriptionBy(ctx, "subscription_by_management_token", token)
}

// DeleteSubscription removes one subscription entirely (unsubscribe is a
// hard delete, not a soft flag).
func (s *PGStore) DeleteSubscription(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "subscription_delete", id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// DeleteAllForEmail removes every subscription owned by an email address.
func (s *PGStore) DeleteAllForEmail(ctx context.Context, email string) (int64, error) {
	tag, err := s.pool.Exec(ctx, "subscriptions_delete_by_email", email)
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions for email: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeUnverifiedBefore removes subscriptions never verified since before
// the cutoff.
func (s *PGStore) PurgeUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM alert_subscriptions
		WHERE verified_at IS NULL AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge unverified: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) subscriptionBy(ctx context.Context, stmt, token string) (*Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx, stmt, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub Subscription
		raw []byte
	)
	err := row.Scan(
		&sub.ID, &sub.Email, &raw, &sub.Frequency, &sub.Active,
		&sub.VerifiedAt, &sub.LastSentAt, &sub.VerifyToken,
		&sub.ManagementToken, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Criteria, err = ParseCriteria(raw)
	if err != nil {
		return nil, fmt.Errorf("subscription %d: %w", sub.ID, err)
	}
	return &sub, nil
}
