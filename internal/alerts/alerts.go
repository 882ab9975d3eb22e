// Package alerts implements tournament email alerts: a standing filter per
// subscriber, evaluated against newly published tournaments, assembled into
// digests and dispatched over SMTP.
//
// Pipeline per cycle: load subscriptions → gate (eligibility, minimum
// interval) → match candidates → suppress duplicates → build digest → send →
// record outcome. All coordination state lives in Postgres; the loop itself
// is stateless between invocations.
package alerts

import (
	"errors"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DefaultRadiusMiles applies when a location filter has coordinates but
	// no explicit radius.
	DefaultRadiusMiles = 50.0

	// InstantDailyCap is the maximum "sent" deliveries per recipient per
	// UTC day on the instant path.
	InstantDailyCap = 3

	// DigestMaxEntries caps the tournaments listed in one digest email;
	// the remainder collapses into a "+N more" link.
	DigestMaxEntries = 10

	// Minimum interval between digest sends per subscription. Slightly
	// under the nominal period so an early-firing trigger is not skipped.
	dailyMinInterval  = 20 * time.Hour
	weeklyMinInterval = 6 * 24 * time.Hour

	// Candidate lookback per digest frequency.
	dailyLookback  = 24 * time.Hour
	weeklyLookback = 7 * 24 * time.Hour
)

var (
	// ErrTournamentNotFound is returned by the instant path for an unknown id.
	ErrTournamentNotFound = errors.New("tournament not found")

	// ErrCycleInProgress is returned when another dispatch cycle holds the
	// advisory lock for the same frequency.
	ErrCycleInProgress = errors.New("dispatch cycle already in progress")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Frequency is a subscription's delivery class.
type Frequency string

const (
	FrequencyInstant Frequency = "instant"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyInstant, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// minInterval returns the minimum gap between digest sends; zero for the
// instant class, which is capped per day instead.
func (f Frequency) minInterval() time.Duration {
	switch f {
	case FrequencyDaily:
		return dailyMinInterval
	case FrequencyWeekly:
		return weeklyMinInterval
	}
	return 0
}

// lookback returns how far back a digest cycle collects candidates.
func (f Frequency) lookback() time.Duration {
	if f == FrequencyWeekly {
		return weeklyLookback
	}
	return dailyLookback
}

// Subscription is a standing alert owned by one email address.
type Subscription struct {
	ID              int64
	Email           string
	Criteria        Criteria
	Frequency       Frequency
	Active          bool
	VerifiedAt      *time.Time
	LastSentAt      *time.Time
	VerifyToken     string
	ManagementToken string
	CreatedAt       time.Time
}

// Eligible reports whether the subscription may receive mail at all.
// Unverified subscriptions must never be sent to.
func (s *Subscription) Eligible() bool {
	return s.Active && s.VerifiedAt != nil
}

// DeliveryStatus is the terminal outcome recorded for a dispatch attempt.
type DeliveryStatus string

const (
	StatusSent        DeliveryStatus = "sent"
	StatusFailed      DeliveryStatus = "failed"
	StatusRateLimited DeliveryStatus = "rate_limited"
	StatusDuplicate   DeliveryStatus = "duplicate"
)

// DeliveryRecord is one append-only audit row.
type DeliveryRecord struct {
	SubscriptionID  int64
	Email           string
	TournamentCount int
	Status          DeliveryStatus
	ErrorText       string
}

// CycleResult summarizes one dispatch cycle.
type CycleResult struct {
	Processed int `json:"alertsProcessed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
