package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// Store is the persistence surface the dispatch loop needs. Implemented by
// PGStore; tests substitute an in-memory fake.
type Store interface {
	ActiveSubscriptions(ctx context.Context, freq Frequency) ([]Subscription, error)
	PublishedSince(ctx context.Context, since, now time.Time) ([]tournaments.Tournament, error)
	TournamentByID(ctx context.Context, id int64) (*tournaments.Tournament, error)
	SentCountSince(ctx context.Context, email string, since time.Time) (int, error)
	DeliveredTournaments(ctx context.Context, subscriptionID int64, ids []int64) (map[int64]bool, error)
	RecordDelivery(ctx context.Context, rec DeliveryRecord) error
	MarkDelivered(ctx context.Context, subscriptionID int64, ids []int64) error
	UpdateLastSent(ctx context.Context, subscriptionID int64, at time.Time) error
	TryAcquireCycleLock(ctx context.Context, freq Frequency) (release func(), ok bool, err error)
}

// Sender delivers a rendered digest to one recipient.
type Sender interface {
	SendDigest(ctx context.Context, to string, d *Digest) error
}

// Dispatcher runs alert dispatch cycles. Stateless; all bookkeeping lives in
// the Store.
type Dispatcher struct {
	store   Store
	sender  Sender
	baseURL string
	logger  *slog.Logger
}

// NewDispatcher wires a dispatcher. baseURL is the public site root used in
// email links.
func NewDispatcher(store Store, sender Sender, baseURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, baseURL: baseURL, logger: logger}
}

// RunDigestCycle processes every active subscription of the given frequency
// against tournaments published within the frequency's lookback window.
// A per-frequency advisory lock rejects overlapping cycles.
//
// Terminal outcome per subscription: skipped (ineligible, interval, no match,
// duplicate), sent, or failed. A single subscription's failure never aborts
// the cycle.
func (d *Dispatcher) RunDigestCycle(ctx context.Context, freq Frequency, now time.Time) (CycleResult, error) {
	var res CycleResult
	if freq != FrequencyDaily && freq != FrequencyWeekly {
		return res, fmt.Errorf("unsupported digest frequency %q", freq)
	}

	release, ok, err := d.store.TryAcquireCycleLock(ctx, freq)
	if err != nil {
		return res, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return res, ErrCycleInProgress
	}
	defer release()

	subs, err := d.store.ActiveSubscriptions(ctx, freq)
	if err != nil {
		return res, fmt.Errorf("load subscriptions: %w", err)
	}
	candidates, err := d.store.PublishedSince(ctx, now.Add(-freq.lookback()), now)
	if err != nil {
		return res, fmt.Errorf("load candidates: %w", err)
	}

	d.logger.Info("digest cycle started",
		"frequency", freq, "subscriptions", len(subs), "candidates", len(candidates))

	for i := range subs {
		res.Processed++
		d.processDigest(ctx, &subs[i], candidates, now, &res)
	}

	d.logger.Info("digest cycle finished",
		"frequency", freq, "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (d *Dispatcher) processDigest(ctx context.Context, sub *Subscription, candidates []tournaments.Tournament, now time.Time, res *CycleResult) {
	if !sub.Eligible() || tooSoon(sub, now) {
		res.Skipped++
		return
	}

	var matched []tournaments.Tournament
	for i := range candidates {
		if Matches(&candidates[i], sub.Criteria) {
			matched = append(matched, candidates[i])
		}
	}
	if len(matched) == 0 {
		res.Skipped++
		return
	}

	fresh, err := d.dropDelivered(ctx, sub.ID, matched)
	if err != nil {
		d.logger.Warn("duplicate lookup failed", "subscription_id", sub.ID, "error", err)
		res.Skipped++
		return
	}
	if len(fresh) == 0 {
		d.record(ctx, DeliveryRecord{
			SubscriptionID: sub.ID, Email: sub.Email,
			TournamentCount: len(matched), Status: StatusDuplicate,
		})
		res.Skipped++
		return
	}

	digest := BuildDigest(fresh, sub, d.baseURL)
	d.send(ctx, sub, digest, now, res)
}

// RunInstant notifies instant-frequency subscribers about one newly published
// or changed tournament.
func (d *Dispatcher) RunInstant(ctx context.Context, tournamentID int64, now time.Time) (CycleResult, error) {
	var res CycleResult

	t, err := d.store.TournamentByID(ctx, tournamentID)
	if err != nil {
		return res, err
	}
	if !t.Published {
		d.logger.Info("instant dispatch skipped, tournament unpublished", "tournament_id", tournamentID)
		return res, nil
	}

	subs, err := d.store.ActiveSubscriptions(ctx, FrequencyInstant)
	if err != nil {
		return res, fmt.Errorf("load subscriptions: %w", err)
	}

	d.logger.Info("instant dispatch started", "tournament_id", tournamentID, "subscriptions", len(subs))

	for i := range subs {
		res.Processed++
		d.processInstant(ctx, &subs[i], t, now, &res)
	}

	d.logger.Info("instant dispatch finished",
		"tournament_id", tournamentID, "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (d *Dispatcher) processInstant(ctx context.Context, sub *Subscription, t *tournaments.Tournament, now time.Time, res *CycleResult) {
	if !sub.Eligible() || !Matches(t, sub.Criteria) {
		res.Skipped++
		return
	}

	delivered, err := d.store.DeliveredTournaments(ctx, sub.ID, []int64{t.ID})
	if err != nil {
		d.logger.Warn("duplicate lookup failed", "subscription_id", sub.ID, "error", err)
		res.Skipped++
		return
	}
	if delivered[t.ID] {
		d.record(ctx, DeliveryRecord{
			SubscriptionID: sub.ID, Email: sub.Email,
			TournamentCount: 1, Status: StatusDuplicate,
		})
		res.Skipped++
		return
	}

	sentToday, err := d.store.SentCountSince(ctx, sub.Email, startOfUTCDay(now))
	if err != nil {
		d.logger.Warn("rate limit lookup failed", "subscription_id", sub.ID, "error", err)
		res.Skipped++
		return
	}
	if sentToday >= InstantDailyCap {
		d.record(ctx, DeliveryRecord{
			SubscriptionID: sub.ID, Email: sub.Email,
			TournamentCount: 1, Status: StatusRateLimited,
		})
		res.Skipped++
		return
	}

	digest := BuildDigest([]tournaments.Tournament{*t}, sub, d.baseURL)
	if digest == nil {
		res.Skipped++
		return
	}
	d.send(ctx, sub, digest, now, res)
}

// send attempts delivery and records the terminal outcome. On provider error
// the last-sent timestamp is left untouched so a future cycle retries
// naturally; there is no retry loop here.
func (d *Dispatcher) send(ctx context.Context, sub *Subscription, digest *Digest, now time.Time, res *CycleResult) {
	if err := d.sender.SendDigest(ctx, sub.Email, digest); err != nil {
		d.logger.Warn("send failed", "subscription_id", sub.ID, "error", err)
		d.record(ctx, DeliveryRecord{
			SubscriptionID: sub.ID, Email: sub.Email,
			TournamentCount: len(digest.TournamentIDs),
			Status:          StatusFailed, ErrorText: err.Error(),
		})
		res.Failed++
		return
	}

	d.record(ctx, DeliveryRecord{
		SubscriptionID: sub.ID, Email: sub.Email,
		TournamentCount: len(digest.TournamentIDs), Status: StatusSent,
	})
	if err := d.store.MarkDelivered(ctx, sub.ID, digest.TournamentIDs); err != nil {
		d.logger.Warn("mark delivered failed", "subscription_id", sub.ID, "error", err)
	}
	if err := d.store.UpdateLastSent(ctx, sub.ID, now); err != nil {
		d.logger.Warn("update last_sent failed", "subscription_id", sub.ID, "error", err)
	}
	res.Sent++
}

func (d *Dispatcher) dropDelivered(ctx context.Context, subID int64, matched []tournaments.Tournament) ([]tournaments.Tournament, error) {
	ids := make([]int64, len(matched))
	for i := range matched {
		ids[i] = matched[i].ID
	}
	delivered, err := d.store.DeliveredTournaments(ctx, subID, ids)
	if err != nil {
		return nil, err
	}
	fresh := make([]tournaments.Tournament, 0, len(matched))
	for i := range matched {
		if !delivered[matched[i].ID] {
			fresh = append(fresh, matched[i])
		}
	}
	return fresh, nil
}

func (d *Dispatcher) record(ctx context.Context, rec DeliveryRecord) {
	if err := d.store.RecordDelivery(ctx, rec); err != nil {
		d.logger.Warn("record delivery failed", "subscription_id", rec.SubscriptionID, "error", err)
	}
}
