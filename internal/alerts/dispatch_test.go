package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// fakeStore is an in-memory Store for dispatch tests.
type fakeStore struct {
	subs      []Subscription
	published []tournaments.Tournament
	delivered map[int64]map[int64]bool
	records   []DeliveryRecord
	lockBusy  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{delivered: make(map[int64]map[int64]bool)}
}

func (f *fakeStore) ActiveSubscriptions(_ context.Context, freq Frequency) ([]Subscription, error) {
	var out []Subscription
	for _, s := range f.subs {
		if s.Frequency == freq && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) PublishedSince(_ context.Context, _, _ time.Time) ([]tournaments.Tournament, error) {
	return f.published, nil
}

func (f *fakeStore) TournamentByID(_ context.Context, id int64) (*tournaments.Tournament, error) {
	for i := range f.published {
		if f.published[i].ID == id {
			return &f.published[i], nil
		}
	}
	return nil, ErrTournamentNotFound
}

func (f *fakeStore) SentCountSince(_ context.Context, email string, _ time.Time) (int, error) {
	n := 0
	for _, r := range f.records {
		if r.Email == email && r.Status == StatusSent {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeliveredTournaments(_ context.Context, subID int64, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, id := range ids {
		if f.delivered[subID][id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeStore) RecordDelivery(_ context.Context, rec DeliveryRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, subID int64, ids []int64) error {
	if f.delivered[subID] == nil {
		f.delivered[subID] = make(map[int64]bool)
	}
	for _, id := range ids {
		f.delivered[subID][id] = true
	}
	return nil
}

func (f *fakeStore) UpdateLastSent(_ context.Context, subID int64, at time.Time) error {
	for i := range f.subs {
		if f.subs[i].ID == subID {
			t := at
			f.subs[i].LastSentAt = &t
		}
	}
	return nil
}

func (f *fakeStore) TryAcquireCycleLock(_ context.Context, _ Frequency) (func(), bool, error) {
	if f.lockBusy {
		return nil, false, nil
	}
	return func() {}, true, nil
}

func (f *fakeStore) recordsWithStatus(status DeliveryStatus) []DeliveryRecord {
	var out []DeliveryRecord
	for _, r := range f.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// fakeSender collects sent digests; fails when err is set.
type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendDigest(_ context.Context, to string, _ *Digest) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func testDispatcher(store Store, sender Sender) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(store, sender, "https://pitchfinder.co.uk", logger)
}

func TestRunDigestCycleRejectsInstant(t *testing.T) {
	d := testDispatcher(newFakeStore(), &fakeSender{})
	if _, err := d.RunDigestCycle(context.Background(), FrequencyInstant, time.Now()); err == nil {
		t.Fatal("instant frequency must be rejected for digest cycles")
	}
}

func TestRunDigestCycleLockBusy(t *testing.T) {
	store := newFakeStore()
	store.lockBusy = true
	d := testDispatcher(store, &fakeSender{})

	_, err := d.RunDigestCycle(context.Background(), FrequencyDaily, time.Now())
	if !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("err = %v, want ErrCycleInProgress", err)
	}
}

func TestRunDigestCycleSendsAndGates(t *testing.T) {
	store := newFakeStore()
	sub := verifiedSub(FrequencyDaily)
	sub.Criteria = Criteria{Regions: []string{"Greater Manchester"}}
	store.subs = []Subscription{*sub}
	store.published = candidateSet(2)
	sender := &fakeSender{}
	d := testDispatcher(store, sender)

	now := date(2026, time.July, 10)
	res, err := d.RunDigestCycle(context.Background(), FrequencyDaily, now)
	if err != nil {
		t.Fatalf("RunDigestCycle: %v", err)
	}
	if res.Processed != 1 || res.Sent != 1 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(sender.sent) != 1 || sender.sent[0] != sub.Email {
		t.Fatalf("sent to %v", sender.sent)
	}

	sent := store.recordsWithStatus(StatusSent)
	if len(sent) != 1 || sent[0].TournamentCount != 2 {
		t.Fatalf("sent records = %+v", sent)
	}
	if !store.delivered[sub.ID][1] || !store.delivered[sub.ID][2] {
		t.Fatal("delivered pairs not recorded")
	}

	// A second trigger an hour later is absorbed by the minimum interval.
	res, err = d.RunDigestCycle(context.Background(), FrequencyDaily, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 1 {
		t.Fatalf("second cycle result = %+v", res)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("second cycle sent mail: %v", sender.sent)
	}
	if len(store.records) != 1 {
		t.Fatalf("interval skip must not write an audit row, records = %+v", store.records)
	}

	// A day later the gate opens again, but everything is already delivered,
	// so the cycle records a duplicate instead of re-sending.
	res, err = d.RunDigestCycle(context.Background(), FrequencyDaily, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 1 {
		t.Fatalf("third cycle result = %+v", res)
	}
	if dup := store.recordsWithStatus(StatusDuplicate); len(dup) != 1 {
		t.Fatalf("duplicate records = %+v", dup)
	}
}

func TestRunDigestCycleSkipsUnverified(t *testing.T) {
	store := newFakeStore()
	sub := verifiedSub(FrequencyDaily)
	sub.VerifiedAt = nil
	store.subs = []Subscription{*sub}
	store.published = candidateSet(3)
	sender := &fakeSender{}
	d := testDispatcher(store, sender)

	res, err := d.RunDigestCycle(context.Background(), FrequencyDaily, time.Now())
	if err != nil {
		t.Fatalf("RunDigestCycle: %v", err)
	}
	if res.Skipped != 1 || res.Sent != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(sender.sent) != 0 {
		t.Fatal("unverified subscription received mail")
	}
	if len(store.records) != 0 {
		t.Fatalf("eligibility skip must not write an audit row, records = %+v", store.records)
	}
}

func TestRunDigestCycleSkipsNoMatch(t *testing.T) {
	store := newFakeStore()
	sub := verifiedSub(FrequencyDaily)
	sub.Criteria = Criteria{Regions: []string{"Cornwall"}}
	store.subs = []Subscription{*sub}
	store.published = candidateSet(3)
	d := testDispatcher(store, &fakeSender{})

	res, err := d.RunDigestCycle(context.Background(), FrequencyDaily, time.Now())
	if err != nil {
		t.Fatalf("RunDigestCycle: %v", err)
	}
	if res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(store.records) != 0 {
		t.Fatalf("no-match skip must not write an audit row, records = %+v", store.records)
	}
}

func TestRunDigestCyclePartialDuplicates(t *testing.T) {
	// Two of three candidates were already delivered; the digest carries only
	// the fresh one and the subject count reflects that.
	store := newFakeStore()
	sub := verifiedSub(FrequencyDaily)
	store.subs = []Subscription{*sub}
	store.published = candidateSet(3)
	store.delivered[sub.ID] = map[int64]bool{1: true, 2: true}
	sender := &fakeSender{}
	d := testDispatcher(store, sender)

	res, err := d.RunDigestCycle(context.Background(), FrequencyDaily, time.Now())
	if err != nil {
		t.Fatalf("RunDigestCycle: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("result = %+v", res)
	}
	sent := store.recordsWithStatus(StatusSent)
	if len(sent) != 1 || sent[0].TournamentCount != 1 {
		t.Fatalf("sent records = %+v", sent)
	}
}

func TestRunDigestCycleSendFailure(t *testing.T) {
	store := newFakeStore()
	sub := verifiedSub(FrequencyDaily)
	store.subs = []Subscription{*sub}
	store.published = candidateSet(1)
	sender := &fakeSender{err: errors.New("smtp: connection refused")}
	d := testDispatcher(store, sender)

	res, err := d.RunDigestCycle(context.Background(), FrequencyDaily, time.Now())
	if err != nil {
		t.Fatalf("RunDigestCycle: %v", err)
	}
	if res.Failed != 1 || res.Sent != 0 {
		t.Fatalf("result = %+v", res)
	}

	failed := store.recordsWithStatus(StatusFailed)
	if len(failed) != 1 || failed[0].ErrorText == "" {
		t.Fatalf("failed records = %+v", failed)
	}
	// A failed send must not advance last_sent; the next cycle retries.
	for _, s := range store.subs {
		if s.LastSentAt != nil {
			t.Fatal("failed send advanced last_sent")
		}
	}
	if len(store.delivered[sub.ID]) != 0 {
		t.Fatal("failed send recorded delivered pairs")
	}
}

func TestRunInstantUnknownTournament(t *testing.T) {
	d := testDispatcher(newFakeStore(), &fakeSender{})
	_, err := d.RunInstant(context.Background(), 99, time.Now())
	if !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("err = %v, want ErrTournamentNotFound", err)
	}
}

func TestRunInstantUnpublishedNoOp(t *testing.T) {
	store := newFakeStore()
	tour := manchesterCup()
	tour.Published = false
	store.published = []tournaments.Tournament{tour}
	store.subs = []Subscription{*verifiedSub(FrequencyInstant)}
	sender := &fakeSender{}
	d := testDispatcher(store, sender)

	res, err := d.RunInstant(context.Background(), tour.ID, time.Now())
	if err != nil {
		t.Fatalf("RunInstant: %v", err)
	}
	if res.Processed != 0 || len(sender.sent) != 0 {
		t.Fatalf("unpublished tournament dispatched: %+v", res)
	}
}

func TestRunInstantDuplicateSuppression(t *testing.T) {
	store := newFakeStore()
	tour := manchesterCup()
	store.published = []tournaments.Tournament{tour}
	sub := verifiedSub(FrequencyInstant)
	store.subs = []Subscription{*sub}
	store.delivered[sub.ID] = map[int64]bool{tour.ID: true}
	sender := &fakeSender{}
	d := testDispatcher(store, sender)

	res, err := d.RunInstant(context.Background(), tour.ID, time.Now())
	if err != nil {
		t.Fatalf("RunInstant: %v", err)
	}
	if res.Skipped != 1 || len(sender.sent) != 0 {
		t.Fatalf("result = %+v, sent = %v", res, sender.sent)
	}
	if dup := store.recordsWithStatus(StatusDuplicate); len(dup) != 1 {
		t.Fatalf("duplicate records = %+v", dup)
	}
}

func TestRunInstantDailyCap(t *testing.T) {
	store := newFakeStore()
	sub := verifiedSub(FrequencyInstant)
	store.subs = []Subscription{*sub}

	tours := candidateSet(InstantDailyCap + 1)
	store.published = tours
	sender := &fakeSender{}
	d := testDispatcher(store, sender)

	now := time.Now().UTC()
	for i := 0; i < InstantDailyCap; i++ {
		res, err := d.RunInstant(context.Background(), tours[i].ID, now)
		if err != nil {
			t.Fatalf("RunInstant #%d: %v", i+1, err)
		}
		if res.Sent != 1 {
			t.Fatalf("RunInstant #%d result = %+v", i+1, res)
		}
	}

	// The fourth send of the UTC day is rate limited.
	res, err := d.RunInstant(context.Background(), tours[InstantDailyCap].ID, now)
	if err != nil {
		t.Fatalf("RunInstant over cap: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 1 {
		t.Fatalf("over-cap result = %+v", res)
	}
	if rl := store.recordsWithStatus(StatusRateLimited); len(rl) != 1 {
		t.Fatalf("rate limited records = %+v", rl)
	}
	if len(sender.sent) != InstantDailyCap {
		t.Fatalf("sent = %v", sender.sent)
	}
}

func TestRunInstantNonMatchingCriteria(t *testing.T) {
	store := newFakeStore()
	tour := manchesterCup()
	store.published = []tournaments.Tournament{tour}
	sub := verifiedSub(FrequencyInstant)
	sub.Criteria = Criteria{Formats: []string{"11v11"}}
	store.subs = []Subscription{*sub}
	d := testDispatcher(store, &fakeSender{})

	res, err := d.RunInstant(context.Background(), tour.ID, time.Now())
	if err != nil {
		t.Fatalf("RunInstant: %v", err)
	}
	if res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(store.records) != 0 {
		t.Fatalf("no-match skip must not write an audit row, records = %+v", store.records)
	}
}

func TestTooSoon(t *testing.T) {
	now := date(2026, time.July, 10)
	recent := now.Add(-2 * time.Hour)
	old := now.Add(-48 * time.Hour)

	tests := []struct {
		name     string
		freq     Frequency
		lastSent *time.Time
		want     bool
	}{
		{"never sent", FrequencyDaily, nil, false},
		{"daily recent", FrequencyDaily, &recent, true},
		{"daily old", FrequencyDaily, &old, false},
		{"weekly recent", FrequencyWeekly, &old, true},
		{"instant never gated", FrequencyInstant, &recent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{Frequency: tt.freq, LastSentAt: tt.lastSent}
			if got := tooSoon(sub, now); got != tt.want {
				t.Errorf("tooSoon = %v, want %v", got, tt.want)
			}
		})
	}
}
