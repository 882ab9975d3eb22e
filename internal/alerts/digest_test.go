package alerts

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

func verifiedSub(freq Frequency) *Subscription {
	verified := date(2026, time.June, 1)
	return &Subscription{
		ID:              7,
		Email:           "coach@example.org",
		Frequency:       freq,
		Active:          true,
		VerifiedAt:      &verified,
		VerifyToken:     "verify-token",
		ManagementToken: "manage-token",
	}
}

func candidateSet(n int) []tournaments.Tournament {
	out := make([]tournaments.Tournament, n)
	for i := range out {
		out[i] = manchesterCup()
		out[i].ID = int64(i + 1)
		out[i].Name = fmt.Sprintf("Tournament %d", i+1)
	}
	return out
}

func TestBuildDigestNilWhenNothingMatches(t *testing.T) {
	sub := verifiedSub(FrequencyDaily)
	sub.Criteria = Criteria{Regions: []string{"Cornwall"}}

	if d := BuildDigest(candidateSet(3), sub, "https://pitchfinder.co.uk"); d != nil {
		t.Fatalf("BuildDigest = %+v, want nil", d)
	}
}

func TestBuildDigestSubjectLine(t *testing.T) {
	sub := verifiedSub(FrequencyDaily)

	one := BuildDigest(candidateSet(1), sub, "https://pitchfinder.co.uk")
	if one.Subject != "1 new tournament matches your alert" {
		t.Errorf("singular subject = %q", one.Subject)
	}

	three := BuildDigest(candidateSet(3), sub, "https://pitchfinder.co.uk")
	if three.Subject != "3 new tournaments match your alert" {
		t.Errorf("plural subject = %q", three.Subject)
	}
}

func TestBuildDigestCapsEntriesWithOverflow(t *testing.T) {
	sub := verifiedSub(FrequencyWeekly)
	d := BuildDigest(candidateSet(14), sub, "https://pitchfinder.co.uk")

	if len(d.Entries) != DigestMaxEntries {
		t.Errorf("entries = %d, want %d", len(d.Entries), DigestMaxEntries)
	}
	if d.OverflowCount != 4 {
		t.Errorf("overflow = %d, want 4", d.OverflowCount)
	}
	// Every match is recorded for duplicate suppression, listed or not.
	if len(d.TournamentIDs) != 14 {
		t.Errorf("tournament ids = %d, want 14", len(d.TournamentIDs))
	}
}

func TestBuildDigestLinksUseManagementToken(t *testing.T) {
	sub := verifiedSub(FrequencyDaily)
	d := BuildDigest(candidateSet(1), sub, "https://pitchfinder.co.uk")

	for name, u := range map[string]string{
		"browse":      d.BrowseURL,
		"manage":      d.ManageURL,
		"unsubscribe": d.UnsubscribeURL,
	} {
		if !strings.Contains(u, "manage-token") {
			t.Errorf("%s URL missing management token: %s", name, u)
		}
		if strings.Contains(u, "verify-token") {
			t.Errorf("%s URL leaks verification token: %s", name, u)
		}
	}
	if !strings.Contains(d.UnsubscribeURL, "alertId=7") {
		t.Errorf("unsubscribe URL missing alert id: %s", d.UnsubscribeURL)
	}
}

func TestBuildDigestEntryFields(t *testing.T) {
	sub := verifiedSub(FrequencyDaily)
	d := BuildDigest(candidateSet(1), sub, "https://pitchfinder.co.uk")

	e := d.Entries[0]
	if e.Name != "Tournament 1" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Price != "£25.00" {
		t.Errorf("price = %q", e.Price)
	}
	if e.URL != "https://pitchfinder.co.uk/tournaments/1" {
		t.Errorf("url = %q", e.URL)
	}
	if e.DateRange != "Sat 11 Jul 2026 – Sun 12 Jul 2026" {
		t.Errorf("date range = %q", e.DateRange)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		cost     *float64
		currency string
		want     string
	}{
		{"absent cost", nil, "", "Contact for pricing"},
		{"free", ptrF(0), "GBP", "Free"},
		{"gbp", ptrF(35), "GBP", "£35.00"},
		{"eur", ptrF(20.5), "EUR", "€20.50"},
		{"unknown currency", ptrF(15), "CHF", "CHF 15.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := manchesterCup()
			tour.Cost = tt.cost
			tour.Currency = tt.currency
			if got := formatPrice(&tour); got != tt.want {
				t.Errorf("formatPrice = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDateRangeSingleDay(t *testing.T) {
	d := date(2026, time.July, 11)
	if got := formatDateRange(d, d); got != "Sat 11 Jul 2026" {
		t.Errorf("single day range = %q", got)
	}
}
