package alerts

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// Digest is a rendered-ready notification payload for one subscription.
type Digest struct {
	Subject        string
	Entries        []DigestEntry
	OverflowCount  int
	BrowseURL      string
	ManageURL      string
	UnsubscribeURL string
	TournamentIDs  []int64
}

// DigestEntry is one tournament summary line.
type DigestEntry struct {
	Name      string
	Venue     string
	DateRange string
	Format    string
	AgeGroups []string
	Category  string
	Price     string
	URL       string
}

// BuildDigest filters candidates through the subscription's criteria and
// assembles the message payload. Returns nil when nothing matches; callers
// must not send an empty digest. Links are always built from the management
// token; the verification token is single-purpose and never doubles as an
// unsubscribe credential.
func BuildDigest(candidates []tournaments.Tournament, sub *Subscription, baseURL string) *Digest {
	var matched []tournaments.Tournament
	for i := range candidates {
		if Matches(&candidates[i], sub.Criteria) {
			matched = append(matched, candidates[i])
		}
	}
	if len(matched) == 0 {
		return nil
	}

	d := &Digest{
		Subject:        subjectLine(len(matched)),
		BrowseURL:      fmt.Sprintf("%s/tournaments?alert=%s", baseURL, url.QueryEscape(sub.ManagementToken)),
		ManageURL:      fmt.Sprintf("%s/alerts/manage?token=%s", baseURL, url.QueryEscape(sub.ManagementToken)),
		UnsubscribeURL: fmt.Sprintf("%s/api/v1/alerts/unsubscribe?token=%s&alertId=%d", baseURL, url.QueryEscape(sub.ManagementToken), sub.ID),
	}

	for i := range matched {
		t := &matched[i]
		d.TournamentIDs = append(d.TournamentIDs, t.ID)
		if len(d.Entries) >= DigestMaxEntries {
			continue
		}
		d.Entries = append(d.Entries, DigestEntry{
			Name:      t.Name,
			Venue:     t.VenueName,
			DateRange: formatDateRange(t.StartDate, t.EndDate),
			Format:    string(t.Format),
			AgeGroups: t.AgeGroups,
			Category:  string(t.Category),
			Price:     formatPrice(t),
			URL:       fmt.Sprintf("%s/tournaments/%d", baseURL, t.ID),
		})
	}
	d.OverflowCount = len(matched) - len(d.Entries)
	return d
}

// subjectLine uses singular phrasing for exactly one match.
func subjectLine(n int) string {
	if n == 1 {
		return "1 new tournament matches your alert"
	}
	return fmt.Sprintf("%d new tournaments match your alert", n)
}

func formatDateRange(start, end time.Time) string {
	const layout = "Mon 2 Jan 2006"
	if start.Format(layout) == end.Format(layout) {
		return start.Format(layout)
	}
	return start.Format(layout) + " – " + end.Format(layout)
}

var currencySymbols = map[string]string{
	"GBP": "£",
	"EUR": "€",
	"USD": "$",
}

func formatPrice(t *tournaments.Tournament) string {
	if t.Cost == nil {
		return "Contact for pricing"
	}
	if *t.Cost == 0 {
		return "Free"
	}
	if sym, ok := currencySymbols[t.Currency]; ok {
		return fmt.Sprintf("%s%.2f", sym, *t.Cost)
	}
	return fmt.Sprintf("%s %.2f", t.Currency, *t.Cost)
}
