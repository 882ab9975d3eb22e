package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

const listingHTML = `<!DOCTYPE html>
<html><body>
<div class="tournament-card"
     data-start-date="2026-07-11" data-end-date="2026-07-12"
     data-format="7v7" data-category="cup"
     data-age-groups="U9,U10,U11" data-team-types="boys, mixed"
     data-postcode="m14 7uf" data-region="Greater Manchester"
     data-longitude="-2.2426" data-latitude="53.4808"
     data-cost="25" data-currency="GBP" data-reg-deadline="2026-06-30">
  <h3 class="tournament-name">Manchester Summer Cup</h3>
  <p class="tournament-venue">Platt Lane Complex</p>
  <p class="tournament-description">Two days of youth football.</p>
  <a class="tournament-link" href="https://partner.example/events/msc-2026">Details</a>
</div>
<div class="tournament-card" data-start-date="2026-08-01" data-format="5v5">
  <h3 class="tournament-name">Minimal Listing</h3>
</div>
<div class="tournament-card" data-start-date="2026-08-01" data-format="7v7">
  <!-- no name, unparseable -->
</div>
</body></html>`

func cards(t *testing.T) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("parse fixture html: %v", err)
	}
	return doc.Find(cardSelector)
}

func TestParseCardFull(t *testing.T) {
	sel := cards(t)
	draft, err := parseCard(sel.Eq(0), "https://partner.example/listings")
	if err != nil {
		t.Fatalf("parseCard: %v", err)
	}

	if draft.Name != "Manchester Summer Cup" {
		t.Errorf("name = %q", draft.Name)
	}
	if draft.VenueName != "Platt Lane Complex" {
		t.Errorf("venue = %q", draft.VenueName)
	}
	if draft.Postcode != "M14 7UF" {
		t.Errorf("postcode = %q, want uppercased", draft.Postcode)
	}
	if draft.Format != tournaments.Format7v7 || draft.Category != tournaments.CategoryCup {
		t.Errorf("format/category = %v/%v", draft.Format, draft.Category)
	}
	if len(draft.AgeGroups) != 3 || draft.AgeGroups[2] != "U11" {
		t.Errorf("age groups = %v", draft.AgeGroups)
	}
	if len(draft.TeamTypes) != 2 || draft.TeamTypes[1] != "mixed" {
		t.Errorf("team types = %v (whitespace not trimmed?)", draft.TeamTypes)
	}
	if draft.StartDate != time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC) {
		t.Errorf("start = %v", draft.StartDate)
	}
	if draft.Cost == nil || *draft.Cost != 25 || draft.Currency != "GBP" {
		t.Errorf("cost = %v %v", draft.Cost, draft.Currency)
	}
	if draft.RegDeadline == nil {
		t.Error("reg deadline not parsed")
	}
	if draft.Published {
		t.Error("imported draft must be unpublished")
	}
	if draft.SourceURL == nil || !strings.HasPrefix(*draft.SourceURL, "https://partner.example/events/msc-2026") {
		t.Errorf("source url = %v", draft.SourceURL)
	}
}

func TestParseCardMinimal(t *testing.T) {
	sel := cards(t)
	draft, err := parseCard(sel.Eq(1), "https://partner.example/listings")
	if err != nil {
		t.Fatalf("parseCard: %v", err)
	}
	if draft.Name != "Minimal Listing" {
		t.Errorf("name = %q", draft.Name)
	}
	// Missing end date falls back to the start date.
	if !draft.EndDate.Equal(draft.StartDate) {
		t.Errorf("end = %v, want %v", draft.EndDate, draft.StartDate)
	}
	if draft.Cost != nil {
		t.Errorf("cost = %v, want nil", draft.Cost)
	}
	// Source URL falls back to the listing page, disambiguated by name.
	if draft.SourceURL == nil || !strings.Contains(*draft.SourceURL, "#minimal-listing") {
		t.Errorf("source url = %v", draft.SourceURL)
	}
}

func TestParseCardMissingName(t *testing.T) {
	sel := cards(t)
	if _, err := parseCard(sel.Eq(2), "https://partner.example/listings"); err == nil {
		t.Fatal("parseCard accepted a card without a name")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Manchester Summer Cup", "manchester-summer-cup"},
		{"  U9/U10 Festival!  ", "u9u10-festival"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
