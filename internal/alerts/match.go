package alerts

import (
	"strings"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

// Matches reports whether a tournament satisfies every present criteria
// dimension. Pure and total: absent fields and empty lists always pass, and
// missing optional tournament fields never panic.
func Matches(t *tournaments.Tournament, c Criteria) bool {
	if c.Search != "" && !matchesSearch(t, c.Search) {
		return false
	}
	if c.Location != nil && !matchesLocation(t, c.Location) {
		return false
	}
	if len(c.Formats) > 0 && !contains(c.Formats, string(t.Format)) {
		return false
	}
	if len(c.AgeGroups) > 0 && !overlaps(t.AgeGroups, c.AgeGroups) {
		return false
	}
	if len(c.TeamTypes) > 0 && !overlaps(t.TeamTypes, c.TeamTypes) {
		return false
	}
	if len(c.Categories) > 0 && !contains(c.Categories, string(t.Category)) {
		return false
	}
	if len(c.Regions) > 0 && !contains(c.Regions, t.Region) {
		return false
	}
	if c.Price != nil && !matchesPrice(t, c.Price) {
		return false
	}
	if c.Dates != nil && !matchesDates(t, c.Dates) {
		return false
	}
	return true
}

// matchesSearch does a case-insensitive substring test against the
// tournament's searchable text.
func matchesSearch(t *tournaments.Tournament, term string) bool {
	haystack := strings.ToLower(t.Name + " " + t.Description + " " + t.VenueName + " " + t.Region)
	return strings.Contains(haystack, strings.ToLower(term))
}

// matchesLocation applies the radius filter when coordinates are present,
// otherwise falls back to a place-name substring match.
func matchesLocation(t *tournaments.Tournament, loc *LocationFilter) bool {
	if loc.Point != nil {
		radius := loc.RadiusMiles
		if radius <= 0 {
			radius = DefaultRadiusMiles
		}
		return WithinRadius(Point{Longitude: t.Longitude, Latitude: t.Latitude}, *loc.Point, radius)
	}
	if loc.Text != "" {
		q := strings.ToLower(loc.Text)
		return strings.Contains(strings.ToLower(t.VenueName), q) ||
			strings.Contains(strings.ToLower(t.Region), q)
	}
	return true
}

func matchesPrice(t *tournaments.Tournament, p *PriceFilter) bool {
	cost := t.ResolvedCost()
	if p.IncludeFree && cost == 0 {
		return true
	}
	if p.Min != nil && cost < *p.Min {
		return false
	}
	if p.Max != nil && cost > *p.Max {
		return false
	}
	return true
}

// matchesDates passes when [start,end] overlaps the inclusive window.
func matchesDates(t *tournaments.Tournament, d *DateFilter) bool {
	if d.From != nil && t.EndDate.Before(*d.From) {
		return false
	}
	if d.To != nil && t.StartDate.After(*d.To) {
		return false
	}
	return true
}

// contains is a case-insensitive membership test.
func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

// overlaps reports whether the two lists share at least one element.
// Intersection semantics, not containment.
func overlaps(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}
