package alerts

import (
	"testing"
	"time"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrF(v float64) *float64 { return &v }
func ptrT(t time.Time) *time.Time { return &t }

// manchesterCup is the baseline candidate used across matcher tests.
func manchesterCup() tournaments.Tournament {
	cost := 25.0
	return tournaments.Tournament{
		ID:        1,
		Name:      "Manchester Summer Cup",
		VenueName: "Platt Lane Complex",
		Region:    "Greater Manchester",
		Longitude: -2.2426,
		Latitude:  53.4808,
		StartDate: date(2026, time.July, 11),
		EndDate:   date(2026, time.July, 12),
		Format:    tournaments.Format7v7,
		AgeGroups: []string{"U9", "U10", "U11"},
		TeamTypes: []string{"boys", "mixed"},
		Category:  tournaments.CategoryCup,
		Cost:      &cost,
		Currency:  "GBP",
		Published: true,
	}
}

func TestMatchesEmptyCriteria(t *testing.T) {
	tour := manchesterCup()
	if !Matches(&tour, Criteria{}) {
		t.Fatal("empty criteria must match everything")
	}
}

func TestMatchesEmptyListsAreAbsent(t *testing.T) {
	tour := manchesterCup()
	c := Criteria{Formats: []string{}, AgeGroups: []string{}, Regions: []string{}}
	if !Matches(&tour, c) {
		t.Fatal("empty lists must behave like absent filters")
	}
}

func TestMatchesDimensions(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"search hit in name", Criteria{Search: "summer cup"}, true},
		{"search hit in venue", Criteria{Search: "platt lane"}, true},
		{"search miss", Criteria{Search: "beach soccer"}, false},
		{"format hit", Criteria{Formats: []string{"7v7"}}, true},
		{"format case-insensitive", Criteria{Formats: []string{"7V7"}}, true},
		{"format miss", Criteria{Formats: []string{"11v11"}}, false},
		{"age group intersection", Criteria{AgeGroups: []string{"U11", "U12"}}, true},
		{"age group disjoint", Criteria{AgeGroups: []string{"U15", "U16"}}, false},
		{"team type intersection", Criteria{TeamTypes: []string{"mixed"}}, true},
		{"team type disjoint", Criteria{TeamTypes: []string{"girls"}}, false},
		{"category hit", Criteria{Categories: []string{"cup", "festival"}}, true},
		{"category miss", Criteria{Categories: []string{"camp"}}, false},
		{"region hit", Criteria{Regions: []string{"Greater Manchester"}}, true},
		{"region miss", Criteria{Regions: []string{"Kent"}}, false},
		{"two dimensions both hit", Criteria{Formats: []string{"7v7"}, Regions: []string{"Greater Manchester"}}, true},
		{"two dimensions one miss", Criteria{Formats: []string{"7v7"}, Regions: []string{"Kent"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := manchesterCup()
			if got := Matches(&tour, tt.criteria); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesAgeGroupIntersectionNotContainment(t *testing.T) {
	// Subscriber asks for more age groups than the tournament hosts; one
	// shared group is enough.
	tour := manchesterCup()
	c := Criteria{AgeGroups: []string{"U8", "U9", "U14", "U15", "U16"}}
	if !Matches(&tour, c) {
		t.Fatal("a single shared age group must match")
	}
}

func TestMatchesPrice(t *testing.T) {
	tests := []struct {
		name string
		cost *float64
		p    PriceFilter
		want bool
	}{
		{"within bounds", ptrF(25), PriceFilter{Min: ptrF(10), Max: ptrF(50)}, true},
		{"below min", ptrF(5), PriceFilter{Min: ptrF(10)}, false},
		{"above max", ptrF(80), PriceFilter{Max: ptrF(50)}, false},
		{"at min boundary", ptrF(10), PriceFilter{Min: ptrF(10)}, true},
		{"at max boundary", ptrF(50), PriceFilter{Max: ptrF(50)}, true},
		{"free excluded by min", ptrF(0), PriceFilter{Min: ptrF(10)}, false},
		{"free admitted by include_free despite min", ptrF(0), PriceFilter{Min: ptrF(10), IncludeFree: true}, true},
		{"absent cost treated as zero", nil, PriceFilter{Min: ptrF(10)}, false},
		{"absent cost with include_free", nil, PriceFilter{Min: ptrF(10), IncludeFree: true}, true},
		{"include_free does not bypass bounds for paid", ptrF(80), PriceFilter{Max: ptrF(50), IncludeFree: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := manchesterCup()
			tour.Cost = tt.cost
			if got := Matches(&tour, Criteria{Price: &tt.p}); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesDates(t *testing.T) {
	// Tournament runs 11–12 July 2026.
	tests := []struct {
		name string
		d    DateFilter
		want bool
	}{
		{"window covers event", DateFilter{From: ptrT(date(2026, time.July, 1)), To: ptrT(date(2026, time.July, 31))}, true},
		{"window ends on start day", DateFilter{To: ptrT(date(2026, time.July, 11))}, true},
		{"window starts on end day", DateFilter{From: ptrT(date(2026, time.July, 12))}, true},
		{"window before event", DateFilter{To: ptrT(date(2026, time.July, 10))}, false},
		{"window after event", DateFilter{From: ptrT(date(2026, time.July, 13))}, false},
		{"open-ended from", DateFilter{From: ptrT(date(2026, time.June, 1))}, true},
		{"open-ended to", DateFilter{To: ptrT(date(2026, time.August, 1))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := manchesterCup()
			if got := Matches(&tour, Criteria{Dates: &tt.d}); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesLocation(t *testing.T) {
	manchester := Point{Longitude: -2.2426, Latitude: 53.4808}
	london := Point{Longitude: -0.1276, Latitude: 51.5072}

	tests := []struct {
		name string
		loc  LocationFilter
		want bool
	}{
		{"same point within default radius", LocationFilter{Point: &manchester}, true},
		{"london outside 50 mile default", LocationFilter{Point: &london}, false},
		{"london within explicit 200 miles", LocationFilter{Point: &london, RadiusMiles: 200}, true},
		{"text matches venue", LocationFilter{Text: "platt lane"}, true},
		{"text matches region", LocationFilter{Text: "manchester"}, true},
		{"text miss", LocationFilter{Text: "cornwall"}, false},
		{"point wins over text", LocationFilter{Point: &london, Text: "manchester"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := manchesterCup()
			if got := Matches(&tour, Criteria{Location: &tt.loc}); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
