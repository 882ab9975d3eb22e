// Package tournaments holds the tournament catalogue: the record model,
// validation, and the Postgres store behind the public listing API and the
// alert matcher.
package tournaments

import (
	"fmt"
	"time"
)

// Format enumerates supported small-sided and full match formats.
type Format string

const (
	Format3v3   Format = "3v3"
	Format4v4   Format = "4v4"
	Format5v5   Format = "5v5"
	Format6v6   Format = "6v6"
	Format7v7   Format = "7v7"
	Format9v9   Format = "9v9"
	Format11v11 Format = "11v11"
)

// Category enumerates event categories.
type Category string

const (
	CategoryTournament Category = "tournament"
	CategoryLeague     Category = "league"
	CategoryCup        Category = "cup"
	CategoryFestival   Category = "festival"
	CategoryCamp       Category = "camp"
)

var validFormats = map[Format]bool{
	Format3v3: true, Format4v4: true, Format5v5: true, Format6v6: true,
	Format7v7: true, Format9v9: true, Format11v11: true,
}

var validCategories = map[Category]bool{
	CategoryTournament: true, CategoryLeague: true, CategoryCup: true,
	CategoryFestival: true, CategoryCamp: true,
}

// Tournament is a published (or draft) event.
type Tournament struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	VenueName   string     `json:"venue_name,omitempty"`
	Postcode    string     `json:"postcode,omitempty"`
	Region      string     `json:"region,omitempty"`
	Country     string     `json:"country,omitempty"`
	Longitude   float64    `json:"longitude"`
	Latitude    float64    `json:"latitude"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	RegDeadline *time.Time `json:"reg_deadline,omitempty"`
	Format      Format     `json:"format"`
	AgeGroups   []string   `json:"age_groups"`
	TeamTypes   []string   `json:"team_types"`
	Category    Category   `json:"category"`
	Cost        *float64   `json:"cost,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	SourceURL   *string    `json:"source_url,omitempty"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks the record invariants: start <= end, valid WGS84
// coordinates, and known enum values.
func (t *Tournament) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if t.StartDate.After(t.EndDate) {
		return fmt.Errorf("start_date must not be after end_date")
	}
	if t.Longitude < -180 || t.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", t.Longitude)
	}
	if t.Latitude < -90 || t.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", t.Latitude)
	}
	if !validFormats[t.Format] {
		return fmt.Errorf("unknown format %q", t.Format)
	}
	if t.Category != "" && !validCategories[t.Category] {
		return fmt.Errorf("unknown category %q", t.Category)
	}
	return nil
}

// ResolvedCost returns the numeric cost, treating an absent cost as 0.
func (t *Tournament) ResolvedCost() float64 {
	if t.Cost == nil {
		return 0
	}
	return *t.Cost
}
