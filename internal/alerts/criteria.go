package alerts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Point is a WGS84 coordinate.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// LocationFilter narrows by distance from a point, or by a plain place name
// when no coordinates are known.
type LocationFilter struct {
	Text        string  `json:"text,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
	Point       *Point  `json:"point,omitempty"`
	RadiusMiles float64 `json:"radius_miles,omitempty"`
}

// PriceFilter narrows by resolved cost. IncludeFree admits zero-cost
// tournaments regardless of the min/max bounds.
type PriceFilter struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	IncludeFree bool     `json:"include_free,omitempty"`
}

// DateFilter is an inclusive window; either side may be open.
type DateFilter struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Criteria is the validated filter set for one subscription. Absent fields
// and empty lists both mean "no filtering on that dimension".
type Criteria struct {
	Search     string          `json:"search,omitempty"`
	Location   *LocationFilter `json:"location,omitempty"`
	Formats    []string        `json:"formats,omitempty"`
	AgeGroups  []string        `json:"age_groups,omitempty"`
	TeamTypes  []string        `json:"team_types,omitempty"`
	Categories []string        `json:"categories,omitempty"`
	Regions    []string        `json:"regions,omitempty"`
	Price      *PriceFilter    `json:"price,omitempty"`
	Dates      *DateFilter     `json:"dates,omitempty"`
}

// ParseCriteria builds a Criteria from a raw JSON payload once, at the
// boundary. Payloads arrive either as an object or as a JSON string holding
// the encoded object (double-encoded legacy clients); both are accepted.
func ParseCriteria(raw []byte) (Criteria, error) {
	var c Criteria
	if len(raw) == 0 {
		return c, nil
	}

	// Double-encoded form: "{\"formats\":[\"7v7\"]}"
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return c, fmt.Errorf("parse criteria string: %w", err)
		}
		raw = []byte(inner)
		if len(raw) == 0 {
			return c, nil
		}
	}

	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("parse criteria: %w", err)
	}
	return c.normalized(), nil
}

// normalized drops degenerate sub-filters so the matcher never re-checks
// shape: empty location and date filters collapse to nil, the window is
// reordered if reversed.
func (c Criteria) normalized() Criteria {
	if c.Location != nil && c.Location.Point == nil && c.Location.Text == "" && c.Location.Postcode == "" {
		c.Location = nil
	}
	if c.Dates != nil {
		if c.Dates.From == nil && c.Dates.To == nil {
			c.Dates = nil
		} else if c.Dates.From != nil && c.Dates.To != nil && c.Dates.From.After(*c.Dates.To) {
			c.Dates.From, c.Dates.To = c.Dates.To, c.Dates.From
		}
	}
	if c.Price != nil && c.Price.Min == nil && c.Price.Max == nil && !c.Price.IncludeFree {
		c.Price = nil
	}
	return c
}

func marshalCriteria(c Criteria) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal criteria: %w", err)
	}
	return raw, nil
}

// Empty reports whether the criteria filter nothing at all.
func (c Criteria) Empty() bool {
	return c.Search == "" && c.Location == nil && len(c.Formats) == 0 &&
		len(c.AgeGroups) == 0 && len(c.TeamTypes) == 0 && len(c.Categories) == 0 &&
		len(c.Regions) == 0 && c.Price == nil && c.Dates == nil
}
