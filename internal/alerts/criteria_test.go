package alerts

import (
	"testing"
	"time"
)

func TestParseCriteriaObject(t *testing.T) {
	raw := []byte(`{"formats":["7v7","9v9"],"regions":["Kent"],"price":{"max":40,"include_free":true}}`)
	c, err := ParseCriteria(raw)
	if err != nil {
		t.Fatalf("ParseCriteria: %v", err)
	}
	if len(c.Formats) != 2 || c.Formats[0] != "7v7" {
		t.Errorf("formats = %v", c.Formats)
	}
	if c.Price == nil || c.Price.Max == nil || *c.Price.Max != 40 || !c.Price.IncludeFree {
		t.Errorf("price = %+v", c.Price)
	}
}

func TestParseCriteriaDoubleEncoded(t *testing.T) {
	// Legacy clients send the criteria object as a JSON string.
	raw := []byte(`"{\"formats\":[\"5v5\"],\"age_groups\":[\"U10\"]}"`)
	c, err := ParseCriteria(raw)
	if err != nil {
		t.Fatalf("ParseCriteria: %v", err)
	}
	if len(c.Formats) != 1 || c.Formats[0] != "5v5" {
		t.Errorf("formats = %v", c.Formats)
	}
	if len(c.AgeGroups) != 1 || c.AgeGroups[0] != "U10" {
		t.Errorf("age groups = %v", c.AgeGroups)
	}
}

func TestParseCriteriaEmptyInputs(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte(`""`), []byte(`{}`)} {
		c, err := ParseCriteria(raw)
		if err != nil {
			t.Fatalf("ParseCriteria(%q): %v", raw, err)
		}
		if !c.Empty() {
			t.Errorf("ParseCriteria(%q) = %+v, want empty", raw, c)
		}
	}
}

func TestParseCriteriaInvalid(t *testing.T) {
	for _, raw := range [][]byte{[]byte(`{`), []byte(`"not json`), []byte(`"{\"formats\":}"`)} {
		if _, err := ParseCriteria(raw); err == nil {
			t.Errorf("ParseCriteria(%q) succeeded, want error", raw)
		}
	}
}

func TestNormalizedDropsDegenerateFilters(t *testing.T) {
	c, err := ParseCriteria([]byte(`{"location":{},"dates":{},"price":{}}`))
	if err != nil {
		t.Fatalf("ParseCriteria: %v", err)
	}
	if c.Location != nil {
		t.Error("empty location filter should collapse to nil")
	}
	if c.Dates != nil {
		t.Error("empty date filter should collapse to nil")
	}
	if c.Price != nil {
		t.Error("empty price filter should collapse to nil")
	}
	if !c.Empty() {
		t.Errorf("criteria should be empty, got %+v", c)
	}
}

func TestNormalizedReordersReversedWindow(t *testing.T) {
	raw := []byte(`{"dates":{"from":"2026-08-01T00:00:00Z","to":"2026-07-01T00:00:00Z"}}`)
	c, err := ParseCriteria(raw)
	if err != nil {
		t.Fatalf("ParseCriteria: %v", err)
	}
	if c.Dates == nil || c.Dates.From == nil || c.Dates.To == nil {
		t.Fatalf("dates = %+v", c.Dates)
	}
	if c.Dates.From.After(*c.Dates.To) {
		t.Errorf("window still reversed: from=%v to=%v", c.Dates.From, c.Dates.To)
	}
	if !c.Dates.From.Equal(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", c.Dates.From)
	}
}
