package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestForward(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/postcodes/SW1A%201AA" && r.URL.Path != "/postcodes/SW1A 1AA" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": 200,
			"result": {
				"postcode": "SW1A 1AA",
				"longitude": -0.141588,
				"latitude": 51.501009,
				"region": "London"
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	res, err := c.Forward(context.Background(), "SW1A 1AA")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if res.Postcode != "SW1A 1AA" || res.Region != "London" {
		t.Errorf("result = %+v", res)
	}
	if res.Longitude != -0.141588 || res.Latitude != 51.501009 {
		t.Errorf("coordinates = (%v, %v)", res.Longitude, res.Latitude)
	}

	// Second lookup, different spacing, same cache key.
	if _, err := c.Forward(context.Background(), "sw1a1aa"); err != nil {
		t.Fatalf("cached Forward: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1 (second lookup should be cached)", got)
	}
}

func TestForwardNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status": 404, "error": "Postcode not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if _, err := c.Forward(context.Background(), "ZZ99 9ZZ"); err == nil {
		t.Fatal("Forward succeeded for unknown postcode")
	}
}

func TestForwardEmptyQuery(t *testing.T) {
	c := New("http://unused.invalid", nil)
	if _, err := c.Forward(context.Background(), "   "); err == nil {
		t.Fatal("Forward accepted an empty query")
	}
}

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": 200,
			"result": [{
				"postcode": "M14 7UF",
				"longitude": -2.2426,
				"latitude": 53.4808,
				"region": "North West"
			}]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	res, err := c.Reverse(context.Background(), -2.2426, 53.4808)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if res.Postcode != "M14 7UF" {
		t.Errorf("result = %+v", res)
	}
}

func TestReverseNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 200, "result": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if _, err := c.Reverse(context.Background(), 0, 0); err == nil {
		t.Fatal("Reverse succeeded with no results")
	}
}
