// Package geocode resolves UK postcodes and free-text place queries to
// coordinates via postcodes.io, with a redis-backed cache when configured
// and an in-process fallback otherwise.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	cacheTTL       = 24 * time.Hour
)

// Result is a resolved location.
type Result struct {
	Postcode  string  `json:"postcode"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Region    string  `json:"region,omitempty"`
}

// cacheBackend abstracts the redis/in-memory split.
type cacheBackend interface {
	get(ctx context.Context, key string) (*Result, bool)
	set(ctx context.Context, key string, r *Result)
}

// Client talks to a postcodes.io-compatible API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cacheBackend
}

// New creates a geocoding client. cache may be nil for an uncached client.
func New(baseURL string, cache cacheBackend) *Client {
	if baseURL == "" {
		baseURL = "https://api.postcodes.io"
	}
	if cache == nil {
		cache = newMemoryCache()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
	}
}

type postcodeResponse struct {
	Status int `json:"status"`
	Result struct {
		Postcode  string  `json:"postcode"`
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
		Region    string  `json:"region"`
	} `json:"result"`
	Error string `json:"error"`
}

type reverseResponse struct {
	Status int `json:"status"`
	Result []struct {
		Postcode  string  `json:"postcode"`
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
		Region    string  `json:"region"`
	} `json:"result"`
}

// Forward resolves a postcode or free-text query to coordinates.
func (c *Client) Forward(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty geocode query")
	}

	key := "geo:fwd:" + strings.ToUpper(strings.ReplaceAll(query, " ", ""))
	if r, ok := c.cache.get(ctx, key); ok {
		return r, nil
	}

	u := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(query))
	var resp postcodeResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("geocode %q: %s", query, orUnknown(resp.Error))
	}

	r := &Result{
		Postcode:  resp.Result.Postcode,
		Longitude: resp.Result.Longitude,
		Latitude:  resp.Result.Latitude,
		Region:    resp.Result.Region,
	}
	c.cache.set(ctx, key, r)
	return r, nil
}

// Reverse resolves coordinates to the nearest postcode.
func (c *Client) Reverse(ctx context.Context, longitude, latitude float64) (*Result, error) {
	key := fmt.Sprintf("geo:rev:%.4f:%.4f", longitude, latitude)
	if r, ok := c.cache.get(ctx, key); ok {
		return r, nil
	}

	u := fmt.Sprintf("%s/postcodes?lon=%f&lat=%f", c.baseURL, longitude, latitude)
	var resp reverseResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK || len(resp.Result) == 0 {
		return nil, fmt.Errorf("reverse geocode (%f, %f): no result", longitude, latitude)
	}

	first := resp.Result[0]
	r := &Result{
		Postcode:  first.Postcode,
		Longitude: first.Longitude,
		Latitude:  first.Latitude,
		Region:    first.Region,
	}
	c.cache.set(ctx, key, r)
	return r, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("geocode read: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("geocode parse: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}

// --------------------------------------------------------------------------
// In-memory cache backend
// --------------------------------------------------------------------------

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	result    Result
	expiresAt time.Time
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (m *memoryCache) get(_ context.Context, key string) (*Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	r := e.result
	return &r, true
}

func (m *memoryCache) set(_ context.Context, key string, r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{result: *r, expiresAt: time.Now().Add(cacheTTL)}
}
