package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func adminProtected(secret string) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return AdminAuthMiddleware(secret)(next)
}

func TestAdminAuthMiddleware(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		secret     string
		authHeader string
		wantStatus int
	}{
		{
			"valid admin token",
			testSecret,
			"Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "admin", "exp": exp}),
			http.StatusNoContent,
		},
		{
			"missing header",
			testSecret,
			"",
			http.StatusUnauthorized,
		},
		{
			"not a bearer token",
			testSecret,
			"Basic abc123",
			http.StatusUnauthorized,
		},
		{
			"wrong signing secret",
			testSecret,
			"Bearer " + signToken(t, "other-secret", jwt.MapClaims{"role": "admin", "exp": exp}),
			http.StatusUnauthorized,
		},
		{
			"expired token",
			testSecret,
			"Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}),
			http.StatusUnauthorized,
		},
		{
			"missing admin role",
			testSecret,
			"Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "viewer", "exp": exp}),
			http.StatusForbidden,
		},
		{
			"empty secret disables admin surface",
			"",
			"Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "admin", "exp": exp}),
			http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/dispatch", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			adminProtected(tt.secret).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// 4 requests per minute, burst of 2.
	limited := RateLimitMiddleware(4, time.Minute)(next)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tournaments", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request not limited: %v", codes)
	}

	// A different client IP gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tournaments", nil)
	req.RemoteAddr = "198.51.100.9:51000"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh client limited: %d", rec.Code)
	}
}

func TestTimingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	TimingMiddleware(next).ServeHTTP(rec, req)
	if rec.Header().Get("X-Process-Time") == "" {
		t.Error("X-Process-Time header not set")
	}
}
