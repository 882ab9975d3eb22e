// Package respond provides shared JSON and HTML response utilities for API
// handlers. Dispatch endpoints speak JSON; the subscriber-facing verify and
// unsubscribe pages speak HTML.
package respond

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

// ErrorResponse is the standard error shape for all API errors.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// WriteJSON writes raw JSON bytes to the response with cache and ETag headers.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")
	setCacheHeaders(w, ttl, cacheHit)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified sends a 304 with the matching ETag.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteError sends a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteJSONObject marshals a Go value to JSON and writes it.
func WriteJSONObject(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// --------------------------------------------------------------------------
// HTML pages (verify / unsubscribe surface)
// --------------------------------------------------------------------------

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; background: #f5f5f4; margin: 0; }
    .card { max-width: 480px; margin: 80px auto; background: #fff; border-radius: 12px;
            padding: 32px; text-align: center; box-shadow: 0 1px 4px rgba(0,0,0,.08); }
    h1 { color: {{if .IsError}}#b91c1c{{else}}#15803d{{end}}; font-size: 22px; }
    a.button { display: inline-block; margin-top: 18px; background: #15803d; color: #fff;
               padding: 10px 20px; border-radius: 8px; text-decoration: none; }
  </style>
</head>
<body>
  <div class="card">
    <h1>{{.Title}}</h1>
    <p>{{.Message}}</p>
    <a class="button" href="{{.HomeURL}}">Back to Pitchfinder</a>
  </div>
</body>
</html>`))

// Page is the data for a rendered confirmation or error page.
type Page struct {
	Title   string
	Message string
	HomeURL string
	IsError bool
}

// WriteHTMLPage renders a confirmation/error page.
func WriteHTMLPage(w http.ResponseWriter, status int, p Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, p); err != nil {
		fmt.Fprintf(w, "<p>%s</p>", template.HTMLEscapeString(p.Message))
	}
}

func setCacheHeaders(w http.ResponseWriter, ttl time.Duration, cacheHit bool) {
	maxAge := int(ttl.Seconds())
	swr := maxAge / 2
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, swr))
}
