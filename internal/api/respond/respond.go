// Package respond writes the API's JSON envelopes: routed data responses
// carrying source and cache headers, uncached admin objects, and errors.
package respond

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/hankstank/mlb-data/internal/cache"
)

// ErrorDetail is the body of an error envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is {"error": {...}} for every non-2xx answer.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Routed is a marshalled data response plus the routing facts that
// become headers.
type Routed struct {
	Body     []byte
	ETag     string
	Source   string // X-Data-Source
	TTL      time.Duration
	CacheHit bool
}

// WriteRouted sends d, or a bare 304 when the request's If-None-Match
// already names d.ETag. It reports whether a body was written.
func WriteRouted(w http.ResponseWriter, r *http.Request, d Routed) bool {
	h := w.Header()
	h.Set("ETag", d.ETag)
	h.Set("X-Data-Source", d.Source)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), d.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return false
	}

	h.Set("Content-Type", "application/json")
	h.Set("Vary", "Accept-Encoding")
	if d.CacheHit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}
	maxAge := int(d.TTL.Seconds())
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge)+
		", stale-while-revalidate="+strconv.Itoa(maxAge/2))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Body)
	return true
}

// WriteError sends an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, code, message, "")
}

// WriteErrorDetail sends an error envelope whose detail carries the
// underlying cause.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Detail: detail}})
}

// WriteJSONObject sends v uncached; health, sync and task endpoints use it.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
