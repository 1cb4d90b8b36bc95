// Package respond writes API bodies: cached run payloads with their ETag and
// Cache-Control headers, plain JSON objects, and the {"error": ...} envelope.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const (
	contentJSON = "application/json"
	noStore     = "no-cache, no-store, must-revalidate"
)

// ErrorBody is a failure: a stable machine code, a message for people and
// optional detail (the underlying error text).
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the envelope every error status carries.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON sends pre-encoded JSON as a cacheable 200. X-Cache reports
// whether data came out of the cache.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	h := w.Header()
	h.Set("Content-Type", contentJSON)
	h.Set("ETag", etag)
	h.Set("Vary", "Accept-Encoding")
	h.Set("X-Cache", cacheStatus(cacheHit))
	h.Set("Cache-Control", CacheControl(ttl))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteCreated sends a freshly played run. It is never cached downstream;
// location points at the run's archive URL.
func WriteCreated(w http.ResponseWriter, data []byte, etag, location string) {
	h := w.Header()
	h.Set("Content-Type", contentJSON)
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-store")
	if location != "" {
		h.Set("Location", location)
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(data)
}

// WriteNotModified answers a conditional GET whose ETag still matches.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteJSONObject encodes v. Unseeded simulations and health checks use it.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError sends the error envelope without detail.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, code, message, "")
}

// WriteErrorDetail sends the error envelope. An empty detail is omitted.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	w.Header().Set("Cache-Control", noStore)
	WriteJSONObject(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Detail: detail}})
}

// CacheControl is the public Cache-Control value for ttl. Clients may serve
// a stale copy for half the TTL while they revalidate.
func CacheControl(ttl time.Duration) string {
	maxAge := int(ttl.Seconds())
	return "public, max-age=" + strconv.Itoa(maxAge) + ", stale-while-revalidate=" + strconv.Itoa(maxAge/2)
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
