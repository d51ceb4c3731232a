package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders sets the X-RateLimit-* headers, and Retry-After when denied.
func WriteHeaders(w http.ResponseWriter, result Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if !result.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// responseWriter adds the rate limit headers right before the status line.
type responseWriter struct {
	http.ResponseWriter
	result      Result
	wroteHeader bool
}

// NewResponseWriter wraps w so the headers of result are sent with the
// response.
func NewResponseWriter(w http.ResponseWriter, result Result) http.ResponseWriter {
	return &responseWriter{ResponseWriter: w, result: result}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		WriteHeaders(rw.ResponseWriter, rw.result)
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
