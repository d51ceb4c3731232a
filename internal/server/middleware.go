package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/server/ratelimit"
	"github.com/maruel/reportdb/internal/server/reqctx"
)

// LogRequests tags each request with an ID and the client metadata, then logs
// it once it completes.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ksid.NewID()
		ctx := reqctx.WithRequestID(reqctx.WithRequest(r.Context(), r), id)
		rw := &statusWriter{ResponseWriter: w}
		rw.Header().Set("X-Request-ID", id.String())
		next.ServeHTTP(rw, r.WithContext(ctx))
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		slog.InfoContext(ctx, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"size", rw.size,
			"dur", time.Since(start).Round(time.Millisecond),
			"ip", reqctx.ClientIP(ctx),
			"id", id,
		)
	})
}

// statusWriter records the status code and the body size.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (w *statusWriter) WriteHeader(statusCode int) {
	if w.status == 0 {
		w.status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RateLimited checks the client's bucket in tier before calling next. A nil
// tier returns next unchanged.
func RateLimited(tier *ratelimit.Tier, next http.Handler) http.Handler {
	if tier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w, ok := checkRateLimit(w, r, tier)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkRateLimit returns a writer carrying the rate limit headers. It writes
// a 429 and returns false when the client is over its limit.
func checkRateLimit(w http.ResponseWriter, r *http.Request, tier *ratelimit.Tier) (http.ResponseWriter, bool) {
	ip := reqctx.ClientIP(r.Context())
	if ip == "" {
		ip = reqctx.GetClientIP(r)
	}
	result := tier.Allow(ip)
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		slog.WarnContext(r.Context(), "rate limited", "tier", tier.Name, "ip", ip, "retry_after", result.RetryAfter)
		writeRateLimitError(w, result)
		return w, false
	}
	return w, true
}
