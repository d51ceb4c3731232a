// Package reqctx carries request metadata through a context.
package reqctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/maruel/ksid"
)

// GetClientIP returns the client address of r. X-Forwarded-For (leftmost
// entry) and X-Real-IP take precedence over RemoteAddr so a reverse proxy is
// transparent.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}

type contextKey int

const (
	keyClientIP contextKey = iota
	keyUserAgent
	keyRequestID
)

// WithRequest stores the client IP and User-Agent of r.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	ctx = WithClientIP(ctx, GetClientIP(r))
	return WithUserAgent(ctx, r.Header.Get("User-Agent"))
}

// WithClientIP adds the client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP returns the client IP stored in ctx.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(keyClientIP).(string)
	return v
}

// WithUserAgent adds the User-Agent to the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, keyUserAgent, ua)
}

// UserAgent returns the User-Agent stored in ctx.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}

// WithRequestID adds the request ID to the context.
func WithRequestID(ctx context.Context, id ksid.ID) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID returns the request ID stored in ctx, or the zero ID.
func RequestID(ctx context.Context) ksid.ID {
	v, _ := ctx.Value(keyRequestID).(ksid.ID)
	return v
}
