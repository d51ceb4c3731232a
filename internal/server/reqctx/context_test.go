package reqctx

import (
	"net/http/httptest"
	"testing"

	"github.com/maruel/ksid"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.195"}, "127.0.0.1:8080", "203.0.113.195"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:8080", "203.0.113.195"},
		{"forwarded spaces", map[string]string{"X-Forwarded-For": "  203.0.113.195  "}, "127.0.0.1:8080", "203.0.113.195"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "127.0.0.1:8080", "203.0.113.7"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "203.0.113.195", "X-Real-IP": "10.0.0.1"}, "127.0.0.1:8080", "203.0.113.195"},
		{"remote with port", nil, "192.168.1.1:12345", "192.168.1.1"},
		{"remote without port", nil, "192.168.1.1", "192.168.1.1"},
		{"ipv6 with port", nil, "[::1]:8080", "::1"},
		{"ipv6 without port", nil, "[::1]", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := t.Context()
	if ClientIP(ctx) != "" || UserAgent(ctx) != "" || !RequestID(ctx).IsZero() {
		t.Fatal("empty context has values")
	}
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:4000"
	r.Header.Set("User-Agent", "curl/8.5")
	id := ksid.NewID()
	ctx = WithRequestID(WithRequest(ctx, r), id)
	if got := ClientIP(ctx); got != "10.1.2.3" {
		t.Errorf("ClientIP = %q", got)
	}
	if got := UserAgent(ctx); got != "curl/8.5" {
		t.Errorf("UserAgent = %q", got)
	}
	if got := RequestID(ctx); got != id {
		t.Errorf("RequestID = %v, want %v", got, id)
	}
}
