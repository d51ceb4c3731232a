package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maruel/reportdb/internal/storage"
)

func newTestLimiter(t *testing.T, requests int, window time.Duration, burst int) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(requests, window, burst)
	t.Cleanup(l.Close)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterAllow(t *testing.T) {
	l, now := newTestLimiter(t, 5, time.Minute, 5)
	for i := range 5 {
		res := l.Allow("k")
		if !res.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
		if res.Limit != 5 {
			t.Errorf("Limit = %d", res.Limit)
		}
		if res.Remaining != 4-i {
			t.Errorf("request %d: Remaining = %d", i+1, res.Remaining)
		}
	}
	res := l.Allow("k")
	if res.Allowed {
		t.Fatal("6th request allowed")
	}
	if res.RetryAfter != 12*time.Second {
		t.Errorf("RetryAfter = %v", res.RetryAfter)
	}
	if !l.Allow("other").Allowed {
		t.Error("keys share a bucket")
	}

	*now = now.Add(13 * time.Second)
	if !l.Allow("k").Allowed {
		t.Error("bucket did not refill")
	}
}

func TestLimiterMinimumBurst(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Hour, 0)
	if !l.Allow("k").Allowed {
		t.Fatal("first request denied")
	}
	if l.Allow("k").Allowed {
		t.Fatal("second request allowed")
	}
}

func TestLimiterCleanup(t *testing.T) {
	l, now := newTestLimiter(t, 60, time.Minute, 1)
	l.Allow("idle")
	*now = now.Add(time.Hour)
	l.Allow("busy")
	l.cleanup(now.Add(-10 * time.Minute))
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
	l.Close()
	l.Close()
}

func TestTier(t *testing.T) {
	if tier := NewTier("export", storage.RateLimit{}); tier != nil {
		t.Fatal("unlimited config built a tier")
	}
	var unlimited *Tier
	if !unlimited.Allow("1.2.3.4").Allowed {
		t.Error("nil tier denied")
	}
	unlimited.Close()

	tier := NewTier("export", storage.RateLimit{Requests: 30, Window: storage.Duration(time.Minute), Burst: 2})
	defer tier.Close()
	for i := range 2 {
		if !tier.Allow("1.2.3.4").Allowed {
			t.Fatalf("request %d denied", i+1)
		}
	}
	if tier.Allow("1.2.3.4").Allowed {
		t.Error("3rd request allowed")
	}
	if !tier.Allow("5.6.7.8").Allowed {
		t.Error("other client denied")
	}
	if got := BuildKey("1.2.3.4", "export"); got != "ip:1.2.3.4:export" {
		t.Errorf("BuildKey = %q", got)
	}
}

func TestResponseWriter(t *testing.T) {
	reset := time.Unix(1735732800, 0)
	t.Run("allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := NewResponseWriter(rec, Result{Allowed: true, Limit: 30, Remaining: 4, ResetAt: reset})
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Fatal(err)
		}
		h := rec.Result().Header
		if h.Get("X-RateLimit-Limit") != "30" || h.Get("X-RateLimit-Remaining") != "4" || h.Get("X-RateLimit-Reset") != "1735732800" {
			t.Errorf("headers = %v", h)
		}
		if h.Get("Retry-After") != "" {
			t.Error("Retry-After on allowed response")
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})
	t.Run("denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := NewResponseWriter(rec, Result{Limit: 30, ResetAt: reset, RetryAfter: 2 * time.Second})
		w.WriteHeader(http.StatusTooManyRequests)
		if got := rec.Result().Header.Get("Retry-After"); got != "2" {
			t.Errorf("Retry-After = %q", got)
		}
		if u, ok := w.(interface{ Unwrap() http.ResponseWriter }); !ok || u.Unwrap() != rec {
			t.Error("Unwrap does not return the recorder")
		}
	})
}
