package ratelimit

import (
	"time"

	"github.com/maruel/reportdb/internal/storage"
)

// Tier is a named limiter keyed by client IP.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// NewTier returns the tier described by rl, or nil when rl is unlimited.
func NewTier(name string, rl storage.RateLimit) *Tier {
	if rl.Requests == 0 {
		return nil
	}
	return &Tier{Name: name, Limiter: NewLimiter(rl.Requests, time.Duration(rl.Window), rl.Burst)}
}

// Allow checks the bucket of clientIP. A nil tier allows everything.
func (t *Tier) Allow(clientIP string) Result {
	if t == nil {
		return Result{Allowed: true}
	}
	return t.Limiter.Allow(BuildKey(clientIP, t.Name))
}

// Close stops the tier's limiter. A nil tier is a no-op.
func (t *Tier) Close() {
	if t != nil {
		t.Limiter.Close()
	}
}

// BuildKey returns the bucket key of identifier in tier.
func BuildKey(identifier, tierName string) string {
	return "ip:" + identifier + ":" + tierName
}
