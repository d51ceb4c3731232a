// Package ratelimit throttles expensive HTTP endpoints with per-key token
// buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // whole tokens left in the bucket
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // zero when allowed
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	requests int
	interval time.Duration // window / requests
	burst    int
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows requests per window per key, with a bucket of burst
// tokens. requests must be positive. A burst below 1 is raised to 1.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		requests: requests,
		interval: window / time.Duration(requests),
		burst:    max(burst, 1),
		now:      time.Now,
		buckets:  map[string]*bucket{},
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(10 * time.Minute)
	return l
}

// Allow consumes one token from key's bucket if one is available.
func (l *Limiter) Allow(key string) Result {
	now := l.now()
	l.mu.Lock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := Result{Limit: l.requests}
	r := b.limiter.ReserveN(now, 1)
	res.Allowed = r.OK() && r.DelayFrom(now) == 0
	if !res.Allowed {
		if r.OK() {
			r.CancelAt(now)
		}
		res.RetryAfter = max(l.interval, time.Second)
	}
	tokens := b.limiter.TokensAt(now)
	res.Remaining = max(int(tokens), 0)
	res.ResetAt = now.Add(time.Duration((float64(l.burst) - tokens) * float64(l.interval)))
	return res
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.cleanup(l.now().Add(-every))
		case <-l.stop:
			return
		}
	}
}

// cleanup drops full buckets not used since before.
func (l *Limiter) cleanup(before time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(before) && b.limiter.TokensAt(l.now()) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
