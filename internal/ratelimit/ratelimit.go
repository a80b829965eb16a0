// Package ratelimit implements the sliding-window limiter guarding the
// inbound HTTP surface. Politeness toward upstream registries is a different
// concern and lives in the provider HTTP client; this package only protects
// this service from its own callers.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports one admission decision. The HTTP layer surfaces it as
// X-RateLimit headers whatever the outcome.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest counted request leaves the window, i.e.
	// the earliest instant a denied caller can try again.
	ResetAt time.Time
}

// SlidingWindow counts requests per key over a rolling window. Unlike a
// fixed-window counter it cannot be gamed at the boundary: a burst at 59s
// and another at 61s still lands in one window.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
	ops     int
}

// sweepEvery bounds how often idle buckets are scanned for removal. The map
// would otherwise grow with every distinct client key seen.
const sweepEvery = 512

// NewSlidingWindow builds a limiter admitting limit requests per key per
// window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

// Allow admits or denies one request for key.
func (s *SlidingWindow) Allow(key string) Result {
	return s.AllowN(key, 1)
}

// AllowN admits or denies a request costing cost slots. Search endpoints
// charge more than single lookups.
func (s *SlidingWindow) AllowN(key string, cost int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.ops++
	if s.ops%sweepEvery == 0 {
		s.sweep(now)
	}

	stamps := trim(s.buckets[key], now.Add(-s.window))

	if len(stamps)+cost > s.limit {
		s.buckets[key] = stamps
		reset := now.Add(s.window)
		if len(stamps) > 0 {
			reset = stamps[0].Add(s.window)
		}
		return Result{Allowed: false, Limit: s.limit, Remaining: 0, ResetAt: reset}
	}

	for range cost {
		stamps = append(stamps, now)
	}
	s.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(stamps),
		ResetAt:   stamps[0].Add(s.window),
	}
}

// Reset clears the counter for key.
func (s *SlidingWindow) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}

// sweep drops buckets with no live timestamps. Caller holds s.mu.
func (s *SlidingWindow) sweep(now time.Time) {
	cutoff := now.Add(-s.window)
	for key, stamps := range s.buckets {
		if live := trim(stamps, cutoff); len(live) == 0 {
			delete(s.buckets, key)
		} else {
			s.buckets[key] = live
		}
	}
}

// trim discards timestamps at or before cutoff. Stamps are appended in time
// order, so the live suffix starts at the first one past the cutoff.
func trim(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
