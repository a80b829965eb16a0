package audit

import (
	"sync"
	"time"
)

// Breaker stops publish attempts while the broker is unhealthy. Consecutive
// failures past the threshold open the circuit; after the cooldown one
// attempt is let through to probe recovery.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
	open      bool
}

// NewBreaker builds a breaker. Non-positive arguments fall back to 5
// failures and a one-minute cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a publish attempt may proceed. An expired cooldown
// half-opens the circuit: the call is allowed and the next Record decides.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if time.Now().After(b.openUntil) {
		b.open = false
		b.failures = 0
		return true
	}
	return false
}

// RecordSuccess closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure counts one failure, opening the circuit at the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openUntil = time.Now().Add(b.cooldown)
	}
}

// Open reports whether the circuit is currently open.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
