package audit

import (
	"math/rand"
	"sync"
)

// Sampler keeps a configurable fraction of events per action. High-volume
// actions (searches, mostly) can be thinned without losing the compliance
// trail: compliance-category events bypass sampling entirely.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[Action]float64
}

// NewSampler builds a sampler with the given default keep rate, clamped to
// [0, 1].
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[Action]float64),
	}
}

// Keep reports whether an event for this action should be published.
func (s *Sampler) Keep(action Action) bool {
	if action.Category() == CategoryCompliance {
		return true
	}
	s.mu.RLock()
	rate, ok := s.rateByAction[action]
	if !ok {
		rate = s.defaultRate
	}
	s.mu.RUnlock()
	return rand.Float64() < rate //nolint:gosec // sampling does not need crypto rand
}

// SetRate overrides the keep rate for one action.
func (s *Sampler) SetRate(action Action, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
