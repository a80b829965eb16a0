package audit

import (
	"context"
	"sync"
)

// defaultMemoryCapacity bounds the in-memory store. Development runs don't
// need more history than this; production uses the Kafka sink.
const defaultMemoryCapacity = 1024

// MemoryStore keeps events in a capped in-memory list. The sink for
// development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewMemoryStore builds a memory store holding at most capacity events;
// non-positive means the default. The oldest events are evicted first.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// Publish appends the event, evicting the oldest when full.
func (s *MemoryStore) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.capacity {
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of the stored events, oldest first.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}

// ByAction returns the stored events carrying the given action.
func (s *MemoryStore) ByAction(action Action) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops all stored events.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
