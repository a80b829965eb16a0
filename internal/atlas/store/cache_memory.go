package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"corpatlas/contracts/company"
)

// MemoryCache is a TTL record cache for single-instance deployments and
// tests. Expired entries are removed lazily on the next Find.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Key]memoryEntry
}

type memoryEntry struct {
	record    *company.Record
	expiresAt time.Time
}

// NewMemoryCache builds a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]memoryEntry),
	}
}

// Find returns a deep copy of the cached record so callers cannot mutate
// shared state.
func (c *MemoryCache) Find(_ context.Context, key Key) (*company.Record, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Save may have
		// refreshed the entry in the meantime.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.record.Clone(), nil
}

// Save stores a deep copy of record under key, resetting its TTL.
func (c *MemoryCache) Save(_ context.Context, key Key, record *company.Record) error {
	if record == nil {
		return errors.New("store: nil record")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		record:    record.Clone(),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Len reports the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
