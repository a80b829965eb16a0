package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"corpatlas/contracts/company"
)

// recordKeyPrefix namespaces cache entries so the Redis database can be
// shared with other tenants.
const recordKeyPrefix = "corpatlas:record:"

// RedisCache shares cached records across instances. Records are stored as
// JSON with the configured TTL; Redis handles expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. The caller owns the client's
// lifecycle.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Find(ctx context.Context, key Key) (*company.Record, error) {
	payload, err := c.client.Get(ctx, recordKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	var record company.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		// A corrupt entry reads as a miss; the next Save overwrites it.
		return nil, ErrNotFound
	}
	return &record, nil
}

func (c *RedisCache) Save(ctx context.Context, key Key, record *company.Record) error {
	if record == nil {
		return errors.New("store: nil record")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	if err := c.client.Set(ctx, recordKeyPrefix+key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}
