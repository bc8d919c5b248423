// Package cache holds the redis-backed cache of rendered list views, keyed by
// logical path. Invalidation is the staleness signal emitted after writes.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const viewKeyPrefix = "movielist:view:"

// ViewCache stores rendered view payloads per logical path.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewViewCache builds a redis-backed view cache. A zero TTL keeps entries
// until they are invalidated.
func NewViewCache(addr, password string, ttl time.Duration) *ViewCache {
	return &ViewCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// Get returns the cached payload for the logical path, if present.
func (c *ViewCache) Get(ctx context.Context, path string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, viewKeyPrefix+path).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores the payload for the logical path.
func (c *ViewCache) Set(ctx context.Context, path string, payload []byte) error {
	return c.client.Set(ctx, viewKeyPrefix+path, payload, c.ttl).Err()
}

// Invalidate marks the view for the logical path as stale by dropping it.
func (c *ViewCache) Invalidate(ctx context.Context, path string) error {
	if err := c.client.Del(ctx, viewKeyPrefix+path).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetOrFill returns the cached payload, rebuilding it with fill on a miss.
// Concurrent misses for the same path are collapsed into a single fill call.
func (c *ViewCache) GetOrFill(ctx context.Context, path string, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if payload, ok, err := c.Get(ctx, path); err == nil && ok {
		return payload, nil
	}
	result, err, _ := c.group.Do(path, func() (any, error) {
		payload, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, path, payload); err != nil {
			return payload, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
