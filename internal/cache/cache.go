// Package cache provides an optional Redis cache for availability
// responses. Misses and Redis errors are silent; the caller recomputes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wires the cache. A nil client or non-positive TTL disables it.
func New(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func key(date string, duration int) string {
	return fmt.Sprintf("availability:%s:%d", date, duration)
}

// Get unmarshals a cached availability response into out, reporting whether
// a usable value was found.
func (c *AvailabilityCache) Get(ctx context.Context, date string, duration int, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.client.Get(ctx, key(date, duration)).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

// Set stores an availability response under the date/duration key.
func (c *AvailabilityCache) Set(ctx context.Context, date string, duration int, v any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, key(date, duration), data, c.ttl)
}

// InvalidateDate drops every cached duration for the date. Called after a
// booking or block write touching that day.
func (c *AvailabilityCache) InvalidateDate(ctx context.Context, date string) {
	if !c.enabled() {
		return
	}
	pattern := fmt.Sprintf("availability:%s:*", date)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}
