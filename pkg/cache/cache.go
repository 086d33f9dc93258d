package cache

import (
	"context"
	"encoding/json"
	"time"

	"medibook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "medibook:"

// Cache is a thin read-through JSON cache over Redis. A nil *Cache is
// valid and behaves as a permanent miss, so callers never need to guard
// against Redis being unconfigured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func New(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get reports whether the key was found and decoded into dest.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		return false
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.log.Warn("Failed to decode cached value, dropping it", "key", key, "error", err)
		c.Invalidate(ctx, key)
		return false
	}

	return true
}

func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Failed to encode value for cache", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to write cache entry", "key", key, "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = keyPrefix + key
	}

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		c.log.Warn("Failed to invalidate cache entries", "keys", keys, "error", err)
	}
}

// InvalidatePrefix removes every key under the given prefix. Used when
// a registry write may affect an unknown set of search results.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("Cache scan failed", "prefix", prefix, "error", err)
		return
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("Failed to invalidate cache prefix", "prefix", prefix, "error", err)
		}
	}
}
