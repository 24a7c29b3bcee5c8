package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSeenCache remembers ingested provider message ids for a while so
// webhook redeliveries skip the database
type RedisSeenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSeenCache is a constructor for RedisSeenCache structs
func NewRedisSeenCache(rdb *redis.Client, ttl time.Duration) *RedisSeenCache {
	return &RedisSeenCache{rdb: rdb, ttl: ttl}
}

func seenKey(providerMessageID string) string {
	return fmt.Sprintf("inbound:%s", providerMessageID)
}

// Seen reports whether the id was marked within the TTL
func (c *RedisSeenCache) Seen(ctx context.Context, providerMessageID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, seenKey(providerMessageID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records the id with the cache TTL
func (c *RedisSeenCache) MarkSeen(ctx context.Context, providerMessageID string) error {
	return c.rdb.Set(ctx, seenKey(providerMessageID), time.Now().UTC().Format(time.RFC3339), c.ttl).Err()
}
