package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisSeenCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSeenCache(rdb, ttl), mr
}

func TestRedisSeenCache_MarkThenSeen(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "wamid.1")
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if seen {
		t.Fatalf("expected unseen id before MarkSeen")
	}

	if err := cache.MarkSeen(ctx, "wamid.1"); err != nil {
		t.Fatalf("MarkSeen() error: %v", err)
	}
	if !mr.Exists("inbound:wamid.1") {
		t.Fatalf("expected key inbound:wamid.1 to exist")
	}
	if mr.TTL("inbound:wamid.1") <= 0 {
		t.Fatalf("expected TTL to be set")
	}

	seen, err = cache.Seen(ctx, "wamid.1")
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if !seen {
		t.Fatalf("expected id to be seen after MarkSeen")
	}
}

func TestRedisSeenCache_Expires(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.MarkSeen(ctx, "wamid.2"); err != nil {
		t.Fatalf("MarkSeen() error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	seen, err := cache.Seen(ctx, "wamid.2")
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if seen {
		t.Fatalf("expected id to expire")
	}
}

func TestRedisSeenCache_ContextCanceled(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := cache.Seen(ctx, "x"); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}
