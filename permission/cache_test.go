package permission

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/MrEthical07/goRealm/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newCacheTest(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	addr := mr.Addr()
	backend := kv.NewRedis(func() redis.UniversalClient {
		return redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	}, kv.RedisConfig{})
	t.Cleanup(func() {
		_ = backend.Close()
		mr.Close()
	})
	return NewCache(backend, CacheConfig{KeyPrefix: "test:authz:", TTL: time.Minute}), mr
}

func TestCachePutGetExpire(t *testing.T) {
	cache, mr := newCacheTest(t)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "admin", 1); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	snap := NewSnapshot([]string{"admin"}, []string{"user:*"})
	if err := cache.Put(ctx, "admin", 1, snap); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("test:authz:admin:1") {
		t.Fatalf("expected realm-scoped key")
	}

	got, ok, err := cache.Get(ctx, "admin", 1)
	if err != nil || !ok || !got.HasRole("admin") || !got.IsPermitted("user:list") {
		t.Fatalf("unexpected get %+v ok=%v err=%v", got, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "admin", 1); ok {
		t.Fatalf("expected snapshot to expire with cache ttl")
	}
}

func TestCacheEmptySnapshotIsAHit(t *testing.T) {
	cache, _ := newCacheTest(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "admin", 5, NewSnapshot(nil, nil)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := cache.Get(ctx, "admin", 5)
	if err != nil || !ok {
		t.Fatalf("empty snapshot must be a hit, ok=%v err=%v", ok, err)
	}
	if len(got.Roles) != 0 || len(got.Permissions) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestCacheKeysSizeInvalidate(t *testing.T) {
	cache, _ := newCacheTest(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		if err := cache.Put(ctx, "admin", id, NewSnapshot(nil, nil)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	_ = cache.Put(ctx, "other", 1, NewSnapshot(nil, nil))

	keys, err := cache.Keys(ctx, "admin")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "1" || keys[2] != "3" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := cache.Invalidate(ctx, "admin", 2); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n, err := cache.Size(ctx, "admin"); err != nil || n != 2 {
		t.Fatalf("expected size 2, got %d err=%v", n, err)
	}
}

func TestCacheCorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newCacheTest(t)
	if err := mr.Set("test:authz:admin:7", "garbage"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, ok, err := cache.Get(context.Background(), "admin", 7); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if mr.Exists("test:authz:admin:7") {
		t.Fatalf("expected corrupt entry to be dropped")
	}
}

func TestCacheUnavailableIsTyped(t *testing.T) {
	cache, mr := newCacheTest(t)
	mr.Close()
	ctx := context.Background()

	if _, _, err := cache.Get(ctx, "admin", 1); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable from Get, got %v", err)
	}
	if err := cache.Put(ctx, "admin", 1, NewSnapshot(nil, nil)); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable from Put, got %v", err)
	}
}
