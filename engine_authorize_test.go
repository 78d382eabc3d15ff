package goRealm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goRealm/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisFixture(t *testing.T, build func(*Builder)) (*engineFixture, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	addr := mr.Addr()
	store := kv.NewRedis(func() redis.UniversalClient {
		return redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	}, kv.RedisConfig{Attempts: 1})

	f := newEngineFixture(t, testConfig(), store, build)
	f.authz.roles[101] = []RoleRecord{
		{Code: "admin"},
		{Code: "auditor", Status: StatusDisabled},
	}
	f.authz.menus[101] = []MenuRecord{
		{URL: "/orders/list"},
		{URL: "user:list,edit"},
		{URL: "  "},
	}
	return f, mr
}

var alice = Principal{ID: 101, LoginName: "alice"}

func TestAuthorizeLoadsAndCachesSnapshot(t *testing.T) {
	f, mr := newRedisFixture(t, func(b *Builder) { b.WithMetricsEnabled(true) })
	ctx := context.Background()

	snap, err := f.engine.Authorize(ctx, alice)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if len(snap.Roles) != 1 || snap.Roles[0] != "admin" {
		t.Fatalf("expected only the enabled role, got %v", snap.Roles)
	}
	if len(snap.Permissions) != 2 {
		t.Fatalf("expected blank menus dropped, got %v", snap.Permissions)
	}

	if _, err := f.engine.Authorize(ctx, alice); err != nil {
		t.Fatalf("second Authorize: %v", err)
	}
	if got := f.authz.loadCount(); got != 1 {
		t.Fatalf("expected one source load, got %d", got)
	}
	if !mr.Exists("realm:authz:authorizationCache:101") {
		t.Fatalf("expected snapshot key in redis, have %v", mr.Keys())
	}

	c := f.engine.MetricsSnapshot().Counters
	if c[MetricAuthzCacheMiss] != 1 || c[MetricAuthzCacheHit] != 1 {
		t.Fatalf("unexpected cache counters: %v", c)
	}
}

func TestIsPermittedUsesWildcards(t *testing.T) {
	f, _ := newRedisFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		required string
		want     bool
	}{
		{"/orders/list", true},
		{"/orders/delete", false},
		{"user:list", true},
		{"user:edit:42", true},
		{"user:delete", false},
		{"", false},
	}
	for _, tc := range cases {
		got, err := f.engine.IsPermitted(ctx, alice, tc.required)
		if err != nil {
			t.Fatalf("IsPermitted(%q): %v", tc.required, err)
		}
		if got != tc.want {
			t.Fatalf("IsPermitted(%q) = %v, want %v", tc.required, got, tc.want)
		}
	}
}

func TestHasRole(t *testing.T) {
	f, _ := newRedisFixture(t, nil)
	ctx := context.Background()

	for role, want := range map[string]bool{"admin": true, "auditor": false, "guest": false} {
		got, err := f.engine.HasRole(ctx, alice, role)
		if err != nil {
			t.Fatalf("HasRole(%q): %v", role, err)
		}
		if got != want {
			t.Fatalf("HasRole(%q) = %v, want %v", role, got, want)
		}
	}
}

func TestInvalidateAuthorizationReloads(t *testing.T) {
	f, _ := newRedisFixture(t, nil)
	ctx := context.Background()

	if ok, _ := f.engine.IsPermitted(ctx, alice, "/reports/daily"); ok {
		t.Fatal("permission must not be granted yet")
	}

	f.authz.mu.Lock()
	f.authz.menus[101] = append(f.authz.menus[101], MenuRecord{URL: "/reports/daily"})
	f.authz.mu.Unlock()

	// the stale snapshot is served until invalidated
	if ok, _ := f.engine.IsPermitted(ctx, alice, "/reports/daily"); ok {
		t.Fatal("expected cached snapshot before invalidation")
	}

	if err := f.engine.InvalidateAuthorization(ctx, alice.ID); err != nil {
		t.Fatalf("InvalidateAuthorization: %v", err)
	}
	ok, err := f.engine.IsPermitted(ctx, alice, "/reports/daily")
	if err != nil || !ok {
		t.Fatalf("expected permission after reload, ok=%v err=%v", ok, err)
	}
	if got := f.authz.loadCount(); got != 2 {
		t.Fatalf("expected two source loads, got %d", got)
	}
}

func TestAuthorizeDeniesWhenCacheUnavailable(t *testing.T) {
	f, mr := newRedisFixture(t, func(b *Builder) { b.WithMetricsEnabled(true) })
	ctx := context.Background()

	mr.SetError("READONLY down")

	ok, err := f.engine.IsPermitted(ctx, alice, "/orders/list")
	if ok {
		t.Fatal("an unreadable cache must deny")
	}
	if !IsCacheUnavailable(err) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if got := f.authz.loadCount(); got != 0 {
		t.Fatalf("source must not be consulted when the cache is down, got %d loads", got)
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricAuthzCacheUnavailable]; got != 1 {
		t.Fatalf("expected one unavailable count, got %d", got)
	}
}

// readOnlyStore serves reads but fails every write.
type readOnlyStore struct {
	kv.Store
}

func (readOnlyStore) Set(context.Context, string, []byte, time.Duration) error {
	return kv.ErrUnavailable
}

func TestAuthorizeDeniesWhenCacheWriteFails(t *testing.T) {
	mem, err := kv.NewMemory(kv.MemoryConfig{Size: 16})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	f := newEngineFixture(t, testConfig(), readOnlyStore{Store: mem}, func(b *Builder) { b.WithMetricsEnabled(true) })
	f.authz.roles[101] = []RoleRecord{{Code: "admin"}}
	f.authz.menus[101] = []MenuRecord{{URL: "user:*"}}
	ctx := context.Background()

	ok, err := f.engine.IsPermitted(ctx, alice, "user:list")
	if ok {
		t.Fatal("a snapshot that could not be cached must not grant access")
	}
	if !IsCacheUnavailable(err) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if !errors.Is(err, kv.ErrUnavailable) {
		t.Fatalf("expected the store cause to be kept, got %v", err)
	}

	if has, err := f.engine.HasRole(ctx, alice, "admin"); has || !IsCacheUnavailable(err) {
		t.Fatalf("expected HasRole denied, got %v / %v", has, err)
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricAuthzCacheUnavailable]; got != 2 {
		t.Fatalf("expected two unavailable counts, got %d", got)
	}
}

func TestAuthorizeSourceFailure(t *testing.T) {
	f, mr := newRedisFixture(t, nil)
	ctx := context.Background()

	loadErr := errors.New("relation does not exist")
	f.authz.err = loadErr

	if _, err := f.engine.Authorize(ctx, alice); !errors.Is(err, loadErr) {
		t.Fatalf("expected source error, got %v", err)
	}
	if IsCacheUnavailable(loadErr) {
		t.Fatal("a source failure is not a cache failure")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("failed loads must not be cached, have %v", mr.Keys())
	}
}

func TestAuthorizeOnNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.Authorize(context.Background(), alice); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.InvalidateAuthorization(context.Background(), 1); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
