package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryExpiresEntries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewMemory(MemoryConfig{Size: 8, Clock: clock.Now})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	if err := m.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set(ctx, "b", []byte("2"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.Advance(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Fatalf("expected a before deadline")
	}
	if ok, _ := m.Expire(ctx, "a", time.Minute); !ok {
		t.Fatalf("expected Expire to find a")
	}

	clock.Advance(61 * time.Second)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatalf("expected a to expire")
	}
	if v, ok, _ := m.Get(ctx, "b"); !ok || string(v) != "2" {
		t.Fatalf("expected b without ttl to survive")
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	m, err := NewMemory(MemoryConfig{Size: 2})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	_ = m.Set(ctx, "a", []byte("1"), 0)
	_ = m.Set(ctx, "b", []byte("2"), 0)
	_, _, _ = m.Get(ctx, "a")
	_ = m.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestMemoryKeysSkipsExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, _ := NewMemory(MemoryConfig{Clock: clock.Now})
	ctx := context.Background()

	_ = m.Set(ctx, "sess:1", []byte("x"), time.Second)
	_ = m.Set(ctx, "sess:2", []byte("x"), time.Hour)
	_ = m.Set(ctx, "auth:1", []byte("x"), time.Hour)
	clock.Advance(2 * time.Second)

	keys, err := m.Keys(ctx, "sess:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "sess:2" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMemoryClosedIsUnavailable(t *testing.T) {
	m, _ := NewMemory(MemoryConfig{})
	_ = m.Close()

	_, _, err := m.Get(context.Background(), "a")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
