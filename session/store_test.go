package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goRealm/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
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
	return NewStore(backend, Config{KeyPrefix: "test:session:", TTL: ttl}), mr
}

func TestCreateReadRoundTrip(t *testing.T) {
	store, mr := newSessionStoreTest(t, time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, &Session{Principal: &Principal{ID: 9, LoginName: "bob"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	if !mr.Exists("test:session:" + id) {
		t.Fatalf("expected key under prefix")
	}

	sess, ok, err := store.Read(ctx, id)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if sess.ID != id || sess.Principal == nil || sess.Principal.ID != 9 || sess.Principal.LoginName != "bob" {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestReadAfterTTLReturnsNone(t *testing.T) {
	store, mr := newSessionStoreTest(t, time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, &Session{Principal: &Principal{ID: 1, LoginName: "a"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(61 * time.Second)

	sess, ok, err := store.Read(ctx, id)
	if err != nil {
		t.Fatalf("expired read must not be an error: %v", err)
	}
	if ok || sess != nil {
		t.Fatalf("expected no session after ttl, got %+v", sess)
	}
}

func TestUpdateRefreshesTTL(t *testing.T) {
	store, mr := newSessionStoreTest(t, time.Minute)
	ctx := context.Background()

	id, _ := store.Create(ctx, &Session{})
	mr.FastForward(40 * time.Second)
	if _, ok, err := store.Touch(ctx, id); err != nil || !ok {
		t.Fatalf("touch: ok=%v err=%v", ok, err)
	}
	mr.FastForward(40 * time.Second)

	if _, ok, _ := store.Read(ctx, id); !ok {
		t.Fatalf("expected session alive after sliding refresh")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := newSessionStoreTest(t, time.Minute)
	ctx := context.Background()

	id, _ := store.Create(ctx, &Session{})
	store.Delete(ctx, id)
	store.Delete(ctx, id)
	store.Delete(ctx, "")

	if _, ok, _ := store.Read(ctx, id); ok {
		t.Fatalf("expected session gone")
	}
}

func TestListActiveSkipsUndecodableEntries(t *testing.T) {
	store, mr := newSessionStoreTest(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, &Session{Principal: &Principal{ID: int64(i), LoginName: "u"}}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := mr.Set("test:session:garbage", "not a session"); err != nil {
		t.Fatalf("seed garbage: %v", err)
	}
	if err := mr.Set("other:key", "ignored"); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	sessions, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}

	n, err := store.EstimateActive(ctx)
	if err != nil || n != 4 {
		t.Fatalf("expected 4 keys under prefix, got %d err=%v", n, err)
	}
}

func TestBackendFailureSurfacesUnknownSession(t *testing.T) {
	store, mr := newSessionStoreTest(t, time.Minute)
	mr.Close()

	_, _, err := store.Read(context.Background(), "sid")
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
	if !errors.Is(err, kv.ErrUnavailable) {
		t.Fatalf("expected cause kv.ErrUnavailable, got %v", err)
	}

	// delete is best effort and must not panic
	store.Delete(context.Background(), "sid")
}
