package goRealm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goRealm/kv"
	"github.com/MrEthical07/goRealm/password"
)

type fakeCredentials struct {
	mu      sync.Mutex
	records map[string]UserCredentialRecord
	getErr  error
	putErr  error
	updates int
}

func newFakeCredentials(records ...UserCredentialRecord) *fakeCredentials {
	f := &fakeCredentials{records: make(map[string]UserCredentialRecord)}
	for _, rec := range records {
		f.records[rec.LoginName] = rec
	}
	return f
}

func (f *fakeCredentials) GetByLoginName(_ context.Context, loginName string) (*UserCredentialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[loginName]
	if !ok {
		return nil, ErrUserNotFound
	}
	if rec.LockedAt != nil {
		at := *rec.LockedAt
		rec.LockedAt = &at
	}
	return &rec, nil
}

func (f *fakeCredentials) Update(_ context.Context, rec UserCredentialRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if _, ok := f.records[rec.LoginName]; !ok {
		return ErrUserNotFound
	}
	f.records[rec.LoginName] = rec
	f.updates++
	return nil
}

func (f *fakeCredentials) get(t *testing.T, loginName string) UserCredentialRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[loginName]
	if !ok {
		t.Fatalf("no record for %q", loginName)
	}
	return rec
}

type fakeAuthorization struct {
	mu    sync.Mutex
	roles map[int64][]RoleRecord
	menus map[int64][]MenuRecord
	err   error
	loads int
}

func newFakeAuthorization() *fakeAuthorization {
	return &fakeAuthorization{
		roles: make(map[int64][]RoleRecord),
		menus: make(map[int64][]MenuRecord),
	}
}

func (f *fakeAuthorization) RolesForUser(_ context.Context, userID int64) ([]RoleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return append([]RoleRecord(nil), f.roles[userID]...), nil
}

func (f *fakeAuthorization) MenusForUser(_ context.Context, userID int64) ([]MenuRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]MenuRecord(nil), f.menus[userID]...), nil
}

func (f *fakeAuthorization) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testConfig keeps argon2 at the smallest cost Validate accepts.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func hashFor(t testing.TB, cfg Config, pwd string) string {
	t.Helper()
	h, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	hash, err := h.Hash(pwd)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return hash
}

type engineFixture struct {
	engine *Engine
	users  *fakeCredentials
	authz  *fakeAuthorization
	clock  *testClock
	store  kv.Store
}

func newEngineFixture(t testing.TB, cfg Config, store kv.Store, build func(*Builder)) *engineFixture {
	t.Helper()

	clock := newTestClock()
	if store == nil {
		mem, err := kv.NewMemory(kv.MemoryConfig{Size: 128, Clock: clock.Now})
		if err != nil {
			t.Fatalf("NewMemory: %v", err)
		}
		store = mem
	}

	f := &engineFixture{
		users: newFakeCredentials(UserCredentialRecord{
			ID:           101,
			LoginName:    "alice",
			PasswordHash: hashFor(t, cfg, "correct-horse"),
		}),
		authz: newFakeAuthorization(),
		clock: clock,
		store: store,
	}

	b := New().
		WithConfig(cfg).
		WithKV(store).
		WithCredentialStore(f.users).
		WithAuthorizationSource(f.authz).
		WithClock(clock.Now)
	if build != nil {
		build(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f.engine = engine
	t.Cleanup(func() {
		_ = engine.Close()
		_ = store.Close()
	})
	return f
}
