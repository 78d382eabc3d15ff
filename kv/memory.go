package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemorySize = 10000

// ErrClosed is returned by a Memory store after Close.
var ErrClosed = errors.New("kv: store closed")

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryConfig sizes a Memory store. Nil Clock means time.Now.
type MemoryConfig struct {
	Size  int
	Clock func() time.Time
}

// Memory is an in-process Store: an LRU bounded by entry count where each
// entry also carries its own deadline.
type Memory struct {
	cache *lru.Cache[string, memoryEntry]
	clock func() time.Time

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory(cfg MemoryConfig) (*Memory, error) {
	size := cfg.Size
	if size <= 0 {
		size = defaultMemorySize
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("kv: create lru: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Memory{cache: cache, clock: clock}, nil
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("%w: %v", ErrUnavailable, ErrClosed)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.check(ctx); err != nil {
		return nil, false, err
	}
	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.clock()) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = m.clock().Add(ttl)
	}
	m.cache.Add(key, entry)
	return nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := m.check(ctx); err != nil {
		return false, err
	}
	entry, ok := m.cache.Peek(key)
	if !ok {
		return false, nil
	}
	now := m.clock()
	if entry.expired(now) || ttl <= 0 {
		m.cache.Remove(key)
		return !entry.expired(now), nil
	}
	entry.expiresAt = now.Add(ttl)
	m.cache.Add(key, entry)
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	for _, key := range keys {
		m.cache.Remove(key)
	}
	return nil
}

// Keys returns live keys under prefix in lexical order.
func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	now := m.clock()
	var out []string
	for _, key := range m.cache.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, ok := m.cache.Peek(key)
		if !ok {
			continue
		}
		if entry.expired(now) {
			m.cache.Remove(key)
			continue
		}
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return m.check(ctx)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cache.Purge()
	return nil
}

// Len reports the number of entries held, expired ones included.
func (m *Memory) Len() int {
	return m.cache.Len()
}
