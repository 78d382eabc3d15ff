package permission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goRealm/kv"
	"github.com/go-logr/logr"
)

// ErrCacheUnavailable is returned instead of an empty snapshot when the
// backing store cannot answer. Callers on the authorization path must deny.
var ErrCacheUnavailable = errors.New("authorization cache unavailable")

const (
	// DefaultKeyPrefix namespaces snapshot keys in the backing store.
	DefaultKeyPrefix = "realm:authz:"
	// DefaultTTL bounds how long a snapshot may lag behind role and menu changes.
	DefaultTTL = 30 * time.Minute
)

// CacheConfig controls key layout and expiry of a Cache.
type CacheConfig struct {
	KeyPrefix string
	TTL       time.Duration
	Logger    logr.Logger
}

// Cache stores snapshots under {KeyPrefix}{realm}:{principalID}.
//
// Nothing invalidates an entry when roles or menus change; a snapshot can
// be stale for up to TTL unless Invalidate is called.
type Cache struct {
	kv     kv.Store
	prefix string
	ttl    time.Duration
	log    logr.Logger
}

// NewCache creates a snapshot [Cache] over backend.
func NewCache(backend kv.Store, cfg CacheConfig) *Cache {
	c := &Cache{
		kv:     backend,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		log:    cfg.Logger,
	}
	if c.prefix == "" {
		c.prefix = DefaultKeyPrefix
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	return c
}

func (c *Cache) realmPrefix(realm string) string {
	return c.prefix + realm + ":"
}

func (c *Cache) key(realm string, principalID int64) string {
	return c.realmPrefix(realm) + strconv.FormatInt(principalID, 10)
}

// TTL reports the expiry applied by Put.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached snapshot. A miss is (Snapshot{}, false, nil); an
// entry that no longer decodes is dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, realm string, principalID int64) (Snapshot, bool, error) {
	key := c.key(realm, principalID)
	data, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	if !ok {
		return Snapshot{}, false, nil
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		c.log.V(1).Info("dropping undecodable snapshot", "key", key, "error", err.Error())
		if delErr := c.kv.Delete(ctx, key); delErr != nil {
			return Snapshot{}, false, fmt.Errorf("%w: %w", ErrCacheUnavailable, delErr)
		}
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Put writes snap through to the backend with the cache TTL.
func (c *Cache) Put(ctx context.Context, realm string, principalID int64, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	if err := c.kv.Set(ctx, c.key(realm, principalID), data, c.ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Invalidate drops the snapshot of one principal.
func (c *Cache) Invalidate(ctx context.Context, realm string, principalID int64) error {
	if err := c.kv.Delete(ctx, c.key(realm, principalID)); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// Keys lists the principal ids with a cached snapshot in realm.
//
// This is an admin-only O(n) operation and must not be used in request hot paths.
func (c *Cache) Keys(ctx context.Context, realm string) ([]string, error) {
	prefix := c.realmPrefix(realm)
	keys, err := c.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out, nil
}

// Size counts cached snapshots in realm.
func (c *Cache) Size(ctx context.Context, realm string) (int, error) {
	keys, err := c.Keys(ctx, realm)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
