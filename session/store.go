package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goRealm/kv"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// ErrUnknownSession wraps every backend failure surfaced by the Store.
var ErrUnknownSession = errors.New("unknown session")

const (
	// DefaultKeyPrefix namespaces session keys in the backing store.
	DefaultKeyPrefix = "realm:session:"
	// DefaultTTL is the idle expiry applied when Config.TTL is zero.
	DefaultTTL = 30 * time.Minute
)

// Config controls key layout and expiry of a Store.
type Config struct {
	KeyPrefix string
	TTL       time.Duration
	Logger    logr.Logger
	Clock     func() time.Time
	// NewID mints ids for sessions created without one. Defaults to NewID.
	NewID func() string
}

// Store keeps sessions in a kv.Store under {KeyPrefix}{id} with a TTL that
// is pushed forward on every Update. Expiry is left to the backend.
type Store struct {
	kv     kv.Store
	prefix string
	ttl    time.Duration
	log    logr.Logger
	clock  func() time.Time
	newID  func() string
}

// NewID returns a random session id.
func NewID() string {
	return uuid.NewString()
}

// NewStore creates a session [Store] over backend. Zero Config fields take
// the package defaults.
func NewStore(backend kv.Store, cfg Config) *Store {
	s := &Store{
		kv:     backend,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		log:    cfg.Logger,
		clock:  cfg.Clock,
		newID:  cfg.NewID,
	}
	if s.prefix == "" {
		s.prefix = DefaultKeyPrefix
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = NewID
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// TTL is the expiry applied to sessions without their own TTLSeconds.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores sess and returns its id, minting one if sess.ID is empty.
//
//	Performance: 1 backend SET.
func (s *Store) Create(ctx context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("%w: nil session", ErrUnknownSession)
	}
	if sess.ID == "" {
		sess.ID = s.newID()
	}
	now := s.clock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if err := s.write(ctx, sess, now); err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Read loads a session. A missing or expired id is (nil, false, nil);
// callers must treat it as "not logged in", not as an error.
//
//	Performance: 1 backend GET.
func (s *Store) Read(ctx context.Context, id string) (*Session, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, nil
	}

	data, ok, err := s.kv.Get(ctx, s.key(id))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}
	if !ok {
		return nil, false, nil
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}
	sess.ID = id
	return sess, true, nil
}

// Update rewrites sess, stamps LastAccess and restarts its TTL.
//
//	Performance: 1 backend SET.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("%w: session without id", ErrUnknownSession)
	}
	return s.write(ctx, sess, s.clock())
}

func (s *Store) write(ctx context.Context, sess *Session, now time.Time) error {
	sess.LastAccess = now
	if sess.TTLSeconds <= 0 {
		sess.TTLSeconds = int(s.ttl / time.Second)
	}
	sess.SchemaVersion = CurrentSchemaVersion

	data, err := Encode(sess)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}
	if err := s.kv.Set(ctx, s.key(sess.ID), data, sess.TTL()); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}
	return nil
}

// Touch reads id and writes it back, sliding its expiry. It reports false
// when the session no longer exists.
func (s *Store) Touch(ctx context.Context, id string) (*Session, bool, error) {
	sess, ok, err := s.Read(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := s.Update(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Delete removes a session. It is best effort: a backend failure is logged
// and swallowed, since the entry will expire on its own. Deleting an
// unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	if err := s.kv.Delete(ctx, s.key(id)); err != nil {
		s.log.Error(err, "session delete failed", "session", id)
	}
}

// ListActive decodes every session under the prefix. Entries that vanish
// mid-scan or fail to decode are skipped.
//
// This is an admin-only O(n) operation and must not be used in request hot paths.
func (s *Store) ListActive(ctx context.Context) ([]*Session, error) {
	keys, err := s.kv.Keys(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}

	out := make([]*Session, 0, len(keys))
	for _, key := range keys {
		data, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownSession, err)
		}
		if !ok {
			continue
		}
		sess, err := Decode(data)
		if err != nil {
			s.log.V(1).Info("skipping undecodable session entry", "key", key, "error", err.Error())
			continue
		}
		sess.ID = strings.TrimPrefix(key, s.prefix)
		out = append(out, sess)
	}
	return out, nil
}

// EstimateActive counts session keys without decoding them.
func (s *Store) EstimateActive(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx, s.prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}
	return len(keys), nil
}

// Ping returns a point-in-time backend availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.kv.Ping(ctx); err != nil {
		return time.Since(start), fmt.Errorf("%w: %w", ErrUnknownSession, err)
	}
	return time.Since(start), nil
}
