package goRealm

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goRealm/filter"
	"github.com/MrEthical07/goRealm/idgen"
	"github.com/MrEthical07/goRealm/kv"
	"github.com/MrEthical07/goRealm/password"
	"github.com/MrEthical07/goRealm/permission"
	"github.com/MrEthical07/goRealm/session"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be used for one Build only.
//
//	engine, err := goRealm.New().
//		WithConfig(cfg).
//		WithCredentialStore(users).
//		WithAuthorizationSource(roles).
//		Build()
type Builder struct {
	config Config
	kv     kv.Store

	credentials CredentialStore
	authzSource AuthorizationSource
	ids         *idgen.Allocator
	auditSink   AuditSink
	log         logr.Logger
	clock       func() time.Time

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithKV sets the store sessions and authorization snapshots live in. The
// engine does not close a store it was given. Without one, Build connects
// to Config.Store.Addrs, or falls back to an in-process store.
func (b *Builder) WithKV(store kv.Store) *Builder {
	b.kv = store
	return b
}

// WithCredentialStore sets the user record collaborator. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithAuthorizationSource sets the role and menu collaborator. Required.
func (b *Builder) WithAuthorizationSource(src AuthorizationSource) *Builder {
	b.authzSource = src
	return b
}

// WithIDAllocator stamps audit events with time-ordered ids.
func (b *Builder) WithIDAllocator(ids *idgen.Allocator) *Builder {
	b.ids = ids
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log logr.Logger) *Builder {
	b.log = log
	return b
}

// WithClock overrides time.Now for lock windows, sessions and audit stamps.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, fmt.Errorf("%w: credential store required", ErrInvalidConfiguration)
	}
	if b.authzSource == nil {
		return nil, fmt.Errorf("%w: authorization source required", ErrInvalidConfiguration)
	}

	log := resolveLogger(b.log)
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- KV STORE --------
	store := b.kv
	ownsKV := false
	if store == nil {
		var err error
		store, err = OpenStore(cfg.Store, log, clock)
		if err != nil {
			return nil, err
		}
		ownsKV = true
	}

	// -------- PASSWORD HASHERS --------
	hasher, err := newPasswordHasher(cfg)
	if err != nil {
		if ownsKV {
			_ = store.Close()
		}
		return nil, err
	}

	chain, err := filter.NewChain(cfg.filterRules(), filter.DefaultRule())
	if err != nil {
		if ownsKV {
			_ = store.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		credentials: b.credentials,
		authzSource: b.authzSource,
		kv:          store,
		ownsKV:      ownsKV,
		hasher:      hasher,
		chain:       chain,
		ids:         b.ids,
		log:         log,
		clock:       clock,
	}

	engine.sessions = session.NewStore(store, session.Config{
		KeyPrefix: cfg.Session.KeyPrefix,
		TTL:       cfg.Session.TTL,
		Logger:    log.WithName("session"),
		Clock:     clock,
	})
	engine.resolver = session.NewResolver(session.ResolverConfig{
		HeaderName: cfg.Session.HeaderName,
		CookieName: cfg.Cookie.Name,
		CookiePath: cfg.Cookie.Path,
		Secure:     cfg.Cookie.Secure,
		SameSite:   cfg.Cookie.SameSite,
		MaxAge:     cfg.Cookie.MaxAge,
	})
	engine.cache = permission.NewCache(store, permission.CacheConfig{
		KeyPrefix: cfg.Cache.KeyPrefix,
		TTL:       cfg.Cache.TTL,
		Logger:    log.WithName("authz"),
	})
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	log.V(1).Info("engine built",
		"realm", cfg.Cache.RealmName,
		"sessionTTL", cfg.Session.TTL.String(),
		"rules", len(chain.Rules()),
		"remoteStore", len(cfg.Store.Addrs) > 0 || !ownsKV,
	)

	return engine, nil
}

func resolveLogger(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}

// OpenStore opens the key-value store described by cfg: Redis when Addrs
// is set, otherwise a process-local LRU. clock may be nil.
func OpenStore(cfg StoreConfig, log logr.Logger, clock func() time.Time) (kv.Store, error) {
	log = resolveLogger(log)
	if clock == nil {
		clock = time.Now
	}
	if len(cfg.Addrs) == 0 {
		log.Info("no store addresses configured, keeping sessions in process memory")
		return kv.NewMemory(kv.MemoryConfig{Size: cfg.LocalSize, Clock: clock})
	}
	opts := &redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.OperationTimeout,
		ReadTimeout:  cfg.OperationTimeout,
		WriteTimeout: cfg.OperationTimeout,
		// kv.Redis owns retries; each of its attempts is one round trip.
		MaxRetries: -1,
	}
	return kv.NewRedisFromOptions(opts, kv.RedisConfig{
		Attempts: cfg.ReconnectAttempts,
		Logger:   log.WithName("kv"),
	}), nil
}

func newPasswordHasher(cfg Config) (*password.Multi, error) {
	primary, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	var others []password.Hasher
	if cfg.Password.BcryptCost != 0 {
		bc, err := password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		others = append(others, bc)
	}
	if cfg.Password.AcceptLegacyMD5 {
		others = append(others, password.LegacyMD5{})
	}
	return password.NewMulti(primary, others...)
}
