package goRealm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goRealm/filter"
	"github.com/MrEthical07/goRealm/idgen"
	"github.com/MrEthical07/goRealm/password"
	"github.com/MrEthical07/goRealm/permission"
	"github.com/MrEthical07/goRealm/session"
)

// Config is the complete engine configuration.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable. The Builder clones the value it is given.
type Config struct {
	Lockout  LockoutConfig  `yaml:"lockout"`
	Session  SessionConfig  `yaml:"session"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Cache    CacheConfig    `yaml:"cache"`
	IDGen    IDGenConfig    `yaml:"idgen"`
	Store    StoreConfig    `yaml:"store"`
	Password PasswordConfig `yaml:"password"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Filter   FilterConfig   `yaml:"filter"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the failed-login lock.
type LockoutConfig struct {
	// MaxFailures consecutive bad passwords lock the account.
	MaxFailures int `yaml:"max_failures"`
	// LockWindow is how long a lock holds before the next login attempt clears it.
	LockWindow time.Duration `yaml:"lock_window"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session keys, expiry and carriers.
type SessionConfig struct {
	KeyPrefix  string        `yaml:"key_prefix"`
	TTL        time.Duration `yaml:"ttl"`
	HeaderName string        `yaml:"header_name"`
	// SlidingExpiration pushes the TTL forward on every authenticated request.
	SlidingExpiration bool `yaml:"sliding_expiration"`
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie issued to browser clients.
type CookieConfig struct {
	Name     string        `yaml:"name"`
	Path     string        `yaml:"path"`
	Secure   bool          `yaml:"secure"`
	SameSite http.SameSite `yaml:"same_site"`
	MaxAge   time.Duration `yaml:"max_age"`
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the authorization snapshot cache.
type CacheConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	// RealmName is the cache name segment of snapshot keys.
	RealmName string        `yaml:"realm_name"`
	TTL       time.Duration `yaml:"ttl"`
}

/*
====================================
IDGEN CONFIG
====================================
*/

// IDGenConfig places this process in the id space.
type IDGenConfig struct {
	SiteID   int64     `yaml:"site_id"`
	WorkerID int64     `yaml:"worker_id"`
	Epoch    time.Time `yaml:"epoch"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls access to the remote key-value store.
type StoreConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	// OperationTimeout bounds every store call made on a request path.
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	// ReconnectAttempts per call; each failed attempt swaps in a fresh client.
	ReconnectAttempts int `yaml:"reconnect_attempts"`
	// LocalSize is the capacity of the in-process store used when Addrs is empty.
	LocalSize int `yaml:"local_size"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id parameters for new hashes.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory"` // in KB
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
	// UpgradeOnLogin rehashes legacy or weaker hashes after a successful login.
	UpgradeOnLogin bool `yaml:"upgrade_on_login"`
	// AcceptLegacyMD5 lets records migrated with unsalted md5 hex hashes log in.
	AcceptLegacyMD5 bool `yaml:"accept_legacy_md5"`
	// BcryptCost, when non-zero, also accepts bcrypt hashes.
	BcryptCost int `yaml:"bcrypt_cost"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
FILTER CONFIG
====================================
*/

// FilterConfig configures the access filter chain and its endpoints.
type FilterConfig struct {
	// Rules are matched in order; an empty list uses filter.DefaultRules.
	Rules []filter.Rule `yaml:"rules"`
	// LoginPath is handed to the login handler instead of being rejected.
	LoginPath string `yaml:"login_path"`
	// ForbiddenURL, when set, receives non-XHR requests that fail a permission check.
	ForbiddenURL string `yaml:"forbidden_url"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration the original deployment ran with.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxFailures: 5,
			LockWindow:  10 * time.Minute,
		},
		Session: SessionConfig{
			KeyPrefix:         session.DefaultKeyPrefix,
			TTL:               session.DefaultTTL,
			HeaderName:        session.DefaultHeaderName,
			SlidingExpiration: true,
		},
		Cookie: CookieConfig{
			Name:     session.DefaultCookieName,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
		Cache: CacheConfig{
			KeyPrefix: permission.DefaultKeyPrefix,
			RealmName: "authorizationCache",
			TTL:       permission.DefaultTTL,
		},
		IDGen: IDGenConfig{
			Epoch: idgen.DefaultEpoch,
		},
		Store: StoreConfig{
			OperationTimeout:  2 * time.Second,
			ReconnectAttempts: 3,
			LocalSize:         10000,
		},
		Password: PasswordConfig{
			Memory:          65536,
			Time:            3,
			Parallelism:     2,
			SaltLength:      16,
			KeyLength:       32,
			UpgradeOnLogin:  true,
			AcceptLegacyMD5: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Filter: FilterConfig{
			LoginPath:    "/admin/login",
			ForbiddenURL: "",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Store.Addrs = append([]string(nil), cfg.Store.Addrs...)
	out.Filter.Rules = append([]filter.Rule(nil), cfg.Filter.Rules...)
	return out
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}

// Validate checks cross-field constraints. Every failure wraps
// ErrInvalidConfiguration.
func (c *Config) Validate() error {
	// Lockout
	if c.Lockout.MaxFailures <= 0 {
		return configErr("Lockout MaxFailures must be > 0")
	}
	if c.Lockout.LockWindow <= 0 {
		return configErr("Lockout LockWindow must be > 0")
	}

	// Session
	if strings.TrimSpace(c.Session.KeyPrefix) == "" {
		return configErr("Session KeyPrefix is required")
	}
	if c.Session.TTL < time.Second {
		return configErr("Session TTL must be >= 1s")
	}
	if strings.TrimSpace(c.Session.HeaderName) == "" {
		return configErr("Session HeaderName is required")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return configErr("Cookie Name is required")
	}
	if c.Cookie.MaxAge < 0 {
		return configErr("Cookie MaxAge must be >= 0")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return configErr("Cookie SameSite=None requires Secure")
	}

	// Cache
	if strings.TrimSpace(c.Cache.KeyPrefix) == "" {
		return configErr("Cache KeyPrefix is required")
	}
	if strings.TrimSpace(c.Cache.RealmName) == "" {
		return configErr("Cache RealmName is required")
	}
	if c.Cache.TTL < time.Second {
		return configErr("Cache TTL must be >= 1s")
	}
	if c.Cache.KeyPrefix == c.Session.KeyPrefix {
		return configErr("Cache KeyPrefix must differ from Session KeyPrefix")
	}

	// IDGen
	if c.IDGen.SiteID < 0 || c.IDGen.SiteID > idgen.MaxSiteID {
		return configErr("IDGen SiteID must be in [0,%d]", idgen.MaxSiteID)
	}
	if c.IDGen.WorkerID < 0 || c.IDGen.WorkerID > idgen.MaxWorkerID {
		return configErr("IDGen WorkerID must be in [0,%d]", idgen.MaxWorkerID)
	}

	// Store
	if c.Store.OperationTimeout <= 0 {
		return configErr("Store OperationTimeout must be > 0")
	}
	if c.Store.ReconnectAttempts <= 0 {
		return configErr("Store ReconnectAttempts must be > 0")
	}
	if len(c.Store.Addrs) == 0 && c.Store.LocalSize <= 0 {
		return configErr("Store LocalSize must be > 0 without Addrs")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return configErr("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return configErr("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return configErr("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return configErr("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return configErr("Password KeyLength must be >= 16")
	}
	if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31) {
		return configErr("Password BcryptCost must be 0 or in [4,31]")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configErr("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return configErr("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Filter
	if c.Filter.LoginPath != "" && !strings.HasPrefix(c.Filter.LoginPath, "/") {
		return configErr("Filter LoginPath must start with /")
	}
	if _, err := filter.NewChain(c.filterRules(), filter.DefaultRule()); err != nil {
		return configErr("Filter Rules: %v", err)
	}

	return nil
}

func (c *Config) filterRules() []filter.Rule {
	if len(c.Filter.Rules) == 0 {
		return filter.DefaultRules()
	}
	return c.Filter.Rules
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}
