package goRealm

import (
	"context"
	"time"

	"github.com/MrEthical07/goRealm/filter"
	"github.com/MrEthical07/goRealm/idgen"
	"github.com/MrEthical07/goRealm/internal/audit"
	"github.com/MrEthical07/goRealm/kv"
	"github.com/MrEthical07/goRealm/password"
	"github.com/MrEthical07/goRealm/permission"
	"github.com/MrEthical07/goRealm/session"
	"github.com/go-logr/logr"
)

// Engine authenticates logins, binds sessions and answers authorization
// questions. Build one with [New]; it is safe for concurrent use.
type Engine struct {
	config      Config
	credentials CredentialStore
	authzSource AuthorizationSource
	kv          kv.Store
	ownsKV      bool
	sessions    *session.Store
	resolver    *session.Resolver
	cache       *permission.Cache
	chain       *filter.Chain
	hasher      *password.Multi
	ids         *idgen.Allocator
	audit       *audit.Dispatcher
	metrics     *Metrics
	log         logr.Logger
	clock       func() time.Time
}

// Close flushes pending audit events and releases a store the engine opened.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsKV && e.kv != nil {
		return e.kv.Close()
	}
	return nil
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Sessions exposes the session store for admin tooling.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Resolver returns the request-to-session-id resolver.
func (e *Engine) Resolver() *session.Resolver {
	return e.resolver
}

// Chain returns the access filter chain built from Config.Filter.
func (e *Engine) Chain() *filter.Chain {
	return e.chain
}

// AuthorizationCache exposes the snapshot cache for admin tooling.
func (e *Engine) AuthorizationCache() *permission.Cache {
	return e.cache
}

// Ping checks the backing key-value store.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.Ping(ctx)
}

// AuditDropped counts audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(id MetricID, start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(id, time.Since(start))
	}
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
