package goRealm

import (
	"sync/atomic"
	"time"
)

// MetricID names one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful authentications.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts every non-success authentication outcome.
	MetricLoginFailure
	// MetricLoginUnknownAccount counts logins for missing or soft-deleted accounts.
	MetricLoginUnknownAccount
	// MetricLoginDisabled counts logins rejected for disabled accounts.
	MetricLoginDisabled
	// MetricLoginLocked counts logins rejected inside a lock window.
	MetricLoginLocked
	// MetricLoginBadCredentials counts password mismatches.
	MetricLoginBadCredentials
	// MetricAccountLocked counts transitions into the locked state.
	MetricAccountLocked
	// MetricAccountUnlocked counts locks cleared because the window elapsed.
	MetricAccountUnlocked
	// MetricPasswordUpgraded counts hashes rewritten after a successful login.
	MetricPasswordUpgraded
	// MetricSessionCreated counts sessions bound by Login.
	MetricSessionCreated
	// MetricSessionInvalidated counts sessions removed by Logout.
	MetricSessionInvalidated
	// MetricAuthzCacheHit counts snapshots served from the cache.
	MetricAuthzCacheHit
	// MetricAuthzCacheMiss counts snapshots loaded from the authorization source.
	MetricAuthzCacheMiss
	// MetricAuthzCacheUnavailable counts authorization checks denied because the cache failed.
	MetricAuthzCacheUnavailable
	// MetricPermissionDenied counts permission checks that returned false.
	MetricPermissionDenied
	// MetricStoreUnavailable counts credential store failures.
	MetricStoreUnavailable
	// MetricLoginLatency is the Authenticate latency histogram.
	MetricLoginLatency
	// MetricAuthorizeLatency is the Authorize latency histogram.
	MetricAuthorizeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and latency histograms.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into a latency histogram. Non-latency ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isLatencyMetric(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of a counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and every histogram when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isLatencyMetric(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range latencyMetrics {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

var latencyMetrics = [...]MetricID{MetricLoginLatency, MetricAuthorizeLatency}

func isLatencyMetric(id MetricID) bool {
	return id == MetricLoginLatency || id == MetricAuthorizeLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
