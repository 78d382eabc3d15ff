package internaldefs

import (
	goRealm "github.com/MrEthical07/goRealm"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goRealm.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goRealm.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goRealm.MetricLoginSuccess, Name: "realm_login_success_total", Help: "Successful authentications."},
	{ID: goRealm.MetricLoginFailure, Name: "realm_login_failure_total", Help: "Failed authentications of any outcome."},
	{ID: goRealm.MetricLoginUnknownAccount, Name: "realm_login_unknown_account_total", Help: "Logins for missing or deleted accounts."},
	{ID: goRealm.MetricLoginDisabled, Name: "realm_login_disabled_total", Help: "Logins rejected for disabled accounts."},
	{ID: goRealm.MetricLoginLocked, Name: "realm_login_locked_total", Help: "Logins rejected inside a lock window."},
	{ID: goRealm.MetricLoginBadCredentials, Name: "realm_login_bad_credentials_total", Help: "Password mismatches."},
	{ID: goRealm.MetricAccountLocked, Name: "realm_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: goRealm.MetricAccountUnlocked, Name: "realm_account_unlocked_total", Help: "Locks cleared after the lock window elapsed."},
	{ID: goRealm.MetricPasswordUpgraded, Name: "realm_password_upgraded_total", Help: "Password hashes rewritten on login."},
	{ID: goRealm.MetricSessionCreated, Name: "realm_session_created_total", Help: "Created sessions."},
	{ID: goRealm.MetricSessionInvalidated, Name: "realm_session_invalidated_total", Help: "Sessions removed by logout."},
	{ID: goRealm.MetricAuthzCacheHit, Name: "realm_authz_cache_hit_total", Help: "Authorization snapshots served from cache."},
	{ID: goRealm.MetricAuthzCacheMiss, Name: "realm_authz_cache_miss_total", Help: "Authorization snapshots loaded from the source."},
	{ID: goRealm.MetricAuthzCacheUnavailable, Name: "realm_authz_cache_unavailable_total", Help: "Authorization checks denied because the cache failed."},
	{ID: goRealm.MetricPermissionDenied, Name: "realm_permission_denied_total", Help: "Permission checks that were denied."},
	{ID: goRealm.MetricStoreUnavailable, Name: "realm_store_unavailable_total", Help: "Credential store failures."},
}

// HistogramDefs lists the exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goRealm.MetricLoginLatency, Name: "realm_login_latency_seconds", Help: "Authenticate latency histogram."},
	{ID: goRealm.MetricAuthorizeLatency, Name: "realm_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as metric-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// RealmLabel carries the authorization realm name on exported series.
const RealmLabel = "realm"

// GaugeDef is a value derived from several engine counters at export time.
type GaugeDef struct {
	Name  string
	Help  string
	Value func(goRealm.MetricsSnapshot) uint64
}

// GaugeDefs lists the derived gauges in exposition order.
var GaugeDefs = []GaugeDef{
	{
		Name: "realm_accounts_locked_outstanding",
		Help: "Accounts locked by this process whose lock no login has cleared yet.",
		Value: func(s goRealm.MetricsSnapshot) uint64 {
			return saturatingSub(s.Counters[goRealm.MetricAccountLocked], s.Counters[goRealm.MetricAccountUnlocked])
		},
	},
	{
		Name: "realm_sessions_open_estimate",
		Help: "Sessions created minus sessions logged out; idle expiry is not subtracted.",
		Value: func(s goRealm.MetricsSnapshot) uint64 {
			return saturatingSub(s.Counters[goRealm.MetricSessionCreated], s.Counters[goRealm.MetricSessionInvalidated])
		},
	},
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
