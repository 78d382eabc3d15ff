package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goRealm "github.com/MrEthical07/goRealm"
)

type fakeSource struct {
	snapshot goRealm.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goRealm.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goRealm.MetricsSnapshot{
			Counters:   map[goRealm.MetricID]uint64{},
			Histograms: map[goRealm.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goRealm.MetricsSnapshot{
			Counters: map[goRealm.MetricID]uint64{
				goRealm.MetricLoginSuccess: 7,
			},
			Histograms: map[goRealm.MetricID][]uint64{
				goRealm.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "realm_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "realm_login_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "realm_login_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "realm_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goRealm.MetricsSnapshot{
			Counters:   map[goRealm.MetricID]uint64{goRealm.MetricLoginSuccess: 1},
			Histograms: map[goRealm.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRenderIncludesAuthorizeHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goRealm.MetricsSnapshot{
			Counters: map[goRealm.MetricID]uint64{goRealm.MetricPermissionDenied: 4},
			Histograms: map[goRealm.MetricID][]uint64{
				goRealm.MetricAuthorizeLatency: {2, 0, 0, 0, 0, 0, 0, 1},
			},
		},
	})

	out := exp.Render()
	if !strings.Contains(out, "realm_permission_denied_total 4") {
		t.Fatalf("expected permission denied counter, got:\n%s", out)
	}
	if !strings.Contains(out, "realm_authorize_latency_seconds_count 3") {
		t.Fatalf("expected authorize histogram count, got:\n%s", out)
	}
	if !strings.Contains(out, "realm_login_latency_seconds_count 0") {
		t.Fatalf("expected empty login histogram to be rendered, got:\n%s", out)
	}
}

func TestRenderRealmLabelAndDerivedGauges(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goRealm.MetricsSnapshot{
			Counters: map[goRealm.MetricID]uint64{
				goRealm.MetricAccountLocked:      3,
				goRealm.MetricAccountUnlocked:    1,
				goRealm.MetricSessionCreated:     5,
				goRealm.MetricSessionInvalidated: 7,
			},
			Histograms: map[goRealm.MetricID][]uint64{
				goRealm.MetricLoginLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}).WithRealm(`admin"realm`)

	out := exp.Render()
	for _, want := range []string{
		"# TYPE realm_accounts_locked_outstanding gauge",
		`realm_accounts_locked_outstanding{realm="admin\"realm"} 2`,
		`realm_sessions_open_estimate{realm="admin\"realm"} 0`,
		`realm_account_locked_total{realm="admin\"realm"} 3`,
		`realm_login_latency_seconds_bucket{realm="admin\"realm",le="0.005"} 1`,
		`realm_login_latency_seconds_count{realm="admin\"realm"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE realm_login_latency_seconds") != 1 {
		t.Fatalf("histogram header must be written once, got:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goRealm.MetricsSnapshot{
			Counters: map[goRealm.MetricID]uint64{
				goRealm.MetricLoginSuccess:       1000,
				goRealm.MetricLoginFailure:       40,
				goRealm.MetricAuthzCacheHit:      800,
				goRealm.MetricAuthzCacheMiss:     10,
				goRealm.MetricSessionCreated:     800,
				goRealm.MetricSessionInvalidated: 20,
				goRealm.MetricAccountLocked:      3,
			},
			Histograms: map[goRealm.MetricID][]uint64{
				goRealm.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
