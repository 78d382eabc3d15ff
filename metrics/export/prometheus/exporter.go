package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goRealm.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition
// format. Series carry a realm label once a realm name is set.
type PrometheusExporter struct {
	source metricsSource
	labels string
}

// NewPrometheusExporter reads from engine on every scrape and labels series
// with the engine's authorization realm.
func NewPrometheusExporter(engine *goRealm.Engine) *PrometheusExporter {
	p := &PrometheusExporter{source: engine}
	if engine != nil {
		p.WithRealm(engine.Config().Cache.RealmName)
	}
	return p
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// WithRealm sets the realm label value. An empty name drops the label.
func (p *PrometheusExporter) WithRealm(name string) *PrometheusExporter {
	p.labels = ""
	if name != "" {
		p.labels = internaldefs.RealmLabel + "=\"" + escapeLabel(name) + "\""
	}
	return p
}

// Handler serves Render with the text exposition content type.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" while nothing has been recorded.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		p.writeSample(&b, def.Name, def.Help, "counter", snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.GaugeDefs {
		p.writeSample(&b, def.Name, def.Help, "gauge", def.Value(snapshot))
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		p.writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	p.writeSample(&b, "realm_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", "counter", dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func (p *PrometheusExporter) writeSample(b *strings.Builder, name, help, kind string, value uint64) {
	writeHeader(b, name, help, kind)
	p.writeValue(b, name, value)
}

func (p *PrometheusExporter) writeValue(b *strings.Builder, name string, value uint64) {
	b.WriteString(name)
	if p.labels != "" {
		b.WriteByte('{')
		b.WriteString(p.labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func (p *PrometheusExporter) writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{")
		if p.labels != "" {
			b.WriteString(p.labels)
			b.WriteByte(',')
		}
		b.WriteString("le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	p.writeValue(b, name+"_count", cumulative[len(cumulative)-1])
	// snapshots carry bucket counts only
	p.writeValue(b, name+"_sum", 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
