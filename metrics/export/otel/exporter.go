package otel

import (
	"context"
	"errors"
	"fmt"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goRealm.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         goRealm.MetricID
	instrument metric.Int64ObservableCounter
}

type observedGauge struct {
	def        internaldefs.GaugeDef
	instrument metric.Int64ObservableGauge
}

type observedHistogram struct {
	id      goRealm.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine counters as observable instruments. Values
// are read from the engine once per collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	gauges       []observedGauge
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	observeOpts  []metric.ObserveOption
}

// Option configures an OTelExporter.
type Option func(*OTelExporter)

// WithRealm attaches a realm attribute to every observation.
func WithRealm(name string) Option {
	return func(e *OTelExporter) {
		if name == "" {
			e.observeOpts = nil
			return
		}
		set := attribute.NewSet(attribute.String(internaldefs.RealmLabel, name))
		e.observeOpts = []metric.ObserveOption{metric.WithAttributeSet(set)}
	}
}

// NewOTelExporter registers every realm_* instrument on meter, tagged with
// the engine's authorization realm.
func NewOTelExporter(meter metric.Meter, engine *goRealm.Engine, opts ...Option) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	opts = append([]Option{WithRealm(engine.Config().Cache.RealmName)}, opts...)
	return NewOTelExporterFromSource(meter, engine, opts...)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}
	for _, opt := range opts {
		opt(exporter)
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.GaugeDefs)+len(internaldefs.HistogramDefs)*9+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.GaugeDefs {
		ins, err := meter.Int64ObservableGauge(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable gauge %s: %w", def.Name, err)
		}
		exporter.gauges = append(exporter.gauges, observedGauge{def: def, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"realm_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		opts := exporter.observeOpts
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]), opts...)
		}
		for _, g := range exporter.gauges {
			observer.ObserveInt64(g.instrument, int64(g.def.Value(snapshot)), opts...)
		}
		for _, h := range exporter.histograms {
			nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[h.id])
			cumulative := internaldefs.CumulativeBuckets(nonCumulative)
			for i := 0; i < len(cumulative); i++ {
				observer.ObserveInt64(h.buckets[i], int64(cumulative[i]), opts...)
			}
			observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]), opts...)
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()), opts...)
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
