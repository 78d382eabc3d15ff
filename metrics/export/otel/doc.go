// Package otel exposes goRealm metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine
// counter and one Int64ObservableGauge per latency bucket, all fed by a
// single callback reading [goRealm.Engine.MetricsSnapshot]. The caller owns
// the MeterProvider.
package otel
