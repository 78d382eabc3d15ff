// Package prometheus renders goRealm metrics in Prometheus text format.
//
// [NewPrometheusExporter] wraps a [goRealm.Engine]; mount
// [PrometheusExporter.Handler] wherever scrapes should land. Counters are
// named realm_*_total and the two latency histograms are
// realm_login_latency_seconds and realm_authorize_latency_seconds.
// Nothing is registered globally.
package prometheus
