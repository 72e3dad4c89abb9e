// Package prometheus exports goSession metrics to Prometheus.
//
// [PrometheusExporter] is a client_golang Collector: register it on any
// registry, or mount [PrometheusExporter.Handler] which serves it from a
// private registry. Counter names are gosession_*_total; the single
// histogram is gosession_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate manager state.
package prometheus
