// Package otel publishes goSession metrics through OpenTelemetry
// asynchronous instruments.
//
// Each counter becomes an Int64ObservableCounter. The validate latency
// histogram is reported as a cumulative bucket gauge carrying an "le"
// attribute plus a sample-count gauge. One callback reads
// [goSession.Manager.MetricsSnapshot] per collection cycle; the caller owns
// the MeterProvider.
package otel
