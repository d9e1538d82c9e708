// Package otel binds warden counters to OpenTelemetry observable instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket. A single callback reads
// [goWarden.Engine.MetricsSnapshot] on each collection cycle. The caller owns
// the MeterProvider.
package otel
