// Package prometheus exposes warden metrics through client_golang.
//
// [Exporter] is a [prometheus.Collector] that reads
// [goWarden.Engine.MetricsSnapshot] on every scrape. Counter names are
// warden_*_total and the single histogram is
// warden_authenticate_latency_seconds.
//
// The exporter never registers itself in the global registry. Mount
// [Exporter.Handler] or call [Exporter.Register] with your own registerer.
package prometheus
