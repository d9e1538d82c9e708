package prometheus

import (
	"net/http"

	goWarden "github.com/MrEthical07/goWarden"
	"github.com/MrEthical07/goWarden/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goWarden.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   goWarden.MetricID
	desc *prom.Desc
}

type histogramDesc struct {
	id   goWarden.MetricID
	desc *prom.Desc
}

// Exporter collects engine counters on demand.
type Exporter struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prom.Desc
}

var _ prom.Collector = (*Exporter)(nil)

// NewExporter reads from engine.
func NewExporter(engine *goWarden.Engine) *Exporter {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource reads from any value exposing a metrics snapshot and
// an audit drop count.
func NewExporterFromSource(source metricsSource) *Exporter {
	e := &Exporter{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prom.NewDesc(
			internaldefs.AuditDroppedName,
			"Audit events dropped by dispatcher backpressure.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histograms = append(e.histograms, histogramDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prom.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	for _, h := range e.histograms {
		ch <- h.desc
	}
	ch <- e.auditDropped
}

// Collect implements prometheus.Collector. Nothing is emitted while the
// engine records no metrics.
func (e *Exporter) Collect(ch chan<- prom.Metric) {
	if e == nil || e.source == nil {
		return
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, c := range e.counters {
		ch <- prom.MustNewConstMetric(c.desc, prom.CounterValue, float64(snapshot.Counters[c.id]))
	}

	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		// Bucket counts are all the engine keeps, so the sum is reported as zero.
		ch <- prom.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prom.MustNewConstMetric(e.auditDropped, prom.CounterValue, float64(dropped))
}

// Register adds the exporter to reg.
func (e *Exporter) Register(reg prom.Registerer) error {
	return reg.Register(e)
}

// Handler serves the exporter from a private registry in the text exposition
// format.
func (e *Exporter) Handler() http.Handler {
	reg := prom.NewRegistry()
	reg.MustRegister(e)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
