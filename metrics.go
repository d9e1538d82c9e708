package goWarden

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricAuthenticateSuccess counts access tokens that validated.
	MetricAuthenticateSuccess MetricID = iota
	// MetricAuthenticateFailure counts access tokens that were missing, unknown or expired.
	MetricAuthenticateFailure
	// MetricRefreshSuccess counts refresh tokens consumed successfully.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh tokens that were missing, unknown, expired or already used.
	MetricRefreshFailure
	// MetricAccessTokenIssued counts minted access tokens.
	MetricAccessTokenIssued
	// MetricRefreshTokenIssued counts minted refresh tokens.
	MetricRefreshTokenIssued
	// MetricRotation counts completed refresh rotations.
	MetricRotation
	// MetricSignOut counts sign-outs of authenticated sessions.
	MetricSignOut
	// MetricTTLChanged counts access token lifetime rewrites.
	MetricTTLChanged
	// MetricStoreError counts store failures surfaced to callers.
	MetricStoreError
	// MetricStoreReconnect mirrors the store's READONLY reconnect counter.
	MetricStoreReconnect
	// MetricStorePoolExhausted mirrors the store's pool wait timeout counter.
	MetricStorePoolExhausted
	// MetricAuthenticateLatency is the access path latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg. A disabled Metrics accepts
// calls and records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to counter id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram of id. Only MetricAuthenticateLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
