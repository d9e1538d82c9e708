package otel

import (
	"context"
	"sync"
	"testing"

	goWarden "github.com/MrEthical07/goWarden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goWarden.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goWarden.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goWarden.MetricsSnapshot{
		Counters:   make(map[goWarden.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goWarden.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("warden-test")

	src := &fakeSource{
		snapshot: goWarden.MetricsSnapshot{
			Counters: map[goWarden.MetricID]uint64{
				goWarden.MetricAuthenticateSuccess: 3,
			},
			Histograms: map[goWarden.MetricID][]uint64{
				goWarden.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	require.NoError(t, err)
	defer func() { require.NoError(t, exp.Close()) }()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	v, ok := findInt64(rm, "warden_authenticate_success_total")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)

	v, ok = findInt64(rm, "warden_authenticate_latency_seconds_bucket_le_0_025")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)

	v, ok = findInt64(rm, "warden_authenticate_latency_seconds_count")
	require.True(t, ok)
	assert.Equal(t, int64(8), v)

	v, ok = findInt64(rm, "warden_audit_dropped_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("warden-test")

	_, err := NewExporterFromSource(meter, nil)
	assert.ErrorIs(t, err, ErrNilSource)

	_, err = NewExporterFromSource(nil, &fakeSource{})
	assert.ErrorIs(t, err, ErrNilMeter)

	_, err = NewExporter(meter, nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestCloseOnNilExporter(t *testing.T) {
	var exp *Exporter
	assert.NoError(t, exp.Close())
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("warden-test")

	src := &fakeSource{
		snapshot: goWarden.MetricsSnapshot{
			Counters: map[goWarden.MetricID]uint64{
				goWarden.MetricAuthenticateSuccess: 1,
			},
			Histograms: map[goWarden.MetricID][]uint64{
				goWarden.MetricAuthenticateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	require.NoError(t, err)
	defer func() { require.NoError(t, exp.Close()) }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goWarden.MetricAuthenticateSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
