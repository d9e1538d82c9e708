package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goWarden "github.com/MrEthical07/goWarden"
	"github.com/alicebob/miniredis/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goWarden.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goWarden.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func scrape(t *testing.T, h http.Handler) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec, string(body)
}

func TestScrapeEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWarden.MetricsSnapshot{
			Counters:   map[goWarden.MetricID]uint64{},
			Histograms: map[goWarden.MetricID][]uint64{},
		},
	})

	rec, body := scrape(t, exp.Handler())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "warden_")
}

func TestScrapeIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWarden.MetricsSnapshot{
			Counters: map[goWarden.MetricID]uint64{
				goWarden.MetricAuthenticateSuccess: 7,
			},
			Histograms: map[goWarden.MetricID][]uint64{
				goWarden.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	rec, body := scrape(t, exp.Handler())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, body, "warden_authenticate_success_total 7")
	assert.Contains(t, body, "warden_refresh_failure_total 0")
	assert.Contains(t, body, `warden_authenticate_latency_seconds_bucket{le="0.005"} 1`)
	assert.Contains(t, body, `warden_authenticate_latency_seconds_bucket{le="0.5"} 28`)
	assert.Contains(t, body, `warden_authenticate_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, body, "warden_authenticate_latency_seconds_count 36")
	assert.Contains(t, body, "warden_audit_dropped_total 2")
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{})
	reg := prom.NewRegistry()

	require.NoError(t, exp.Register(reg))
	assert.Error(t, exp.Register(reg))
}

func TestExporterReadsLiveEngine(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := goWarden.DefaultConfig()
	cfg.Store.URL = "redis://" + mr.Addr()
	cfg.Metrics.Enabled = true

	engine, err := goWarden.New().
		WithConfig(cfg).
		WithRegistry(goWarden.NewRegistry(zerolog.Nop())).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	scope, err := engine.Register("user", goWarden.ScopeConfig{AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	_, err = engine.IssueAccessToken(t.Context(), scope, "42")
	require.NoError(t, err)

	_, body := scrape(t, NewExporter(engine).Handler())
	assert.Contains(t, body, "warden_access_token_issued_total 1")
}

func BenchmarkCollect(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWarden.MetricsSnapshot{
			Counters: map[goWarden.MetricID]uint64{
				goWarden.MetricAuthenticateSuccess: 1000,
				goWarden.MetricAuthenticateFailure: 40,
				goWarden.MetricRefreshSuccess:      800,
			},
			Histograms: map[goWarden.MetricID][]uint64{
				goWarden.MetricAuthenticateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := prom.NewRegistry()
	reg.MustRegister(exp)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Gather()
	}
}
