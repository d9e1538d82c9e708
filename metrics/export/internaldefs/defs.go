package internaldefs

import (
	goWarden "github.com/MrEthical07/goWarden"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goWarden.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   goWarden.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "warden_audit_dropped_total"

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goWarden.MetricAuthenticateSuccess, Name: "warden_authenticate_success_total", Help: "Access tokens that validated."},
	{ID: goWarden.MetricAuthenticateFailure, Name: "warden_authenticate_failure_total", Help: "Access tokens that were missing, unknown or expired."},
	{ID: goWarden.MetricRefreshSuccess, Name: "warden_refresh_success_total", Help: "Refresh tokens consumed."},
	{ID: goWarden.MetricRefreshFailure, Name: "warden_refresh_failure_total", Help: "Refresh tokens rejected."},
	{ID: goWarden.MetricAccessTokenIssued, Name: "warden_access_token_issued_total", Help: "Access tokens minted."},
	{ID: goWarden.MetricRefreshTokenIssued, Name: "warden_refresh_token_issued_total", Help: "Refresh tokens minted."},
	{ID: goWarden.MetricRotation, Name: "warden_rotation_total", Help: "Completed refresh rotations."},
	{ID: goWarden.MetricSignOut, Name: "warden_sign_out_total", Help: "Sign-outs of authenticated sessions."},
	{ID: goWarden.MetricTTLChanged, Name: "warden_ttl_changed_total", Help: "Access token lifetime rewrites."},
	{ID: goWarden.MetricStoreError, Name: "warden_store_error_total", Help: "Store failures surfaced to callers."},
	{ID: goWarden.MetricStoreReconnect, Name: "warden_store_reconnect_total", Help: "Reconnects after READONLY replies."},
	{ID: goWarden.MetricStorePoolExhausted, Name: "warden_store_pool_exhausted_total", Help: "Connection pool wait timeouts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goWarden.MetricAuthenticateLatency, Name: "warden_authenticate_latency_seconds", Help: "Access path latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native
// histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight bucket array, zero padding or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
