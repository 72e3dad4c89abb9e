package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef binds a counter slot to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram slot to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "gosession_audit_dropped_total"

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that created a session."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins refused by the failed-attempt throttle."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Tokens resolved to a live session."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Tokens that did not resolve to a live session."},
	{ID: goSession.MetricSessionReadmitted, Name: "gosession_session_readmitted_total", Help: "Sessions rebuilt from a verified token after a store miss."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Token rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refresh calls without a live session."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Sessions ended by logout."},
	{ID: goSession.MetricLogoutNotFound, Name: "gosession_logout_not_found_total", Help: "Logout calls without a live session."},
	{ID: goSession.MetricSessionsTerminated, Name: "gosession_sessions_terminated_total", Help: "Sessions revoked by administrative termination."},
	{ID: goSession.MetricSessionsSwept, Name: "gosession_sessions_swept_total", Help: "Expired records removed by sweeps."},
	{ID: goSession.MetricStoreFallback, Name: "gosession_store_fallback_total", Help: "Store calls served in-process because Redis failed."},
	{ID: goSession.MetricStoreError, Name: "gosession_store_error_total", Help: "Store failures surfaced to callers."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds, matching the
// core's 5ms..500ms buckets. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBounds are the text-format le labels for each bucket.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed eight-slot array; missing slots are zero.
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
