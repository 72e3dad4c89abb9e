package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one fixed counter slot. IDs are dense so counters live
// in an array and recording is a single atomic add.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that minted a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected for bad credentials.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the failed-attempt throttle.
	MetricLoginRateLimited
	// MetricValidateSuccess counts tokens that resolved to a live session.
	MetricValidateSuccess
	// MetricValidateFailure counts tokens that did not.
	MetricValidateFailure
	// MetricSessionReadmitted counts sessions rebuilt from a verified token on a store miss.
	MetricSessionReadmitted
	// MetricRefreshSuccess counts token rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh calls with no live session.
	MetricRefreshFailure
	// MetricLogout counts successful logouts.
	MetricLogout
	// MetricLogoutNotFound counts logout calls with no live session.
	MetricLogoutNotFound
	// MetricSessionsTerminated counts sessions revoked by the admin operations.
	MetricSessionsTerminated
	// MetricSessionsSwept counts records removed by sweeps.
	MetricSessionsSwept
	// MetricStoreFallback counts store calls served in-process because Redis failed.
	MetricStoreFallback
	// MetricStoreError counts store failures surfaced to callers.
	MetricStoreError
	// MetricValidateLatency is the histogram slot for Validate.
	MetricValidateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:       "login_success",
	MetricLoginFailure:       "login_failure",
	MetricLoginRateLimited:   "login_rate_limited",
	MetricValidateSuccess:    "validate_success",
	MetricValidateFailure:    "validate_failure",
	MetricSessionReadmitted:  "session_readmitted",
	MetricRefreshSuccess:     "refresh_success",
	MetricRefreshFailure:     "refresh_failure",
	MetricLogout:             "logout",
	MetricLogoutNotFound:     "logout_not_found",
	MetricSessionsTerminated: "sessions_terminated",
	MetricSessionsSwept:      "sessions_swept",
	MetricStoreFallback:      "store_fallback",
	MetricStoreError:         "store_error",
	MetricValidateLatency:    "validate_latency",
}

// String returns the snake_case exporter name of id.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

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

// Metrics is a lock-free set of fixed counters plus one latency histogram.
// A nil or disabled *Metrics records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter, keyed by ID.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
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

// LatencyEnabled reports whether the validate histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricValidateLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value describes the value operation and its observable behavior.
//
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot returns empty maps when metrics are disabled.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
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
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
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
