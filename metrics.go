package authkit

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by authkit APIs.
type MetricID uint16

const (
	// MetricOTPIssued is an exported constant or variable used by the authentication core.
	MetricOTPIssued MetricID = iota
	// MetricOTPRateLimited is an exported constant or variable used by the authentication core.
	MetricOTPRateLimited
	// MetricOTPVerifySuccess is an exported constant or variable used by the authentication core.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure is an exported constant or variable used by the authentication core.
	MetricOTPVerifyFailure
	// MetricOTPLockouts is an exported constant or variable used by the authentication core.
	MetricOTPLockouts
	// MetricMagicLinkIssued is an exported constant or variable used by the authentication core.
	MetricMagicLinkIssued
	// MetricMagicLinkRateLimited is an exported constant or variable used by the authentication core.
	MetricMagicLinkRateLimited
	// MetricMagicLinkVerifySuccess is an exported constant or variable used by the authentication core.
	MetricMagicLinkVerifySuccess
	// MetricMagicLinkVerifyFailure is an exported constant or variable used by the authentication core.
	MetricMagicLinkVerifyFailure
	// MetricMagicLinkReplay is an exported constant or variable used by the authentication core.
	MetricMagicLinkReplay
	// MetricTokenPairsIssued is an exported constant or variable used by the authentication core.
	MetricTokenPairsIssued
	// MetricRefreshSuccess is an exported constant or variable used by the authentication core.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication core.
	MetricRefreshFailure
	// MetricAuthSuccess is an exported constant or variable used by the authentication core.
	MetricAuthSuccess
	// MetricAuthFailure is an exported constant or variable used by the authentication core.
	MetricAuthFailure
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// Upper bounds for the authenticate latency histogram; the last bucket is
// unbounded.
var latencyBucketBounds = [histBucketCount - 1]time.Duration{
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	25 * time.Millisecond,
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// Metrics is the in-process counter set. Counters are lock-free and padded
// to avoid false sharing on hot verification paths.
type Metrics struct {
	enabled     bool
	counters    [metricIDCount]paddedCounter
	authLatency metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
	// AuthenticateLatency holds cumulative bucket counts; bucket i counts
	// calls at or under latencyBucketBounds[i], the last bucket the rest.
	AuthenticateLatency []uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) observeAuthLatency(d time.Duration) {
	if !m.Enabled() {
		return
	}

	bucket := len(latencyBucketBounds)
	for i, bound := range latencyBucketBounds {
		if d <= bound {
			bucket = i
			break
		}
	}
	atomic.AddUint64(&m.authLatency.buckets[bucket], 1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if !m.Enabled() || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:            make(map[MetricID]uint64, metricIDCount),
		AuthenticateLatency: make([]uint64, histBucketCount),
	}
	if !m.Enabled() {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	for i := range m.authLatency.buckets {
		snap.AuthenticateLatency[i] = atomic.LoadUint64(&m.authLatency.buckets[i])
	}
	return snap
}
