package authkit

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsCounters(t *testing.T) {
	m := newMetrics(MetricsConfig{Enabled: true})

	m.inc(MetricOTPIssued)
	m.inc(MetricOTPIssued)
	m.inc(MetricAuthSuccess)

	if got := m.Get(MetricOTPIssued); got != 2 {
		t.Fatalf("otp issued = %d, want 2", got)
	}
	if got := m.Get(MetricAuthSuccess); got != 1 {
		t.Fatalf("auth success = %d, want 1", got)
	}
	if got := m.Get(MetricRefreshFailure); got != 0 {
		t.Fatalf("refresh failure = %d, want 0", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := newMetrics(MetricsConfig{})

	m.inc(MetricOTPIssued)
	m.observeAuthLatency(time.Millisecond)

	if got := m.Get(MetricOTPIssued); got != 0 {
		t.Fatalf("disabled metrics counted: %d", got)
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot carries counters: %v", snap.Counters)
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := newMetrics(MetricsConfig{Enabled: true})

	m.observeAuthLatency(10 * time.Microsecond) // bucket 0
	m.observeAuthLatency(200 * time.Microsecond)
	m.observeAuthLatency(time.Second) // overflow bucket

	snap := m.Snapshot()
	if snap.AuthenticateLatency[0] != 1 {
		t.Fatalf("bucket 0 = %d, want 1", snap.AuthenticateLatency[0])
	}
	if snap.AuthenticateLatency[2] != 1 {
		t.Fatalf("bucket 2 = %d, want 1", snap.AuthenticateLatency[2])
	}
	if last := snap.AuthenticateLatency[histBucketCount-1]; last != 1 {
		t.Fatalf("overflow bucket = %d, want 1", last)
	}
}

func TestMetricsConcurrentIncrement(t *testing.T) {
	m := newMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.inc(MetricOTPVerifySuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Get(MetricOTPVerifySuccess); got != workers*perWorker {
		t.Fatalf("count = %d, want %d", got, workers*perWorker)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics

	m.inc(MetricOTPIssued)
	m.observeAuthLatency(time.Millisecond)

	if m.Enabled() {
		t.Fatal("nil metrics reported enabled")
	}
	if got := m.Get(MetricOTPIssued); got != 0 {
		t.Fatalf("nil metrics returned %d", got)
	}
}
