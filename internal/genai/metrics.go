package genai

import (
	"sync/atomic"
	"time"
)

// Metrics tracks calls to the generation backend.
type Metrics struct {
	calls     atomic.Int64
	errors    atomic.Int64
	latencyNs atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Calls            int64   `json:"calls"`
	Errors           int64   `json:"errors"`
	AverageLatencyMs float64 `json:"avg_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
}

func (m *Metrics) record(duration time.Duration, err error) {
	m.calls.Add(1)
	m.latencyNs.Add(duration.Nanoseconds())
	if err != nil {
		m.errors.Add(1)
	}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	calls := m.calls.Load()
	errs := m.errors.Load()
	s := MetricsSnapshot{Calls: calls, Errors: errs}
	if calls > 0 {
		s.AverageLatencyMs = float64(m.latencyNs.Load()) / float64(calls) / 1e6
		s.ErrorRate = float64(errs) / float64(calls) * 100
	}
	return s
}

