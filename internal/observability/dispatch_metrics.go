package observability

import (
	"sync/atomic"
	"time"
)

// DispatchMetrics is a lock-free snapshot counter set for the
// notification worker's health endpoint. Prometheus has the full
// histograms; this is the cheap in-process view.
type DispatchMetrics struct {
	claimed      atomic.Uint64
	sent         atomic.Uint64
	failed       atomic.Uint64
	retried      atomic.Uint64
	deadLettered atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewDispatchMetrics() *DispatchMetrics {
	m := &DispatchMetrics{}
	m.durationMax.Store(0)
	return m
}

func (m *DispatchMetrics) IncClaimed() {
	m.claimed.Add(1)
}

func (m *DispatchMetrics) IncSent() {
	m.sent.Add(1)
}

func (m *DispatchMetrics) IncFailed() {
	m.failed.Add(1)
}

func (m *DispatchMetrics) IncRetried() {
	m.retried.Add(1)
}

func (m *DispatchMetrics) IncDeadLettered() {
	m.deadLettered.Add(1)
}

func (m *DispatchMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	// max update

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type DispatchSnapshot struct {
	Claimed         uint64
	Sent            uint64
	Failed          uint64
	Retried         uint64
	DeadLettered    uint64
	DurationCount   uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration
}

func (m *DispatchMetrics) Snapshot() DispatchSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()
	max := m.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return DispatchSnapshot{
		Claimed:         m.claimed.Load(),
		Sent:            m.sent.Load(),
		Failed:          m.failed.Load(),
		Retried:         m.retried.Load(),
		DeadLettered:    m.deadLettered.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(max),
	}
}
