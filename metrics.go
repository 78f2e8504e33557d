package reqsched

import (
	"sync"
	"sync/atomic"
)

// MetricsPolicy defines hooks used by the scheduler to report queueing and
// resolution activity.
//
// All methods are called from the scheduler loop or from Submit and must be
// lightweight and non-blocking.
type MetricsPolicy interface {
	// IncSubmitted counts accepted submissions.
	IncSubmitted()

	// IncPromoted counts priority promotions.
	IncPromoted()

	// IncResolved counts fulfilled futures by outcome.
	IncResolved(outcome string)

	// SetPending and SetActive publish the current queue lengths.
	SetPending(n int)
	SetActive(n int)
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	submitted atomic.Uint64
	promoted  atomic.Uint64

	_ [48]byte // padding to avoid false sharing

	pending atomic.Int64
	active  atomic.Int64

	// peakActive is the highest active count ever published.
	peakActive atomic.Int64

	resolved sync.Map // outcome -> *atomic.Uint64
}

func (m *AtomicMetrics) IncSubmitted() { m.submitted.Add(1) }
func (m *AtomicMetrics) IncPromoted()  { m.promoted.Add(1) }

func (m *AtomicMetrics) IncResolved(outcome string) {
	c, _ := m.resolved.LoadOrStore(outcome, new(atomic.Uint64))
	c.(*atomic.Uint64).Add(1)
}

func (m *AtomicMetrics) SetPending(n int) { m.pending.Store(int64(n)) }

func (m *AtomicMetrics) SetActive(n int) {
	m.active.Store(int64(n))
	for {
		peak := m.peakActive.Load()
		if int64(n) <= peak || m.peakActive.CompareAndSwap(peak, int64(n)) {
			return
		}
	}
}

// Submitted returns the number of accepted submissions.
func (m *AtomicMetrics) Submitted() uint64 { return m.submitted.Load() }

// Promoted returns the number of priority promotions.
func (m *AtomicMetrics) Promoted() uint64 { return m.promoted.Load() }

// Resolved returns how many futures were fulfilled with outcome.
func (m *AtomicMetrics) Resolved(outcome string) uint64 {
	if c, ok := m.resolved.Load(outcome); ok {
		return c.(*atomic.Uint64).Load()
	}
	return 0
}

func (m *AtomicMetrics) Pending() int64    { return m.pending.Load() }
func (m *AtomicMetrics) Active() int64     { return m.active.Load() }
func (m *AtomicMetrics) PeakActive() int64 { return m.peakActive.Load() }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards all updates.
type NoopMetrics struct{}

func (NoopMetrics) IncSubmitted()      {}
func (NoopMetrics) IncPromoted()       {}
func (NoopMetrics) IncResolved(string) {}
func (NoopMetrics) SetPending(int)     {}
func (NoopMetrics) SetActive(int)      {}
