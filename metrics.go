package sched

import "sync/atomic"

// Metrics tracks low-overhead runtime counters for a Scheduler, after
// the "Metrics() returns a copy" shape of the teacher's
// eventloop.Metrics, cut down to the counters this domain actually has:
// there's no latency or queue-depth distribution to track here, only
// monotonic event counts. Every Scheduler always keeps them; no option
// turns them on or off.
type Metrics struct {
	ticks       atomic.Uint64
	switches    atomic.Uint64
	donations   atomic.Uint64
	threads     atomic.Uint64
	preemptions atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read
// without further synchronization.
type MetricsSnapshot struct {
	Ticks       uint64
	Switches    uint64
	Donations   uint64
	ThreadsCreated uint64
	Preemptions uint64
}

// Metrics returns a snapshot of the scheduler's counters.
func (s *Scheduler) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Ticks:          s.metrics.ticks.Load(),
		Switches:       s.metrics.switches.Load(),
		Donations:      s.metrics.donations.Load(),
		ThreadsCreated: s.metrics.threads.Load(),
		Preemptions:    s.metrics.preemptions.Load(),
	}
}
