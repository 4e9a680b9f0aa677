package sched

import "sync/atomic"

// ThreadStatus is a thread's position in its four-state lifecycle
// (spec.md §4.2). Exactly one thread is Running at any instant; a thread
// is on the ready structure iff Ready, and on at most one wait queue iff
// Blocked.
type ThreadStatus uint32

const (
	// StatusBlocked is the initial state a thread is created in, and the
	// state it returns to while waiting on a semaphore, lock, condition
	// variable or sleep deadline.
	StatusBlocked ThreadStatus = iota
	// StatusReady means the thread is in the ready structure, waiting to
	// be dispatched.
	StatusReady
	// StatusRunning means the thread currently owns the CPU.
	StatusRunning
	// StatusDying means the thread has called Exit and is waiting to be
	// reaped by the next dispatch.
	StatusDying
)

// String returns a human-readable status name, matching the enum names
// in spec.md §3 (RUNNING/READY/BLOCKED/DYING).
func (s ThreadStatus) String() string {
	switch s {
	case StatusBlocked:
		return "BLOCKED"
	case StatusReady:
		return "READY"
	case StatusRunning:
		return "RUNNING"
	case StatusDying:
		return "DYING"
	default:
		return "UNKNOWN"
	}
}

// fastStatus is a lock-free status cell so introspection APIs (Status,
// thread_get_priority-style getters called from arbitrary goroutines for
// debugging/metrics) never need to take the scheduler's interrupt-disable
// mutex. All *transitions*, however, only ever happen with that mutex
// held; this type only ever gets a Store from within such a section, the
// same division of labor as the teacher's FastState (state.go): CAS-free
// here because only the single interrupt-disable section ever writes.
type fastStatus struct {
	v atomic.Uint32
}

func newFastStatus(initial ThreadStatus) *fastStatus {
	fs := &fastStatus{}
	fs.v.Store(uint32(initial))
	return fs
}

func (fs *fastStatus) Load() ThreadStatus {
	return ThreadStatus(fs.v.Load())
}

func (fs *fastStatus) Store(s ThreadStatus) {
	fs.v.Store(uint32(s))
}
