package sched

import (
	"sync/atomic"

	"github.com/384606266/pintos-sched/fixedpoint"
)

// threadMagic is the stack-canary value a healthy Thread carries. It has
// no real stack behind it in this Go rendition (there is no manually
// managed kernel stack to overflow), but CurrentThread still checks it,
// so a test can exercise the detection path via corruptCanary.
const threadMagic = 0xc0ffee42

// ThreadFunc is the body a created thread runs, analogous to the
// original's `thread_func`.
type ThreadFunc func(arg any)

// Thread is a kernel thread control block (spec.md §3). Identified by a
// TID unique for the scheduler's lifetime; reuse is forbidden.
//
// Status, BasePriority, EffectivePriority, Nice and RecentCPU are read
// by a thread introspecting itself, which may run without holding the
// scheduler's interrupt-disable mutex, but are only ever *written* while
// that mutex is held. They're kept as atomics rather than plain fields
// guarded by the mutex for that reason: lock-free reads, mutex-
// disciplined writes, the same division the teacher's FastState
// documents for loop state.
type Thread struct {
	sched *Scheduler

	tid  int
	name string

	status *fastStatus

	basePriority      atomic.Int64
	effectivePriority atomic.Int64

	// wakeTick is the tick count at which a sleeping thread should wake,
	// 0 if the thread isn't sleeping. Only meaningful while Status is
	// Blocked and the thread is registered in the scheduler's sleep
	// queue.
	wakeTick atomic.Uint64

	// locksHeld and lockWaiting implement the donation graph (spec.md
	// §4.4). Both are mutated only while the scheduler's mutex is held,
	// so they are plain fields, not atomics.
	locksHeld   []*Lock
	lockWaiting *Lock

	// MLFQS state (spec.md §4.8). Mutated only under the scheduler's
	// mutex; recentCPU is read by RecentCPU from arbitrary goroutines
	// so it's an atomic snapshot of the fixedpoint.Value bit pattern.
	recentCPU atomic.Int32
	nice      atomic.Int32

	magic uint32

	// readySeq is the FIFO tie-break key while this thread sits in the
	// ready queue. Touched only under the scheduler's mutex.
	readySeq uint64

	// resume is this thread's context-switch baton: a send unparks the
	// thread's goroutine. Buffered so the sender (whoever is dispatching
	// this thread) never has to wait for the receiver to be ready.
	resume chan struct{}

	fn  ThreadFunc
	arg any
}

func newThread(s *Scheduler, tid int, name string, priority int, fn ThreadFunc, arg any) *Thread {
	t := &Thread{
		sched:  s,
		tid:    tid,
		name:   name,
		status: newFastStatus(StatusBlocked),
		magic:  threadMagic,
		resume: make(chan struct{}, 1),
		fn:     fn,
		arg:    arg,
	}
	t.basePriority.Store(int64(priority))
	t.effectivePriority.Store(int64(priority))
	return t
}

// Tid returns the thread's unique identifier.
func (t *Thread) Tid() int { return t.tid }

// Name returns the thread's (display-only) name.
func (t *Thread) Name() string { return t.name }

// Status returns the thread's current lifecycle state.
func (t *Thread) Status() ThreadStatus { return t.status.Load() }

// Priority returns the thread's effective priority: what the scheduler
// compares when choosing who runs next.
func (t *Thread) Priority() int { return int(t.effectivePriority.Load()) }

// EffectivePriority is an alias for Priority, named to match spec.md's
// vocabulary directly at call sites that contrast it with BasePriority.
func (t *Thread) EffectivePriority() int { return t.Priority() }

// BasePriority returns the thread's base priority: the floor donation
// never pushes effective priority below, and under MLFQS the value the
// MLFQS engine last computed (in which case EffectivePriority equals it).
func (t *Thread) BasePriority() int { return int(t.basePriority.Load()) }

// Nice returns the thread's MLFQS niceness.
func (t *Thread) Nice() int { return int(t.nice.Load()) }

// RecentCPU returns the thread's recent-CPU usage, scaled x100 and
// rounded, per spec.md §4.8's get_recent_cpu contract.
func (t *Thread) RecentCPU() int {
	fp := fixedpoint.Value(t.recentCPU.Load())
	return t.sched.fp.ToIntRounded(t.sched.fp.MulInt(fp, 100))
}

func (t *Thread) recentCPUValue() fixedpoint.Value {
	return fixedpoint.Value(t.recentCPU.Load())
}

func (t *Thread) setRecentCPU(v fixedpoint.Value) {
	t.recentCPU.Store(int32(v))
}

// corruptCanary deliberately damages the stack canary, for exercising
// the overflow-detection path in tests. Not part of the public API: a
// real caller has no legitimate reason to call this.
func (t *Thread) corruptCanary() {
	t.magic = 0
}

// holdsLock reports whether l is in t's held-lock list. Lock.Release
// does not use it; its precondition check compares the lock's holder
// with the current thread.
func (t *Thread) holdsLock(l *Lock) bool {
	for _, held := range t.locksHeld {
		if held == l {
			return true
		}
	}
	return false
}
