// Package sched implements the thread scheduling core of a small teaching
// operating-system kernel: priority dispatch, priority donation, the
// multilevel feedback queue scheduler (MLFQS), and the timer-driven sleep
// facility, as a single coherent Go library.
//
// The user-process layer, file system, memory allocator, interrupt
// controller and boot/context-switch assembly that a real kernel would
// need are out of scope (they're external collaborators in the original
// design); this package stands in for them with the smallest idiomatic-Go
// primitives that preserve the scheduler's contract:
//
//   - A "thread" is a goroutine plus a [Thread] control block. Only one
//     thread's goroutine is ever logically running at a time; the rest
//     are parked on a channel (their "context switch" baton), so the
//     concurrency model stays interleaving-only even though real
//     goroutines back it, matching spec.md §5 ("There is no parallelism;
//     concurrency is interleaving only").
//   - "Interrupt-disable" is modeled as the Scheduler's single mutex.
//     Every operation that spec.md requires to run "with interrupts
//     disabled" takes that mutex; nothing in this package ever blocks or
//     acquires another lock while holding it (spec.md §5).
//   - The timer tick is driven externally, either synchronously by a
//     caller (typically a test) invoking [Scheduler.Tick], or by a
//     caller-owned time.Ticker loop in a real embedding, standing in for
//     the hardware timer interrupt.
//
// The end-to-end behaviors spec.md §8 enumerates are exercised across
// the package's tests: donation chains in lock_test.go, sleep ordering
// in timer_test.go, the MLFQS priority formula in mlfqs_test.go, and
// yield-on-create and FIFO order among equal priorities in
// scheduler_test.go; integration_test.go combines locks, condition
// variables, sleeps and priorities in mixed workloads. No test covers
// nested donation (one thread holding two contended locks).
package sched

// Configuration constants (spec.md §6).
const (
	// PriorityMin is the lowest priority a thread may have.
	PriorityMin = 0
	// PriorityDefault is the priority thread_create uses when the
	// caller doesn't care.
	PriorityDefault = 31
	// PriorityMax is the highest priority a thread may have.
	PriorityMax = 63

	// NiceMin is the lowest nice value MLFQS accepts.
	NiceMin = -20
	// NiceMax is the highest nice value MLFQS accepts.
	NiceMax = 20

	// TimeSliceDefault is TIME_SLICE: the number of ticks a thread may
	// run before mandatory preemption.
	TimeSliceDefault = 4

	// TimerFreqDefault is TIMER_FREQ: the number of ticks MLFQS treats
	// as one second.
	TimerFreqDefault = 100

	// donationDepthBound caps the cost of walking a donation chain
	// (spec.md §4.4: "depth bound is a small constant (8 is typical) to
	// prevent pathological chains, but correctness does not require
	// truncation").
	donationDepthBound = 8
)
