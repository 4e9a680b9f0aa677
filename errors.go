// Package sched's error taxonomy is deliberately small and fatal-biased
// (spec.md §7): resource exhaustion is reported to the caller, but
// precondition violations and stack-canary corruption are programmer
// errors the scheduler cannot continue past, so they panic.
package sched

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable case: thread_create-style resource
// exhaustion or a bad argument. These are returned, never panicked.
var (
	// ErrThreadTableFull is returned by Create when the scheduler's
	// thread table cannot accept another thread (spec.md §7, "resource
	// exhaustion ... reports an error sentinel to caller").
	ErrThreadTableFull = errors.New("sched: thread table full")

	// ErrInvalidPriority is returned by Create or SetPriority when the
	// requested priority falls outside [PriorityMin, PriorityMax].
	ErrInvalidPriority = errors.New("sched: priority out of range")

	// ErrInvalidNice is returned by SetNice when the requested value
	// falls outside [NiceMin, NiceMax].
	ErrInvalidNice = errors.New("sched: nice out of range")

	// ErrSchedulerStopped names the condition of using a torn-down
	// scheduler. Scheduler has no teardown operation, and nothing in
	// this package returns this error.
	ErrSchedulerStopped = errors.New("sched: scheduler stopped")

	// ErrAlreadyStarted is returned by Start when called more than once.
	ErrAlreadyStarted = errors.New("sched: already started")
)

// AssertionError is the typed panic value for a precondition violation,
// the programmer errors that spec.md §7 says the kernel cannot recover
// from locally. The checks that raise it are: releasing a lock not held,
// unblocking a thread that is not Blocked, waiting on or signaling a
// condition variable without holding its lock, and creating a semaphore
// with a negative value. It implements Unwrap so tests can recover the
// condition with errors.As, the same pattern the teacher's errors.go
// uses for PanicError/TypeError/RangeError.
type AssertionError struct {
	// Condition names which invariant was violated, e.g. "lock released
	// by thread 3 (worker) that does not hold it".
	Condition string
	Cause     error
}

func (e *AssertionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sched: assertion failed: %s: %v", e.Condition, e.Cause)
	}
	return fmt.Sprintf("sched: assertion failed: %s", e.Condition)
}

func (e *AssertionError) Unwrap() error { return e.Cause }

// kernelPanic logs the violated condition at Error level (so it survives
// in the log even though the process is about to panic) and then panics
// with an *AssertionError. Used for every precondition violation in this
// package instead of a bare panic(string), so callers in tests can use
// errors.As to assert on exactly which invariant broke.
func kernelPanic(format string, args ...any) {
	cond := fmt.Sprintf(format, args...)
	getGlobalLogger().Log(LogEntry{
		Level:   LevelError,
		Message: "kernel assertion failed",
		Fields:  map[string]any{"condition": cond},
	})
	panic(&AssertionError{Condition: cond})
}

// StackOverflowError is the panic value raised by CurrentThread when a
// thread's stack canary has been corrupted (spec.md §7, "Stack overflow:
// detected by magic canary at next thread_current(); panics").
type StackOverflowError struct {
	TID  int
	Name string
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("sched: stack overflow detected in thread %d (%s): canary corrupted", e.TID, e.Name)
}
