package sched

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/384606266/pintos-sched/fixedpoint"
)

// exitGoroutine terminates the calling goroutine via runtime.Goexit,
// named at the call site instead of used directly so the one place a
// thread's goroutine actually ends is searchable and self-documenting.
func exitGoroutine() {
	runtime.Goexit()
}

// Scheduler is the kernel's single scheduling core: one instance per
// running kernel, owning the ready structure, the sleeper list, the
// thread table and (in MLFQS mode) the system load average, the
// singleton of spec.md §9. It is initialised by New and Start; it has
// no teardown operation.
//
// mu is the sole mutual-exclusion primitive in this package and stands
// in for "interrupts disabled" (spec.md §5): every mutation of the
// ready structure, the sleeper list, a wait queue, load_avg, or a
// thread's status/priority/lock-bookkeeping fields happens with mu
// held, and mu is never held across a blocking operation or a second
// lock acquisition.
type Scheduler struct {
	mu sync.Mutex

	ready    *readyQueue
	sleepers *sleepQueue

	current atomic.Pointer[Thread]
	idle    *Thread

	allThreads map[int]*Thread
	nextTID    int

	pendingReap *Thread

	tick      uint64
	mlfqs     bool
	timerFreq int
	timeSlice int
	quantum   int // ticks remaining in current thread's slice

	fp      fixedpoint.Format
	loadAvg fixedpoint.Value

	yieldPending bool

	logger Logger
	cfg    *config

	idleWake chan struct{}

	started bool
	metrics Metrics
}

// New constructs a Scheduler and its initial thread, binding the initial
// thread to the calling goroutine — the Go analogue of thread_init()
// adopting whichever execution context booted the kernel as
// initial_thread, before thread_start() ever runs.
//
// The returned *Thread is the caller's own thread control block; the
// caller is now "running" inside the scheduler's model and should call
// [Scheduler.Start] once it's ready to admit the idle thread and other
// created threads.
func New(opts ...Option) (*Scheduler, *Thread, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, nil, err
	}

	shift := cfg.fpShift
	if shift == 0 {
		shift = fixedpoint.DefaultShift
	}

	s := &Scheduler{
		ready:      newReadyQueue(),
		sleepers:   newSleepQueue(),
		allThreads: make(map[int]*Thread),
		mlfqs:      cfg.mlfqs,
		timerFreq:  cfg.timerFreq,
		timeSlice:  cfg.timeSlice,
		fp:         fixedpoint.New(shift),
		logger:     cfg.logger,
		cfg:        cfg,
		idleWake:   make(chan struct{}, 1),
	}
	if s.logger == nil {
		s.logger = getGlobalLogger()
	}

	main := newThread(s, s.allocTID(), "main", PriorityDefault, nil, nil)
	main.status.Store(StatusRunning)
	s.allThreads[main.tid] = main
	s.current.Store(main)
	s.quantum = s.timeSlice

	s.log(LevelInfo, "scheduler initialized", map[string]any{"mlfqs": s.mlfqs, "timer_freq": s.timerFreq})
	return s, main, nil
}

func (s *Scheduler) log(level LogLevel, msg string, fields map[string]any) {
	s.logger.Log(LogEntry{Level: level, Message: msg, Fields: fields})
}

func (s *Scheduler) allocTID() int {
	s.nextTID++
	return s.nextTID
}

// Start admits the idle thread and marks the scheduler as accepting
// scheduling decisions, mirroring thread_start(): "create the idle
// thread and enable interrupts." Must be called exactly once, from the
// initial thread.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	idle := newThread(s, s.allocTID(), "idle", PriorityMin, nil, nil)
	idle.status.Store(StatusBlocked)
	s.idle = idle
	s.allThreads[idle.tid] = idle
	s.mu.Unlock()

	go s.runIdle(idle)
	return nil
}

// CurrentThread returns the thread the calling goroutine is logically
// running as. Panics with a *StackOverflowError if that thread's canary
// has been corrupted, matching spec.md §7's "stack overflow: detected
// by magic canary at next thread_current()."
func (s *Scheduler) CurrentThread() *Thread {
	t := s.current.Load()
	if t.magic != threadMagic {
		panic(&StackOverflowError{TID: t.tid, Name: t.name})
	}
	return t
}

// ForEach invokes fn for every thread known to the scheduler, including
// blocked and sleeping ones but excluding already-reaped DYING threads,
// the Go analogue of thread_foreach. The MLFQS recompute in Tick does
// not call it; it takes its own snapshot of the thread table while
// holding mu.
func (s *Scheduler) ForEach(fn func(*Thread)) {
	s.mu.Lock()
	threads := make([]*Thread, 0, len(s.allThreads))
	for _, t := range s.allThreads {
		threads = append(threads, t)
	}
	s.mu.Unlock()
	for _, t := range threads {
		fn(t)
	}
}

// Create spawns a new thread in state Blocked, immediately unblocks it
// (spec.md §4.2), and — if the new thread now has higher effective
// priority than the caller — yields the caller immediately so the new
// thread runs next (spec.md §8 scenario 5, "yield on create").
func (s *Scheduler) Create(name string, priority int, fn ThreadFunc, arg any) (*Thread, error) {
	if priority < PriorityMin || priority > PriorityMax {
		return nil, ErrInvalidPriority
	}

	s.mu.Lock()
	if len(s.allThreads) >= s.cfg.threadTable {
		s.mu.Unlock()
		return nil, ErrThreadTableFull
	}
	caller := s.current.Load()

	t := newThread(s, s.allocTID(), name, priority, fn, arg)
	if s.mlfqs {
		// MLFQS threads inherit recent_cpu and nice from the creating
		// thread (spec.md §4.8: "inherited from parent on create").
		t.setRecentCPU(caller.recentCPUValue())
		t.nice.Store(caller.nice.Load())
	}
	s.allThreads[t.tid] = t
	s.metrics.threads.Add(1)

	go s.runThread(t)

	s.unblockLocked(t)

	shouldYield := t.EffectivePriority() > caller.EffectivePriority()
	s.mu.Unlock()

	s.log(LevelInfo, "thread created", map[string]any{"tid": t.tid, "name": name, "priority": priority})

	if shouldYield {
		s.Yield()
	}
	return t, nil
}

// runThread is the trampoline every created (non-idle, non-initial)
// thread's goroutine runs: park until first dispatched, reap whatever
// DYING thread the previous occupant left behind, run the body, then
// exit.
func (s *Scheduler) runThread(t *Thread) {
	<-t.resume
	s.reapPending()
	t.fn(t.arg)
	s.Exit()
}

// runIdle is the idle thread's body: block, schedule, and — if nothing
// else is ready — truly park on idleWake instead of spinning, the
// cooperative-halt analogue of a real idle loop's "sti; hlt".
func (s *Scheduler) runIdle(t *Thread) {
	// The idle goroutine isn't "current" until some other thread's
	// scheduleLocked dispatches it as next for the first time, the same
	// contract runThread's initial <-t.resume relies on.
	<-t.resume
	for {
		s.mu.Lock()
		t.status.Store(StatusBlocked)
		switched := s.scheduleLocked()
		if !switched {
			<-s.idleWake
		}
	}
}

// pingIdle wakes the idle loop if it's parked waiting for work. Safe to
// call whether or not idle is actually parked: the buffered channel
// coalesces redundant pings, the same pattern the teacher's
// fastWakeupCh uses for coalesced loop wakeups.
func (s *Scheduler) pingIdle() {
	select {
	case s.idleWake <- struct{}{}:
	default:
	}
}

// unblockLocked moves t from Blocked to Ready and enqueues it. Must be
// called with mu held. Panics if t isn't actually Blocked, the
// precondition spec.md §4.2's state table implies (only a BLOCKED
// thread can be unblocked).
func (s *Scheduler) unblockLocked(t *Thread) {
	if t.status.Load() != StatusBlocked {
		kernelPanic("unblock of thread %d (%s) not in BLOCKED state (was %s)", t.tid, t.name, t.status.Load())
	}
	t.status.Store(StatusReady)
	t.wakeTick.Store(0)
	s.ready.push(t)
	s.pingIdle()
}

// Unblock is the public thread_unblock: move t from Blocked to Ready.
func (s *Scheduler) Unblock(t *Thread) {
	s.mu.Lock()
	s.unblockLocked(t)
	s.mu.Unlock()
}

// Block transitions the calling thread from Running to Blocked and
// schedules. The caller is responsible for having already arranged for
// something else to eventually Unblock it (a semaphore, a lock, a
// sleep deadline) — thread_block never returns until that happens.
func (s *Scheduler) Block() {
	s.mu.Lock()
	s.current.Load().status.Store(StatusBlocked)
	s.scheduleLocked()
}

// Yield moves the calling thread from Running to Ready (unless it's the
// idle thread, which is never enqueued per spec.md §4.2) and schedules.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	cur := s.current.Load()
	if cur == s.idle {
		// The idle thread never sits in the ready structure; yielding
		// from idle is a no-op beyond re-examining what's ready.
		s.scheduleLocked()
		return
	}
	cur.status.Store(StatusReady)
	s.ready.push(cur)
	s.scheduleLocked()
}

// Exit transitions the calling thread to Dying and permanently hands
// the CPU to the next runnable thread. It never returns: the goroutine
// backing this thread terminates via runtime.Goexit after handing off,
// so deferred cleanup in the thread body still runs.
func (s *Scheduler) Exit() {
	s.mu.Lock()
	prev := s.current.Load()
	prev.status.Store(StatusDying)

	next := s.pickNextLocked()
	next.status.Store(StatusRunning)
	s.current.Store(next)
	s.pendingReap = prev
	s.mu.Unlock()

	s.log(LevelInfo, "thread exited", map[string]any{"tid": prev.tid, "name": prev.name})

	next.resume <- struct{}{}
	exitGoroutine()
}

// pickNextLocked chooses the thread to run next: the highest-effective-
// priority ready thread, FIFO among ties, or the idle thread if the
// ready structure is empty. Must be called with mu held.
func (s *Scheduler) pickNextLocked() *Thread {
	if t := s.ready.popHighest(); t != nil {
		return t
	}
	return s.idle
}

// scheduleLocked performs the actual dispatch: pick the next thread,
// and if it differs from the one calling schedule, hand off the
// context-switch baton and block until resumed. Must be called with mu
// held, with the caller's status already changed away from Running.
// Returns whether a real switch happened. false means the caller
// continues to run: the idle thread found nothing else ready, or a
// yielding thread was itself picked again as the best ready thread.
func (s *Scheduler) scheduleLocked() bool {
	prev := s.current.Load()
	next := s.pickNextLocked()
	next.status.Store(StatusRunning)

	if next == prev {
		s.current.Store(next)
		s.mu.Unlock()
		return false
	}

	s.current.Store(next)
	if prev.status.Load() == StatusDying {
		s.pendingReap = prev
	}
	s.quantum = s.timeSlice
	s.metrics.switches.Add(1)
	s.mu.Unlock()

	next.resume <- struct{}{}
	<-prev.resume
	s.reapPending()
	return true
}

// reapPending frees whatever DYING thread the scheduler marked for
// reaping at the last dispatch, spec.md §4.2's "DYING -> reaped by next
// scheduler dispatch."
func (s *Scheduler) reapPending() {
	s.mu.Lock()
	r := s.pendingReap
	s.pendingReap = nil
	if r != nil {
		delete(s.allThreads, r.tid)
	}
	s.mu.Unlock()
}

// readyHighestPriorityLocked returns the greatest effective priority
// among Ready threads, or -1 if none are ready. Must be called with mu
// held.
func (s *Scheduler) readyHighestPriorityLocked() int {
	return s.ready.highestPriority()
}

// SetPriority sets the calling thread's base priority. A no-op under
// MLFQS (spec.md §4.4, §6). The effective priority is recomputed as the
// maximum of the new base and any standing donation; if that is below
// some ready thread's priority, the thread yields.
func (s *Scheduler) SetPriority(p int) error {
	if p < PriorityMin || p > PriorityMax {
		return ErrInvalidPriority
	}
	s.mu.Lock()
	if s.mlfqs {
		s.mu.Unlock()
		return nil
	}
	cur := s.current.Load()
	cur.basePriority.Store(int64(p))

	// Effective priority is max(base, donated-from-waiters); recompute
	// it the same way lock_release does, since raising or lowering base
	// can change whether a standing donation still dominates.
	newEffective := s.recomputeEffectiveLocked(cur)
	shouldYield := newEffective < s.readyHighestPriorityLocked()
	s.mu.Unlock()

	if shouldYield {
		s.Yield()
	}
	return nil
}

// recomputeEffectiveLocked recomputes and stores t's effective priority
// as max(base, highest effective priority among waiters on any lock t
// still holds), the rule spec.md §4.4 gives for lock_release, reused
// here for thread_set_priority since both mutate base/locks-held state
// that effective priority depends on. Must be called with mu held.
func (s *Scheduler) recomputeEffectiveLocked(t *Thread) int {
	best := t.BasePriority()
	for _, l := range t.locksHeld {
		if p := l.highestWaiterPriorityLocked(); p > best {
			best = p
		}
	}
	t.effectivePriority.Store(int64(best))
	return best
}
