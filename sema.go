package sched

// Semaphore is a classic counting semaphore (spec.md §4.3): a
// non-negative counter plus a wait list. Down blocks while the counter
// is zero; Up increments it and wakes a waiter if any are parked.
//
// A Semaphore is owned by exactly one Scheduler (the one that allocated
// the thread doing the waiting), matching the single-scheduler model
// this package assumes throughout.
type Semaphore struct {
	sched   *Scheduler
	counter int
	waiters []*Thread
}

// NewSemaphore initializes a semaphore with the given starting value,
// the Go analogue of sema_init. value must be >= 0.
func (s *Scheduler) NewSemaphore(value int) *Semaphore {
	if value < 0 {
		kernelPanic("semaphore initial value must be non-negative, got %d", value)
	}
	return &Semaphore{sched: s, counter: value}
}

// Down waits for the semaphore to become positive, then decrements it
// (sema_down). Blocks the calling thread if the counter is already
// zero; waiters are woken in the order spec.md §4.3 requires: "FIFO
// among waiters of equal effective priority; otherwise the highest
// effective priority waiter wakes first."
func (sem *Semaphore) Down() {
	s := sem.sched
	s.mu.Lock()
	cur := s.CurrentThread()
	for sem.counter == 0 {
		sem.waiters = append(sem.waiters, cur)
		cur.status.Store(StatusBlocked)
		s.scheduleLocked()
		s.mu.Lock()
	}
	sem.counter--
	s.mu.Unlock()
}

// TryDown attempts Down without blocking. Returns true if it succeeded.
func (sem *Semaphore) TryDown() bool {
	s := sem.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	if sem.counter == 0 {
		return false
	}
	sem.counter--
	return true
}

// Up increments the semaphore and wakes the highest-priority waiter, if
// any (sema_up). If the newly unblocked thread now outranks the caller,
// the caller yields immediately afterward, matching spec.md §4.3's "if
// the unblocked thread's effective priority exceeds the current
// thread's, yield — unless called from interrupt context."
func (sem *Semaphore) Up() {
	s := sem.sched
	s.mu.Lock()
	sem.counter++

	var woken *Thread
	if len(sem.waiters) > 0 {
		best := 0
		for i, w := range sem.waiters[1:] {
			idx := i + 1
			if w.EffectivePriority() > sem.waiters[best].EffectivePriority() {
				best = idx
			}
		}
		woken = sem.waiters[best]
		sem.waiters = append(sem.waiters[:best], sem.waiters[best+1:]...)
		s.unblockLocked(woken)
	}

	cur := s.current.Load()
	shouldYield := woken != nil && woken.EffectivePriority() > cur.EffectivePriority()
	s.mu.Unlock()

	if shouldYield {
		s.Yield()
	}
}

// Value returns the semaphore's current counter value, for
// introspection and tests.
func (sem *Semaphore) Value() int {
	s := sem.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	return sem.counter
}
