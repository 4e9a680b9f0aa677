package sched

// Cond is a condition variable tied to an external Lock, the same
// "semaphore-per-waiter" design the original uses rather than a single
// shared semaphore, precisely so Signal can choose the
// highest-priority waiter instead of an arbitrary one (spec.md §4.3
// names this as the condvar's distinguishing requirement).
type Cond struct {
	sched   *Scheduler
	waiters []*condWaiter
}

type condWaiter struct {
	sem    *Semaphore
	thread *Thread
}

// NewCond creates a condition variable.
func (s *Scheduler) NewCond() *Cond {
	return &Cond{sched: s}
}

// Wait atomically releases lock and blocks until signaled, then
// reacquires lock before returning (cond_wait). The caller must hold
// lock.
func (c *Cond) Wait(lock *Lock) {
	s := c.sched
	if !lock.HeldByCurrent() {
		kernelPanic("cond_wait called without holding the associated lock")
	}

	s.mu.Lock()
	w := &condWaiter{sem: s.NewSemaphore(0), thread: s.current.Load()}
	c.waiters = append(c.waiters, w)
	s.mu.Unlock()

	lock.Release()
	w.sem.Down()
	lock.Acquire()
}

// Signal wakes the highest-effective-priority waiter on c, if any
// (cond_signal). The caller must hold lock.
func (c *Cond) Signal(lock *Lock) {
	s := c.sched
	if !lock.HeldByCurrent() {
		kernelPanic("cond_signal called without holding the associated lock")
	}

	s.mu.Lock()
	if len(c.waiters) == 0 {
		s.mu.Unlock()
		return
	}
	best := 0
	for i, w := range c.waiters[1:] {
		idx := i + 1
		if w.thread.EffectivePriority() > c.waiters[best].thread.EffectivePriority() {
			best = idx
		}
	}
	w := c.waiters[best]
	c.waiters = append(c.waiters[:best], c.waiters[best+1:]...)
	s.mu.Unlock()

	w.sem.Up()
}

// Broadcast wakes every thread waiting on c, in descending priority
// order (cond_broadcast).
func (c *Cond) Broadcast(lock *Lock) {
	for {
		s := c.sched
		s.mu.Lock()
		empty := len(c.waiters) == 0
		s.mu.Unlock()
		if empty {
			return
		}
		c.Signal(lock)
	}
}
