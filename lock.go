package sched

// Lock is a mutually-exclusive lock with priority donation (spec.md
// §4.4), built on top of a binary Semaphore exactly as the original
// does: "a lock is a semaphore with an initial value of 1, plus a
// record of which thread currently holds it."
type Lock struct {
	sched   *Scheduler
	sem     *Semaphore
	holder  *Thread
	waiters []*Thread
}

// NewLock creates an unheld lock.
func (s *Scheduler) NewLock() *Lock {
	return &Lock{sched: s, sem: s.NewSemaphore(1)}
}

// Holder returns the thread currently holding l, or nil.
func (l *Lock) Holder() *Thread {
	s := l.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.holder
}

// Acquire waits for and takes l (lock_acquire). Under priority
// scheduling (not MLFQS), if l is already held, the calling thread
// donates its effective priority along the donation chain: to l's
// holder, and transitively to whatever lock that holder is itself
// waiting on, up to donationDepthBound hops, per spec.md §4.4 ("depth
// bound is a small constant... to prevent pathological chains").
func (l *Lock) Acquire() {
	s := l.sched

	s.mu.Lock()
	if s.mlfqs {
		s.mu.Unlock()
		l.sem.Down()
		s.mu.Lock()
		l.holder = s.current.Load()
		l.holder.locksHeld = append(l.holder.locksHeld, l)
		s.mu.Unlock()
		return
	}

	cur := s.current.Load()
	if l.holder != nil && l.holder != cur {
		cur.lockWaiting = l
		l.waiters = append(l.waiters, cur)
		s.donateChainLocked(cur, l)
	}
	s.mu.Unlock()

	l.sem.Down()

	s.mu.Lock()
	cur.lockWaiting = nil
	l.holder = cur
	cur.locksHeld = append(cur.locksHeld, l)
	// Remove cur from l.waiters: it's no longer waiting, it holds the
	// lock now. Whatever thread released it already popped cur from
	// the semaphore's internal waiters, but l.waiters (the donation
	// bookkeeping list) is separate and still has cur in it.
	for i, w := range l.waiters {
		if w == cur {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// donateChainLocked walks from waiter's target lock up through however
// many locks are transitively blocking it, raising each holder's
// effective priority to at least waiter's, stopping at
// donationDepthBound hops or when a holder's priority is already high
// enough. Must be called with mu held.
func (s *Scheduler) donateChainLocked(waiter *Thread, target *Lock) {
	depth := 0
	cur := waiter
	lock := target
	for lock != nil && lock.holder != nil && depth < donationDepthBound {
		holder := lock.holder
		if holder.EffectivePriority() >= cur.EffectivePriority() {
			break
		}
		holder.effectivePriority.Store(int64(cur.EffectivePriority()))
		s.metrics.donations.Add(1)
		s.log(LevelDebug, "priority donated", map[string]any{
			"from": cur.tid, "to": holder.tid, "priority": cur.EffectivePriority(),
		})
		cur = holder
		lock = holder.lockWaiting
		depth++
	}
}

// Release releases l (lock_release). The releasing thread's effective
// priority is recomputed as max(base priority, donated priority from
// any locks it still holds), since a donation received on account of
// this lock no longer applies once it's released — spec.md §4.4: "on
// release, the releasing thread's effective priority is recomputed as
// the max of its base priority and any remaining donations (from other
// locks it still holds)." If the recomputed priority no longer
// dominates the ready queue, the releaser yields.
func (l *Lock) Release() {
	s := l.sched
	s.mu.Lock()
	cur := s.current.Load()
	if l.holder != cur {
		s.mu.Unlock()
		kernelPanic("lock released by thread %d (%s) that does not hold it", cur.tid, cur.name)
	}

	for i, held := range cur.locksHeld {
		if held == l {
			cur.locksHeld = append(cur.locksHeld[:i], cur.locksHeld[i+1:]...)
			break
		}
	}
	l.holder = nil

	if !s.mlfqs {
		s.recomputeEffectiveLocked(cur)
	}
	shouldYield := !s.mlfqs && cur.EffectivePriority() < s.readyHighestPriorityLocked()
	s.mu.Unlock()

	l.sem.Up()

	if shouldYield {
		s.Yield()
	}
}

// highestWaiterPriorityLocked returns the highest effective priority
// among threads currently waiting to acquire l, or -1 if none are
// waiting. Must be called with the scheduler's mu held. Used by
// recomputeEffectiveLocked to decide whether a thread's priority is
// still propped up by a donation after some other change.
func (l *Lock) highestWaiterPriorityLocked() int {
	best := -1
	for _, w := range l.waiters {
		if p := w.EffectivePriority(); p > best {
			best = p
		}
	}
	return best
}

// TryAcquire attempts to acquire l without blocking (lock_try_acquire).
// Never participates in donation: a thread that fails to get the lock
// just gets false back, per the original's contract that try_acquire
// is a non-blocking probe, not a request to wait.
func (l *Lock) TryAcquire() bool {
	s := l.sched
	if !l.sem.TryDown() {
		return false
	}
	s.mu.Lock()
	cur := s.current.Load()
	l.holder = cur
	cur.locksHeld = append(cur.locksHeld, l)
	s.mu.Unlock()
	return true
}

// HeldByCurrent reports whether the calling thread holds l
// (lock_held_by_current_thread).
func (l *Lock) HeldByCurrent() bool {
	s := l.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.holder == s.current.Load()
}
