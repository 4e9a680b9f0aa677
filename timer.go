package sched

// timer.go implements the externally-driven timer tick handler and the
// timer_sleep facility of spec.md §4.6-4.7. Nothing in this package
// runs a wall-clock goroutine on its own: Tick is meant to be invoked
// by a caller who owns the notion of "time", synchronously in tests or
// from a time.Ticker loop in a real embedding, exactly matching
// spec.md §5's "the timer tick is an external driver, not an internal
// goroutine."

// Tick advances the scheduler's notion of time by one tick
// (timer_interrupt). It:
//
//  1. wakes every sleeper whose deadline has arrived,
//  2. if MLFQS is enabled, runs the per-tick/per-4-tick/per-second MLFQS
//     bookkeeping in that order,
//  3. decrements the running thread's quantum and marks a yield pending
//     if it has expired or a higher-priority thread just became ready.
//
// The actual preemption happens the next time the running thread
// reaches a checkpoint (see [Scheduler.CheckPreempt]), since this
// package cannot interrupt a goroutine mid-execution the way a real
// timer interrupt interrupts a CPU.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.tick++
	now := s.tick
	s.metrics.ticks.Add(1)

	due := s.sleepers.popDue(now)
	for _, t := range due {
		s.unblockLocked(t)
	}

	if s.mlfqs {
		threads := make([]*Thread, 0, len(s.allThreads))
		for _, t := range s.allThreads {
			threads = append(threads, t)
		}
		s.tickMLFQSLocked(threads)
	}

	cur := s.current.Load()
	if cur != s.idle {
		s.quantum--
	}
	if s.quantum <= 0 || cur.EffectivePriority() < s.readyHighestPriorityLocked() {
		s.yieldPending = true
	}
	s.mu.Unlock()
}

// CurrentTick returns the number of ticks the scheduler has processed
// so far, for introspection and examples.
func (s *Scheduler) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// CheckPreempt yields the calling thread if Tick has marked a
// preemption pending since it last ran: quantum expiry or a
// higher-priority thread becoming ready. A thread body should call
// this at whatever points it would be safe for a real kernel's
// interrupt return path to preempt it — the cooperative-checkpoint
// analogue of checking a context.Context's Done() channel, since Go
// offers no portable way to suspend an arbitrary goroutine from
// outside it.
func (s *Scheduler) CheckPreempt() {
	s.mu.Lock()
	pending := s.yieldPending
	s.yieldPending = false
	if pending {
		s.metrics.preemptions.Add(1)
	}
	s.mu.Unlock()

	if pending {
		s.Yield()
	}
}

// Sleep blocks the calling thread until at least ticks timer ticks have
// elapsed (timer_sleep). A non-positive ticks is a no-op, matching the
// original's "timer_sleep(0)  returns immediately."
func (s *Scheduler) Sleep(ticks int64) {
	if ticks <= 0 {
		return
	}

	s.mu.Lock()
	cur := s.current.Load()
	wake := s.tick + uint64(ticks)
	cur.wakeTick.Store(wake)
	s.sleepers.push(cur, wake)
	cur.status.Store(StatusBlocked)
	s.scheduleLocked()
}
