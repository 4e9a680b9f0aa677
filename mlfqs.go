package sched

// mlfqs.go implements the multilevel feedback queue scheduler engine of
// spec.md §4.8: system load average, per-thread recent CPU usage, and
// the priority formula derived from them. The load-average, recent-CPU
// and priority updates are Tick-driven and run only when WithMLFQS(true)
// was passed to New; SetNice records nice in either mode but recomputes
// priority only under MLFQS.

// SetNice sets the calling thread's nice value (thread_set_nice).
// Under MLFQS, immediately recomputes the thread's priority; it then
// yields if it is no longer the highest-priority ready thread.
func (s *Scheduler) SetNice(nice int) error {
	if nice < NiceMin || nice > NiceMax {
		return ErrInvalidNice
	}
	s.mu.Lock()
	cur := s.current.Load()
	cur.nice.Store(int32(nice))
	if s.mlfqs {
		s.recomputePriorityLocked(cur)
	}
	shouldYield := cur.EffectivePriority() < s.readyHighestPriorityLocked()
	s.mu.Unlock()

	if shouldYield {
		s.Yield()
	}
	return nil
}

// GetLoadAvg returns the system load average, scaled x100 and rounded
// (get_load_avg).
func (s *Scheduler) GetLoadAvg() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fp.ToIntRounded(s.fp.MulInt(s.loadAvg, 100))
}

// tickMLFQSLocked performs the per-tick MLFQS bookkeeping described in
// spec.md §4.8, in the order the original kernel's timer_interrupt
// does it: bump the running thread's recent_cpu every tick; recompute
// every thread's priority every 4 ticks; recompute load_avg and every
// thread's recent_cpu once per second (timerFreq ticks). Must be
// called with mu held; threads is the consistent snapshot of all known
// threads at this tick.
func (s *Scheduler) tickMLFQSLocked(threads []*Thread) {
	cur := s.current.Load()
	if cur != s.idle {
		cur.setRecentCPU(s.fp.AddInt(cur.recentCPUValue(), 1))
	}

	if s.tick%4 == 0 {
		for _, t := range threads {
			s.recomputePriorityLocked(t)
		}
	}

	if s.tick%uint64(s.timerFreq) == 0 {
		s.recomputeLoadAvgLocked(threads)
		for _, t := range threads {
			s.recomputeRecentCPULocked(t)
		}
	}
}

// recomputeLoadAvgLocked applies load_avg = (59/60)*load_avg +
// (1/60)*ready_threads, where ready_threads counts every thread that is
// Running or Ready, excluding idle (spec.md §4.8, the formula taken
// verbatim from the original's pintos_kernel fixed-point spec).
func (s *Scheduler) recomputeLoadAvgLocked(threads []*Thread) {
	ready := 0
	for _, t := range threads {
		if t == s.idle {
			continue
		}
		switch t.Status() {
		case StatusReady, StatusRunning:
			ready++
		}
	}

	fiftyNineSixtieths := s.fp.Div(s.fp.FromInt(59), s.fp.FromInt(60))
	oneSixtieth := s.fp.Div(s.fp.FromInt(1), s.fp.FromInt(60))

	term1 := s.fp.Mul(fiftyNineSixtieths, s.loadAvg)
	term2 := s.fp.MulInt(oneSixtieth, ready)
	s.loadAvg = s.fp.Add(term1, term2)
}

// recomputeRecentCPULocked applies recent_cpu = (2*load_avg)/(2*load_avg
// + 1) * recent_cpu + nice, the formula spec.md §4.8 gives for the
// once-per-second recompute.
func (s *Scheduler) recomputeRecentCPULocked(t *Thread) {
	twoLoadAvg := s.fp.MulInt(s.loadAvg, 2)
	denom := s.fp.AddInt(twoLoadAvg, 1)
	coeff := s.fp.Div(twoLoadAvg, denom)

	rc := s.fp.Mul(coeff, t.recentCPUValue())
	rc = s.fp.AddInt(rc, int(t.Nice()))
	t.setRecentCPU(rc)
}

// recomputePriorityLocked applies priority = PRI_MAX - (recent_cpu/4) -
// (nice*2), clamped to [PriorityMin, PriorityMax], spec.md §4.8's
// per-4-tick formula. Under MLFQS this is both the thread's base and
// effective priority: donation never applies in MLFQS mode.
func (s *Scheduler) recomputePriorityLocked(t *Thread) {
	rcOverFour := s.fp.DivInt(t.recentCPUValue(), 4)
	p := PriorityMax - s.fp.ToInt(rcOverFour) - t.Nice()*2
	if p < PriorityMin {
		p = PriorityMin
	}
	if p > PriorityMax {
		p = PriorityMax
	}
	t.basePriority.Store(int64(p))
	t.effectivePriority.Store(int64(p))
}
