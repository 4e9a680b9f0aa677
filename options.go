package sched

// config holds the scheduler's boot-time configuration. Mirrors the
// teacher's loopOptions/LoopOption/resolveLoopOptions shape exactly.
type config struct {
	mlfqs        bool
	timerFreq    int
	timeSlice    int
	fpShift      uint
	logger       Logger
	threadTable  int
}

// Option configures a Scheduler at construction time.
type Option interface {
	apply(*config) error
}

type optionFunc struct {
	fn func(*config) error
}

func (o *optionFunc) apply(c *config) error { return o.fn(c) }

// WithMLFQS selects the multilevel feedback queue scheduler instead of
// priority+donation. Latched for the scheduler's lifetime, per spec.md
// §6: "A command-line flag selects MLFQS mode; its value is latched at
// thread_init and may not change thereafter."
func WithMLFQS(enabled bool) Option {
	return &optionFunc{func(c *config) error {
		c.mlfqs = enabled
		return nil
	}}
}

// WithTimerFreq sets TIMER_FREQ, the number of ticks treated as one
// second by the MLFQS engine's per-second recompute. Default 100.
func WithTimerFreq(hz int) Option {
	return &optionFunc{func(c *config) error {
		if hz <= 0 {
			return ErrInvalidPriority // reuse: any non-positive config constant is a construction bug
		}
		c.timerFreq = hz
		return nil
	}}
}

// WithTimeSlice sets the number of ticks a thread may run before
// mandatory preemption. Default 4 (spec.md §6, TIME_SLICE).
func WithTimeSlice(ticks int) Option {
	return &optionFunc{func(c *config) error {
		if ticks <= 0 {
			return ErrInvalidPriority
		}
		c.timeSlice = ticks
		return nil
	}}
}

// WithFixedPointShift sets the number of fractional bits S used by the
// MLFQS engine's fixed-point arithmetic. Default [fixedpoint.DefaultShift].
func WithFixedPointShift(s uint) Option {
	return &optionFunc{func(c *config) error {
		c.fpShift = s
		return nil
	}}
}

// WithLogger installs a Logger for this Scheduler only, instead of the
// package-level logger installed via SetStructuredLogger.
func WithLogger(logger Logger) Option {
	return &optionFunc{func(c *config) error {
		c.logger = logger
		return nil
	}}
}

// WithThreadTableSize bounds the number of live (non-reaped) threads the
// scheduler will admit before Create starts returning
// ErrThreadTableFull, modeling the fixed page-table-backed TCB
// allocator spec.md §7 says thread_create can exhaust. Default 4096.
func WithThreadTableSize(n int) Option {
	return &optionFunc{func(c *config) error {
		if n <= 0 {
			return ErrInvalidPriority
		}
		c.threadTable = n
		return nil
	}}
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		timerFreq:   TimerFreqDefault,
		timeSlice:   TimeSliceDefault,
		fpShift:     0, // resolved to fixedpoint.DefaultShift by the caller if left zero
		threadTable: 4096,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
