package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *Thread) {
	t.Helper()
	s, main, err := New(opts...)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return s, main
}

func TestNewBindsInitialThread(t *testing.T) {
	s, main := newTestScheduler(t)
	require.Equal(t, "main", main.Name())
	require.Equal(t, StatusRunning, main.Status())
	require.Same(t, main, s.CurrentThread())
}

func TestStartTwiceErrors(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.ErrorIs(t, s.Start(), ErrAlreadyStarted)
}

func TestCreateRunsThreadBody(t *testing.T) {
	s, _ := newTestScheduler(t)

	done := make(chan struct{})
	_, err := s.Create("worker", PriorityDefault, func(arg any) {
		close(done)
	}, nil)
	require.NoError(t, err)

	s.Yield()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker thread never ran")
	}
}

func TestYieldOnCreateHigherPriority(t *testing.T) {
	s, main := newTestScheduler(t)
	require.Equal(t, PriorityDefault, main.Priority())

	ran := make(chan int, 1)
	_, err := s.Create("urgent", PriorityMax, func(arg any) {
		ran <- 1
		s.Exit()
	}, nil)
	require.NoError(t, err)

	// Create on a higher-priority thread yields the caller immediately,
	// so by the time Create returns the urgent thread has already run.
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("higher priority thread did not preempt on create")
	}
}

func TestRoundRobinAmongEqualPriority(t *testing.T) {
	s, _ := newTestScheduler(t)

	var order []int
	orderCh := make(chan int, 8)

	for i := 0; i < 3; i++ {
		i := i
		_, err := s.Create("peer", PriorityDefault, func(arg any) {
			orderCh <- i
		}, nil)
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		s.Yield()
	}

	for i := 0; i < 3; i++ {
		select {
		case v := <-orderCh:
			order = append(order, v)
		case <-time.After(time.Second):
			t.Fatalf("only got %d of 3 peers", len(order))
		}
	}
	require.Equal(t, []int{0, 1, 2}, order, "equal-priority threads must run in FIFO (creation) order")
}

func TestExitReapsOnNextDispatch(t *testing.T) {
	s, _ := newTestScheduler(t)

	th, err := s.Create("short-lived", PriorityDefault, func(arg any) {}, nil)
	require.NoError(t, err)

	s.Yield()
	s.Yield() // give the scheduler a chance to dispatch something and reap

	s.mu.Lock()
	_, stillPresent := s.allThreads[th.Tid()]
	s.mu.Unlock()
	require.False(t, stillPresent, "exited thread should have been reaped")
}

func TestSetPriorityYieldsWhenLowered(t *testing.T) {
	s, main := newTestScheduler(t)

	ran := make(chan struct{})
	_, err := s.Create("waiting", PriorityDefault-5, func(arg any) {
		close(ran)
	}, nil)
	require.NoError(t, err) // lower priority than main: Create must not yield yet

	select {
	case <-ran:
		t.Fatal("waiting thread must not run before main yields or blocks")
	default:
	}

	require.NoError(t, s.SetPriority(PriorityDefault-10))
	_ = main

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("lowering priority below a ready thread should yield")
	}
}

func TestSetPriorityNoopUnderMLFQS(t *testing.T) {
	s, main := newTestScheduler(t, WithMLFQS(true))
	before := main.Priority()
	require.NoError(t, s.SetPriority(PriorityMin))
	require.Equal(t, before, main.Priority(), "thread_set_priority must be a no-op under MLFQS")
}

func TestCreateRejectsInvalidPriority(t *testing.T) {
	s, _ := newTestScheduler(t)
	_, err := s.Create("bad", PriorityMax+1, func(any) {}, nil)
	require.ErrorIs(t, err, ErrInvalidPriority)
}

func TestCurrentThreadDetectsCorruptedCanary(t *testing.T) {
	s, main := newTestScheduler(t)
	main.corruptCanary()
	require.Panics(t, func() { s.CurrentThread() })
}

func TestForEachVisitsAllThreads(t *testing.T) {
	s, _ := newTestScheduler(t)
	for i := 0; i < 3; i++ {
		_, err := s.Create("bg", PriorityDefault, func(any) {
			// park forever on a semaphore so ForEach still sees it
			sem := s.NewSemaphore(0)
			sem.Down()
		}, nil)
		require.NoError(t, err)
	}
	s.Yield()

	seen := map[string]int{}
	s.ForEach(func(t *Thread) { seen[t.Name()]++ })
	require.GreaterOrEqual(t, seen["bg"], 1)
	require.Equal(t, 1, seen["main"])
	require.Equal(t, 1, seen["idle"])
}
