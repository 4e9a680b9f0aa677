package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSemaphoreDownBlocksUntilUp(t *testing.T) {
	s, _ := newTestScheduler(t)
	sem := s.NewSemaphore(0)

	woke := make(chan struct{})
	_, err := s.Create("waiter", PriorityDefault, func(any) {
		sem.Down()
		close(woke)
	}, nil)
	require.NoError(t, err)

	s.Yield()

	select {
	case <-woke:
		t.Fatal("waiter should still be blocked on the semaphore")
	default:
	}

	sem.Up()
	s.Yield() // the waiter has main's priority, so Up alone does not hand over the CPU

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("sema_up should have unblocked the waiter")
	}
}

func TestSemaphoreUpWakesHighestPriorityFirst(t *testing.T) {
	s, _ := newTestScheduler(t)
	sem := s.NewSemaphore(0)

	order := make(chan string, 2)
	_, err := s.Create("low", PriorityDefault, func(any) {
		sem.Down()
		order <- "low"
	}, nil)
	require.NoError(t, err)
	_, err = s.Create("high", PriorityDefault+10, func(any) {
		sem.Down()
		order <- "high"
	}, nil)
	require.NoError(t, err)

	s.Yield()

	sem.Up()
	sem.Up()
	s.Yield()

	require.Equal(t, "high", <-order)
	require.Equal(t, "low", <-order)
}

func TestSemaphoreTryDown(t *testing.T) {
	s, _ := newTestScheduler(t)
	sem := s.NewSemaphore(1)
	require.True(t, sem.TryDown())
	require.False(t, sem.TryDown())
	sem.Up()
	require.True(t, sem.TryDown())
}
