package kcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitQueuePredicateAlreadyTrueNeverBlocks(t *testing.T) {
	s := NewScheduler()
	wq := NewWaitQueue(s)

	calls := 0
	wq.Wait(func() bool {
		calls++
		return true
	})
	assert.Equal(t, 1, calls)
}

// TestWaitQueueWakeOneWakesHighestPriority checks that WakeOne releases the
// single most urgent genuine waiter regardless of enqueue order, and that
// each waiter's predicate is re-evaluated (not trusted blindly) once woken.
func TestWaitQueueWakeOneWakesHighestPriority(t *testing.T) {
	s := NewScheduler()
	wq := NewWaitQueue(s)

	var loReady, hiReady bool
	var order []string
	loDone := make(chan struct{})
	hiDone := make(chan struct{})

	lo, err := s.Create(6, "lo", CreateSleeping, func() {
		wq.Wait(func() bool { return loReady })
		order = append(order, "lo")
		close(loDone)
	})
	require.NoError(t, err)

	hi, err := s.Create(5, "hi", CreateSleeping, func() {
		wq.Wait(func() bool { return hiReady })
		order = append(order, "hi")
		close(hiDone)
	})
	require.NoError(t, err)

	s.Wakeup(lo)
	s.Wakeup(hi)

	hiReady = true
	wq.WakeOne() // must pick hi (priority 5), not lo (priority 6), despite lo enqueuing first

	<-hiDone
	select {
	case <-loDone:
		t.Fatal("WakeOne must not wake more than the single most urgent waiter")
	default:
	}

	loReady = true
	wq.WakeOne()
	<-loDone

	assert.Equal(t, []string{"hi", "lo"}, order)
}

func TestWaitQueueWakeWakesEveryGenuineWaiter(t *testing.T) {
	s := NewScheduler()
	wq := NewWaitQueue(s)

	ready := false
	var order []string
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a, err := s.Create(6, "a", CreateSleeping, func() {
		wq.Wait(func() bool { return ready })
		order = append(order, "a")
		close(aDone)
	})
	require.NoError(t, err)

	b, err := s.Create(5, "b", CreateSleeping, func() {
		wq.Wait(func() bool { return ready })
		order = append(order, "b")
		close(bDone)
	})
	require.NoError(t, err)

	s.Wakeup(a)
	s.Wakeup(b)

	ready = true
	wq.Wake()

	<-aDone
	<-bDone
	assert.Equal(t, []string{"b", "a"}, order, "more urgent waiter runs to completion first")
}
