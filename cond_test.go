package kcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCondSignalWakesHighestPriorityWaiter checks that Signal only releases
// the single most urgent waiter, and that it re-acquires the mutex before
// Wait returns (Mesa semantics: the woken thread, not the signaler, owns the
// mutex once scheduled).
func TestCondSignalWakesHighestPriorityWaiter(t *testing.T) {
	s := NewScheduler()
	m := NewMutex(s)
	c := NewCond(s)

	var order []string
	loDone := make(chan struct{})
	hiDone := make(chan struct{})

	lo, err := s.Create(6, "lo", CreateSleeping, func() {
		m.Lock()
		c.Wait(m)
		order = append(order, "lo")
		m.Unlock()
		close(loDone)
	})
	require.NoError(t, err)

	hi, err := s.Create(5, "hi", CreateSleeping, func() {
		m.Lock()
		c.Wait(m)
		order = append(order, "hi")
		m.Unlock()
		close(hiDone)
	})
	require.NoError(t, err)

	s.Wakeup(lo) // locks m, waits on c (unlocking m and parking)
	s.Wakeup(hi) // same

	assert.False(t, m.IsLocked(), "both waiters parked, mutex free")

	c.Signal() // wakes only hi, the more urgent of the two

	<-hiDone
	select {
	case <-loDone:
		t.Fatal("Signal must not wake more than one waiter")
	default:
	}

	c.Signal() // now wakes lo
	<-loDone

	assert.Equal(t, []string{"hi", "lo"}, order)
}

func TestCondBroadcastWakesAllHighestFirst(t *testing.T) {
	s := NewScheduler()
	m := NewMutex(s)
	c := NewCond(s)

	var order []string
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a, err := s.Create(6, "a", CreateSleeping, func() {
		m.Lock()
		c.Wait(m)
		order = append(order, "a")
		m.Unlock()
		close(aDone)
	})
	require.NoError(t, err)

	b, err := s.Create(5, "b", CreateSleeping, func() {
		m.Lock()
		c.Wait(m)
		order = append(order, "b")
		m.Unlock()
		close(bDone)
	})
	require.NoError(t, err)

	s.Wakeup(a)
	s.Wakeup(b)

	c.Broadcast()

	<-aDone
	<-bDone
	assert.Equal(t, []string{"b", "a"}, order, "more urgent waiter re-acquires and finishes first")
}

func TestCondWaitOnUncontendedMutex(t *testing.T) {
	s := NewScheduler()
	m := NewMutex(s)
	c := NewCond(s)

	waiterDone := make(chan struct{})
	waiter, err := s.Create(6, "waiter", CreateSleeping, func() {
		m.Lock()
		c.Wait(m)
		m.Unlock()
		close(waiterDone)
	})
	require.NoError(t, err)

	s.Wakeup(waiter)
	assert.False(t, m.IsLocked())

	c.Signal()
	<-waiterDone
	assert.False(t, m.IsLocked())
}
