package kcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusIDsAreUniqueAndMonotonic(t *testing.T) {
	s := NewScheduler()
	a, err := NewBus(s)
	require.NoError(t, err)
	b, err := NewBus(s)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Greater(t, b.ID(), a.ID())
}

func TestBusExhaustionReturnsError(t *testing.T) {
	s := NewScheduler()

	saved := busIDCounter
	defer func() { busIDCounter = saved }()

	busIDCounter = busIDLimit
	_, err := NewBus(s)
	assert.ErrorIs(t, err, ErrBusExhausted)
}

// TestBusPostDeliversOnlyToSubscribedEventType checks that Post filters
// delivery by each subscriber's own event mask, not just bus membership.
func TestBusPostDeliversOnlyToSubscribedEventType(t *testing.T) {
	s := NewScheduler()
	bus, err := NewBus(s)
	require.NoError(t, err)

	var gotA, gotB Msg
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a, err := s.Create(6, "a", CreateSleeping, func() {
		entry := &BusEntry{}
		bus.Attach(entry)
		entry.Subscribe(3)
		gotA = s.Receive()
		close(aDone)
	})
	require.NoError(t, err)

	b, err := s.Create(5, "b", CreateSleeping, func() {
		entry := &BusEntry{}
		bus.Attach(entry)
		entry.Subscribe(4) // different event type, should never see event 3
		s.InitQueue(1)
		gotB = s.Receive()
		close(bDone)
	})
	require.NoError(t, err)

	s.Wakeup(a)
	s.Wakeup(b)

	n := bus.Post(3, "payload")
	assert.Equal(t, 1, n, "only a is subscribed to event type 3")

	<-aDone
	assert.Equal(t, uint8(3), EventType(gotA))
	assert.True(t, bus.IsFromBus(gotA))

	select {
	case <-bDone:
		t.Fatal("b is not subscribed to event 3 and must not receive it")
	default:
	}

	n = bus.Post(4, "other")
	assert.Equal(t, 1, n)
	<-bDone
	assert.Equal(t, uint8(4), EventType(gotB))
}

func TestBusEntrySubscribeUnsubscribe(t *testing.T) {
	s := NewScheduler()
	bus, err := NewBus(s)
	require.NoError(t, err)

	s.InitQueue(4) // boot needs somewhere for a delivered event to land

	entry := &BusEntry{}
	bus.Attach(entry)
	entry.Subscribe(1)
	entry.Subscribe(2)
	assert.NotNil(t, bus.EntryForPID(s.Active().PID()))

	entry.Unsubscribe(1)
	n := bus.Post(1, nil)
	assert.Equal(t, 0, n)

	n = bus.Post(2, nil)
	assert.Equal(t, 1, n)

	bus.Detach(entry)
	assert.Nil(t, bus.EntryForPID(s.Active().PID()))
}
