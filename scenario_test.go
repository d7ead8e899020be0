package kcore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestConcurrentScenariosAreIndependent drives several unrelated end-to-end
// scenarios -- mailbox round-trip, bus fan-out, priority-preempting mutex
// hand-off -- concurrently via errgroup, one Scheduler per scenario. Each
// Scheduler is its own simulated single-CPU kernel, so running several at
// once on real OS threads is exactly as safe as running independent RIOT
// instances on separate boards.
func TestConcurrentScenariosAreIndependent(t *testing.T) {
	var g errgroup.Group

	g.Go(func() error {
		return runMailboxRoundTripScenario()
	})
	g.Go(func() error {
		return runBusFanoutScenario()
	})
	g.Go(func() error {
		return runMutexHandoffScenario()
	})

	require.NoError(t, g.Wait())
}

func runMailboxRoundTripScenario() error {
	s := NewScheduler()
	b := NewMailbox(s, 2)

	for i := uint32(0); i < 3; i++ {
		b.Put(Msg{Value: i}, true)
		m, ok := b.Get(true)
		if !ok || m.Value != i {
			return fmt.Errorf("mailbox round-trip %d: got %+v, ok=%v", i, m, ok)
		}
	}
	return nil
}

func runBusFanoutScenario() error {
	s := NewScheduler()
	bus, err := NewBus(s)
	if err != nil {
		return err
	}
	s.InitQueue(4)
	entry := &BusEntry{}
	bus.Attach(entry)
	entry.Subscribe(1)

	n := bus.Post(1, "x")
	if n != 1 {
		return fmt.Errorf("bus fanout: expected 1 delivery, got %d", n)
	}
	m := s.Receive()
	if EventType(m) != 1 {
		return fmt.Errorf("bus fanout: wrong event type %d", EventType(m))
	}
	return nil
}

func runMutexHandoffScenario() error {
	s := NewScheduler()
	m := NewMutex(s)

	done := make(chan struct{})
	worker, err := s.Create(6, "worker", CreateSleeping, func() {
		m.Lock()
		m.Unlock()
		close(done)
	})
	if err != nil {
		return err
	}

	m.Lock()
	s.Wakeup(worker) // blocks behind the held lock
	m.Unlock()       // hands off directly to worker
	<-done
	return nil
}

func TestMailboxScenarioAlone(t *testing.T) {
	assert.NoError(t, runMailboxRoundTripScenario())
}
