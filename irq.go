package kcore

import "sync"

// IRQState is the value returned by Gate.Disable and consumed by
// Gate.Restore. It records whether interrupts were enabled before the
// disable, mirroring irq_disable()/irq_restore() in core/include/irq.h.
type IRQState struct {
	wasEnabled bool
}

// Gate is the kernel's sole mutual-exclusion primitive. Every
// mutation of scheduler, runqueue, wait-list, CIB, mutex-flag, cond-list,
// wait-queue-list or message-bus-subscriber-list state happens while a Gate
// is held. There is exactly one Gate per Scheduler; components that need to
// mutate kernel state take the Scheduler's gate rather than owning their own,
// since held durations must stay bounded to a single list traversal and
// nested kernel locks don't exist in this design.
type Gate struct {
	mu      sync.Mutex
	enabled bool
	inISR   bool
}

func newGate() *Gate {
	return &Gate{enabled: true}
}

// Disable serializes with any other Disable/EnterISR caller and reports the
// enabled bit that held beforehand, to be handed back to Restore.
func (g *Gate) Disable() IRQState {
	g.mu.Lock()
	prev := IRQState{wasEnabled: g.enabled}
	g.enabled = false
	return prev
}

// Restore ends the critical section opened by Disable, restoring exactly
// the enabled bit that was current at that time.
func (g *Gate) Restore(s IRQState) {
	g.enabled = s.wasEnabled
	g.mu.Unlock()
}

// IsEnabled reports whether the gate is currently open (not inside a
// Disable/Restore span).
func (g *Gate) IsEnabled() bool {
	return g.enabled
}

// IsIn reports whether the calling context is simulating an ISR, i.e. is
// between EnterISR and the function it returns.
func (g *Gate) IsIn() bool {
	return g.inISR
}

// EnterISR marks the start of simulated interrupt context: until the
// returned func is called, legal operations are ISR-safe (mutex unlock,
// cond signal/broadcast, wait-queue wake, msg send_int, mbox
// try_put/try_get, bus post, tasklet schedule, thread wakeup); anything that
// would block panics instead. The gate itself is not held in between, so
// those operations can take it as usual. The returned func must be called
// exactly once to leave ISR context.
func (g *Gate) EnterISR() func() {
	g.mu.Lock()
	g.inISR = true
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.inISR = false
		g.mu.Unlock()
	}
}

// assertNotInISR panics if called from simulated interrupt context; it
// guards the blocking entry points that must never be called from an ISR.
func assertNotInISR(g *Gate, op string) {
	if g.inISR {
		Panic(PanicBlockInISR, op+": illegal blocking call from ISR context")
	}
}
