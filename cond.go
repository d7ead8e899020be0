package kcore

// Cond is a Mesa-semantics condition variable: Wait atomically releases the
// associated mutex and blocks, and a woken thread must re-check its own
// predicate after Wait returns (the caller may not be the first to act on
// the condition becoming true) since the mutex is re-acquired rather than
// handed off. Grounded on core/cond.c / core/include/cond.h.
type Cond struct {
	sched *Scheduler
	queue *Thread // priority-sorted waiter list, via Thread.listNext
}

// NewCond creates a condition variable bound to sched.
func NewCond(sched *Scheduler) *Cond {
	return &Cond{sched: sched}
}

// Wait atomically unlocks m and blocks the calling thread until Signal or
// Broadcast wakes it, then re-locks m before returning. The unlock-and-enqueue
// step happens under a single gate span so a concurrent Signal can never slip
// in between "we decided to wait" and "we are actually enqueued" (the same
// race core/cond.c's cond_wait closes by disabling interrupts around both
// steps). Illegal to call from simulated ISR context.
func (c *Cond) Wait(m *Mutex) {
	st := c.sched.gate.Disable()
	assertNotInISR(c.sched.gate, "Cond.Wait")

	me := c.sched.active
	listInsertSorted(&c.queue, me)

	// Unlock m's body inline under the same gate span rather than calling
	// m.Unlock() (which would acquire its own gate span and might dispatch
	// before we've finished enqueueing ourselves on c.queue).
	next := listRemoveHead(&m.queue)
	if next == nil {
		m.locked = false
		m.owner = nil
	} else {
		m.owner = next
		c.sched.setStatus(next, StatusPending)
	}

	c.sched.parkSelf(me, StatusCondBlocked, st)

	m.Lock()
}

// Signal wakes the single highest-priority waiter, if any, marking it
// Pending (Mesa semantics: it does not run immediately, and must re-acquire
// the mutex and re-check its predicate once scheduled). Safe to call from
// simulated ISR context.
func (c *Cond) Signal() {
	st := c.sched.gate.Disable()
	next := listRemoveHead(&c.queue)
	if next == nil {
		c.sched.gate.Restore(st)
		return
	}
	c.sched.setStatus(next, StatusPending)
	targetPrio := next.priority
	c.sched.gate.Restore(st)

	c.sched.Switch(targetPrio)
}

// Broadcast wakes every waiter, marking each Pending in turn, highest
// priority first.
func (c *Cond) Broadcast() {
	st := c.sched.gate.Disable()
	if c.queue == nil {
		c.sched.gate.Restore(st)
		return
	}
	var lowest uint8 = PrioIdle
	for {
		next := listRemoveHead(&c.queue)
		if next == nil {
			break
		}
		c.sched.setStatus(next, StatusPending)
		if next.priority < lowest {
			lowest = next.priority
		}
	}
	c.sched.gate.Restore(st)

	c.sched.Switch(lowest)
}
