package kcore

// waitQueueEntry is one thread's slot on a WaitQueue's priority-sorted
// singly-linked list. Kept as its own allocation (rather than reusing
// Thread.listNext directly) so a thread can be tagged with exactly which
// entry it is actually parked on via Thread.waitQEntry -- the mechanism
// _queue_wake_common uses to avoid waking a thread that moved on to block
// on something else entirely while re-checking its predicate.
type waitQueueEntry struct {
	thread *Thread
	next   *waitQueueEntry
}

// WaitQueue is a predicate-based wait queue: Wait blocks until both (a) it
// has been woken by Wake/WakeOne and (b) its own predicate, re-evaluated
// after waking, holds. This two-part protocol -- not just "wake" -- is what
// makes it race-free against a waker that runs between the predicate's
// first, failing evaluation and the thread actually going to sleep.
// Grounded on core/wq.c / core/include/wait_queue.h.
type WaitQueue struct {
	sched *Scheduler
	list  *waitQueueEntry
}

// NewWaitQueue creates an empty wait queue bound to sched.
func NewWaitQueue(sched *Scheduler) *WaitQueue {
	return &WaitQueue{sched: sched}
}

// wqEnqueue inserts entry into the priority-sorted list (ties FIFO). Must
// be called with the gate held.
func (wq *WaitQueue) wqEnqueue(entry *waitQueueEntry) {
	curr := &wq.list
	for *curr != nil && (*curr).thread.priority <= entry.thread.priority {
		curr = &(*curr).next
	}
	entry.next = *curr
	*curr = entry
	entry.thread.waitQEntry = entry
}

// wqDequeue removes entry from the list if present. Must be called with the
// gate held. Always safe to call even if entry already isn't linked.
func (wq *WaitQueue) wqDequeue(entry *waitQueueEntry) {
	curr := &wq.list
	for *curr != nil {
		if *curr == entry {
			*curr = (*curr).next
			entry.next = nil
			break
		}
		curr = &(*curr).next
	}
	if entry.thread.waitQEntry == entry {
		entry.thread.waitQEntry = nil
	}
}

// Wait blocks the calling thread until pred returns true, re-evaluating
// pred every time the thread is woken (spurious or otherwise) rather than
// trusting the waker. pred is called with no kernel lock held, so it may
// itself take other mutexes. Illegal to call from simulated ISR context.
func (wq *WaitQueue) Wait(pred func() bool) {
	assertNotInISR(wq.sched.gate, "WaitQueue.Wait")

	me := wq.sched.active
	entry := &waitQueueEntry{thread: me}

	st := wq.sched.gate.Disable()
	wq.wqEnqueue(entry)
	wq.sched.gate.Restore(st)

	for {
		if pred() {
			break
		}

		st = wq.sched.gate.Disable()
		if me.waitQEntry != entry {
			// We were woken (removed from the list) while evaluating pred;
			// don't sleep, just re-enqueue and loop around to re-check.
			wq.wqEnqueue(entry)
			wq.sched.gate.Restore(st)
			continue
		}

		wq.sched.parkSelf(me, StatusWQBlocked, st)
		// Woken: unconditionally re-enqueue and re-check, exactly as RIOT's
		// _maybe_yield_and_enqueue does, so a predicate that still doesn't
		// hold (e.g. another waiter got there first) doesn't get stuck off
		// the list forever.
		st = wq.sched.gate.Disable()
		wq.wqEnqueue(entry)
		wq.sched.gate.Restore(st)
	}

	st = wq.sched.gate.Disable()
	wq.wqDequeue(entry)
	wq.sched.gate.Restore(st)
}

// wakeCommon wakes the head waiter (WakeOne) or every waiter (Wake),
// marking each Pending only if it is still genuinely parked on this queue
// entry -- a thread that moved on to block elsewhere while re-checking its
// predicate is left alone. Always unlinks every visited entry regardless,
// so a thread mid-predicate-check observes the removal and loops instead of
// sleeping.
func (wq *WaitQueue) wakeCommon(all bool) {
	st := wq.sched.gate.Disable()

	lowest := uint8(PrioIdle)
	woke := false
	for wq.list != nil {
		head := wq.list
		t := head.thread
		if t.status == StatusWQBlocked && t.waitQEntry == head {
			wq.sched.setStatus(t, StatusPending)
			if !woke || t.priority < lowest {
				lowest = t.priority
			}
			woke = true
		}
		wq.list = head.next
		head.next = nil
		if t.waitQEntry == head {
			t.waitQEntry = nil
		}

		if !all {
			break
		}
	}
	wq.sched.gate.Restore(st)

	if woke {
		wq.sched.Switch(lowest)
	}
}

// WakeOne wakes the single highest-priority genuine waiter, if any. Safe to
// call from simulated ISR context.
func (wq *WaitQueue) WakeOne() { wq.wakeCommon(false) }

// Wake wakes every genuine waiter. Safe to call from simulated ISR context.
func (wq *WaitQueue) Wake() { wq.wakeCommon(true) }
