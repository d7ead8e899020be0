// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package kcore

// Mutex is the kernel's priority-ordered blocking mutex. Unlike sync.Mutex,
// an unlock never simply clears a lock bit while waiters are queued: it
// hands ownership directly to the highest-priority waiter and, if that
// waiter outranks the unlocking thread, preempts immediately. This avoids
// the priority-inversion window a releaser would otherwise open by racing
// an arbitrary thread to reacquire. Grounded on core/include/mutex.h's
// mutex_t (lock flag + priority-sorted waiter list) and the unlock hand-off
// semantics of core/mutex.c.
type Mutex struct {
	sched *Scheduler

	locked bool
	owner  *Thread
	queue  *Thread // priority-sorted list of blocked waiters, via Thread.listNext
}

// NewMutex creates an unlocked mutex bound to sched; sched provides the
// single interrupt gate all kernel state (including this mutex) is
// serialized under.
func NewMutex(sched *Scheduler) *Mutex {
	return &Mutex{sched: sched}
}

// TryLock attempts to acquire the mutex without blocking, returning whether
// it succeeded. Safe to call from simulated ISR context.
func (m *Mutex) TryLock() bool {
	st := m.sched.gate.Disable()
	defer m.sched.gate.Restore(st)
	if m.locked {
		return false
	}
	m.locked = true
	m.owner = m.sched.active
	return true
}

// Lock acquires the mutex, blocking the calling thread if it is already
// held. Illegal to call from simulated ISR context: blocking calls from an
// interrupt handler are a kernel panic, not a deadlock.
func (m *Mutex) Lock() {
	st := m.sched.gate.Disable()
	assertNotInISR(m.sched.gate, "Mutex.Lock")

	if !m.locked {
		m.locked = true
		m.owner = m.sched.active
		m.sched.gate.Restore(st)
		return
	}

	me := m.sched.active
	listInsertSorted(&m.queue, me)
	m.sched.parkSelf(me, StatusMutexBlocked, st)
	// Woken by Unlock, which has already made us the owner.
}

// Unlock releases the mutex. If waiters are queued, ownership transfers
// directly to the highest-priority one (core/mutex.c's "lockedByThisThread
// is never cleared while waiters exist" hand-off) and, if that waiter
// is more urgent than the caller, a dispatch is requested immediately
// (deferred until the caller's own reschedule point when invoked from
// simulated ISR context).
func (m *Mutex) Unlock() {
	st := m.sched.gate.Disable()

	if !m.locked {
		m.sched.gate.Restore(st)
		Panic(PanicMutexUnlockNotOwner, "Mutex.Unlock: not locked")
	}

	next := listRemoveHead(&m.queue)
	if next == nil {
		m.locked = false
		m.owner = nil
		m.sched.gate.Restore(st)
		return
	}

	m.owner = next
	m.sched.setStatus(next, StatusPending)
	targetPrio := next.priority
	m.sched.gate.Restore(st)

	// Switch re-acquires the gate itself; it dispatches next immediately
	// (waking it via its parked wake channel) whenever next outranks the
	// caller, deferring to the caller's own next reschedule point if
	// called from simulated ISR context.
	m.sched.Switch(targetPrio)
}

// Owner reports which thread currently holds the lock, or nil.
func (m *Mutex) Owner() *Thread {
	st := m.sched.gate.Disable()
	defer m.sched.gate.Restore(st)
	return m.owner
}

// IsLocked reports whether the mutex is currently held.
func (m *Mutex) IsLocked() bool {
	st := m.sched.gate.Disable()
	defer m.sched.gate.Restore(st)
	return m.locked
}
