package kcore

import (
	"math/bits"
)

// Scheduler holds all process-wide kernel state: one runqueue per priority
// level, a bitmap tracking which are non-empty, the thread table, the
// active thread, and the context-switch-request flag. Grounded on
// core/include/sched.h / core/include/scheduler.h.
//
// Dispatch mechanism (the Go-specific "how", since there is no interrupt
// controller to preempt a goroutine): exactly one goroutine at a time holds
// the "dispatch baton". A thread that must block calls parkSelf, which
// performs its status transition under the gate and then waits outside the
// gate on its own per-thread wake channel; becoming the active thread means
// some other goroutine closes that channel. This reproduces "only one
// thread is ever RUNNING" without requiring real OS-level preemption,
// generalizing the precise per-waiter-channel wakeup idiom used for FIFO
// ticket locks elsewhere in the ecosystem (a channel per waiter, closed
// exactly once, rather than a Cond broadcast that wakes everyone).
type Scheduler struct {
	gate *Gate

	runqueues [PrioLevels]*Thread
	bitmap    uint32

	threads map[PID]*Thread
	nextPID PID

	active  *Thread
	pending bool // context_switch_request
}

// NewScheduler creates a scheduler with its mandatory idle thread, and
// registers the calling goroutine itself as the scheduler's initial "boot"
// thread at PrioMain -- mirroring kernel_init handing off to whichever
// thread the scheduler picks first. Every subsequent call the caller's own
// goroutine makes against the returned Scheduler (Create, Wakeup, Mutex.Lock,
// ...) is therefore correctly attributed to a real thread rather than to an
// anonymous outside context, including being parked/dispatched exactly like
// any other thread's.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		gate:    newGate(),
		threads: make(map[PID]*Thread),
	}
	idle, err := s.create(0, PrioIdle, 0, "idle")
	Assert(err == nil, "NewScheduler: failed to create idle thread")

	go func() {
		<-idle.wake
		for {
			s.Yield()
		}
	}()

	boot, err := s.create(0, PrioMain, 0, "boot")
	Assert(err == nil, "NewScheduler: failed to create boot thread")

	st := s.gate.Disable()
	s.setStatus(idle, StatusPending)
	s.setStatus(boot, StatusPending)
	active := s.run()
	close(active.wake)
	s.gate.Restore(st)
	return s
}

// Active returns the thread currently holding the dispatch baton.
func (s *Scheduler) Active() *Thread {
	st := s.gate.Disable()
	defer s.gate.Restore(st)
	return s.active
}

// Get retrieves a thread by PID, or nil if unknown -- the bound-checked
// thread_get().
func (s *Scheduler) Get(pid PID) *Thread {
	st := s.gate.Disable()
	defer s.gate.Restore(st)
	return s.threads[pid]
}

func (s *Scheduler) create(flags uint32, priority uint8, _ uintptr, name string) (*Thread, error) {
	if priority >= PrioLevels {
		return nil, ErrInvalidPriority
	}
	st := s.gate.Disable()
	defer s.gate.Restore(st)

	if len(s.threads) >= PrioLevels*4 {
		return nil, ErrOverflow
	}
	pid := s.nextPID
	s.nextPID++

	t := &Thread{
		sched:    s,
		pid:      pid,
		name:     name,
		priority: priority,
		status:   StatusStopped,
		flags:    flags,
	}
	t.newWakeChan()
	s.threads[pid] = t
	return t, nil
}

// setStatus transitions t to newStatus, moving it on or off its priority
// runqueue as needed, and updating the bitmap. Must be called with the gate
// held. It never itself performs a dispatch -- it only raises the
// switch-request flag if the newly-runnable thread outranks the active one.
func (s *Scheduler) setStatus(t *Thread, newStatus Status) {
	wasRunnable := t.status.Runnable()
	willBeRunnable := newStatus.Runnable()

	if wasRunnable && !willBeRunnable {
		s.dequeue(t)
	} else if !wasRunnable && willBeRunnable {
		s.enqueue(t)
	} else if wasRunnable && willBeRunnable && t.status != newStatus {
		// RUNNING <-> PENDING transition while already queued: no linkage
		// change needed, the thread stays where it is in its runqueue.
	}

	t.status = newStatus

	if willBeRunnable && s.active != nil && t != s.active && t.priority < s.active.priority {
		s.pending = true
	}
}

func (s *Scheduler) enqueue(t *Thread) {
	head := s.runqueues[t.priority]
	ringAdd(&head, t)
	s.runqueues[t.priority] = head
	s.bitmap |= 1 << t.priority
}

func (s *Scheduler) dequeue(t *Thread) {
	head := s.runqueues[t.priority]
	if head == nil {
		Panic(PanicSchedStateInvalid, "dequeue: thread claims runnable but runqueue empty")
	}
	ringRemove(&head, t)
	s.runqueues[t.priority] = head
	if head == nil {
		s.bitmap &^= 1 << t.priority
	}
}

// SetStatus is the public, gate-acquiring entry point to setStatus, used by
// every blocking/unblocking primitive built on top of Scheduler.
func (s *Scheduler) SetStatus(t *Thread, newStatus Status) {
	st := s.gate.Disable()
	s.setStatus(t, newStatus)
	s.gate.Restore(st)
}

// firstSetBit returns the priority level of the highest-priority (lowest
// numbered) non-empty runqueue, or PrioLevels if the bitmap is empty.
func firstSetBit(bitmap uint32) int {
	if bitmap == 0 {
		return PrioLevels
	}
	return bits.TrailingZeros32(bitmap)
}

// run picks the highest-priority non-empty runqueue's head thread and
// installs it as active. Must be called with the gate held. Always finds at
// least the idle thread, which is created PrioIdle and never allowed to
// leave the runqueue for good.
func (s *Scheduler) run() *Thread {
	prio := firstSetBit(s.bitmap)
	Assert(prio < PrioLevels, "run: no runnable thread, not even idle")

	next := s.runqueues[prio]

	if s.active != nil && s.active != next && s.active.status == StatusRunning {
		// The previously active thread is still runnable (still on its
		// runqueue) but no longer holds the baton.
		s.active.status = StatusPending
	}

	next.status = StatusRunning
	next.scheduledCount++

	for p := prio + 1; p < PrioLevels; p++ {
		head := s.runqueues[p]
		if head == nil {
			continue
		}
		for t := head; ; t = t.ringNext {
			next.skippedCount++
			if t.ringNext == head {
				break
			}
		}
	}

	s.active = next
	s.pending = false
	return next
}

// Run is the public, gate-acquiring entry point to run().
func (s *Scheduler) Run() *Thread {
	st := s.gate.Disable()
	defer s.gate.Restore(st)
	return s.run()
}

// Switch requests a dispatch if targetPrio is strictly more urgent than the
// currently active thread, and -- outside simulated ISR context -- performs
// it immediately via yieldHigher. Called by every unblock path
// (mutex unlock, cond signal/broadcast, wait-queue wake, ...).
func (s *Scheduler) Switch(targetPrio uint8) {
	st := s.gate.Disable()
	if s.active == nil || targetPrio >= s.active.priority {
		s.gate.Restore(st)
		return
	}
	s.pending = true
	inISR := s.gate.inISR
	s.gate.Restore(st)

	if !inISR {
		s.yieldHigher(callerThread(s))
	}
}

// callerThread resolves "the thread calling this operation" to the
// scheduler's notion of active thread. Kept as a function (rather than
// requiring every call site to pass the caller explicitly) because several
// call sites -- mutex unlock, cond signal -- may run on behalf of a thread
// different from the one they are unblocking.
func callerThread(s *Scheduler) *Thread {
	return s.Active()
}

// parkSelf removes the calling thread from the runqueue under newStatus and
// blocks the calling goroutine until some other goroutine makes it active
// again. Callers must already hold (and this releases) the gate.
func (s *Scheduler) parkSelf(me *Thread, newStatus Status, st IRQState) {
	s.setStatus(me, newStatus)
	ch := me.newWakeChan()
	if s.pending || s.active == me {
		s.dispatchLocked()
	}
	s.gate.Restore(st)
	<-ch
}

// dispatchLocked runs the scheduler and, if the result differs from the
// previously active thread, wakes it. Must be called with the gate held.
func (s *Scheduler) dispatchLocked() {
	prev := s.active
	next := s.run()
	if next != prev {
		debugLog.Debug("dispatch", "from", prev.name, "to", next.name, "prio", next.priority)
		close(next.wake)
	}
}

// Yield rotates the current priority's runqueue (moving the active thread
// to the tail of its own priority class) and dispatches: equal-priority
// threads are strictly cooperative, so this is the only way one yields the
// CPU to a peer at the same priority.
func (s *Scheduler) Yield() {
	st := s.gate.Disable()
	me := s.active
	if me == nil {
		s.gate.Restore(st)
		return
	}
	head := s.runqueues[me.priority]
	if head != nil {
		ringAdvance(&head)
		s.runqueues[me.priority] = head
	}
	s.yieldHigherLocked(me, st)
}

// YieldHigher dispatches without rotating: the active thread keeps its head
// position within its own priority class, so it runs again immediately
// unless a strictly higher-priority thread became runnable meanwhile.
func (s *Scheduler) YieldHigher() {
	st := s.gate.Disable()
	me := s.active
	if me == nil {
		s.gate.Restore(st)
		return
	}
	s.yieldHigherLocked(me, st)
}

func (s *Scheduler) yieldHigher(me *Thread) {
	st := s.gate.Disable()
	s.yieldHigherLocked(me, st)
}

// yieldHigherLocked performs the actual park/resume dance for Yield and
// YieldHigher: pick the next thread to run; if it's the caller, just
// continue (releasing the gate); otherwise park the caller and wait to be
// woken again.
func (s *Scheduler) yieldHigherLocked(me *Thread, st IRQState) {
	ch := me.newWakeChan()
	next := s.run()
	if next == me {
		s.gate.Restore(st)
		return
	}
	close(next.wake)
	s.gate.Restore(st)
	<-ch
}

// Create spawns a new thread: a TCB plus a goroutine running body, parked
// until the scheduler actually dispatches it for the first time. Unless
// flags includes CreateSleeping, the thread is made runnable immediately
// and, unless flags also includes CreateWoutYield, the calling thread
// yields to it right away if it is the more urgent of the two -- the Go
// analogue of thread_create's eponymous flags.
func (s *Scheduler) Create(priority uint8, name string, flags uint32, body func()) (*Thread, error) {
	t, err := s.create(flags, priority, 0, name)
	if err != nil {
		return nil, err
	}

	go func() {
		<-t.wake
		body()
		s.exit(t)
	}()

	if flags&CreateSleeping != 0 {
		return t, nil
	}

	s.SetStatus(t, StatusPending)
	if flags&CreateWoutYield == 0 {
		s.YieldHigher()
	}
	return t, nil
}

// exit retires a thread permanently: dequeued if runnable, marked Zombie,
// removed from the thread table, and (if it holds the baton) replaced by
// whatever the scheduler picks next.
func (s *Scheduler) exit(t *Thread) {
	st := s.gate.Disable()
	s.setStatus(t, StatusZombie)
	delete(s.threads, t.pid)
	wasActive := s.active == t
	s.gate.Restore(st)

	if wasActive {
		st = s.gate.Disable()
		s.dispatchLocked()
		s.gate.Restore(st)
	}
}

// Sleep parks the calling thread in StatusSleeping until a matching Wakeup.
// Illegal to call from simulated ISR context.
func (s *Scheduler) Sleep() {
	st := s.gate.Disable()
	assertNotInISR(s.gate, "Scheduler.Sleep")
	me := s.active
	s.parkSelf(me, StatusSleeping, st)
}

// Wakeup makes a StatusSleeping (or StatusStopped, i.e. CreateSleeping-born)
// thread runnable again, preempting immediately if it outranks the active
// thread. Safe to call from simulated ISR context.
func (s *Scheduler) Wakeup(t *Thread) {
	st := s.gate.Disable()
	if t.status != StatusSleeping && t.status != StatusStopped {
		s.gate.Restore(st)
		return
	}
	s.setStatus(t, StatusPending)
	prio := t.priority
	s.gate.Restore(st)
	s.Switch(prio)
}
