package kcore

// Msg is the kernel's IPC envelope. Type and the content fields are never
// interpreted by the kernel itself; SenderPID is always overwritten by Send
// with the sending thread's pid. Grounded on core/include/msg.h's msg_t.
type Msg struct {
	SenderPID PID
	Type      uint16
	Value     uint32
	Ptr       any
}

// msgQueue is a thread's optional asynchronous mailbox: messages sent to a
// thread with a non-full queue are enqueued and the sender never blocks.
type msgQueue struct {
	cib CIB
	buf []Msg
}

// InitQueue equips the calling thread with an asynchronous message queue of
// the given size (which must be zero or a power of two). Once installed,
// Send against this thread only blocks (or fails non-blocking) once the
// queue itself is full. Grounded on msg_init_queue.
func (s *Scheduler) InitQueue(size uint32) {
	st := s.gate.Disable()
	defer s.gate.Restore(st)
	me := s.active
	me.queue = &msgQueue{cib: NewCIB(size), buf: make([]Msg, size)}
}

// Send delivers m to target. If target is immediately receive-blocked, the
// message is copied straight into its receive slot and it is woken. Else,
// if target has an async queue with room, the message is enqueued and Send
// returns immediately. Otherwise, if block is true, the calling thread
// queues itself (priority order) as a send-waiter on target and blocks;
// if block is false, Send returns (false, ErrWouldBlock) without delivering.
// Grounded on core/include/msg.h's msg_send / historical msg.c semantics.
func (s *Scheduler) Send(target PID, m Msg, block bool) (bool, error) {
	st := s.gate.Disable()
	me := s.active
	t := s.threads[target]
	if t == nil {
		s.gate.Restore(st)
		return false, ErrUnknownPID
	}
	m.SenderPID = me.pid

	if t.status == StatusReceiveBlocked {
		*t.recvSlot = m
		s.setStatus(t, StatusPending)
		prio := t.priority
		s.gate.Restore(st)
		s.Switch(prio)
		return true, nil
	}

	if t.queue != nil {
		if idx, ok := t.queue.cib.Put(); ok {
			t.queue.buf[idx] = m
			s.gate.Restore(st)
			return true, nil
		}
	}

	if !block {
		s.gate.Restore(st)
		return false, ErrWouldBlock
	}

	assertNotInISR(s.gate, "Scheduler.Send(block=true)")
	me.pendingMsg = &m
	listInsertSorted(&t.sendWaiters, me)
	s.parkSelf(me, StatusSendBlocked, st)
	return true, nil
}

// SendInt is Send's non-blocking, ISR-safe counterpart: delivery to an
// already-receive-blocked target or a non-full queue still succeeds, but a
// target that isn't ready is never waited for -- SendInt returns
// (false, ErrWouldBlock) instead. Grounded on msg_send_int.
func (s *Scheduler) SendInt(target PID, m Msg) (bool, error) {
	st := s.gate.Disable()
	me := s.active
	t := s.threads[target]
	if t == nil {
		s.gate.Restore(st)
		return false, ErrUnknownPID
	}
	if me != nil {
		m.SenderPID = me.pid
	}

	if t.status == StatusReceiveBlocked {
		*t.recvSlot = m
		s.setStatus(t, StatusPending)
		prio := t.priority
		s.gate.Restore(st)
		s.Switch(prio)
		return true, nil
	}

	if t.queue != nil {
		if idx, ok := t.queue.cib.Put(); ok {
			t.queue.buf[idx] = m
			s.gate.Restore(st)
			return true, nil
		}
	}

	s.gate.Restore(st)
	return false, ErrWouldBlock
}

// Receive blocks until a message is available for the calling thread: first
// checks its own async queue, then the highest-priority send-waiter queued
// against it (handing that sender's message straight through and waking
// it), and only blocks as StatusReceiveBlocked if neither has anything.
// Always succeeds (eventually). Grounded on msg_receive.
func (s *Scheduler) Receive() Msg {
	st := s.gate.Disable()
	assertNotInISR(s.gate, "Scheduler.Receive")
	me := s.active

	if me.queue != nil {
		if idx, ok := me.queue.cib.Get(); ok {
			m := me.queue.buf[idx]
			s.wakeOneSendWaiterLocked(me)
			s.gate.Restore(st)
			return m
		}
	}

	if waiter := listRemoveHead(&me.sendWaiters); waiter != nil {
		m := *waiter.pendingMsg
		waiter.pendingMsg = nil
		s.setStatus(waiter, StatusPending)
		prio := waiter.priority
		s.gate.Restore(st)
		s.Switch(prio)
		return m
	}

	var out Msg
	me.recvSlot = &out
	s.parkSelf(me, StatusReceiveBlocked, st)
	return out
}

// wakeOneSendWaiterLocked promotes the highest-priority send-waiter's
// message into the newly-freed queue slot it was actually blocked on,
// keeping the queue's FIFO order intact. Must be called with the gate held.
func (s *Scheduler) wakeOneSendWaiterLocked(t *Thread) {
	waiter := listRemoveHead(&t.sendWaiters)
	if waiter == nil {
		return
	}
	if idx, ok := t.queue.cib.Put(); ok {
		t.queue.buf[idx] = *waiter.pendingMsg
	}
	waiter.pendingMsg = nil
	s.setStatus(waiter, StatusPending)
}

// SendReceive sends m to target and blocks until target calls Reply.
// Caution (inherited from msg_send_receive's own documented caveat): this
// should only be used when target is already expected to be receive-ready,
// since the calling thread cannot do anything else while reply-blocked.
func (s *Scheduler) SendReceive(target PID, m Msg) (Msg, error) {
	var reply Msg

	if _, err := s.Send(target, m, true); err != nil {
		return Msg{}, err
	}

	st := s.gate.Disable()
	assertNotInISR(s.gate, "Scheduler.SendReceive")
	active := s.active
	active.replySlot = &reply
	s.parkSelf(active, StatusReplyBlocked, st)
	return reply, nil
}

// Reply answers a message previously sent via SendReceive. orig must still
// carry the original sender's PID (Send/SendReceive always set it).
// Grounded on msg_reply.
func (s *Scheduler) Reply(orig Msg, reply Msg) error {
	st := s.gate.Disable()
	t := s.threads[orig.SenderPID]
	if t == nil || t.status != StatusReplyBlocked {
		s.gate.Restore(st)
		return ErrNoSuchEntry
	}
	*t.replySlot = reply
	s.setStatus(t, StatusPending)
	prio := t.priority
	s.gate.Restore(st)
	s.Switch(prio)
	return nil
}
