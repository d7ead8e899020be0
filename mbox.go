package kcore

// Mailbox is a bounded, ISR-safe message queue with its own reader and
// writer wait lists, independent of any particular thread's async queue
// (msg.go's InitQueue). A reader blocked on an empty mailbox is handed a
// message directly by the next Put, and a writer blocked on a full mailbox
// has its message promoted directly into the slot the next Get frees,
// keeping delivery order exactly FIFO regardless of which side is waiting.
// Grounded on core/include/mbox.h.
type Mailbox struct {
	sched *Scheduler

	readers *Thread // priority-sorted blocked Get callers
	writers *Thread // priority-sorted blocked Put callers

	cib CIB
	buf []Msg
}

// NewMailbox creates a mailbox with the given queue capacity (zero or a
// power of two) bound to sched.
func NewMailbox(sched *Scheduler, size uint32) *Mailbox {
	return &Mailbox{sched: sched, cib: NewCIB(size), buf: make([]Msg, size)}
}

// Put adds m to the mailbox. If a reader is already blocked in Get, m is
// handed to it directly. Else if the queue has room, m is enqueued. Else,
// if block is true, the caller queues itself (priority order) and blocks
// until room appears; if block is false, Put returns false without
// delivering. Grounded on _mbox_put.
func (b *Mailbox) Put(m Msg, block bool) bool {
	st := b.sched.gate.Disable()

	if reader := listRemoveHead(&b.readers); reader != nil {
		*reader.mboxSlot = m
		reader.mboxSlot = nil
		b.sched.setStatus(reader, StatusPending)
		prio := reader.priority
		b.sched.gate.Restore(st)
		b.sched.Switch(prio)
		return true
	}

	if idx, ok := b.cib.Put(); ok {
		b.buf[idx] = m
		b.sched.gate.Restore(st)
		return true
	}

	if !block {
		b.sched.gate.Restore(st)
		return false
	}

	assertNotInISR(b.sched.gate, "Mailbox.Put(block=true)")
	me := b.sched.active
	me.pendingMsg = &m
	listInsertSorted(&b.writers, me)
	b.sched.parkSelf(me, StatusMboxBlocked, st)
	return true
}

// TryPut is Put(m, false), the ISR-safe non-blocking form.
func (b *Mailbox) TryPut(m Msg) bool { return b.Put(m, false) }

// Get retrieves a message. If the queue has one buffered, it is returned
// and the highest-priority blocked writer (if any) has its message promoted
// into the slot just freed. Else if a writer is already blocked in Put, its
// message is taken directly. Else, if block is true, the caller queues
// itself and blocks until a message arrives; if block is false, Get returns
// (zero, false). Grounded on _mbox_get.
func (b *Mailbox) Get(block bool) (Msg, bool) {
	st := b.sched.gate.Disable()

	if idx, ok := b.cib.Get(); ok {
		m := b.buf[idx]
		if writer := listRemoveHead(&b.writers); writer != nil {
			if idx2, ok2 := b.cib.Put(); ok2 {
				b.buf[idx2] = *writer.pendingMsg
			}
			writer.pendingMsg = nil
			b.sched.setStatus(writer, StatusPending)
		}
		b.sched.gate.Restore(st)
		return m, true
	}

	if writer := listRemoveHead(&b.writers); writer != nil {
		m := *writer.pendingMsg
		writer.pendingMsg = nil
		b.sched.setStatus(writer, StatusPending)
		prio := writer.priority
		b.sched.gate.Restore(st)
		b.sched.Switch(prio)
		return m, true
	}

	if !block {
		b.sched.gate.Restore(st)
		return Msg{}, false
	}

	assertNotInISR(b.sched.gate, "Mailbox.Get(block=true)")
	me := b.sched.active
	var out Msg
	me.mboxSlot = &out
	listInsertSorted(&b.readers, me)
	b.sched.parkSelf(me, StatusMboxBlocked, st)
	return out, true
}

// TryGet is Get(false), the ISR-safe non-blocking form.
func (b *Mailbox) TryGet() (Msg, bool) { return b.Get(false) }

// Size reports the mailbox's queue capacity.
func (b *Mailbox) Size() uint32 {
	st := b.sched.gate.Disable()
	defer b.sched.gate.Restore(st)
	return b.cib.Cap()
}

// Avail reports the number of messages retrievable without blocking.
func (b *Mailbox) Avail() uint32 {
	st := b.sched.gate.Disable()
	defer b.sched.gate.Restore(st)
	return b.cib.Avail()
}

// Unset deinitializes the mailbox: further Put/Get calls operate on an
// empty, zero-capacity queue until re-seeded by NewMailbox.
func (b *Mailbox) Unset() {
	st := b.sched.gate.Disable()
	defer b.sched.gate.Restore(st)
	b.buf = nil
	b.cib = NewCIB(0)
}
