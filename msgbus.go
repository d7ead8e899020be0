package kcore

import "sync/atomic"

// busIDLimit is the hard cap RIOT's msg_bus.h documents ("There can be a
// maximum number of 2047 buses in total"): an id field packed into the
// upper 11 bits of a message type alongside a 5-bit event id. The original
// C implementation just lets a uint16_t counter wrap past that silently;
// the redesign here returns ErrBusExhausted instead.
const busIDLimit = 2047

var busIDCounter uint32

// Bus is a topic-filtered publish/subscribe channel layered on top of Msg
// delivery: Post packs (busID<<5 | eventType) into Msg.Type and delivers to
// every attached entry whose subscribed event mask includes that type.
// Grounded on core/msg_bus.c / core/include/msg_bus.h.
type Bus struct {
	sched *Scheduler
	id    uint16
	subs  *BusEntry
}

// BusEntry is one thread's subscription to a Bus: which event types (each
// 0..31) it wants delivered, tracked as a 32-bit mask.
type BusEntry struct {
	next      *BusEntry
	eventMask uint32
	pid       PID
}

// NewBus allocates and initializes a bus with a fresh, process-wide unique
// id. Buses are meant to be long-lived and created before any thread
// attaches to them, exactly as the original's doc comment requires.
func NewBus(sched *Scheduler) (*Bus, error) {
	id := atomic.AddUint32(&busIDCounter, 1) - 1
	if id >= busIDLimit {
		return nil, ErrBusExhausted
	}
	return &Bus{sched: sched, id: uint16(id)}, nil
}

// ID returns the bus's process-wide unique identifier.
func (b *Bus) ID() uint16 { return b.id }

// Attach subscribes entry (owned by the calling thread) to the bus with an
// empty event mask; use Subscribe afterward to pick specific event types.
func (b *Bus) Attach(entry *BusEntry) {
	st := b.sched.gate.Disable()
	defer b.sched.gate.Restore(st)
	entry.eventMask = 0
	entry.pid = b.sched.active.pid
	entry.next = b.subs
	b.subs = entry
}

// Detach removes entry from the bus. Callers must do this before their
// thread terminates.
func (b *Bus) Detach(entry *BusEntry) {
	st := b.sched.gate.Disable()
	defer b.sched.gate.Restore(st)
	curr := &b.subs
	for *curr != nil {
		if *curr == entry {
			*curr = entry.next
			entry.next = nil
			return
		}
		curr = &(*curr).next
	}
}

// EntryForPID finds the subscriber entry belonging to pid, or nil.
func (b *Bus) EntryForPID(pid PID) *BusEntry {
	st := b.sched.gate.Disable()
	defer b.sched.gate.Restore(st)
	for e := b.subs; e != nil; e = e.next {
		if e.pid == pid {
			return e
		}
	}
	return nil
}

// Subscribe adds eventType (0..31) to entry's subscribed set.
func (entry *BusEntry) Subscribe(eventType uint8) {
	Assert(eventType < 32, "BusEntry.Subscribe: event type out of range")
	entry.eventMask |= 1 << eventType
}

// Unsubscribe removes eventType from entry's subscribed set.
func (entry *BusEntry) Unsubscribe(eventType uint8) {
	Assert(eventType < 32, "BusEntry.Unsubscribe: event type out of range")
	entry.eventMask &^= 1 << eventType
}

// EventType extracts the 5-bit event type from a message received over a
// bus (the upper bits hold the originating bus's id).
func EventType(m Msg) uint8 { return uint8(m.Type & 0x1F) }

// IsFromBus reports whether m was posted on b specifically -- useful when a
// thread is attached to more than one bus.
func (b *Bus) IsFromBus(m Msg) bool { return b.id == uint16(m.Type>>5) }

// Post delivers an event of the given type (0..31), with an arbitrary
// payload, to every currently-attached subscriber whose mask includes it.
// Safe to call from simulated ISR context (delivery uses the non-blocking,
// ISR-safe SendInt, exactly as the original's note that msg_bus_post is
// ISR-safe). Returns the number of threads the event was delivered to.
func (b *Bus) Post(eventType uint8, payload any) int {
	Assert(eventType < 32, "Bus.Post: event type out of range")
	m := Msg{
		Type: uint16(eventType) | uint16(b.id)<<5,
		Ptr:  payload,
	}

	st := b.sched.gate.Disable()
	var targets []PID
	mask := uint32(1) << eventType
	for e := b.subs; e != nil; e = e.next {
		if e.eventMask&mask != 0 {
			targets = append(targets, e.pid)
		}
	}
	b.sched.gate.Restore(st)

	delivered := 0
	for _, pid := range targets {
		if ok, err := b.sched.SendInt(pid, m); err == nil && ok {
			delivered++
		}
	}
	return delivered
}
