// Package kcore implements the synchronization and IPC core of a small
// preemptive, fixed-priority, single-CPU kernel: the scheduler and thread
// control block, mutex, condition variable, wait queue, synchronous message
// IPC with optional per-thread queues, bounded mailboxes, a topic-filtered
// message bus, tasklets, and a power-mode blocker vector.
//
// Go has no interrupt controller a library can program against, so the
// single-CPU illusion is simulated: a Scheduler owns a dispatch baton that
// only ever lets one goroutine execute kernel/user code at a time, and an
// Gate (irq.go: a plain mutex plus an in-ISR flag) stands in for disabling
// interrupts. All scheduler-visible state is only ever mutated while that
// gate is held, just as a real single-CPU kernel disables interrupts around
// runqueue, wait-list, and bus-subscriber mutation.
package kcore
