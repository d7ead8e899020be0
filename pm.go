package kcore

// PMNumModes is the number of distinct power modes below the implicit idle
// mode, matching typical CPU_PM backends (mode 0 = deepest sleep, PMNumModes
// the lightest). Grounded on core/include/pm.h.
const PMNumModes = 4

// Setter is implemented by a platform power-management backend: Set is
// called by the idle loop once it has determined the lowest currently
// unblocked mode. Kept as an interface (rather than a free function,
// core/pm.h's per-platform pm_set) so tests can inject a fake.
type Setter interface {
	Set(mode int)
}

// PMBlocker tracks, per power mode, how many subsystems currently forbid
// entering it. SetLowest picks the lowest-numbered (deepest) mode whose
// blocker count is zero; blocking a mode does not also block the modes
// below it. Grounded on pm_blocker_t / pm_block / pm_unblock /
// pm_set_lowest.
type PMBlocker struct {
	gate    *Gate
	counts  [PMNumModes]uint8
	backend Setter
}

// NewPMBlocker creates a blocker vector with every mode initially blocked
// once (PM_BLOCKER_INITIAL's all-ones pattern), serialized by sched's gate
// since power-mode transitions are as safety-critical as any other kernel
// state change.
func NewPMBlocker(sched *Scheduler, backend Setter) *PMBlocker {
	b := &PMBlocker{gate: sched.gate, backend: backend}
	for i := range b.counts {
		b.counts[i] = 1
	}
	return b
}

// Block increments mode's blocker count, preventing SetLowest from
// selecting that mode until every blocker unblocks.
func (b *PMBlocker) Block(mode int) {
	st := b.gate.Disable()
	defer b.gate.Restore(st)
	Assert(b.counts[mode] != 255, "PMBlocker.Block: count overflow")
	b.counts[mode]++
}

// Unblock decrements mode's blocker count.
func (b *PMBlocker) Unblock(mode int) {
	st := b.gate.Disable()
	defer b.gate.Restore(st)
	Assert(b.counts[mode] > 0, "PMBlocker.Unblock: already zero")
	b.counts[mode]--
}

// Blocked reports whether mode currently has any outstanding blocker.
func (b *PMBlocker) Blocked(mode int) bool {
	st := b.gate.Disable()
	defer b.gate.Restore(st)
	return b.counts[mode] != 0
}

// SetLowest switches to the lowest-numbered mode with no outstanding
// blocker (or PMNumModes, the implicit idle mode, if every real mode is
// blocked), invoking the platform backend's Set. Called by the idle thread.
func (b *PMBlocker) SetLowest() {
	st := b.gate.Disable()
	mode := PMNumModes
	for i := 0; i < PMNumModes; i++ {
		if b.counts[i] == 0 {
			mode = i
			break
		}
	}
	b.gate.Restore(st)

	if b.backend != nil {
		b.backend.Set(mode)
	}
}
