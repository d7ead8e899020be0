package kcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSetter struct {
	calls []int
}

func (f *fakeSetter) Set(mode int) { f.calls = append(f.calls, mode) }

func TestPMBlockerInitiallyAllModesBlocked(t *testing.T) {
	s := NewScheduler()
	backend := &fakeSetter{}
	b := NewPMBlocker(s, backend)

	for m := 0; m < PMNumModes; m++ {
		assert.True(t, b.Blocked(m))
	}

	b.SetLowest()
	assert.Equal(t, []int{PMNumModes}, backend.calls, "every real mode blocked, falls back to idle")
}

func TestPMBlockerUnblockAllowsShallowerMode(t *testing.T) {
	s := NewScheduler()
	backend := &fakeSetter{}
	b := NewPMBlocker(s, backend)

	for m := 0; m < PMNumModes; m++ {
		b.Unblock(m)
	}
	assert.False(t, b.Blocked(2))

	b.Block(0)
	b.Block(1)
	b.SetLowest()
	assert.Equal(t, []int{2}, backend.calls, "modes 0 and 1 blocked, mode 2 is the deepest free one")
}

func TestPMBlockerBlockUnblockRoundTrip(t *testing.T) {
	s := NewScheduler()
	b := NewPMBlocker(s, nil)

	b.Unblock(0)
	assert.False(t, b.Blocked(0))
	b.Block(0)
	assert.True(t, b.Blocked(0))
}

func TestPMBlockerUnblockBelowZeroPanics(t *testing.T) {
	s := NewScheduler()
	b := NewPMBlocker(s, nil)

	b.Unblock(0) // drains the single initial blocker
	assert.Panics(t, func() { b.Unblock(0) })
}
