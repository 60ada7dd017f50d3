// Package xct holds the epoch clock, transaction identifier, and the
// per-transaction access sets (read-set, pointer-set, page-version-set) that
// the hash storage core appends entries to during record location.
package xct

import (
	"fmt"
	"sync/atomic"
)

// Epoch is a 32-bit monotone clock advanced at group-commit boundaries.
// Zero is the reserved invalid value.
type Epoch uint32

// InvalidEpoch is the reserved "not yet assigned" epoch value.
const InvalidEpoch Epoch = 0

// IsValid reports whether e is a real, assigned epoch.
func (e Epoch) IsValid() bool { return e != InvalidEpoch }

// Before implements wrap-around, modular-half ordering: e is "before" other
// if the signed 32-bit difference other-e is positive. This tolerates the
// clock wrapping after 2^32 ticks, which a plain e < other comparison would
// get wrong near the wrap boundary.
func (e Epoch) Before(other Epoch) bool {
	return int32(other-e) > 0
}

// AtOrBefore is Before or equal.
func (e Epoch) AtOrBefore(other Epoch) bool {
	return e == other || e.Before(other)
}

func (e Epoch) String() string {
	if !e.IsValid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%d", uint32(e))
}

// EpochClock is the engine's single source of truth for current_epoch and
// durable_epoch. Only the epoch ticker (internal/epochtick) advances
// current_epoch; the hash core only reads it when stamping new XIDs.
type EpochClock struct {
	current atomic.Uint32
	durable atomic.Uint32
}

// NewEpochClock starts a clock at epoch 1, the first valid epoch.
func NewEpochClock() *EpochClock {
	c := &EpochClock{}
	c.current.Store(1)
	return c
}

// Current returns the current epoch.
func (c *EpochClock) Current() Epoch { return Epoch(c.current.Load()) }

// Durable returns the latest epoch known to be externalized to a savepoint.
func (c *EpochClock) Durable() Epoch { return Epoch(c.durable.Load()) }

// AdvanceCurrent bumps current_epoch by one and returns the new value.
// Invariant: durable_epoch < current_epoch must hold at all times the engine
// runs, so callers never advance durable_epoch past current_epoch (see
// AdvanceDurable).
func (c *EpochClock) AdvanceCurrent() Epoch {
	return Epoch(c.current.Add(1))
}

// AdvanceDurable moves durable_epoch forward to target, clamped so it never
// reaches current_epoch. Returns the resulting durable epoch.
func (c *EpochClock) AdvanceDurable(target Epoch) Epoch {
	cur := c.Current()
	if target >= cur {
		target = cur - 1
	}
	for {
		old := Epoch(c.durable.Load())
		if !old.Before(target) {
			return old
		}
		if c.durable.CompareAndSwap(uint32(old), uint32(target)) {
			return target
		}
	}
}
