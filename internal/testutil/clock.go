// Package testutil holds deterministic stand-ins for the clocks and ID
// generators used in production, so tests produce identical timestamps and
// identifiers on every run.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time for StepClock: 2025-01-01T00:00:00Z.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a wall clock that starts at a fixed instant and moves
// forward by Step on every call to Now. A zero Step freezes time.
//
// Thread-safety: all methods are safe for concurrent use.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock returns a clock starting at start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{now: start, step: step}
}

// NewFrozenClock returns a clock that always reports Epoch.
func NewFrozenClock() *StepClock {
	return NewStepClock(Epoch, 0)
}

// Now returns the current instant, then advances by the step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next Now call will report.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
