package universe

import "time"

// Clock supplies fold timestamps. Folding is otherwise fully deterministic;
// tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
