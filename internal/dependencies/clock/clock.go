// Package clock abstracts wall time so session expiry, account timestamps
// and event times can be driven by tests.
package clock

import "time"

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC with the monotonic reading stripped,
// so values survive a JSON round trip through storage unchanged.
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Round(0)
}

// Expired reports whether deadline has passed according to c
func Expired(c Clock, deadline time.Time) bool {
	return c.Now().After(deadline)
}
