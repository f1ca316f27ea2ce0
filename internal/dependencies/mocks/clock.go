package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/fhecity/internal/dependencies/clock"
)

// MockClock is a manually driven Clock
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock stopped at t
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AdvancePast moves the clock to just after deadline, so that
// clock.Expired reports true for it. Earlier deadlines are left alone.
func (c *MockClock) AdvancePast(deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.now.After(deadline) {
		c.now = deadline.Add(time.Nanosecond)
	}
}
