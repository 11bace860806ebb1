package test

import (
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
)

// Clock is a mock clock whose After fires immediately and moves time forward by the waited
// duration, so polling loops run through their deadlines without sleeping.
type Clock struct {
	mu   sync.Mutex
	mock *time2.MockClock
}

var _ time2.Clock = (*Clock)(nil)

func NewClock(now time.Time) *Clock {
	return &Clock{mock: time2.NewMockClock(now)}
}

func (c *Clock) Now() time.Time {
	return c.mock.Now()
}

func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep returns at once after moving the clock forward by d.
func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
}

func (c *Clock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Advance(d)
	return ch
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.mock.Now().Add(d)
	c.mock.Set(now)
	return now
}
