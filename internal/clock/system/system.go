// Package system provides the wall clock used outside tests.
package system

import "time"

// Clock implements jobs.Clock. Timestamps are UTC and truncated to the
// configured precision so they survive a store round trip unchanged.
type Clock struct {
	precision time.Duration
}

// New returns a millisecond-precision clock.
func New() *Clock {
	return &Clock{precision: time.Millisecond}
}

// WithPrecision returns a clock that truncates to d (0 disables truncation).
func WithPrecision(d time.Duration) *Clock {
	return &Clock{precision: d}
}

// Now returns the current UTC time.
func (c *Clock) Now() time.Time {
	now := time.Now().UTC()
	if c == nil || c.precision <= 0 {
		return now
	}
	return now.Truncate(c.precision)
}
