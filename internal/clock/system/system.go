// Package system provides the wall clock used for report timestamps.
package system

import "time"

// Clock implements memory.Clock with UTC wall time truncated to milliseconds,
// which is the precision reports are rendered with.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Since returns the time elapsed since t.
func (c Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
