package randflake

import "time"

// Clock reports the current time in milliseconds since the Unix epoch, the
// same reference instant the generator's epoch is expressed in.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() int64

// Now calls f.
func (f ClockFunc) Now() int64 { return f() }

// SystemClock reads the wall clock. Backward steps (NTP, manual changes)
// are visible to the generator and surface as ErrClockRegression.
type SystemClock struct{}

// Now returns time.Now() in Unix milliseconds.
func (SystemClock) Now() int64 { return time.Now().UnixMilli() }

// MonotonicClock anchors the wall clock once and advances it with the
// monotonic clock, so later wall-clock adjustments never move it backwards.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock anchors a MonotonicClock at the current instant.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns the anchored wall time plus the monotonic time elapsed since.
func (c *MonotonicClock) Now() int64 {
	return c.start.Add(time.Since(c.start)).UnixMilli()
}
