package expiringmap

import (
	"time"
)

// Clock is the time source a Map measures time to live against.
// Every operation reads it once and uses that reading both to sweep and to renew.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls the function.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads time.Now. Its readings carry the monotonic clock, so
// deadlines are immune to wall clock steps; custom clocks should preserve that
// by deriving their readings from time.Now with Add rather than time.Unix.
var SystemClock Clock = ClockFunc(time.Now)
