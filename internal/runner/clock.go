package runner

import "time"

// Clock abstracts time so the scheduler's pause and resume transitions are
// testable without real delays.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall-clock Clock used in production.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After waits for the duration to elapse and then delivers the current time.
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
