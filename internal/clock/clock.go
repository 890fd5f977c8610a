// Package clock provides wall time and cancellable deferred callbacks.
//
// Components that stamp times or schedule work take a Clock so tests can
// substitute testutil.FakeClock and advance time deterministically.
package clock

import "time"

// Clock reports the current time and schedules one-shot callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback created by AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. Returns false if the callback
	// already fired or the timer was already stopped.
	Stop() bool
}

// System is the real wall clock.
//
// Thread-safety: System is stateless and safe for concurrent use.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
