package cache

import "time"

// Clock abstracts time so rollback timers can be driven by a virtual
// clock in tests instead of the wall clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a one-shot cancellable task armed through a Clock.
type Timer interface {
	// Stop cancels the task. Returns false if it already fired or
	// was already stopped.
	Stop() bool
}

// SystemClock returns a Clock backed by the runtime timer wheel.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) Stop() bool {
	return s.t.Stop()
}
