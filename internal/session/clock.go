package session

import "time"

// Clock arms one-shot timers for question deadlines and deferred cleanup.
// Sessions always cancel the previous timer before arming a new one, so at
// most one timer is live per session.
type Clock interface {
	Arm(d time.Duration, fn func()) Timer
}

// Timer is a cancellable handle returned by Arm. Cancel is idempotent and
// safe to call after the timer has fired.
type Timer interface {
	Cancel()
}

// WallClock is the production Clock backed by time.AfterFunc. The callback
// runs on its own goroutine and must take the session lock itself.
type WallClock struct{}

func (WallClock) Arm(d time.Duration, fn func()) Timer {
	return wallTimer{t: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (w wallTimer) Cancel() {
	w.t.Stop()
}
