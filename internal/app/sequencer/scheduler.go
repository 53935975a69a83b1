package sequencer

import (
	"context"
	"time"
)

// Scheduler runs fn once after d unless the returned cancel function is called first.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// WallClock schedules tasks against the wall clock.
type WallClock struct{}

// AfterFunc starts a timer goroutine and returns its cancel function.
func (WallClock) AfterFunc(d time.Duration, fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			fn()
		}
	}()

	return cancel
}
