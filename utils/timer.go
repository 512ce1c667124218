package utils

import (
	"time"

	"go.uber.org/atomic"
)

// ResetTimer is a restartable countdown. It fires exactly once, after its
// duration has elapsed with no intervening Reset. Any number of goroutines
// may Reset it, any number of times; once it has fired, Reset is a no-op.
//
// There is no explicit cancel. The owner abandons a timer by dropping its
// handle; pending resets of an abandoned timer are simply never observed.
type ResetTimer struct {
	notify chan struct{}
	fired  atomic.Bool
}

// ResetGuard is the capability to restart a running ResetTimer. It does not
// own the timer's lifetime.
type ResetGuard struct {
	t *ResetTimer
}

// Reset restarts the countdown from zero. Never blocks; multiple resets that
// arrive before the timer task wakes up coalesce into one.
func (g *ResetGuard) Reset() {
	if g.t.fired.Load() {
		return
	}
	select {
	case g.t.notify <- struct{}{}:
	default:
	}
}

// RunAfter starts a countdown of duration d. The returned channel is closed
// exactly once, when d has elapsed since the start or since the last Reset.
func RunAfter(d time.Duration) (*ResetGuard, <-chan struct{}) {
	t := &ResetTimer{notify: make(chan struct{}, 1)}
	done := make(chan struct{})

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		for {
			select {
			case <-t.notify:
				if ce := CanLogDebug("resetting timer"); ce != nil {
					ce.Write()
				}
				// only this goroutine reads timer.C, so after a failed
				// Stop the fired value is still there to drain
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(d)
			case <-timer.C:
				if ce := CanLogDebug("timer expired"); ce != nil {
					ce.Write()
				}
				t.fired.Store(true)
				close(done)
				return
			}
		}
	}()

	return &ResetGuard{t: t}, done
}
