package utils

import (
	"sync"
	"testing"
	"time"
)

// mirrors the intended use: activity keeps resetting the countdown, and the
// countdown only completes once activity stays away for the whole duration.
func TestResetTimer_DoesExpire(t *testing.T) {
	start := time.Now()
	guard, done := RunAfter(120 * time.Millisecond)

	sleepLen := 100 * time.Millisecond
	passes := 0

loop:
	for {
		select {
		case <-done:
			break loop
		case <-time.After(sleepLen):
			passes++
			if passes >= 2 {
				t.Fatal("timer survived a second full sleep window, reset is not debouncing")
			}
			sleepLen += 50 * time.Millisecond
			guard.Reset()
		}
	}

	if passes < 1 {
		t.Fatalf("expired before the first reset could happen, passes: %d", passes)
	}

	// one reset at ~100ms, then expiry no earlier than 120ms after it
	if elapsed := time.Since(start); elapsed < 215*time.Millisecond {
		t.Fatalf("expired too early after reset: %v", elapsed)
	}
}

func TestResetTimer_NoResetExpiry(t *testing.T) {
	start := time.Now()
	_, done := RunAfter(80 * time.Millisecond)

	<-done

	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("fired before its duration elapsed: %v", elapsed)
	}
}

func TestResetTimer_ResetAfterFireIsNoop(t *testing.T) {
	guard, done := RunAfter(30 * time.Millisecond)
	<-done

	for i := 0; i < 3; i++ {
		guard.Reset()
	}

	select {
	case <-done:
	default:
		t.Fatal("done channel not closed anymore?")
	}
}

func TestResetTimer_ConcurrentResets(t *testing.T) {
	guard, done := RunAfter(100 * time.Millisecond)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					guard.Reset()
				}
			}
		}()
	}

	select {
	case <-done:
		t.Fatal("fired while being reset every 20ms")
	case <-time.After(250 * time.Millisecond):
	}

	close(stop)
	wg.Wait()

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("did not fire after resets stopped")
	}
}
