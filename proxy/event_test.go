package proxy

import (
	"sync"
	"testing"
	"time"
)

func TestEventPipe_LastValueWins(t *testing.T) {
	sender, watch := NewEventPipe()

	sender.Send(EventGotPacket)
	sender.Send(EventDestinationNotResponding)
	sender.Send(EventUnknownError)

	select {
	case ev := <-watch.C():
		if ev != EventUnknownError {
			t.Fatalf("got %v, want the latest event", ev)
		}
	default:
		t.Fatal("no event pending after sends")
	}

	select {
	case ev := <-watch.C():
		t.Fatalf("stale event leaked through: %v", ev)
	default:
	}
}

func TestEventPipe_ManySendersNeverBlock(t *testing.T) {
	sender, watch := NewEventPipe()

	done := make(chan struct{})
	go func() {
		// lazy consumer
		for {
			select {
			case <-watch.C():
				time.Sleep(time.Millisecond)
			case <-done:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				sender.Send(EventGotPacket)
			}
		}()
	}

	finished := make(chan struct{})
	go func() { wg.Wait(); close(finished) }()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("senders blocked on a full event pipe")
	}
	close(done)
}

func TestReadyGate_BroadcastReleasesAllWaiters(t *testing.T) {
	gate := NewReadyGate()

	const waiters = 5
	released := make(chan int, waiters)
	var ready sync.WaitGroup
	for i := 0; i < waiters; i++ {
		ready.Add(1)
		go func(i int) {
			ch := gate.Wait()
			ready.Done()
			<-ch
			released <- i
		}(i)
	}
	ready.Wait()

	gate.Broadcast()

	for i := 0; i < waiters; i++ {
		select {
		case <-released:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d waiters released", i, waiters)
		}
	}
}

func TestReadyGate_LateWaiterNeedsNextBroadcast(t *testing.T) {
	gate := NewReadyGate()
	gate.Broadcast()

	ch := gate.Wait()
	select {
	case <-ch:
		t.Fatal("waiter registered after broadcast was released by it")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Broadcast()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("second broadcast did not release the late waiter")
	}
}
