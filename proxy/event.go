package proxy

import "sync"

// EventSender is the producer side of the event pipe. All proxy tasks share
// one EventSender; Send never blocks.
type EventSender struct {
	ch chan Event
}

// Send publishes ev. If the consumer has not picked up the previous event
// yet, the previous one is dropped: last value wins. Senders must therefore
// only publish level-triggered events.
func (s *EventSender) Send(ev Event) {
	for {
		select {
		case s.ch <- ev:
			return
		default:
			// slot is occupied by a stale value, kick it out
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// EventWatch is the consumer side of the event pipe. There must be exactly
// one consumer.
type EventWatch struct {
	ch chan Event
}

// C carries the most recent event.
func (w *EventWatch) C() <-chan Event {
	return w.ch
}

// NewEventPipe builds the single-slot overwrite channel connecting the
// proxies to the supervisor.
func NewEventPipe() (*EventSender, *EventWatch) {
	ch := make(chan Event, 1)
	return &EventSender{ch: ch}, &EventWatch{ch: ch}
}

// ReadyGate is a broadcast wake with no payload. Any number of waiters may
// park on it; a Broadcast releases all of them together. There is no
// counting and nothing is stored.
type ReadyGate struct {
	mu sync.Mutex
	ch chan struct{}
}

func NewReadyGate() *ReadyGate {
	return &ReadyGate{ch: make(chan struct{})}
}

// Wait returns a channel that is closed by the next Broadcast. Grab it
// before checking the condition you are waiting on, or you may miss a wake.
func (g *ReadyGate) Wait() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}

// Broadcast releases every goroutine currently parked on a Wait channel.
func (g *ReadyGate) Broadcast() {
	g.mu.Lock()
	close(g.ch)
	g.ch = make(chan struct{})
	g.mu.Unlock()
}
