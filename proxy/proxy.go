/*
Package proxy implements knocker's data plane: a TCP proxy and a UDP proxy
that forward client traffic to the destination and report what they see
through a last-value-wins event channel.

The UDP proxy keeps one backend-facing socket per distinct client address,
a minimal connection-tracking NAT, so return traffic can be attributed to
the right client. Sessions are only dropped when forwarding to them fails;
a session with a healthy backend socket persists even if its client goes
silent. That unbounded growth is inherited, documented behavior.
*/
package proxy

// Event is what the data plane tells the supervisor. Events are
// level-triggered: only the latest value matters, and intermediate values
// may be coalesced when the consumer is busy.
type Event int

const (
	EventNothing Event = iota
	EventGotPacket
	EventDestinationNotResponding
	EventUnknownError //terminal for the whole process
)

func (e Event) String() string {
	switch e {
	case EventNothing:
		return "Nothing"
	case EventGotPacket:
		return "GotPacket"
	case EventDestinationNotResponding:
		return "DestinationNotResponding"
	case EventUnknownError:
		return "UnknownError"
	}
	return "?"
}
