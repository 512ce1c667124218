package proxy

import (
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/knockware/knocker/netLayer"
	"github.com/knockware/knocker/utils"
)

// TCPProxy accepts inbound connections and pipes bytes between each client
// and the destination, reporting life signs and destination health through
// its EventSender.
type TCPProxy struct {
	destination string
	listenAddr  string
	events      *EventSender
}

func NewTCPProxy(destination, listenAddr string, events *EventSender) *TCPProxy {
	return &TCPProxy{
		destination: destination,
		listenAddr:  listenAddr,
		events:      events,
	}
}

// Start runs the accept loop, blocking. gate may be nil; if it is not,
// connections that arrive while the destination is down are held until the
// supervisor broadcasts readiness, instead of being dropped.
//
// Start only returns on a listen/accept failure or an unexpected dial
// error; destination-down conditions are reported and survived.
func (p *TCPProxy) Start(gate *ReadyGate) error {
	listener, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return utils.ErrInErr{ErrDesc: "tcp proxy failed to listen", ErrDetail: err}
	}
	defer listener.Close()

	if ce := utils.CanLogInfo("tcp proxy listening"); ce != nil {
		ce.Write(zap.String("addr", p.listenAddr), zap.String("dest", p.destination))
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			return utils.ErrInErr{ErrDesc: "tcp proxy accept failed", ErrDetail: err}
		}

		outConn, err := p.dialDestination(gate)
		if err != nil {
			conn.Close()
			if netLayer.IsCommonConnError(err) {
				// destination simply not there and nobody holding; drop
				// this client and keep serving
				if ce := utils.CanLogInfo("destination not responding, dropping connection"); ce != nil {
					ce.Write(zap.String("client", conn.RemoteAddr().String()))
				}
				continue
			}
			p.events.Send(EventUnknownError)
			return utils.ErrInErr{ErrDesc: "tcp proxy unexpected dial error", ErrDetail: err}
		}

		go p.pipe(conn, outConn)
	}
}

// dialDestination dials until success, an unexpected error, or (gate == nil)
// the first transient failure. Transient failures are always reported, so
// the supervisor can respawn the child; with a gate we then park until the
// readiness broadcast and try again.
func (p *TCPProxy) dialDestination(gate *ReadyGate) (net.Conn, error) {
	for {
		var wake <-chan struct{}
		if gate != nil {
			// register before dialing so a broadcast can not slip past
			// between the failed dial and the park
			wake = gate.Wait()
		}

		outConn, err := net.DialTimeout("tcp", p.destination, netLayer.DialTimeout)
		if err == nil {
			return outConn, nil
		}
		if !netLayer.IsCommonConnError(err) {
			return nil, err
		}

		p.events.Send(EventDestinationNotResponding)

		if gate == nil {
			return nil, err
		}

		if ce := utils.CanLogDebug("destination down, holding until child is ready"); ce != nil {
			ce.Write(zap.Error(err))
		}
		<-wake
	}
}

// pipe launches one independent forwarding task per direction. Directions do
// not affect each other: a mid-stream error ends only its own direction,
// and a clean EOF is propagated as a half-close.
func (p *TCPProxy) pipe(inConn, outConn net.Conn) {
	onForward := func(int) {
		p.events.Send(EventGotPacket)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	relayOne := func(dst, src net.Conn, dir string) {
		defer wg.Done()
		num, err := netLayer.Relay(dst, src, onForward)
		if err != nil {
			if ce := utils.CanLogDebug("relay direction failed"); ce != nil {
				ce.Write(zap.String("dir", dir), zap.Int64("bytes", num), zap.Error(err))
			}
			return
		}
		if tcpConn, ok := dst.(*net.TCPConn); ok {
			tcpConn.CloseWrite()
		}
	}

	go relayOne(outConn, inConn, "in->out")
	go relayOne(inConn, outConn, "out->in")

	go func() {
		wg.Wait()
		inConn.Close()
		outConn.Close()
	}()
}
