package proxy

import (
	"net"

	"go.uber.org/zap"

	"github.com/knockware/knocker/utils"
)

// sessionQueueLen bounds the shared response channel and each session's
// inbound queue. Producers block when a queue is full, which caps memory
// under load.
const sessionQueueLen = 512

type udpPayload struct {
	addr *net.UDPAddr
	data []byte
}

// clientSession is the NAT-style state for one client address. Its inbound
// queue feeds a dedicated backend-facing socket; dead is closed when the
// session's forwarding tasks have exited.
type clientSession struct {
	inbound chan []byte
	dead    chan struct{}
}

// enqueue hands payload to the session's forwarding task, blocking while the
// queue is full. false means the session is gone and the caller should
// remove it.
func (s *clientSession) enqueue(payload []byte) bool {
	select {
	case <-s.dead:
		return false
	case s.inbound <- payload:
		return true
	}
}

// UDPProxy receives datagrams on one listen socket and forwards them to the
// destination, keeping one virtual backend session per client address so
// replies can be routed back to whoever sent the original datagram.
type UDPProxy struct {
	destination string
	listenAddr  string
	events      *EventSender
}

func NewUDPProxy(destination, listenAddr string, events *EventSender) *UDPProxy {
	return &UDPProxy{
		destination: destination,
		listenAddr:  listenAddr,
		events:      events,
	}
}

// Start runs the receive loop, blocking. The session map is touched only by
// this loop, so it needs no locking. Start returns on a listen-socket
// failure.
func (p *UDPProxy) Start() error {
	laddr, err := net.ResolveUDPAddr("udp", p.listenAddr)
	if err != nil {
		return utils.ErrInErr{ErrDesc: "udp proxy bad listen addr", ErrDetail: err}
	}
	destAddr, err := net.ResolveUDPAddr("udp", p.destination)
	if err != nil {
		return utils.ErrInErr{ErrDesc: "udp proxy bad destination addr", ErrDetail: err}
	}

	local, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return utils.ErrInErr{ErrDesc: "udp proxy failed to listen", ErrDetail: err}
	}
	defer local.Close()

	if ce := utils.CanLogInfo("udp proxy listening"); ce != nil {
		ce.Write(zap.String("addr", p.listenAddr), zap.String("dest", p.destination))
	}

	responses := make(chan udpPayload, sessionQueueLen)
	go p.respond(local, responses)

	sessions := make(map[string]*clientSession)

	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	for {
		n, srcAddr, err := local.ReadFromUDP(buf)
		if err != nil {
			return utils.ErrInErr{ErrDesc: "udp proxy read failed", ErrDetail: err}
		}

		if udpAddrEqual(srcAddr, destAddr) {
			// an extraneous echo, the destination is talking to our listen
			// port directly. Guards against loopback config mistakes.
			if ce := utils.CanLogInfo("ignoring packet from destination"); ce != nil {
				ce.Write(zap.String("src", srcAddr.String()))
			}
			continue
		}

		p.events.Send(EventGotPacket)

		key := srcAddr.String()
		sess, ok := sessions[key]
		if !ok {
			sess = p.newSession(srcAddr, destAddr, laddr, responses)
			sessions[key] = sess
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		if !sess.enqueue(payload) {
			// the session's tasks exited, e.g. the backend socket errored.
			// closing inbound lets its drain task finish up.
			close(sess.inbound)
			delete(sessions, key)
			if ce := utils.CanLogInfo("udp session gone, dropping it"); ce != nil {
				ce.Write(zap.String("client", key))
			}
			p.events.Send(EventDestinationNotResponding)
		}
	}
}

// respond is the single responder task: it writes every queued reply back to
// its originating client through the shared listen socket.
func (p *UDPProxy) respond(local *net.UDPConn, responses <-chan udpPayload) {
	for r := range responses {
		if _, err := local.WriteToUDP(r.data, r.addr); err != nil {
			if ce := utils.CanLogErr("udp respond failed"); ce != nil {
				ce.Write(zap.String("client", r.addr.String()), zap.Error(err))
			}
			return
		}
	}
}

// newSession opens a fresh ephemeral backend-facing socket for srcAddr and
// launches the session's two tasks: a drain of the inbound queue towards the
// destination, and a receive loop pushing replies, tagged with the client
// address, onto the shared response channel.
func (p *UDPProxy) newSession(srcAddr, destAddr, laddr *net.UDPAddr, responses chan<- udpPayload) *clientSession {
	sess := &clientSession{
		inbound: make(chan []byte, sessionQueueLen),
		dead:    make(chan struct{}),
	}

	go func() {
		defer close(sess.dead)
		if err := p.runSession(srcAddr, destAddr, laddr, sess.inbound, responses); err != nil {
			if ce := utils.CanLogDebug("udp session ended"); ce != nil {
				ce.Write(zap.String("client", srcAddr.String()), zap.Error(err))
			}
		}
	}()

	return sess
}

func (p *UDPProxy) runSession(srcAddr, destAddr, laddr *net.UDPAddr, inbound <-chan []byte, responses chan<- udpPayload) error {
	// ephemeral port on the listen host, connected so the destination is the
	// fixed default peer
	backend, err := net.DialUDP("udp", &net.UDPAddr{IP: laddr.IP, Port: 0}, destAddr)
	if err != nil {
		return utils.ErrInErr{ErrDesc: "udp backend socket failed", ErrDetail: err}
	}
	defer backend.Close()

	if ce := utils.CanLogInfo("new udp client registered"); ce != nil {
		ce.Write(zap.String("client", srcAddr.String()), zap.String("socket", backend.LocalAddr().String()))
	}

	go func() {
		// ends when inbound is closed by the receive loop on removal, or
		// when a write fails; closing the socket then releases the reply
		// loop below
		defer backend.Close()
		for payload := range inbound {
			if _, err := backend.Write(payload); err != nil {
				if ce := utils.CanLogDebug("udp backend write failed"); ce != nil {
					ce.Write(zap.String("client", srcAddr.String()), zap.Error(err))
				}
				return
			}
		}
	}()

	buf := utils.GetPacket()
	defer utils.PutPacket(buf)
	for {
		n, err := backend.Read(buf)
		if err != nil {
			return utils.ErrInErr{ErrDesc: "udp backend read failed", ErrDetail: err}
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		responses <- udpPayload{addr: srcAddr, data: data}
	}
}

func udpAddrEqual(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}
