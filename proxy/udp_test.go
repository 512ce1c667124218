package proxy

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/knockware/knocker/netLayer"
)

// startUDPEcho answers every datagram with its payload prefixed by "echo:".
func startUDPEcho(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		buf := make([]byte, 64*1024)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			conn.WriteToUDP(append([]byte("echo:"), buf[:n]...), addr)
		}
	}()
	return conn
}

func udpRoundtrip(t *testing.T, client *net.UDPConn, proxyAddr *net.UDPAddr, msg string) string {
	t.Helper()
	if _, err := client.WriteToUDP([]byte(msg), proxyAddr); err != nil {
		t.Fatal(err)
	}
	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 64*1024)
	n, _, err := client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("no reply for %q: %v", msg, err)
	}
	return string(buf[:n])
}

func TestUDPProxy_NATNoCrossDelivery(t *testing.T) {
	initTestLog()

	echo := startUDPEcho(t)
	defer echo.Close()

	sender, watch := NewEventPipe()
	listenPort := netLayer.RandPortStr(true, true)
	listenAddr := "127.0.0.1:" + listenPort

	p := NewUDPProxy(echo.LocalAddr().String(), listenAddr, sender)
	go p.Start()
	time.Sleep(100 * time.Millisecond)

	proxyAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		t.Fatal(err)
	}

	clientA, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer clientA.Close()
	clientB, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer clientB.Close()

	for i := 0; i < 5; i++ {
		msgA := fmt.Sprintf("from-A-%d", i)
		msgB := fmt.Sprintf("from-B-%d", i)

		if got := udpRoundtrip(t, clientA, proxyAddr, msgA); got != "echo:"+msgA {
			t.Fatalf("client A round %d got %q", i, got)
		}
		if got := udpRoundtrip(t, clientB, proxyAddr, msgB); got != "echo:"+msgB {
			t.Fatalf("client B round %d got %q", i, got)
		}
	}

	select {
	case ev := <-watch.C():
		if ev != EventGotPacket {
			t.Fatalf("latest event is %v, want GotPacket", ev)
		}
	default:
		t.Fatal("no events observed during UDP traffic")
	}
}

// a DNS exchange exercises a full request/response through one NAT session.
func TestUDPProxy_DNSThroughProxy(t *testing.T) {
	initTestLog()

	destAddr := "127.0.0.1:" + netLayer.RandPortStr(true, true)

	mux := dns.NewServeMux()
	mux.HandleFunc("knocker.test.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		rr, _ := dns.NewRR("knocker.test. 300 IN A 127.0.0.9")
		m.Answer = append(m.Answer, rr)
		w.WriteMsg(m)
	})
	server := &dns.Server{Addr: destAddr, Net: "udp", Handler: mux}
	go server.ListenAndServe()
	defer server.Shutdown()
	time.Sleep(100 * time.Millisecond)

	sender, _ := NewEventPipe()
	listenAddr := "127.0.0.1:" + netLayer.RandPortStr(true, true)

	p := NewUDPProxy(destAddr, listenAddr, sender)
	go p.Start()
	time.Sleep(100 * time.Millisecond)

	c := &dns.Client{Timeout: 3 * time.Second}
	q := new(dns.Msg)
	q.SetQuestion("knocker.test.", dns.TypeA)

	resp, _, err := c.Exchange(q, listenAddr)
	if err != nil {
		t.Fatalf("dns exchange through proxy failed: %v", err)
	}
	if len(resp.Answer) != 1 {
		t.Fatalf("got %d answers", len(resp.Answer))
	}
	a, ok := resp.Answer[0].(*dns.A)
	if !ok || a.A.String() != "127.0.0.9" {
		t.Fatalf("unexpected answer: %v", resp.Answer[0])
	}
}

func TestUDPProxy_DeadSessionIsDropped(t *testing.T) {
	initTestLog()

	// destination reserved but nobody listening: the connected backend
	// socket sees ICMP port-unreachable as a read error sooner or later
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	deadAddr := probe.LocalAddr().String()
	probe.Close()

	sender, watch := NewEventPipe()
	listenAddr := "127.0.0.1:" + netLayer.RandPortStr(true, true)

	p := NewUDPProxy(deadAddr, listenAddr, sender)
	go p.Start()
	time.Sleep(100 * time.Millisecond)

	proxyAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		t.Fatal(err)
	}
	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		client.WriteToUDP([]byte("anyone home"), proxyAddr)

		select {
		case ev := <-watch.C():
			if ev == EventDestinationNotResponding {
				return
			}
		case <-time.After(100 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("dead backend never produced DestinationNotResponding")
		}
	}
}
