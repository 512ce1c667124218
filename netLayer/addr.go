package netLayer

import (
	"math/rand"
	"net"
	"strconv"

	"github.com/knockware/knocker/utils"
)

var randPortBase int = 60000

// RandPort returns a random port. If mustValid is true, a port that could
// actually be bound at probe time is assured. isudp selects the probe
// protocol. Pass 0 for depth, it is used for recursion.
func RandPort(mustValid, isudp bool, depth int) (p int) {
	p = rand.Intn(randPortBase) + 4096
	if !mustValid {
		return
	}
	if isudp {
		listener, err := net.ListenUDP("udp", &net.UDPAddr{
			IP:   net.IPv4(0, 0, 0, 0),
			Port: p,
		})

		if listener != nil {
			listener.Close()
		}

		if err != nil {
			if ce := utils.CanLogDebug("RandPort udp probe failed, trying again"); ce != nil {
				ce.Write()
			}

			if depth < 20 {
				return RandPort(mustValid, true, depth+1)
			}
			return
		}
	} else {
		listener, err := net.ListenTCP("tcp", &net.TCPAddr{
			IP:   net.IPv4(0, 0, 0, 0),
			Port: p,
		})

		if listener != nil {
			listener.Close()
		}

		if err != nil {
			if ce := utils.CanLogDebug("RandPort tcp probe failed, trying again"); ce != nil {
				ce.Write()
			}

			if depth < 20 {
				return RandPort(mustValid, false, depth+1)
			}
			return
		}
	}

	return
}

func RandPortStr(mustValid, isudp bool) string {
	return strconv.Itoa(RandPort(mustValid, isudp, 0))
}
