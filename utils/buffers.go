package utils

import "sync"

// StandardBytesLength is a little larger than the typical link MTU, so one
// buffer can hold any single TCP segment's payload we are likely to read.
const StandardBytesLength int = 1536

// MaxUDP_packetLen: the max size of a UDP packet is 65507 bytes for IPv4 and
// 65527 bytes for IPv6, so 64 * 1024 is a nice "round" number that is enough
// for any UDP packet. UDP has no fragmentation at our layer, so a smaller
// buffer would simply drop content larger than the buffer size.
const MaxUDP_packetLen = 64 * 1024

var (
	standardBytesPool  sync.Pool //1536
	standardPacketPool sync.Pool //64*1024
)

func init() {
	standardBytesPool = sync.Pool{
		New: func() any {
			return make([]byte, StandardBytesLength)
		},
	}

	standardPacketPool = sync.Pool{
		New: func() any {
			return make([]byte, MaxUDP_packetLen)
		},
	}
}

// GetBytes returns a buffer of StandardBytesLength, for relaying stream data.
func GetBytes() []byte {
	return standardBytesPool.Get().([]byte)
}

func PutBytes(bs []byte) {
	if cap(bs) < StandardBytesLength {
		return
	}
	standardBytesPool.Put(bs[:cap(bs)])
}

// GetPacket returns a buffer big enough (64*1024 bytes) for any UDP packet.
func GetPacket() []byte {
	return standardPacketPool.Get().([]byte)
}

func PutPacket(bs []byte) {
	if cap(bs) < MaxUDP_packetLen {
		return
	}
	standardPacketPool.Put(bs[:cap(bs)])
}
