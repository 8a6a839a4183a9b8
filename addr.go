package smartgadget

import (
	"encoding/hex"
	"strings"
)

// Addr represents a peripheral's link-layer address.
// It's a MAC address on Linux or a Device UUID on OS X.
type Addr interface {
	String() string
	Bytes() []byte
}

// NewAddr creates an Addr from string
func NewAddr(s string) Addr {
	return addr(strings.ToLower(s))
}

type addr string

func (a addr) String() string {
	return string(a)
}

func (a addr) Bytes() []byte {
	hexStr := strings.Replace(a.String(), ":", "", -1)

	out, err := hex.DecodeString(hexStr)
	if err != nil {
		GetLogger().Error("error decoding address: ", err, " ", a.String())
	}

	return out
}

// AddrType is the link-layer address type of a peripheral.
type AddrType uint8

const (
	AddrTypePublic AddrType = 0x00
	AddrTypeRandom AddrType = 0x01
)

func (t AddrType) String() string {
	if t == AddrTypePublic {
		return "public"
	}
	return "random"
}

func addrEqual(a, b Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(a.String(), b.String())
}
