// Package adv decodes and crafts BLE advertising payloads: the
// length/type/value stream defined in the Supplement to the Bluetooth
// Core Specification, CSSv6, Part A.
package adv

import (
	"github.com/pkg/errors"
)

// MaxPacketLength is the legacy advertising payload limit.
const MaxPacketLength = 31

var (
	// ErrEmptyPDU is returned by Decode for a nil or empty payload.
	ErrEmptyPDU = errors.New("nil/empty pdu")

	// ErrNotFit is returned when a field doesn't fit into a packet.
	ErrNotFit = errors.New("field does not fit")
)

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
var types = struct {
	flags       byte
	uuid16inc   byte
	uuid16comp  byte
	uuid32inc   byte
	uuid32comp  byte
	uuid128inc  byte
	uuid128comp byte
	nameshort   byte
	namecomp    byte
	txpwr       byte
	mfgdata     byte
}{
	flags:       0x01,
	uuid16inc:   0x02,
	uuid16comp:  0x03,
	uuid32inc:   0x04,
	uuid32comp:  0x05,
	uuid128inc:  0x06,
	uuid128comp: 0x07,
	nameshort:   0x08,
	namecomp:    0x09,
	txpwr:       0x0a,
	mfgdata:     0xff,
}

// uuidWidths maps the service-UUID AD types to their element width in
// bytes; other types decode as plain byte fields.
var uuidWidths = map[byte]int{
	types.uuid16inc:   2,
	types.uuid16comp:  2,
	types.uuid32inc:   4,
	types.uuid32comp:  4,
	types.uuid128inc:  16,
	types.uuid128comp: 16,
}

// Packet holds the decoded fields of one advertising payload.
type Packet struct {
	name     string
	uuids    [][]byte
	flags    []byte
	txpwr    []byte
	mfg      []byte
	trailing error
}

// Decode walks the length-prefixed records of pdu. Malformed trailing
// fragments end the walk; the fields decoded up to that point are
// retained and the fragment error is available through Err.
func Decode(pdu []byte) (*Packet, error) {
	if len(pdu) == 0 {
		return nil, ErrEmptyPDU
	}

	p := &Packet{}
	for i := 0; (i + 1) < len(pdu); {
		// length @ offset 0, type @ offset 1, data to length-1
		length := int(pdu[i])
		typ := pdu[i+1]

		// length covers the type byte
		if length < 1 {
			p.trailing = errors.Errorf("invalid record length %v, idx %v", length, i)
			return p, nil
		}
		if (i + length) >= len(pdu) {
			p.trailing = errors.Errorf("record overflows pdu: want %v, have %v, idx %v", i+length, len(pdu), i)
			return p, nil
		}

		start := i + 2
		end := start + length - 1
		b := make([]byte, end-start)
		copy(b, pdu[start:end])

		if err := p.decodeRecord(typ, b); err != nil {
			p.trailing = errors.Wrapf(err, "adv type %v, idx %v", typ, i)
			return p, nil
		}

		i += length + 1
	}

	return p, nil
}

func (p *Packet) decodeRecord(typ byte, b []byte) error {
	if w, ok := uuidWidths[typ]; ok {
		uu, err := uuidArray(w, b)
		if err != nil {
			return err
		}
		p.uuids = append(p.uuids, uu...)
		return nil
	}

	if len(b) == 0 {
		return errors.New("empty record")
	}

	switch typ {
	case types.namecomp:
		p.name = string(b)
	case types.nameshort:
		// complete name wins over short
		if p.name == "" {
			p.name = string(b)
		}
	case types.flags:
		p.flags = b
	case types.txpwr:
		p.txpwr = b
	case types.mfgdata:
		p.mfg = b
	default:
		// unsupported AD type, skip it
	}
	return nil
}

func uuidArray(size int, b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("nil/empty bytes")
	}
	if len(b)%size != 0 {
		return nil, errors.Errorf("uuid list length %v not a multiple of %v", len(b), size)
	}

	uu := make([][]byte, 0, len(b)/size)
	for j := 0; j < len(b); j += size {
		uu = append(uu, b[j:j+size])
	}
	return uu, nil
}

// LocalName returns the advertised device name, preferring the
// complete name over the shortened one, or "" if neither is present.
func (p *Packet) LocalName() string {
	return p.name
}

// UUIDs returns the advertised service UUIDs, complete and incomplete
// lists combined, in wire (little-endian) byte order.
func (p *Packet) UUIDs() [][]byte {
	return p.uuids
}

// Flags returns the flags octet if present.
func (p *Packet) Flags() (byte, bool) {
	if len(p.flags) == 0 {
		return 0, false
	}
	return p.flags[0], true
}

// TxPower returns the advertised tx power level if present.
func (p *Packet) TxPower() (int, bool) {
	if len(p.txpwr) == 0 {
		return 0, false
	}
	return int(int8(p.txpwr[0])), true
}

// ManufacturerData returns the manufacturer specific data field, company
// identifier included, or nil.
func (p *Packet) ManufacturerData() []byte {
	return p.mfg
}

// Err returns the malformed-fragment error that ended decoding, or nil
// if the whole payload decoded.
func (p *Packet) Err() error {
	return p.trailing
}

// LocalName is the best-effort form of Packet.LocalName: it decodes as
// much of pdu as is well formed and returns the name found, or "".
func LocalName(pdu []byte) string {
	p, err := Decode(pdu)
	if err != nil {
		return ""
	}
	return p.LocalName()
}

// ServiceUUIDs is the best-effort form of Packet.UUIDs.
func ServiceUUIDs(pdu []byte) [][]byte {
	p, err := Decode(pdu)
	if err != nil {
		return nil
	}
	return p.UUIDs()
}
