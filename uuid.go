package smartgadget

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	guuid "github.com/google/uuid"
	"github.com/pkg/errors"
)

// A UUID is a BLE UUID in little-endian byte order, either 2 bytes
// (16-bit SIG-assigned) or 16 bytes (128-bit).
type UUID []byte

// UUID16 returns a 16-bit UUID.
func UUID16(i uint16) UUID {
	u := make(UUID, 2)
	binary.LittleEndian.PutUint16(u, i)
	return u
}

// ParseUUID parses a standard hex UUID string, with or without dashes.
// 4-character strings parse as 16-bit UUIDs, 32-character (or canonical
// dashed) strings as 128-bit UUIDs.
func ParseUUID(s string) (UUID, error) {
	switch len(s) {
	case 4:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, errors.Wrap(err, "uuid16 parse")
		}
		return UUID{b[1], b[0]}, nil
	case 32, 36:
		if len(s) == 32 {
			// canonicalize for the parser below
			s = s[:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
		}
		g, err := guuid.Parse(s)
		if err != nil {
			return nil, errors.Wrap(err, "uuid128 parse")
		}
		return Reverse(g[:]), nil
	default:
		return nil, errors.Errorf("invalid uuid string %q", s)
	}
}

// MustParseUUID parses a UUID string and panics on failure.
// Intended for package-level well-known UUID declarations.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Len returns the length of the UUID in bytes.
func (u UUID) Len() int {
	return len(u)
}

// String returns the UUID in big-endian hex form, the way it appears in
// profile documentation.
func (u UUID) String() string {
	return strings.ToLower(hex.EncodeToString(Reverse(u)))
}

// Equal compares two UUIDs for equality, byte for byte.
func (u UUID) Equal(v UUID) bool {
	if len(u) != len(v) {
		return false
	}
	for i := range u {
		if u[i] != v[i] {
			return false
		}
	}
	return true
}

// Reverse returns a reversed copy of u, converting between the
// little-endian order used on the wire and the big-endian order used in
// print.
func Reverse(u []byte) []byte {
	h := make([]byte, len(u))
	for i, b := range u {
		h[len(u)-1-i] = b
	}
	return h
}
