package packet

import (
	"encoding/binary"
	"fmt"
)

// DefaultTriggerVersion is a gQUIC tag no deployed server has shipped.
const DefaultTriggerVersion VersionTag = 0x51303938 // "Q098"

// VersionTag is a 32-bit QUIC version carried big-endian on the wire.
// Legacy versions are ASCII tags such as "Q039".
type VersionTag uint32

// ParseVersionTag converts a 4 character printable ASCII tag.
func ParseVersionTag(s string) (VersionTag, error) {
	if len(s) != VersionLen {
		return 0, fmt.Errorf("%w: %q is not %d bytes", ErrInvalidVersion, s, VersionLen)
	}
	v := VersionTag(binary.BigEndian.Uint32([]byte(s)))
	if !v.Printable() {
		return 0, fmt.Errorf("%w: %q is not printable ascii", ErrInvalidVersion, s)
	}
	return v, nil
}

func (v VersionTag) Uint32() uint32 {
	return uint32(v)
}

// Bytes returns the wire encoding.
func (v VersionTag) Bytes() [VersionLen]byte {
	var b [VersionLen]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b
}

// Printable reports whether every byte is in 0x20..0x7e.
func (v VersionTag) Printable() bool {
	for _, c := range v.Bytes() {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// String renders printable tags verbatim and anything else as hex.
func (v VersionTag) String() string {
	if v.Printable() {
		b := v.Bytes()
		return string(b[:])
	}
	return fmt.Sprintf("0x%08x", uint32(v))
}

// IsGQUIC reports whether the tag has the "Qddd" shape.
func (v VersionTag) IsGQUIC() bool {
	_, ok := v.GQUICNumber()
	return ok
}

// GQUICNumber returns 39 for "Q039".
func (v VersionTag) GQUICNumber() (int, bool) {
	b := v.Bytes()
	if b[0] != 'Q' {
		return 0, false
	}
	n := 0
	for _, c := range b[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
