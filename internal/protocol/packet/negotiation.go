package packet

import (
	"encoding/binary"
	"fmt"
)

// VersionNegotiation is a decoded server reply.
type VersionNegotiation struct {
	PublicFlags  byte
	ConnectionID ConnectionID
	// SupportedVersions keeps wire order and duplicates.
	SupportedVersions []VersionTag
}

// Strings renders SupportedVersions in order.
func (vn VersionNegotiation) Strings() []string {
	out := make([]string, 0, len(vn.SupportedVersions))
	for _, v := range vn.SupportedVersions {
		out = append(out, v.String())
	}
	return out
}

// ParseResponse skips HeaderLen bytes and decodes the remainder as 4-byte tags.
// Trailing bytes that do not fill a whole tag reject the packet.
func ParseResponse(raw []byte) (VersionNegotiation, error) {
	if len(raw) < HeaderLen {
		return VersionNegotiation{}, fmt.Errorf("%w: got %d bytes, need %d", ErrShortHeader, len(raw), HeaderLen)
	}

	body := raw[HeaderLen:]
	if r := len(body) % VersionLen; r != 0 {
		return VersionNegotiation{}, fmt.Errorf("%w: %d bytes after %d whole tags", ErrPartialVersion, r, len(body)/VersionLen)
	}

	vn := VersionNegotiation{
		PublicFlags:       raw[0],
		SupportedVersions: make([]VersionTag, 0, len(body)/VersionLen),
	}
	copy(vn.ConnectionID[:], raw[ConnectionIDOffset:VersionOffset])

	for i := 0; i < len(body); i += VersionLen {
		v := VersionTag(binary.BigEndian.Uint32(body[i : i+VersionLen]))
		if !v.Printable() {
			return VersionNegotiation{}, fmt.Errorf("%w: tag %d is %s", ErrBadVersionTag, i/VersionLen, v)
		}
		vn.SupportedVersions = append(vn.SupportedVersions, v)
	}
	return vn, nil
}

// ComposeVersionNegotiation builds the server side reply for id. The version
// region of the header is zero and the packet number is 1.
func ComposeVersionNegotiation(id ConnectionID, versions []VersionTag) []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(versions)*VersionLen)
	buf[0] = TriggerFlags
	copy(buf[ConnectionIDOffset:VersionOffset], id[:])
	buf[PacketNumberOffset] = 0x01
	for _, v := range versions {
		b := v.Bytes()
		buf = append(buf, b[:]...)
	}
	return buf
}
