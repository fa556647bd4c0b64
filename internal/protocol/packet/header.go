package packet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/quicvd/internal/protocol"
)

// Legacy public header flag bits.
const (
	FlagVersion  byte = 0x01
	FlagReset    byte = 0x02
	FlagConnID8  byte = 0x08
	TriggerFlags byte = FlagVersion | FlagConnID8
)

// Field widths and offsets shared by the trigger and the negotiation reply.
const (
	FlagsLen        = 1
	ConnectionIDLen = 8
	VersionLen      = 4
	PacketNumberLen = 1

	ConnectionIDOffset = FlagsLen
	VersionOffset      = ConnectionIDOffset + ConnectionIDLen
	PacketNumberOffset = VersionOffset + VersionLen

	// HeaderLen is the number of bytes skipped before the version list of a reply.
	HeaderLen = PacketNumberOffset + PacketNumberLen
)

var (
	ErrShortHeader    = fmt.Errorf("packet: short header: %w", protocol.ErrMalformedPacket)
	ErrPartialVersion = fmt.Errorf("packet: trailing partial version tag: %w", protocol.ErrMalformedPacket)
	ErrBadVersionTag  = fmt.Errorf("packet: non-printable version tag: %w", protocol.ErrMalformedPacket)

	ErrInvalidVersion = errors.New("packet: invalid version tag")
)

// ConnectionID is the fixed-width legacy connection id.
type ConnectionID [ConnectionIDLen]byte

// NewConnectionID reads ConnectionIDLen bytes from src, or crypto/rand when src is nil.
func NewConnectionID(src io.Reader) (ConnectionID, error) {
	if src == nil {
		src = rand.Reader
	}
	var id ConnectionID
	if _, err := io.ReadFull(src, id[:]); err != nil {
		return ConnectionID{}, fmt.Errorf("packet: generate connection id: %w", err)
	}
	return id, nil
}

func (id ConnectionID) String() string {
	return hex.EncodeToString(id[:])
}
