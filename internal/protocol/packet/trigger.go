package packet

import (
	"fmt"
	"io"
)

// TriggerLen is the fixed size of every trigger datagram. Servers ignore
// unknown-version client packets smaller than this.
const TriggerLen = 1200

// TriggerPacketNumber is the packet number carried by every trigger.
const TriggerPacketNumber byte = 0x01

// chloStub is an unencrypted STREAM frame on stream 1 opening a CHLO with zero tags.
var chloStub = []byte{0xa0, 0x01, 'C', 'H', 'L', 'O', 0x00, 0x00, 0x00, 0x00}

// Trigger is a client packet whose version forces a version negotiation reply.
type Trigger struct {
	ConnectionID ConnectionID
	Version      VersionTag
}

type triggerOptions struct {
	version VersionTag
	rand    io.Reader
}

type TriggerOption func(*triggerOptions)

// WithVersion overrides DefaultTriggerVersion.
func WithVersion(v VersionTag) TriggerOption {
	return func(o *triggerOptions) {
		o.version = v
	}
}

// WithRand sets the connection id entropy source.
func WithRand(r io.Reader) TriggerOption {
	return func(o *triggerOptions) {
		o.rand = r
	}
}

// NewTrigger draws a fresh connection id. It fails only on a non-printable
// version override or an entropy read error.
func NewTrigger(opts ...TriggerOption) (Trigger, error) {
	o := triggerOptions{version: DefaultTriggerVersion}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.version.Printable() {
		return Trigger{}, fmt.Errorf("%w: %s is not printable ascii", ErrInvalidVersion, o.version)
	}
	id, err := NewConnectionID(o.rand)
	if err != nil {
		return Trigger{}, err
	}
	return Trigger{ConnectionID: id, Version: o.version}, nil
}

// Encode lays out flags, connection id, version, packet number and the padded CHLO stub.
func (t Trigger) Encode() []byte {
	buf := make([]byte, TriggerLen)
	buf[0] = TriggerFlags
	copy(buf[ConnectionIDOffset:VersionOffset], t.ConnectionID[:])
	v := t.Version.Bytes()
	copy(buf[VersionOffset:PacketNumberOffset], v[:])
	buf[PacketNumberOffset] = TriggerPacketNumber
	copy(buf[HeaderLen:], chloStub)
	return buf
}

// BuildTrigger returns the encoded datagram for NewTrigger(opts...).
func BuildTrigger(opts ...TriggerOption) ([]byte, error) {
	t, err := NewTrigger(opts...)
	if err != nil {
		return nil, err
	}
	return t.Encode(), nil
}

// MustBuildTrigger builds a default trigger and panics if crypto/rand fails.
func MustBuildTrigger() []byte {
	b, err := BuildTrigger()
	if err != nil {
		panic(err)
	}
	return b
}
