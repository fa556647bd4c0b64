package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPacket = errors.New("protocol: malformed packet")
	ErrNoResponse      = errors.New("protocol: no response")
	ErrTransport       = errors.New("protocol: transport error")
	ErrCanceled        = errors.New("protocol: probe canceled")
	ErrLocal           = errors.New("protocol: local failure")

	// ErrResolve is a transport failure that happened before any datagram was sent.
	ErrResolve = fmt.Errorf("protocol: resolve failed: %w", ErrTransport)

	// ErrReplyTruncated marks a reply larger than the receive buffer.
	ErrReplyTruncated = fmt.Errorf("protocol: reply truncated: %w", ErrMalformedPacket)
)
