package packet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/quicvd/internal/protocol"
)

func TestBuildTriggerLayout(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b, err := BuildTrigger(WithRand(src))
	if err != nil {
		t.Fatalf("build trigger: %v", err)
	}
	if len(b) != TriggerLen {
		t.Fatalf("unexpected length: %d", len(b))
	}
	if b[0] != 0x09 {
		t.Fatalf("unexpected flags: %#x", b[0])
	}
	if !bytes.Equal(b[1:9], []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("unexpected connection id: %x", b[1:9])
	}
	if string(b[9:13]) != "Q098" {
		t.Fatalf("unexpected version: %q", string(b[9:13]))
	}
	if b[13] != 0x01 {
		t.Fatalf("unexpected packet number: %#x", b[13])
	}
	if !bytes.Equal(b[14:24], []byte{0xa0, 0x01, 'C', 'H', 'L', 'O', 0, 0, 0, 0}) {
		t.Fatalf("unexpected payload head: %x", b[14:24])
	}
	for i, c := range b[24:] {
		if c != 0 {
			t.Fatalf("padding byte %d is %#x", 24+i, c)
		}
	}
}

func TestBuildTriggerOnlyConnectionIDVaries(t *testing.T) {
	a := MustBuildTrigger()
	b := MustBuildTrigger()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d != %d", len(a), len(b))
	}
	if bytes.Equal(a[1:9], b[1:9]) {
		t.Fatalf("connection ids repeated: %x", a[1:9])
	}
	if a[0] != b[0] || !bytes.Equal(a[9:], b[9:]) {
		t.Fatalf("fixed regions differ")
	}
}

func TestBuildTriggerVersionOverride(t *testing.T) {
	v, err := ParseVersionTag("Q999")
	if err != nil {
		t.Fatalf("parse tag: %v", err)
	}
	b, err := BuildTrigger(WithVersion(v))
	if err != nil {
		t.Fatalf("build trigger: %v", err)
	}
	if string(b[VersionOffset:PacketNumberOffset]) != "Q999" {
		t.Fatalf("unexpected version: %q", string(b[VersionOffset:PacketNumberOffset]))
	}
}

func TestBuildTriggerRejectsNonPrintableVersion(t *testing.T) {
	_, err := BuildTrigger(WithVersion(VersionTag(0x00000001)))
	if !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}
	if !strings.Contains(err.Error(), "0x00000001") {
		t.Fatalf("error does not name the version: %v", err)
	}
}

func TestBuildTriggerEntropyFailure(t *testing.T) {
	_, err := BuildTrigger(WithRand(bytes.NewReader([]byte{1, 2, 3})))
	if err == nil {
		t.Fatalf("expected entropy error")
	}
}

func TestParseResponseRejectsTrigger(t *testing.T) {
	_, err := ParseResponse(MustBuildTrigger())
	if !errors.Is(err, protocol.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}
