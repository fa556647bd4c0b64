package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/quicvd/internal/probe"
	"github.com/danmuck/quicvd/internal/protocol"
	"github.com/danmuck/quicvd/internal/protocol/packet"
)

func supported(host string, tags ...string) probe.Result {
	vs := make([]packet.VersionTag, 0, len(tags))
	for _, tag := range tags {
		v, err := packet.ParseVersionTag(tag)
		if err != nil {
			panic(err)
		}
		vs = append(vs, v)
	}
	return probe.Result{
		Target:       probe.Target{Host: host, Port: 443},
		Addr:         &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 443},
		Status:       probe.StatusSupported,
		ConnectionID: packet.ConnectionID{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 1},
		Negotiation:  packet.VersionNegotiation{SupportedVersions: vs},
		Elapsed:      42 * time.Millisecond,
	}
}

func TestLineFormats(t *testing.T) {
	if got := Line(supported("example.com", "Q039", "Q043")); got != "example.com,Q039,Q043" {
		t.Fatalf("supported: %q", got)
	}

	none := probe.Result{Target: probe.Target{Host: "quiet.example"}, Status: probe.StatusNoResponse}
	if got := Line(none); got != "quiet.example,None" {
		t.Fatalf("no response: %q", got)
	}

	transport := probe.Result{
		Target: probe.Target{Host: "down.example"},
		Status: probe.StatusTransportError,
		Err:    fmt.Errorf("%w: refused", protocol.ErrTransport),
	}
	if got := Line(transport); got != "down.example,Error received:protocol: transport error: refused" {
		t.Fatalf("transport: %q", got)
	}

	canceled := probe.Result{Target: probe.Target{Host: "late.example"}, Status: probe.StatusCanceled}
	if got := Line(canceled); got != "late.example,Canceled" {
		t.Fatalf("canceled: %q", got)
	}

	local := probe.Result{
		Target: probe.Target{Host: "any.example"},
		Status: probe.StatusLocalError,
		Err:    errors.New("entropy"),
	}
	if got := Line(local); got != "any.example,Error local:entropy" {
		t.Fatalf("local: %q", got)
	}

	malformed := probe.Result{
		Target: probe.Target{Host: "odd.example"},
		Status: probe.StatusMalformed,
		Err:    errors.New("bad"),
	}
	if got := Line(malformed); got != "odd.example,Malformed:bad" {
		t.Fatalf("malformed: %q", got)
	}
}

func TestWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON)
	if err := w.WriteAll([]probe.Result{supported("example.com", "Q046")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if rec["host"] != "example.com" || rec["status"] != "supported" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec["connection_id"] != "deadbeef00000001" {
		t.Fatalf("unexpected connection id: %v", rec["connection_id"])
	}
	if vs, ok := rec["versions"].([]any); !ok || len(vs) != 1 || vs[0] != "Q046" {
		t.Fatalf("unexpected versions: %v", rec["versions"])
	}
}

func TestWriterTextOneLinePerResult(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatText)
	err := w.WriteAll([]probe.Result{
		supported("a.example", "Q039"),
		{Target: probe.Target{Host: "b.example"}, Status: probe.StatusNoResponse},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "a.example,Q039" || lines[1] != "b.example,None" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Fatalf("empty: %v %v", f, err)
	}
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Fatalf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
