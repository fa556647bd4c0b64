// Package report renders probe results for stdout.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/quicvd/internal/probe"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var ErrUnknownFormat = errors.New("report: unknown format")

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Line renders host,ver1,ver2 / host,None / host,Canceled / host,Error received:... /
// host,Error local:... / host,Malformed:...
func Line(r probe.Result) string {
	var b strings.Builder
	b.WriteString(r.Target.Host)
	switch r.Status {
	case probe.StatusSupported:
		for _, v := range r.Versions() {
			b.WriteByte(',')
			b.WriteString(v)
		}
	case probe.StatusNoResponse:
		b.WriteString(",None")
	case probe.StatusCanceled:
		b.WriteString(",Canceled")
	case probe.StatusLocalError:
		b.WriteString(",Error local:")
		b.WriteString(errString(r.Err))
	case probe.StatusMalformed:
		b.WriteString(",Malformed:")
		b.WriteString(errString(r.Err))
	default:
		b.WriteString(",Error received:")
		b.WriteString(errString(r.Err))
	}
	return b.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type record struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	Addr         string   `json:"addr,omitempty"`
	Status       string   `json:"status"`
	ConnectionID string   `json:"connection_id,omitempty"`
	Versions     []string `json:"versions,omitempty"`
	Error        string   `json:"error,omitempty"`
	ElapsedMS    int64    `json:"elapsed_ms"`
}

func toRecord(r probe.Result) record {
	rec := record{
		Host:      r.Target.Host,
		Port:      r.Target.Port,
		Status:    string(r.Status),
		Versions:  r.Versions(),
		Error:     errString(r.Err),
		ElapsedMS: r.Elapsed.Milliseconds(),
	}
	if r.Addr != nil {
		rec.Addr = r.Addr.String()
		rec.ConnectionID = r.ConnectionID.String()
	}
	return rec
}

// Writer serializes results to one line each. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
	enc    *json.Encoder
}

func NewWriter(out io.Writer, format Format) *Writer {
	return &Writer{
		out:    out,
		format: format,
		enc:    json.NewEncoder(out),
	}
}

func (w *Writer) Write(r probe.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.format == FormatJSON {
		return w.enc.Encode(toRecord(r))
	}
	_, err := fmt.Fprintln(w.out, Line(r))
	return err
}

func (w *Writer) WriteAll(results []probe.Result) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
