package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/quicvd/internal/probe"
	"github.com/danmuck/quicvd/internal/report"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quicvd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTemplateMatchesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, Template))
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	want := Default()
	if cfg.Probe != want.Probe {
		t.Fatalf("template drifted from defaults: got=%+v want=%+v", cfg.Probe, want.Probe)
	}
	if cfg.Output != report.FormatText || cfg.MetricsAddr != "" || len(cfg.Targets) != 0 {
		t.Fatalf("unexpected template values: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
timeout = "1500ms"
send_count = 10
bind_port = 5467
version = "Q099"
port = 4433
workers = 2
output = "json"
metrics_addr = "127.0.0.1:9469"
targets = [" quic.example ", "", "other.example:443"]
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Probe.Timeout != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", cfg.Probe.Timeout)
	}
	if cfg.Probe.SendCount != 10 || cfg.Probe.BindPort != 5467 || cfg.Probe.Port != 4433 || cfg.Probe.Workers != 2 {
		t.Fatalf("unexpected probe config: %+v", cfg.Probe)
	}
	if cfg.Probe.Version.String() != "Q099" {
		t.Fatalf("unexpected version: %s", cfg.Probe.Version)
	}
	if cfg.Probe.RecvSize != probe.DefaultRecvSize {
		t.Fatalf("recv_size should keep default: %d", cfg.Probe.RecvSize)
	}
	if cfg.Output != report.FormatJSON {
		t.Fatalf("unexpected output: %q", cfg.Output)
	}
	if cfg.MetricsAddr != "127.0.0.1:9469" {
		t.Fatalf("unexpected metrics addr: %q", cfg.MetricsAddr)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[0] != "quic.example" {
		t.Fatalf("unexpected targets: %+v", cfg.Targets)
	}
}

func TestLoadTimeoutMillis(t *testing.T) {
	cfg, err := Load(writeConfig(t, "timeout_ms = 250\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Probe.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", cfg.Probe.Timeout)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"bad duration":  `timeout = "abc"`,
		"bad version":   `version = "Q1"`,
		"zero sends":    `send_count = 0`,
		"bad output":    `output = "xml"`,
		"bad target":    `targets = ["host:notaport"]`,
		"unknown key":   `retries = 3`,
		"tiny recv":     `recv_size = 4`,
		"port too high": `port = 70000`,
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "")
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}

func TestValidateRejectsNonPrintableVersion(t *testing.T) {
	cfg := Default()
	cfg.Probe.Version = 0x00000001
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected version error")
	}
}
