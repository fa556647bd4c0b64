package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/quicvd/internal/probe"
	"github.com/danmuck/quicvd/internal/protocol/packet"
	"github.com/danmuck/quicvd/internal/report"
)

// Config is the resolved quicvd runtime configuration.
type Config struct {
	Probe       probe.Config
	Targets     []string
	MetricsAddr string
	Output      report.Format
}

func Default() Config {
	return Config{
		Probe:   probe.DefaultConfig(),
		Targets: []string{},
		Output:  report.FormatText,
	}
}

type fileConfig struct {
	Timeout     string   `toml:"timeout"`
	TimeoutMS   int64    `toml:"timeout_ms"`
	SendCount   int      `toml:"send_count"`
	BindPort    int      `toml:"bind_port"`
	RecvSize    int      `toml:"recv_size"`
	Version     string   `toml:"version"`
	Port        int      `toml:"port"`
	Workers     int      `toml:"workers"`
	Targets     []string `toml:"targets"`
	MetricsAddr string   `toml:"metrics_addr"`
	Output      string   `toml:"output"`
}

// Load applies only the keys present in path over Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load quicvd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load quicvd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Probe.Timeout = d
	}

	if meta.IsDefined("timeout_ms") {
		cfg.Probe.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}

	if meta.IsDefined("send_count") {
		cfg.Probe.SendCount = raw.SendCount
	}

	if meta.IsDefined("bind_port") {
		cfg.Probe.BindPort = raw.BindPort
	}

	if meta.IsDefined("recv_size") {
		cfg.Probe.RecvSize = raw.RecvSize
	}

	if meta.IsDefined("version") {
		v, err := packet.ParseVersionTag(strings.TrimSpace(raw.Version))
		if err != nil {
			return Config{}, fmt.Errorf("parse version: %w", err)
		}
		cfg.Probe.Version = v
	}

	if meta.IsDefined("port") {
		cfg.Probe.Port = raw.Port
	}

	if meta.IsDefined("workers") {
		cfg.Probe.Workers = raw.Workers
	}

	if meta.IsDefined("targets") {
		cfg.Targets = normalizeTargets(raw.Targets)
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("output") {
		f, err := report.ParseFormat(raw.Output)
		if err != nil {
			return Config{}, err
		}
		cfg.Output = f
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	p := cfg.Probe
	if p.Timeout <= 0 {
		return fmt.Errorf("quicvd config: timeout must be positive")
	}
	if p.SendCount < 1 {
		return fmt.Errorf("quicvd config: send_count must be at least 1")
	}
	if p.BindPort < 0 || p.BindPort > 65535 {
		return fmt.Errorf("quicvd config: bind_port out of range: %d", p.BindPort)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("quicvd config: port out of range: %d", p.Port)
	}
	if !p.Version.Printable() {
		return fmt.Errorf("quicvd config: version %s is not a printable tag", p.Version)
	}
	if p.RecvSize < packet.HeaderLen {
		return fmt.Errorf("quicvd config: recv_size smaller than header: %d", p.RecvSize)
	}
	if p.Workers < 1 {
		return fmt.Errorf("quicvd config: workers must be at least 1")
	}
	if _, err := probe.ParseTargets(cfg.Targets, p.Port); err != nil {
		return fmt.Errorf("quicvd config: %w", err)
	}
	return nil
}

func normalizeTargets(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, target := range in {
		v := strings.TrimSpace(target)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
