package probe

import (
	"time"

	"github.com/danmuck/quicvd/internal/protocol/packet"
)

const (
	DefaultPort      = 443
	DefaultTimeout   = 5 * time.Second
	DefaultSendCount = 1
	DefaultRecvSize  = 1400
	DefaultWorkers   = 16
)

// Config defines per-probe socket and timing behavior.
type Config struct {
	Port    int
	Timeout time.Duration
	// SendCount copies of the trigger are written back to back.
	SendCount int
	// BindPort pins the local UDP port; 0 picks an ephemeral port.
	BindPort int
	RecvSize int
	Version  packet.VersionTag
	Workers  int
}

func DefaultConfig() Config {
	return Config{
		Port:      DefaultPort,
		Timeout:   DefaultTimeout,
		SendCount: DefaultSendCount,
		BindPort:  0,
		RecvSize:  DefaultRecvSize,
		Version:   packet.DefaultTriggerVersion,
		Workers:   DefaultWorkers,
	}
}

// WithDefaults fills zero or out-of-range fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = d.Port
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.SendCount <= 0 {
		c.SendCount = d.SendCount
	}
	if c.BindPort < 0 || c.BindPort > 65535 {
		c.BindPort = d.BindPort
	}
	if c.RecvSize <= 0 {
		c.RecvSize = d.RecvSize
	}
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}
