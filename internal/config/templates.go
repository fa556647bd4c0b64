package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes the annotated default config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o644)
}

const Template = `# quicvd probe configuration. Command line flags override these values.

# reply wait per target
timeout = "5s"

# trigger copies written per target
send_count = 1

# 0 picks an ephemeral local port; a fixed port serializes probes
bind_port = 0

recv_size = 1400

# version tag placed in the trigger; must be unsupported by the targets
version = "Q098"

# default UDP port for targets without one
port = 443

workers = 16

# "text" or "json"
output = "text"

# serve Prometheus metrics while scanning, e.g. "127.0.0.1:9469"
metrics_addr = ""

targets = []
`
