package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/quicvd/internal/protocol"
)

var ErrInvalidTarget = errors.New("probe: invalid target")

// Target is one host to probe. Host is reported verbatim in results.
type Target struct {
	Host string
	Port int
}

func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// ParseTarget accepts "host" or "host:port".
func ParseTarget(raw string, defaultPort int) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	if !strings.Contains(raw, ":") {
		return Target{Host: raw, Port: defaultPort}, nil
	}
	host, portRaw, err := net.SplitHostPort(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, raw, err)
	}
	if host == "" {
		return Target{}, fmt.Errorf("%w: %q: missing host", ErrInvalidTarget, raw)
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil || port <= 0 || port > 65535 {
		return Target{}, fmt.Errorf("%w: %q: bad port", ErrInvalidTarget, raw)
	}
	return Target{Host: host, Port: port}, nil
}

// ParseTargets parses every entry, failing on the first bad one.
func ParseTargets(raw []string, defaultPort int) ([]Target, error) {
	out := make([]Target, 0, len(raw))
	for _, r := range raw {
		t, err := ParseTarget(r, defaultPort)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Resolver is the subset of *net.Resolver used for lookups.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Resolve returns the first IPv4 address for host. IP literals skip the lookup.
func Resolve(ctx context.Context, r Resolver, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%w: %s is not ipv4", protocol.ErrResolve, host)
	}
	if r == nil {
		r = net.DefaultResolver
	}
	ips, err := r.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", protocol.ErrResolve, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s: no ipv4 addresses", protocol.ErrResolve, host)
	}
	return ips[0], nil
}
