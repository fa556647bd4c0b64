package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/quicvd/internal/observability"
	"github.com/danmuck/quicvd/internal/protocol"
	"github.com/danmuck/quicvd/internal/protocol/packet"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status classifies one probe outcome.
type Status string

const (
	StatusSupported      Status = "supported"
	StatusNoResponse     Status = "no_response"
	StatusTransportError Status = "transport_error"
	StatusMalformed      Status = "malformed"
	// StatusCanceled means the caller's context ended before the probe finished.
	StatusCanceled Status = "canceled"
	// StatusLocalError means the trigger could not be built.
	StatusLocalError Status = "local_error"
)

// Result is the outcome of one exchange. Err is nil only for StatusSupported.
type Result struct {
	Target       Target
	Addr         *net.UDPAddr
	Status       Status
	ConnectionID packet.ConnectionID
	Negotiation  packet.VersionNegotiation
	Err          error
	Elapsed      time.Duration
}

// Versions renders the advertised tags in wire order.
func (r Result) Versions() []string {
	return r.Negotiation.Strings()
}

func (r Result) fail(status Status, err error) Result {
	r.Status = status
	r.Err = err
	return r
}

// Prober sends triggers and classifies replies. It holds no per-probe state.
type Prober struct {
	cfg      Config
	resolver Resolver
	rand     io.Reader
}

type Option func(*Prober)

// WithResolver replaces net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(p *Prober) {
		p.resolver = r
	}
}

// WithRand sets the connection id entropy source. It must be safe for
// concurrent use when ProbeAll runs more than one worker.
func WithRand(r io.Reader) Option {
	return func(p *Prober) {
		p.rand = r
	}
}

func NewProber(cfg Config, opts ...Option) *Prober {
	p := &Prober{
		cfg:      cfg.WithDefaults(),
		resolver: net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Prober) Config() Config {
	return p.cfg
}

// Probe runs one exchange against target and never returns a nil-status result.
func (p *Prober) Probe(ctx context.Context, target Target) Result {
	start := time.Now()
	res := p.exchange(ctx, target)
	res.Elapsed = time.Since(start)

	observability.RecordProbe(string(res.Status), res.Elapsed)
	if res.Status == StatusSupported {
		observability.RecordVersions(res.Versions())
	}

	ev := log.Debug()
	if res.Status == StatusTransportError {
		ev = log.Warn()
	}
	ev.Str("target", target.String()).
		Str("status", string(res.Status)).
		Str("conn_id", res.ConnectionID.String()).
		Dur("elapsed", res.Elapsed).
		Strs("versions", res.Versions()).
		Err(res.Err).
		Msg("probe finished")
	return res
}

type reply struct {
	data []byte
	err  error
}

func canceled(ctx context.Context, res Result) Result {
	return res.fail(StatusCanceled, fmt.Errorf("%w: %s: %w", protocol.ErrCanceled, res.Target, ctx.Err()))
}

func (p *Prober) exchange(ctx context.Context, target Target) Result {
	res := Result{Target: target}
	if ctx.Err() != nil {
		return canceled(ctx, res)
	}

	ip, err := Resolve(ctx, p.resolver, target.Host)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx, res)
		}
		return res.fail(StatusTransportError, err)
	}
	res.Addr = &net.UDPAddr{IP: ip, Port: target.Port}

	trigger, err := packet.NewTrigger(packet.WithVersion(p.cfg.Version), packet.WithRand(p.rand))
	if err != nil {
		return res.fail(StatusLocalError, fmt.Errorf("%w: build trigger: %w", protocol.ErrLocal, err))
	}
	res.ConnectionID = trigger.ConnectionID

	var laddr *net.UDPAddr
	if p.cfg.BindPort != 0 {
		laddr = &net.UDPAddr{Port: p.cfg.BindPort}
	}
	conn, err := net.DialUDP("udp4", laddr, res.Addr)
	if err != nil {
		return res.fail(StatusTransportError, fmt.Errorf("%w: dial %s: %w", protocol.ErrTransport, res.Addr, err))
	}
	defer conn.Close()

	if ctx.Err() != nil {
		return canceled(ctx, res)
	}
	wait, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	datagram := trigger.Encode()
	sent := 0
	for ; sent < p.cfg.SendCount; sent++ {
		if _, err := conn.Write(datagram); err != nil {
			observability.RecordDatagramsSent(sent)
			return res.fail(StatusTransportError, fmt.Errorf("%w: send %s: %w", protocol.ErrTransport, res.Addr, err))
		}
	}
	observability.RecordDatagramsSent(sent)
	log.Debug().
		Str("target", target.String()).
		Str("addr", res.Addr.String()).
		Str("conn_id", trigger.ConnectionID.String()).
		Int("copies", sent).
		Msg("trigger sent")

	// Buffered so the reader never blocks once conn.Close unblocks Read.
	replies := make(chan reply, 1)
	go func() {
		// One spare byte tells a full buffer apart from a truncated datagram.
		buf := make([]byte, p.cfg.RecvSize+1)
		n, err := conn.Read(buf)
		replies <- reply{data: buf[:n], err: err}
	}()

	select {
	case <-wait.Done():
		if ctx.Err() != nil {
			return canceled(ctx, res)
		}
		return res.fail(StatusNoResponse, fmt.Errorf("%w: %s after %s", protocol.ErrNoResponse, target, p.cfg.Timeout))
	case r := <-replies:
		if r.err != nil {
			return res.fail(StatusTransportError, fmt.Errorf("%w: receive %s: %w", protocol.ErrTransport, res.Addr, r.err))
		}
		if len(r.data) > p.cfg.RecvSize {
			return res.fail(StatusMalformed, fmt.Errorf("%w: more than %d bytes", protocol.ErrReplyTruncated, p.cfg.RecvSize))
		}
		vn, err := packet.ParseResponse(r.data)
		if err != nil {
			return res.fail(StatusMalformed, err)
		}
		if vn.ConnectionID != trigger.ConnectionID {
			log.Debug().
				Str("target", target.String()).
				Str("sent", trigger.ConnectionID.String()).
				Str("echoed", vn.ConnectionID.String()).
				Msg("reply connection id differs from trigger")
		}
		res.Status = StatusSupported
		res.Negotiation = vn
		return res
	}
}

// ProbeAll probes every target with at most cfg.Workers in flight and returns
// results in input order. A pinned BindPort forces one probe at a time.
// Targets not yet started when ctx ends are reported as StatusCanceled.
func (p *Prober) ProbeAll(ctx context.Context, targets []Target) []Result {
	workers := p.cfg.Workers
	if p.cfg.BindPort != 0 {
		workers = 1
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	results := make([]Result, len(targets))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.Probe(ctx, targets[i])
			}
		}()
	}
	next := 0
feed:
	for ; next < len(targets); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	for i := next; i < len(targets); i++ {
		results[i] = canceled(ctx, Result{Target: targets[i]})
	}

	if log.Logger.GetLevel() <= zerolog.DebugLevel {
		counts := map[Status]int{}
		for _, r := range results {
			counts[r.Status]++
		}
		log.Debug().
			Int("targets", len(targets)).
			Int("supported", counts[StatusSupported]).
			Int("no_response", counts[StatusNoResponse]).
			Int("transport_error", counts[StatusTransportError]).
			Int("malformed", counts[StatusMalformed]).
			Int("canceled", counts[StatusCanceled]).
			Msg("probe batch finished")
	}
	return results
}
