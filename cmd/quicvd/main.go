package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/quicvd/internal/config"
	"github.com/danmuck/quicvd/internal/logging"
	"github.com/danmuck/quicvd/internal/observability"
	"github.com/danmuck/quicvd/internal/probe"
	"github.com/danmuck/quicvd/internal/protocol/packet"
	"github.com/danmuck/quicvd/internal/report"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage: quicvd [flags] host[:port] ...")

func main() {
	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "quicvd: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "quicvd: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath  string
	timeout     time.Duration
	count       int
	bindPort    int
	port        int
	version     string
	workers     int
	output      string
	json        bool
	metricsAddr string
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *flags) {
	f := &flags{}
	fs := flag.NewFlagSet("quicvd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "optional TOML config file")
	fs.DurationVar(&f.timeout, "timeout", probe.DefaultTimeout, "reply wait per target")
	fs.IntVar(&f.count, "count", probe.DefaultSendCount, "trigger copies sent per target")
	fs.IntVar(&f.bindPort, "bind-port", 0, "fixed local UDP port (0 = ephemeral, forces one probe at a time)")
	fs.IntVar(&f.port, "port", probe.DefaultPort, "UDP port for targets given without one")
	fs.StringVar(&f.version, "version", packet.DefaultTriggerVersion.String(), "unsupported version tag placed in the trigger")
	fs.IntVar(&f.workers, "workers", probe.DefaultWorkers, "targets probed in parallel")
	fs.StringVar(&f.output, "output", string(report.FormatText), "result format: text|json")
	fs.BoolVar(&f.json, "json", false, "shorthand for -output json")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while probing")
	return fs, f
}

// resolveConfig layers explicitly set flags over the config file over defaults.
func resolveConfig(fs *flag.FlagSet, f *flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "timeout":
			cfg.Probe.Timeout = f.timeout
		case "count":
			cfg.Probe.SendCount = f.count
		case "bind-port":
			cfg.Probe.BindPort = f.bindPort
		case "port":
			cfg.Probe.Port = f.port
		case "version":
			cfg.Probe.Version, err = packet.ParseVersionTag(f.version)
		case "workers":
			cfg.Probe.Workers = f.workers
		case "output":
			cfg.Output, err = report.ParseFormat(f.output)
		case "json":
			if f.json {
				cfg.Output = report.FormatJSON
			}
		case "metrics-addr":
			cfg.MetricsAddr = f.metricsAddr
		}
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg.Targets = append(cfg.Targets, fs.Args()...)
	if len(cfg.Targets) == 0 {
		return config.Config{}, errUsage
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, f := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := resolveConfig(fs, f)
	if err != nil {
		return err
	}
	targets, err := probe.ParseTargets(cfg.Targets, cfg.Probe.Port)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if cfg.MetricsAddr != "" {
		metrics := observability.NewMetricsServer(cfg.MetricsAddr)
		errCh := metrics.Start()
		defer metrics.Close()
		go func() {
			if err, ok := <-errCh; ok {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	log.Info().
		Int("targets", len(targets)).
		Str("version", cfg.Probe.Version.String()).
		Dur("timeout", cfg.Probe.Timeout).
		Int("copies", cfg.Probe.SendCount).
		Msg("probing")

	results := probe.NewProber(cfg.Probe).ProbeAll(ctx, targets)
	return report.NewWriter(stdout, cfg.Output).WriteAll(results)
}
