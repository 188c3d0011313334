package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/config"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/metrics"
	"github.com/shadowprobe/shadowprobe/pkg/pipeline"
	"github.com/shadowprobe/shadowprobe/pkg/tracing"
	"github.com/shadowprobe/shadowprobe/pkg/ui"
)

// CommonFlags holds flags shared by scan and crawl.
// Register binds them; explicitly set flags override the profile.
type CommonFlags struct {
	Target      string
	Profile     string
	Depth       int
	Concurrency int
	MaxPages    int
	Timeout     time.Duration
	Rate        string
	RPS         int
	UserAgent   string
	Output      string
	Verbose     bool
	Silent      bool
	NoColor     bool

	MetricsAddr  string
	OTelEndpoint string
	OTelInsecure bool

	fs *flag.FlagSet
}

// Register binds common flags to fs.
func (cf *CommonFlags) Register(fs *flag.FlagSet) {
	cf.fs = fs
	fs.StringVar(&cf.Target, "u", "", "Target URL")
	fs.StringVar(&cf.Target, "url", "", "Target URL (alias)")
	fs.StringVar(&cf.Profile, "profile", config.DefaultProfile, "Scan profile name ("+strings.Join(config.Names(), ", ")+") or YAML file")
	fs.IntVar(&cf.Depth, "depth", defaults.DepthStandard, "Maximum crawl depth (overrides profile)")
	fs.IntVar(&cf.Concurrency, "c", defaults.ConcurrencyScan, "Concurrent crawl workers (overrides profile)")
	fs.IntVar(&cf.Concurrency, "concurrency", defaults.ConcurrencyScan, "Concurrent crawl workers (alias)")
	fs.IntVar(&cf.MaxPages, "max-pages", 0, "Stop crawling after this many endpoints (0 = unlimited)")
	fs.DurationVar(&cf.Timeout, "timeout", 0, "Per-request timeout, e.g. 10s (overrides profile)")
	fs.StringVar(&cf.Rate, "rate", "", "Rate limit preset: fast, balanced, stealth, custom (overrides profile)")
	fs.IntVar(&cf.RPS, "rps", 0, "Requests per second for -rate custom")
	fs.StringVar(&cf.UserAgent, "user-agent", "", "User-Agent header (default "+defaults.UserAgent+")")
	fs.StringVar(&cf.Output, "o", "", "Write the JSON report to this file")
	fs.StringVar(&cf.Output, "output", "", "Write the JSON report to this file (alias)")
	fs.BoolVar(&cf.Verbose, "v", false, "Verbose output")
	fs.BoolVar(&cf.Verbose, "verbose", false, "Verbose output (alias)")
	fs.BoolVar(&cf.Silent, "silent", false, "Suppress banner and progress output")
	fs.BoolVar(&cf.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&cf.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	fs.StringVar(&cf.OTelEndpoint, "otel-endpoint", "", "OpenTelemetry OTLP gRPC endpoint")
	fs.BoolVar(&cf.OTelInsecure, "otel-insecure", false, "Use a plaintext connection to the OTLP endpoint")
}

func (cf *CommonFlags) set() map[string]bool {
	set := make(map[string]bool)
	cf.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// LoadProfile loads the named profile and applies explicitly set flags on top.
func (cf *CommonFlags) LoadProfile() (*config.Profile, error) {
	p, err := config.Load(cf.Profile)
	if err != nil {
		return nil, err
	}

	set := cf.set()
	if set["depth"] {
		p.Depth = cf.Depth
	}
	if set["c"] || set["concurrency"] {
		p.Concurrency = cf.Concurrency
	}
	if set["max-pages"] {
		p.MaxPages = cf.MaxPages
	}
	if set["timeout"] {
		p.Timeout = cf.Timeout
	}
	if set["rate"] {
		p.Rate = cf.Rate
	}
	if set["rps"] {
		p.RPS = cf.RPS
		if !set["rate"] {
			p.Rate = "custom"
		}
	}
	if cf.UserAgent != "" {
		p.UserAgent = cf.UserAgent
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Options resolves the profile and builds pipeline options for the target.
func (cf *CommonFlags) Options() (pipeline.Options, *config.Profile, error) {
	if cf.Target == "" {
		return pipeline.Options{}, nil, fmt.Errorf("%w: target URL (-u)", config.ErrMissingRequired)
	}
	p, err := cf.LoadProfile()
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	opts, err := pipeline.FromProfile(cf.Target, p)
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	opts.Logger = cf.Logger()
	return opts, p, nil
}

// Logger returns a text logger on stderr. Verbose enables debug records;
// otherwise only warnings and errors are shown so the console stays readable.
func (cf *CommonFlags) Logger() *slog.Logger {
	level := slog.LevelWarn
	if cf.Verbose {
		level = slog.LevelDebug
	}
	if cf.Silent {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Telemetry starts the optional metrics endpoint and trace exporter. The
// returned function flushes traces and must be called before exit.
func (cf *CommonFlags) Telemetry(ctx context.Context, logger *slog.Logger) (*metrics.Collector, func(), error) {
	var m *metrics.Collector
	if cf.MetricsAddr != "" {
		m = metrics.New()
		addr, err := m.Serve(ctx, cf.MetricsAddr, logger)
		if err != nil {
			return nil, func() {}, err
		}
		ui.PrintInfo("metrics on http://" + addr.String() + "/metrics")
	}

	shutdown, err := tracing.Setup(ctx, tracing.Options{
		Endpoint: cf.OTelEndpoint,
		Insecure: cf.OTelInsecure,
	})
	if err != nil {
		return nil, func() {}, err
	}
	return m, func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("trace flush failed", slog.String("error", err.Error()))
		}
	}, nil
}

// configBanner lists the effective settings for the banner.
func configBanner(target string, p *config.Profile) []ui.ConfigOption {
	opts := []ui.ConfigOption{
		{Name: "Target", Value: target},
		{Name: "Profile", Value: p.Name},
		{Name: "Depth", Value: strconv.Itoa(p.Depth)},
		{Name: "Concurrency", Value: strconv.Itoa(p.Concurrency)},
		{Name: "Timeout", Value: p.Timeout.String()},
		{Name: "Rate Limit", Value: p.Rate},
	}
	if p.MaxPages > 0 {
		opts = append(opts, ui.ConfigOption{Name: "Max Pages", Value: strconv.Itoa(p.MaxPages)})
	}
	if len(p.Detectors) > 0 {
		opts = append(opts, ui.ConfigOption{Name: "Detectors", Value: strings.Join(p.Detectors, ",")})
	}
	return opts
}
