// Package pipeline wires one scan end to end: a governed HTTP client
// (rate limiter, request cache, recorders) shared by the crawler and every
// detector, the crawl itself, then the detector engine fanned out over the
// discovered endpoints.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/cache"
	"github.com/shadowprobe/shadowprobe/pkg/config"
	"github.com/shadowprobe/shadowprobe/pkg/crawler"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/duration"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/metrics"
	"github.com/shadowprobe/shadowprobe/pkg/ratelimit"
	"github.com/shadowprobe/shadowprobe/pkg/scanner"
	"github.com/shadowprobe/shadowprobe/pkg/stats"
	"github.com/shadowprobe/shadowprobe/pkg/workerpool"
)

const tracerName = "github.com/shadowprobe/shadowprobe/pkg/pipeline"

// Options configures a scan. Zero values take the balanced profile.
type Options struct {
	// Target is the seed URL (absolute http or https).
	Target string

	Depth       int
	Concurrency int
	MaxPages    int
	Timeout     time.Duration
	UserAgent   string

	// ScanWorkers bounds how many endpoints are scanned at once
	// (default defaults.ConcurrencyMedium).
	ScanWorkers int

	// RateLimit configures the shared limiter (default: balanced preset).
	RateLimit *ratelimit.Config

	// CacheTTL is the request cache entry lifetime (default duration.CacheTTL).
	CacheTTL time.Duration

	// Classes restricts detectors to these classes (empty = all).
	Classes []finding.Class

	// SkipScan stops after the crawl; the report then lists endpoints only.
	SkipScan bool

	// Transport sends requests (default: a pooled httpclient.Client).
	Transport httpclient.Doer

	// Stats and Metrics receive request, finding and endpoint counts.
	// Stats is optional; pass a collector to read it after Run.
	Stats   *stats.Collector
	Metrics *metrics.Collector

	Logger *slog.Logger

	OnEndpoint      func(crawler.Endpoint)
	OnVulnerability func(*finding.Vulnerability)
}

// FromProfile builds Options for target from a scan profile.
func FromProfile(target string, p *config.Profile) (Options, error) {
	rl, err := p.RateLimit()
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	classes, err := p.Classes()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Target:      target,
		Depth:       p.Depth,
		Concurrency: p.Concurrency,
		MaxPages:    p.MaxPages,
		Timeout:     p.Timeout,
		UserAgent:   p.UserAgent,
		RateLimit:   rl,
		Classes:     classes,
	}, nil
}

func (o *Options) fill() {
	def := config.Default()
	if o.Depth < 0 {
		o.Depth = 0
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaults.UserAgent
	}
	if o.ScanWorkers <= 0 {
		o.ScanWorkers = defaults.ConcurrencyMedium
	}
	if o.RateLimit == nil {
		o.RateLimit = ratelimit.DefaultConfig()
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = duration.CacheTTL
	}
	if o.Stats == nil {
		o.Stats = stats.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// ValidateTarget checks that target is an absolute http(s) URL with a host.
func ValidateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %w", finding.ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", finding.ErrInvalidTarget, target)
	}
	return nil
}

// Run crawls opts.Target and scans every discovered endpoint.
//
// The returned report is never nil. An invalid target yields a Failed
// report and an error wrapping finding.ErrInvalidTarget. Cancellation
// yields a Cancelled report holding the endpoints and findings gathered so
// far and an error wrapping finding.ErrScanCancelled. A scan that finds
// nothing is still Completed.
func Run(ctx context.Context, opts Options) (*finding.Report, error) {
	opts.fill()
	logger := opts.Logger

	report := &finding.Report{
		ScanID:          uuid.NewString(),
		Target:          opts.Target,
		StartTime:       time.Now().UTC(),
		Status:          finding.StatusRunning,
		Vulnerabilities: []*finding.Vulnerability{},
		Endpoints:       []string{},
	}

	if err := ValidateTarget(opts.Target); err != nil {
		return fail(report, opts, err), err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("scan.id", report.ScanID),
		attribute.String("url.full", opts.Target),
	)
	defer span.End()

	client, limiter := governedClient(opts)
	logger.Info("scan started",
		slog.String("scan_id", report.ScanID),
		slog.String("target", opts.Target),
		slog.Int("depth", opts.Depth),
		slog.Int("concurrency", opts.Concurrency))

	c := crawler.New(crawler.Config{
		MaxDepth:       opts.Depth,
		MaxConcurrency: opts.Concurrency,
		MaxPages:       opts.MaxPages,
		Client:         client,
		Logger:         logger,
		OnEndpoint:     opts.OnEndpoint,
	})
	res, err := c.Crawl(ctx, opts.Target)
	if res == nil {
		err = fmt.Errorf("%w: %w", finding.ErrInvalidTarget, err)
		span.SetStatus(codes.Error, err.Error())
		return fail(report, opts, err), err
	}
	report.Endpoints = res.URLs()
	opts.Stats.SetEndpoints(len(report.Endpoints))
	if opts.Metrics != nil {
		opts.Metrics.SetEndpoints(len(report.Endpoints))
	}
	logger.Info("crawl complete",
		slog.Int("endpoints", len(report.Endpoints)),
		slog.Int64("fetched", res.Fetched),
		slog.Int64("failed", res.Failed))

	if err == nil && !opts.SkipScan {
		report.Vulnerabilities, err = scan(ctx, opts, client, report.Endpoints)
	}
	for _, v := range report.Vulnerabilities {
		opts.Stats.RecordFinding(v)
		if opts.Metrics != nil {
			opts.Metrics.RecordFinding(v)
		}
	}

	finish(report, opts, client, limiter)
	span.SetAttributes(
		attribute.Int("scan.endpoints", len(report.Endpoints)),
		attribute.Int("scan.findings", len(report.Vulnerabilities)),
		attribute.Int64("scan.requests", report.TotalRequests),
	)

	if err != nil {
		report.Status = finding.StatusCancelled
		report.Error = err.Error()
		span.SetStatus(codes.Error, "cancelled")
		logger.Warn("scan cancelled",
			slog.String("scan_id", report.ScanID),
			slog.Int("endpoints", len(report.Endpoints)),
			slog.Int("findings", len(report.Vulnerabilities)))
		return report, fmt.Errorf("%w: %w", finding.ErrScanCancelled, err)
	}

	report.Status = finding.StatusCompleted
	logger.Info("scan complete",
		slog.String("scan_id", report.ScanID),
		slog.Int("findings", len(report.Vulnerabilities)),
		slog.Int64("requests", report.TotalRequests),
		slog.Duration("duration", report.Duration()))
	return report, nil
}

func governedClient(opts Options) (*httpclient.Governed, *ratelimit.Limiter) {
	transport := opts.Transport
	if transport == nil {
		cfg := httpclient.DefaultConfig()
		cfg.Timeout = opts.Timeout
		cfg.UserAgent = opts.UserAgent
		cfg.MaxConnsPerHost = opts.Concurrency
		transport = httpclient.NewClient(cfg, httpclient.WithLogger(opts.Logger))
	}

	rl := *opts.RateLimit
	rl.Logger = opts.Logger
	if opts.Metrics != nil {
		next := rl.OnBackoff
		rl.OnBackoff = func(reason string, d time.Duration) {
			opts.Metrics.RecordBackoff(reason, d)
			if next != nil {
				next(reason, d)
			}
		}
	}

	limiter := ratelimit.New(&rl)
	gopts := []httpclient.GovernedOption{
		httpclient.WithLimiter(limiter),
		httpclient.WithCache(cache.New[*httpclient.Response](cache.Config{TTL: opts.CacheTTL})),
		httpclient.WithRecorder(opts.Stats),
		httpclient.WithGovernedLogger(opts.Logger),
	}
	if opts.Metrics != nil {
		gopts = append(gopts, httpclient.WithRecorder(opts.Metrics))
	}
	return httpclient.NewGoverned(transport, gopts...), limiter
}

// scan runs the engine over endpoints on a bounded pool. Findings are
// concatenated in endpoint discovery order whatever order workers finish in.
func scan(ctx context.Context, opts Options, client httpclient.Doer, endpoints []string) ([]*finding.Vulnerability, error) {
	engine := scanner.New(attackconfig.Base{
		Client:               client,
		Logger:               opts.Logger,
		OnVulnerabilityFound: opts.OnVulnerability,
	}).Only(opts.Classes...)

	pool := workerpool.New(opts.ScanWorkers, workerpool.WithLogger(opts.Logger))
	defer pool.Close()

	perEndpoint, err := workerpool.MapContext(ctx, pool, endpoints, engine.ScanURL)

	vulns := []*finding.Vulnerability{}
	for _, vs := range perEndpoint {
		vulns = append(vulns, vs...)
	}
	return vulns, err
}

func finish(report *finding.Report, opts Options, client *httpclient.Governed, limiter *ratelimit.Limiter) {
	report.EndTime = time.Now().UTC()
	if client != nil {
		report.TotalRequests = client.Requests()
	}
	if limiter != nil {
		opts.Stats.SetRateLimit(limiter.Stats())
	}
	opts.Stats.Finish()
	if opts.Metrics != nil {
		opts.Metrics.SetScanDuration(report.Duration())
	}
}

func fail(report *finding.Report, opts Options, err error) *finding.Report {
	finish(report, opts, nil, nil)
	report.Status = finding.StatusFailed
	report.Error = err.Error()
	opts.Logger.Error("scan failed", slog.String("target", opts.Target), slog.String("error", err.Error()))
	return report
}
