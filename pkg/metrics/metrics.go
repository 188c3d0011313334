// Package metrics exposes scan telemetry in Prometheus format.
//
// A Collector owns a private registry so several scans in one process (or
// tests) never collide on the global default registry. It implements
// httpclient.Recorder and is attached to the governed client alongside the
// stats collector.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/duration"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
)

// Namespace prefixes every metric name.
const Namespace = defaults.ToolName

// Collector holds the scan metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	responseTime  *prometheus.HistogramVec
	bytesTotal    prometheus.Counter
	cacheLookups  *prometheus.CounterVec
	backoffsTotal *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	endpoints     prometheus.Gauge
	scanDuration  prometheus.Gauge
}

var _ httpclient.Recorder = (*Collector)(nil)

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "HTTP requests sent to the target, by method and status code.",
		}, []string{"method", "code"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "request_errors_total",
			Help:      "Requests that failed at the transport level, by kind.",
		}, []string{"kind"}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "response_time_seconds",
			Help:      "Response time distribution in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method"}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "response_bytes_total",
			Help:      "Response body bytes received.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_lookups_total",
			Help:      "Request cache lookups, by result.",
		}, []string{"result"}),
		backoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ratelimit_backoffs_total",
			Help:      "Adaptive rate limiter cooldowns, by reason.",
		}, []string{"reason"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "findings_total",
			Help:      "Vulnerabilities found, by class and severity.",
		}, []string{"class", "severity"}),
		endpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "endpoints_discovered",
			Help:      "Endpoints discovered by the crawler.",
		}),
		scanDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of the last completed scan.",
		}),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.errorsTotal,
		c.responseTime,
		c.bytesTotal,
		c.cacheLookups,
		c.backoffsTotal,
		c.findingsTotal,
		c.endpoints,
		c.scanDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordRequest(method string, status int, elapsed time.Duration, bytes int, err error) {
	if err != nil {
		c.errorsTotal.WithLabelValues(errorKind(err)).Inc()
		return
	}
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.responseTime.WithLabelValues(method).Observe(elapsed.Seconds())
	c.bytesTotal.Add(float64(bytes))
}

func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// RecordBackoff matches ratelimit.Config.OnBackoff.
func (c *Collector) RecordBackoff(reason string, _ time.Duration) {
	c.backoffsTotal.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordFinding(v *finding.Vulnerability) {
	if v == nil {
		return
	}
	c.findingsTotal.WithLabelValues(string(v.Class), string(v.Severity)).Inc()
}

func (c *Collector) SetEndpoints(n int) {
	c.endpoints.Set(float64(n))
}

func (c *Collector) SetScanDuration(d time.Duration) {
	c.scanDuration.Set(d.Seconds())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, httpclient.ErrDNS):
		return "dns"
	case errors.Is(err, httpclient.ErrConnect):
		return "connect"
	case errors.Is(err, httpclient.ErrTLS):
		return "tls"
	case errors.Is(err, httpclient.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes /metrics on addr until ctx is done. It returns once the
// listener is bound; serve errors are logged.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) (net.Addr, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: duration.MetricsReadHeader,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.TelemetryShutdown)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", slog.String("addr", ln.Addr().String()))
	return ln.Addr(), nil
}
