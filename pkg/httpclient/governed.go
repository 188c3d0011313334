package httpclient

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shadowprobe/shadowprobe/pkg/cache"
	"github.com/shadowprobe/shadowprobe/pkg/ratelimit"
)

const tracerName = "github.com/shadowprobe/shadowprobe/pkg/httpclient"

// Recorder receives one call per attempted request and per cache lookup.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordRequest(method string, status int, elapsed time.Duration, bytes int, err error)
	RecordCacheLookup(hit bool)
}

// Governed wraps a Doer with the scan-wide request policy: a rate limiter
// permit per request, adaptive feedback, response caching by fingerprint,
// request counting, recorders and a span per request.
type Governed struct {
	next      Doer
	limiter   *ratelimit.Limiter
	cache     *cache.Cache[*Response]
	recorders []Recorder
	logger    *slog.Logger
	tracer    trace.Tracer

	requests atomic.Int64
}

// GovernedOption configures a Governed client.
type GovernedOption func(*Governed)

// WithLimiter gates every request on l.
func WithLimiter(l *ratelimit.Limiter) GovernedOption {
	return func(g *Governed) { g.limiter = l }
}

// WithCache serves repeated requests from c.
func WithCache(c *cache.Cache[*Response]) GovernedOption {
	return func(g *Governed) { g.cache = c }
}

// WithRecorder adds a recorder. May be given more than once.
func WithRecorder(r Recorder) GovernedOption {
	return func(g *Governed) {
		if r != nil {
			g.recorders = append(g.recorders, r)
		}
	}
}

// WithGovernedLogger sets the logger.
func WithGovernedLogger(l *slog.Logger) GovernedOption {
	return func(g *Governed) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGoverned wraps next.
func NewGoverned(next Doer, opts ...GovernedOption) *Governed {
	g := &Governed{
		next:   next,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Doer = (*Governed)(nil)

// Requests returns how many requests reached the network. Cache hits are
// not counted.
func (g *Governed) Requests() int64 {
	return g.requests.Load()
}

// Do applies the policy and forwards req. The permit is held until the
// response body has been read.
func (g *Governed) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := g.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)
	defer span.End()

	var key cache.Key
	if g.cache != nil {
		key = req.Fingerprint()
		resp, hit := g.cache.Get(key)
		for _, r := range g.recorders {
			r.RecordCacheLookup(hit)
		}
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return resp, nil
		}
	}

	if g.limiter != nil {
		permit, err := g.limiter.Acquire(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "permit not acquired")
			g.logger.Debug("request abandoned", slog.String("url", req.URL), slog.String("error", err.Error()))
			return nil, err
		}
		defer permit.Release()
	}

	g.requests.Add(1)
	start := time.Now()
	resp, err := g.next.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		for _, r := range g.recorders {
			r.RecordRequest(req.Method, 0, time.Since(start), 0, err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if g.limiter != nil {
		g.limiter.Observe(resp.StatusCode, resp.Elapsed)
	}
	for _, r := range g.recorders {
		r.RecordRequest(req.Method, resp.StatusCode, resp.Elapsed, len(resp.Body), nil)
	}
	if g.cache != nil {
		g.cache.Set(key, resp)
	}
	return resp, nil
}
