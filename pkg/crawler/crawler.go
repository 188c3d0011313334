// Package crawler discovers the same-host endpoints of a web application.
//
// A crawl starts at a seed URL and follows a[href], form[action],
// script[src] and link[href] references up to a depth bound. Pages are
// fetched by a fixed number of workers consuming a FIFO frontier, so
// sibling links are explored concurrently and the total number of
// in-flight fetches is bounded by the configured concurrency and by the
// rate limiter behind the HTTP client. Fetch failures are logged and make
// the page a leaf; only an invalid seed or cancellation ends a crawl early.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
)

// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
var ErrInvalidSeed = errors.New("crawler: invalid seed URL")

// Config holds crawler configuration
type Config struct {
	// MaxDepth bounds link distance from the seed (seed = 0)
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxConcurrency is the number of fetch workers (minimum 1)
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// MaxPages caps discovered endpoints (0 = unlimited)
	MaxPages int `json:"max_pages,omitempty" yaml:"max_pages"`

	// Client fetches pages. In a scan this is the governed client.
	Client httpclient.Doer `json:"-" yaml:"-"`

	// Logger receives fetch failures (default slog.Default())
	Logger *slog.Logger `json:"-" yaml:"-"`

	// OnEndpoint is called once per discovered endpoint
	OnEndpoint func(Endpoint) `json:"-" yaml:"-"`
}

// DefaultConfig returns default crawler configuration
func DefaultConfig() Config {
	return Config{
		MaxDepth:       defaults.DepthStandard,
		MaxConcurrency: defaults.ConcurrencyMedium,
	}
}

// Endpoint is one discovered URL with the depth it was first reached at.
type Endpoint struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// Result is the outcome of one crawl.
type Result struct {
	Seed      string        `json:"seed"`
	Endpoints []Endpoint    `json:"endpoints"`
	Fetched   int64         `json:"fetched"`
	Failed    int64         `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// URLs returns the discovered endpoint URLs in discovery order.
func (r *Result) URLs() []string {
	out := make([]string, len(r.Endpoints))
	for i, e := range r.Endpoints {
		out[i] = e.URL
	}
	return out
}

// Crawler performs web crawling. A Crawler is stateless between crawls and
// safe for concurrent use.
type Crawler struct {
	config Config
	logger *slog.Logger
}

var _ WebCrawler = (*Crawler)(nil)

// New creates a new crawler
func New(cfg Config) *Crawler {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Client == nil {
		cfg.Client = httpclient.NewClient(httpclient.DefaultConfig())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{config: cfg, logger: logger}
}

// crawl is the state of one Crawl call.
type crawl struct {
	*Crawler
	host     string
	frontier *frontier

	// visited maps each claimed URL to its *page.
	visited sync.Map

	mu        sync.Mutex
	endpoints []Endpoint

	fetched atomic.Int64
	failed  atomic.Int64
}

// Crawl discovers endpoints reachable from seed. The seed is always part of
// a successful result, even when it cannot be fetched. When ctx is
// cancelled Crawl returns the endpoints found so far along with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, seed string) (*Result, error) {
	start := time.Now()

	u, err := Normalize(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	cr := &crawl{Crawler: c, host: u.Host, frontier: newFrontier()}
	stop := context.AfterFunc(ctx, cr.frontier.close)
	defer stop()

	cr.frontier.push(task{url: u.String(), depth: 0})

	var wg sync.WaitGroup
	for i := 0; i < c.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cr.work(ctx)
		}()
	}
	wg.Wait()

	cr.mu.Lock()
	res := &Result{
		Seed:      u.String(),
		Endpoints: cr.endpoints,
		Fetched:   cr.fetched.Load(),
		Failed:    cr.failed.Load(),
		Duration:  time.Since(start),
	}
	cr.mu.Unlock()

	c.logger.Debug("crawl finished",
		slog.String("seed", res.Seed),
		slog.Int("endpoints", len(res.Endpoints)),
		slog.Int64("fetched", res.Fetched),
		slog.Int64("failed", res.Failed),
		slog.Duration("duration", res.Duration))

	return res, ctx.Err()
}

func (cr *crawl) work(ctx context.Context) {
	for {
		t, ok := cr.frontier.next()
		if !ok {
			return
		}
		cr.visit(ctx, t)
		cr.frontier.done()
	}
}

// page is the per-URL crawl state. depth is the shallowest depth the URL
// has been reached at; links is set once the page has been fetched.
type page struct {
	mu      sync.Mutex
	depth   int
	index   int // position in endpoints, -1 until recorded or when over the page cap
	fetched bool
	links   []string
}

// claim records t as visited and discovered. It returns the new page when
// the caller must fetch it, or nil when another worker claimed it first.
// A repeat claim at a shallower depth lowers the recorded depth and, once
// the page has been fetched, expands its links again from that depth.
func (cr *crawl) claim(t task) *page {
	fresh := &page{depth: t.depth, index: -1}
	v, loaded := cr.visited.LoadOrStore(t.url, fresh)
	if loaded {
		cr.reclaim(v.(*page), t)
		return nil
	}

	cr.mu.Lock()
	if cr.config.MaxPages > 0 && len(cr.endpoints) >= cr.config.MaxPages {
		cr.mu.Unlock()
		return nil
	}
	fresh.mu.Lock()
	fresh.index = len(cr.endpoints)
	ep := Endpoint{URL: t.url, Depth: fresh.depth}
	fresh.mu.Unlock()
	cr.endpoints = append(cr.endpoints, ep)
	cr.mu.Unlock()

	if cr.config.OnEndpoint != nil {
		cr.config.OnEndpoint(ep)
	}
	return fresh
}

func (cr *crawl) reclaim(p *page, t task) {
	p.mu.Lock()
	if t.depth >= p.depth {
		p.mu.Unlock()
		return
	}
	p.depth = t.depth
	idx, fetched, links := p.index, p.fetched, p.links
	p.mu.Unlock()

	if idx >= 0 {
		cr.mu.Lock()
		if cr.endpoints[idx].Depth > t.depth {
			cr.endpoints[idx].Depth = t.depth
		}
		cr.mu.Unlock()
	}

	if fetched {
		cr.expand(t.depth, links)
	}
}

func (cr *crawl) visit(ctx context.Context, t task) {
	if ctx.Err() != nil {
		return
	}
	p := cr.claim(t)
	if p == nil {
		return
	}

	resp, err := cr.config.Client.Do(ctx, httpclient.Get(t.url))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		cr.failed.Add(1)
		cr.logger.Warn("crawl fetch failed",
			slog.String("url", t.url),
			slog.Int("depth", t.depth),
			slog.String("error", err.Error()))
		return
	}
	cr.fetched.Add(1)

	// Links are kept even at the depth bound: a shallower path to this
	// page may arrive later and expand them.
	links := cr.links(t.url, resp)

	p.mu.Lock()
	p.fetched = true
	p.links = links
	depth := p.depth
	p.mu.Unlock()

	cr.expand(depth, links)
}

// links returns the in-scope references of a fetched page.
func (cr *crawl) links(pageURL string, resp *httpclient.Response) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	switch {
	case resp.IsRedirect():
		// Redirects are not followed by the client; treat the target as a link.
		if loc := resolveURL(resp.Location(), base); loc != "" {
			links = append(links, loc)
		}
	case resp.IsHTML():
		links = ExtractLinks(resp.Body, base)
	}

	out := links[:0]
	for _, link := range links {
		if cr.inScope(link) {
			out = append(out, link)
		}
	}
	return out
}

// expand queues links found on a page at depth.
func (cr *crawl) expand(depth int, links []string) {
	if depth >= cr.config.MaxDepth {
		return
	}
	child := depth + 1
	for _, link := range links {
		if v, seen := cr.visited.Load(link); seen {
			p := v.(*page)
			p.mu.Lock()
			known := p.depth <= child
			p.mu.Unlock()
			if known {
				continue
			}
		}
		cr.frontier.push(task{url: link, depth: child})
	}
}

// inScope is exact host equality with the seed, port included.
func (cr *crawl) inScope(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Host == cr.host
}
