package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/cache"
	"github.com/shadowprobe/shadowprobe/pkg/iohelper"
)

// Request is one outbound HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Get builds a GET request for rawURL.
func Get(rawURL string) *Request {
	return &Request{Method: http.MethodGet, URL: rawURL}
}

// Post builds a POST request with the given content type and body.
func Post(rawURL, contentType string, body []byte) *Request {
	h := make(http.Header)
	h.Set("Content-Type", contentType)
	return &Request{Method: http.MethodPost, URL: rawURL, Header: h, Body: body}
}

// WithHeader sets a header and returns the request for chaining.
func (r *Request) WithHeader(key, value string) *Request {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// Fingerprint returns the request cache key. Headers are canonicalized and
// sorted so that equal requests hash equally regardless of insertion order.
func (r *Request) Fingerprint() cache.Key {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, http.CanonicalHeaderKey(k))
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strings.Join(r.Header.Values(k), ","))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.Write(r.Body)
	return cache.Fingerprint(method, r.URL, b.String())
}

// Response is a fully read HTTP response. Header lookups are
// case-insensitive through http.Header.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// ContentType returns the media type without parameters, lowercased.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return mt
}

// IsHTML reports whether the response declares an HTML or XHTML body.
func (r *Response) IsHTML() bool {
	switch r.ContentType() {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// IsRedirect reports whether the status is 3xx.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// Location returns the Location header.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// Doer sends one request. Implementations must honor ctx for the whole
// exchange and return a transport error (see Classify) on network failure.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Client is the Doer backed by a pooled *http.Client.
type Client struct {
	http        *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for transport failures.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	cfg.fill()
	c := &Client{
		http:        New(cfg),
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Doer = (*Client)(nil)

// Do sends req and reads the response body up to the configured limit.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		err = Classify(err)
		c.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("url", req.URL),
			slog.String("error", err.Error()))
		return nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	data, err := iohelper.ReadBody(resp.Body, c.maxBodySize)
	if err != nil {
		return nil, Classify(err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Elapsed:    time.Since(start),
	}, nil
}
