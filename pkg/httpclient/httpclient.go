// Package httpclient provides the shared HTTP client factory and the
// request/response collaborator used by the crawler and the detectors.
// Connections are pooled across every package that goes through it.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/duration"
	"github.com/shadowprobe/shadowprobe/pkg/iohelper"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: 10s)
	Timeout time.Duration

	// UserAgent is sent when a request does not set one (default: ShadowProbe/<version>)
	UserAgent string

	// MaxRedirects is how many redirects are followed (0 = return the 3xx response)
	MaxRedirects int

	// MaxBodySize caps how much of a response body is read (default: 1MB)
	MaxBodySize int64

	// InsecureSkipVerify skips TLS certificate verification (default: true for security scanning)
	InsecureSkipVerify bool

	// Proxy is the HTTP/HTTPS proxy URL (optional)
	Proxy string

	// MaxIdleConns is the maximum number of idle connections across all hosts (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 50)
	MaxConnsPerHost int
}

// DefaultConfig returns defaults tuned for probing a single target.
func DefaultConfig() Config {
	return Config{
		Timeout:            duration.HTTPScanning,
		UserAgent:          defaults.UserAgent,
		MaxRedirects:       defaults.MaxRedirects,
		MaxBodySize:        iohelper.DefaultMaxBodySize,
		InsecureSkipVerify: true, // Security scanners often need this
		MaxIdleConns:       100,
		MaxConnsPerHost:    defaults.ConcurrencyScan,
	}
}

func (cfg *Config) fill() {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns a shared, pre-configured *http.Client.
// It never follows redirects; detectors need to see the 3xx response.
func Default() *http.Client {
	defaultOnce.Do(func() {
		defaultClient = New(DefaultConfig())
	})
	return defaultClient
}

// New creates a new *http.Client with the given configuration.
// Zero values take their defaults.
func New(cfg Config) *http.Client {
	cfg.fill()

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     duration.IdleConn,

		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   duration.TLSHandshake,

		DialContext: dialer.DialContext,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err == nil && proxyURL != nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		// Malformed proxy URLs are ignored; continue without proxy
	}

	maxRedirects := cfg.MaxRedirects
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if maxRedirects <= 0 || len(via) > maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
