// Package stats accumulates per-scan request and finding statistics.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/ratelimit"
)

// Collector is safe for concurrent use. It implements httpclient.Recorder
// so a governed client can feed it directly.
type Collector struct {
	mu    sync.Mutex
	now   func() time.Time
	start time.Time
	end   time.Time

	total, successful, failed int64
	bytes                     int64
	totalLatency              time.Duration
	fastest, slowest          time.Duration

	cacheHits, cacheMisses int64
	endpoints              int
	findings               int
	byClass                map[finding.Class]int
	bySeverity             map[finding.Severity]int
	rateLimit              ratelimit.Stats
}

var _ httpclient.Recorder = (*Collector)(nil)

// New starts a collector. The scan clock starts now.
func New() *Collector {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Collector {
	return &Collector{
		now:        now,
		start:      now(),
		byClass:    make(map[finding.Class]int),
		bySeverity: make(map[finding.Severity]int),
	}
}

// RecordRequest counts one attempted request. A request is successful when
// a response was received, whatever its status.
func (c *Collector) RecordRequest(_ string, _ int, elapsed time.Duration, bytes int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if err != nil {
		c.failed++
		return
	}
	c.successful++
	c.bytes += int64(bytes)
	c.totalLatency += elapsed
	if c.successful == 1 || elapsed < c.fastest {
		c.fastest = elapsed
	}
	if elapsed > c.slowest {
		c.slowest = elapsed
	}
}

func (c *Collector) RecordCacheLookup(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
}

// RecordFinding counts v by class and severity.
func (c *Collector) RecordFinding(v *finding.Vulnerability) {
	if v == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings++
	c.byClass[v.Class]++
	c.bySeverity[v.Severity]++
}

// SetEndpoints records how many endpoints the crawl discovered.
func (c *Collector) SetEndpoints(n int) {
	c.mu.Lock()
	c.endpoints = n
	c.mu.Unlock()
}

// SetRateLimit records the final state of the scan's rate limiter.
func (c *Collector) SetRateLimit(st ratelimit.Stats) {
	c.mu.Lock()
	c.rateLimit = st
	c.mu.Unlock()
}

// Finish stops the scan clock. Later calls are no-ops.
func (c *Collector) Finish() {
	c.mu.Lock()
	if c.end.IsZero() {
		c.end = c.now()
	}
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of the statistics.
type Snapshot struct {
	TotalRequests        int64                    `json:"total_requests"`
	SuccessfulRequests   int64                    `json:"successful_requests"`
	FailedRequests       int64                    `json:"failed_requests"`
	BytesReceived        int64                    `json:"bytes_received"`
	AverageResponseTime  time.Duration            `json:"average_response_time"`
	FastestResponse      time.Duration            `json:"fastest_response"`
	SlowestResponse      time.Duration            `json:"slowest_response"`
	RequestsPerSecond    float64                  `json:"requests_per_second"`
	CacheHits            int64                    `json:"cache_hits"`
	CacheMisses          int64                    `json:"cache_misses"`
	EndpointsDiscovered  int                      `json:"endpoints_discovered"`
	VulnerabilitiesFound int                      `json:"vulnerabilities_found"`
	ByClass              map[finding.Class]int    `json:"by_class,omitempty"`
	BySeverity           map[finding.Severity]int `json:"by_severity,omitempty"`
	Duration             time.Duration            `json:"duration"`
	RateLimit            ratelimit.Stats          `json:"rate_limit"`
}

// Snapshot returns the current statistics. Before Finish the duration runs
// up to now.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.end
	if end.IsZero() {
		end = c.now()
	}
	s := Snapshot{
		TotalRequests:        c.total,
		SuccessfulRequests:   c.successful,
		FailedRequests:       c.failed,
		BytesReceived:        c.bytes,
		FastestResponse:      c.fastest,
		SlowestResponse:      c.slowest,
		CacheHits:            c.cacheHits,
		CacheMisses:          c.cacheMisses,
		EndpointsDiscovered:  c.endpoints,
		VulnerabilitiesFound: c.findings,
		ByClass:              make(map[finding.Class]int, len(c.byClass)),
		BySeverity:           make(map[finding.Severity]int, len(c.bySeverity)),
		Duration:             end.Sub(c.start),
		RateLimit:            c.rateLimit,
	}
	if c.successful > 0 {
		s.AverageResponseTime = c.totalLatency / time.Duration(c.successful)
	}
	if secs := s.Duration.Seconds(); secs > 0 {
		s.RequestsPerSecond = float64(c.total) / secs
	}
	for k, v := range c.byClass {
		s.ByClass[k] = v
	}
	for k, v := range c.bySeverity {
		s.BySeverity[k] = v
	}
	return s
}

// SuccessRate is the percentage of requests that got a response.
func (s Snapshot) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
}

// AverageBytesPerRequest over successful requests.
func (s Snapshot) AverageBytesPerRequest() int64 {
	if s.SuccessfulRequests == 0 {
		return 0
	}
	return s.BytesReceived / s.SuccessfulRequests
}

// Efficiency is findings per hundred requests.
func (s Snapshot) Efficiency() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.VulnerabilitiesFound) / float64(s.TotalRequests) * 100
}

// CacheHitRate is the percentage of cache lookups that hit.
func (s Snapshot) CacheHitRate() float64 {
	lookups := s.CacheHits + s.CacheMisses
	if lookups == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(lookups) * 100
}

// Summary renders a multi-line plain-text summary.
func (s Snapshot) Summary() string {
	var b strings.Builder
	b.WriteString("Scan Statistics:\n")
	fmt.Fprintf(&b, "Total Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(&b, "Success Rate: %.2f%%\n", s.SuccessRate())
	fmt.Fprintf(&b, "Avg Response Time: %s\n", s.AverageResponseTime.Round(time.Millisecond))
	fmt.Fprintf(&b, "Throughput: %.2f req/s\n", s.RequestsPerSecond)
	fmt.Fprintf(&b, "Cache Hit Rate: %.2f%%\n", s.CacheHitRate())
	fmt.Fprintf(&b, "Rate Limit Backoffs: %d\n", s.RateLimit.Backoffs)
	fmt.Fprintf(&b, "Endpoints Discovered: %d\n", s.EndpointsDiscovered)
	fmt.Fprintf(&b, "Vulnerabilities Found: %d\n", s.VulnerabilitiesFound)
	for _, sev := range finding.Severities {
		if n := s.BySeverity[sev]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", sev.Label(), n)
		}
	}
	fmt.Fprintf(&b, "Efficiency: %.4f%% (vulns/request)", s.Efficiency())
	return b.String()
}
