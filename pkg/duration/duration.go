// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for time-based configuration.
//
// Usage:
//
//	cfg.Timeout = duration.HTTPScanning
//	if elapsed > duration.SlowResponse {
//
// DO NOT use hardcoded time.Duration values like `2 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPFast is the request timeout of the fast profile (5s)
	HTTPFast = 5 * time.Second

	// HTTPScanning is the default request timeout (10s)
	HTTPScanning = 10 * time.Second

	// HTTPDeep is the request timeout of the deep profile (15s)
	HTTPDeep = 15 * time.Second

	// HTTPStealth is the request timeout of the stealth profile (20s)
	HTTPStealth = 20 * time.Second

	// DialTimeout bounds TCP connection establishment (10s)
	DialTimeout = 10 * time.Second

	// TLSHandshake bounds the TLS handshake (10s)
	TLSHandshake = 10 * time.Second

	// IdleConn is how long idle connections stay pooled (90s)
	IdleConn = 90 * time.Second
)

// ============================================================================
// RATE LIMITING / BACKOFF
// ============================================================================

const (
	// DefaultInterval is the request floor used when no rate is configured (100ms)
	DefaultInterval = 100 * time.Millisecond

	// DistressCooldown is imposed after a 429 or 5xx response (2s)
	DistressCooldown = 2 * time.Second

	// SlowResponse is the latency above which a response counts as slow (5s)
	SlowResponse = 5 * time.Second

	// SlowResponseCooldown is imposed after a slow response (500ms)
	SlowResponseCooldown = 500 * time.Millisecond
)

// ============================================================================
// CACHE
// ============================================================================

const (
	// CacheTTL is the default request cache entry lifetime (1h)
	CacheTTL = time.Hour
)

// ============================================================================
// SHUTDOWN
// ============================================================================

const (
	// TelemetryShutdown bounds exporter flush on exit (5s)
	TelemetryShutdown = 5 * time.Second

	// TelemetryConnect bounds the initial exporter connection (10s)
	TelemetryConnect = 10 * time.Second

	// MetricsReadHeader bounds header reads on the metrics endpoint (5s)
	MetricsReadHeader = 5 * time.Second
)
