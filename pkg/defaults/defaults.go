// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for runtime configuration defaults.
//
// Usage:
//
//	cfg.MaxConcurrency = defaults.ConcurrencyScan
//	req.Header.Set("Content-Type", defaults.ContentTypeXML)
//
// DO NOT use hardcoded values like `Concurrency: 50` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

import "fmt"

// ToolName is the short name used in logs, metrics and traces.
const ToolName = "shadowprobe"

// Version is the current ShadowProbe version
const Version = "0.1.0"

// UserAgent is the default User-Agent sent with every request.
var UserAgent = fmt.Sprintf("ShadowProbe/%s", Version)

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================
//
// Use these for worker pools, permit pools and parallel operations.
// ============================================================================

const (
	// ConcurrencyMinimal is for single-threaded operations (1)
	ConcurrencyMinimal = 1

	// ConcurrencyStealth is for low-noise scans (5)
	ConcurrencyStealth = 5

	// ConcurrencyMedium is for endpoint-level fan out (10)
	ConcurrencyMedium = 10

	// ConcurrencyDeep is for deep crawls with a wider frontier (30)
	ConcurrencyDeep = 30

	// ConcurrencyScan is the standard crawl/probe concurrency (50)
	ConcurrencyScan = 50

	// ConcurrencyFast is for aggressive scans (100)
	ConcurrencyFast = 100
)

// ============================================================================
// CRAWL SETTINGS
// ============================================================================

const (
	// DepthShallow is the crawl depth of the fast profile (2)
	DepthShallow = 2

	// DepthStandard is the default crawl depth (3)
	DepthStandard = 3

	// DepthDeep is the crawl depth of the deep profile (5)
	DepthDeep = 5
)

// ============================================================================
// PROBE SETTINGS
// ============================================================================

const (
	// EvidenceMaxLen bounds the body excerpt stored as evidence (300 bytes)
	EvidenceMaxLen = 300

	// MaxRedirects is the redirect budget of the probe client (0 = never follow)
	MaxRedirects = 0
)

// ============================================================================
// CONTENT TYPES
// ============================================================================

const (
	// ContentTypeXML is sent with XML entity payloads
	ContentTypeXML = "application/xml"

	// ContentTypeHTML marks a crawlable response
	ContentTypeHTML = "text/html"
)
