package attackconfig

import (
	"log/slog"

	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
)

// Base contains configuration fields shared across all detectors.
// Embed it in package-specific Config structs.
type Base struct {
	// Client sends probes. In a scan this is the governed client shared
	// with the crawler, so probes are rate limited and cached.
	Client httpclient.Doer `json:"-"`

	// Logger receives per-probe failures (default slog.Default()).
	Logger *slog.Logger `json:"-"`

	// MaxPayloads caps payloads tried per parameter (0 = all).
	MaxPayloads int `json:"max_payloads,omitempty"`

	// MaxParams caps candidate parameters per endpoint (0 = all).
	MaxParams int `json:"max_params,omitempty"`

	// OnVulnerabilityFound is called for each finding as it is produced,
	// enabling live progress output.
	OnVulnerabilityFound func(*finding.Vulnerability) `json:"-"`
}

// Validate fills zero-value fields with defaults.
// Call this in detector constructors.
func (b *Base) Validate() {
	if b.Client == nil {
		b.Client = httpclient.NewClient(httpclient.DefaultConfig())
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
}

// NotifyVulnerabilityFound calls the OnVulnerabilityFound callback if set.
func (b *Base) NotifyVulnerabilityFound(v *finding.Vulnerability) {
	if b.OnVulnerabilityFound != nil {
		b.OnVulnerabilityFound(v)
	}
}
