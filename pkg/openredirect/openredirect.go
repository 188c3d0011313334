// Package openredirect detects open redirects: the endpoint answers a
// redirect-like parameter with a 3xx whose Location leaves the site.
package openredirect

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "Open Redirect Scanner"

// CommonParams are probed when an endpoint has no query string.
var CommonParams = []string{"redirect", "url", "next", "return", "dest", "destination", "redir", "redirect_uri"}

var Payloads = []probe.Payload{
	{Value: "https://evil.com", Description: "Direct external redirect"},
	{Value: "//evil.com", Description: "Protocol-relative redirect"},
	{Value: `/\evil.com`, Description: "Backslash bypass"},
}

const remediation = "Use a whitelist of allowed redirect destinations. Validate all redirect URLs. Avoid using user input directly in redirect targets."

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
		Class:    finding.OpenRedirect,
		Payloads: cfg.Payloads,
		Params:   cfg.Params,
		Match:    Match,
		Describe: func(p probe.Payload, _ string) string {
			return fmt.Sprintf("Open Redirect vulnerability detected using %s. The application redirects to user-controlled URLs.", p.Description)
		},
		Remediation: remediation,
	}}
}

// Match is the redirect-target policy. The response must be a 3xx and its
// Location must be protocol-relative, a javascript: URI, contain the
// payload, or resolve to a host other than the probed endpoint's.
func Match(resp *httpclient.Response, p probe.Payload, probeURL string) (string, bool) {
	if !resp.IsRedirect() {
		return "", false
	}
	loc := resp.Location()
	if loc == "" {
		return "", false
	}
	evidence := fmt.Sprintf("Status: %d, Location: %s", resp.StatusCode, loc)

	lower := strings.ToLower(strings.TrimSpace(loc))
	if strings.HasPrefix(lower, "//") || strings.HasPrefix(lower, "javascript:") || strings.Contains(loc, p.Value) {
		return evidence, true
	}
	if leavesHost(probeURL, loc) {
		return evidence, true
	}
	return "", false
}

// leavesHost resolves loc against base and compares hostnames.
func leavesHost(base, loc string) bool {
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	l, err := url.Parse(loc)
	if err != nil {
		return false
	}
	target := b.ResolveReference(l)
	return target.Hostname() != "" && !strings.EqualFold(target.Hostname(), b.Hostname())
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.OpenRedirect }

func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
