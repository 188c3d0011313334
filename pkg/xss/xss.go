// Package xss detects reflected Cross-Site Scripting by injecting markup
// into query parameters and looking for it unescaped in the response.
package xss

import (
	"context"
	"fmt"
	"strings"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "XSS Scanner"

// CommonParams are probed when an endpoint has no query string.
var CommonParams = []string{"q", "search", "query", "name", "input"}

var Payloads = []probe.Payload{
	{
		Value:       "<script>alert('XSS')</script>",
		Description: "Basic script tag",
		Patterns:    []string{"<script>", "alert"},
	},
	{
		Value:       "<img src=x onerror=alert('XSS')>",
		Description: "Image onerror handler",
		Patterns:    []string{"<img", "onerror"},
	},
	{
		Value:       `'"><script>alert(String.fromCharCode(88,83,83))</script>`,
		Description: "Attribute breakout",
		Patterns:    []string{"<script>"},
	},
	{
		Value:       "<svg/onload=alert('XSS')>",
		Description: "SVG onload handler",
		Patterns:    []string{"<svg", "onload"},
	},
	{
		Value:       "javascript:alert('XSS')",
		Description: "JavaScript URI",
		Patterns:    []string{"javascript:"},
	},
}

// Context names where a reflected payload landed.
type Context string

const (
	ContextHTML      Context = "html"
	ContextAttribute Context = "attribute"
	ContextScript    Context = "script"
	ContextUnknown   Context = "unknown"
)

// DetectContext classifies where marker first appears in body.
func DetectContext(body, marker string) Context {
	idx := strings.Index(body, marker)
	if idx < 0 {
		return ContextUnknown
	}
	before := strings.ToLower(body[:idx])
	if open := strings.LastIndex(before, "<script"); open >= 0 && !strings.Contains(before[open:], "</script") {
		return ContextScript
	}
	if lt := strings.LastIndex(before, "<"); lt > strings.LastIndex(before, ">") {
		return ContextAttribute
	}
	return ContextHTML
}

const remediation = "Encode all user input before rendering in HTML context. Use Content Security Policy (CSP). Never trust user input."

type Config struct {
	attackconfig.Base
	Params   []string
	Payloads []probe.Payload
}

func DefaultConfig() Config {
	return Config{Params: CommonParams, Payloads: Payloads}
}

// Detector implements probe.Detector for reflected XSS.
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
		Class:    finding.XSS,
		Payloads: cfg.Payloads,
		Params:   cfg.Params,
		Match:    match,
		Describe: func(p probe.Payload, _ string) string {
			return fmt.Sprintf("Cross-Site Scripting (XSS) detected using %s. The application reflects user input without proper sanitization.", p.Description)
		},
		Remediation: remediation,
	}}
}

// match adds the reflection context to the evidence when the raw payload
// itself is present.
func match(resp *httpclient.Response, p probe.Payload, probeURL string) (string, bool) {
	evidence, ok := probe.BodyMatcher(resp, p, probeURL)
	if !ok {
		return "", false
	}
	if c := DetectContext(resp.Text(), p.Value); c != ContextUnknown {
		evidence = fmt.Sprintf("[%s context] %s", c, evidence)
	}
	return evidence, true
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.XSS }

func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
