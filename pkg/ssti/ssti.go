// Package ssti detects server-side template injection. Arithmetic payloads
// reveal evaluation through their product; the config payload reveals
// framework settings.
package ssti

import (
	"context"
	"fmt"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "SSTI Scanner"

// CommonParams are probed when an endpoint has no query string.
var CommonParams = []string{"name", "template", "q", "message", "greeting"}

const remediation = "Use a safe templating engine. Never use user input directly in templates. Implement sandboxing for template rendering."

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
		Class:    finding.SSTI,
		Payloads: cfg.Payloads,
		Params:   cfg.Params,
		Match:    match,
		Describe: func(p probe.Payload, _ string) string {
			return fmt.Sprintf("Server-Side Template Injection (SSTI) detected using %s. This can lead to Remote Code Execution.", p.Description)
		},
		Remediation: remediation,
	}}
}

func match(resp *httpclient.Response, p probe.Payload, probeURL string) (string, bool) {
	evidence, ok := probe.BodyMatcher(resp, p, probeURL)
	if !ok {
		return "", false
	}
	if e := EngineFor(p.Value); e != EngineUnknown {
		evidence = fmt.Sprintf("[%s] %s", e, evidence)
	}
	return evidence, true
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.SSTI }

func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
