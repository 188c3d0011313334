// Package cmdi detects OS command injection through query parameters.
package cmdi

import (
	"context"
	"fmt"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "Command Injection Scanner"

var CommonParams = []string{"cmd", "exec", "command", "host", "ip", "ping"}

// Payloads chain or substitute a shell command. The substitution payloads
// carry no patterns since whoami output is not predictable.
var Payloads = []probe.Payload{
	{Value: "; ls -la", Description: "Command chaining", Patterns: []string{"total", "drwx"}},
	{Value: "| whoami", Description: "Pipe command"},
	{Value: "`whoami`", Description: "Backtick command substitution"},
	{Value: "$(whoami)", Description: "Dollar command substitution"},
	{Value: "&& id", Description: "AND command chaining", Patterns: []string{"uid=", "gid="}},
}

const remediation = "Avoid invoking shell commands with user input. Use language APIs with argument arrays instead of a shell. Validate input against a strict allowlist."

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
		Class:    finding.CommandInjection,
		Payloads: cfg.Payloads,
		Params:   cfg.Params,
		Describe: func(p probe.Payload, _ string) string {
			return fmt.Sprintf("Command Injection detected using %s. The application passes user input to a system shell.", p.Description)
		},
		Remediation: remediation,
	}}
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.CommandInjection }

func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
