// Package lfi detects local file inclusion by requesting well-known system
// files through path-like query parameters.
package lfi

import (
	"context"
	"fmt"
	"strings"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "LFI Scanner"

// CommonParams are probed when an endpoint has no query string.
var CommonParams = []string{"file", "page", "path", "include", "doc", "template"}

var Payloads = []probe.Payload{
	{
		Value:       "../../../etc/passwd",
		Description: "Basic path traversal",
		Patterns:    []string{"root:", "/bin/bash"},
	},
	{
		Value:       "....//....//....//etc/passwd",
		Description: "Double encoding traversal",
		Patterns:    []string{"root:"},
	},
	{
		Value:       "/etc/passwd",
		Description: "Absolute path",
		Patterns:    []string{"root:"},
	},
	{
		Value:       "../../../windows/win.ini",
		Description: "Windows file inclusion",
		Patterns:    []string{"[fonts]", "[extensions]"},
	},
}

// File identifies which system file leaked into a response.
type File string

const (
	FilePasswd  File = "/etc/passwd"
	FileWinIni  File = "win.ini"
	FileUnknown File = ""
)

// IdentifyFile reports which known file's content appears in body.
func IdentifyFile(body string) File {
	switch {
	case strings.Contains(body, "root:x:0:0") || strings.Contains(body, "root:*:0:0"):
		return FilePasswd
	case strings.Contains(body, "[fonts]") && strings.Contains(body, "[extensions]"):
		return FileWinIni
	}
	return FileUnknown
}

const remediation = "Use a whitelist of allowed files. Never directly use user input in file paths. Implement proper access controls."

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
		Class:    finding.LFI,
		Payloads: cfg.Payloads,
		Params:   cfg.Params,
		Match:    match,
		Describe: func(p probe.Payload, _ string) string {
			return fmt.Sprintf("Local File Inclusion (LFI) detected using %s. The application may allow reading arbitrary files.", p.Description)
		},
		Remediation: remediation,
	}}
}

func match(resp *httpclient.Response, p probe.Payload, probeURL string) (string, bool) {
	evidence, ok := probe.BodyMatcher(resp, p, probeURL)
	if !ok {
		return "", false
	}
	if f := IdentifyFile(resp.Text()); f != FileUnknown {
		evidence = fmt.Sprintf("[%s] %s", f, evidence)
	}
	return evidence, true
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.LFI }

func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
