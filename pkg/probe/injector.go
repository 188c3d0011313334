package probe

import (
	"context"
	"log/slog"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
)

// Matcher is a class-specific match policy. It inspects the response to
// one probe and returns the evidence to record on a hit.
type Matcher func(resp *httpclient.Response, p Payload, probeURL string) (evidence string, ok bool)

// BodyMatcher is the substring policy: any payload pattern occurring in the
// body is a hit, and the evidence is a bounded body excerpt.
func BodyMatcher(resp *httpclient.Response, p Payload, _ string) (string, bool) {
	body := resp.Text()
	if _, ok := ContainsAny(body, p.Patterns); !ok {
		return "", false
	}
	return Excerpt(body, defaults.EvidenceMaxLen), true
}

// Injector runs the parameter-injection probe algorithm for one class.
type Injector struct {
	attackconfig.Base

	// Class tags produced findings.
	Class finding.Class

	// Severity overrides the class default when set.
	Severity finding.Severity

	// Payloads are tried in order for every candidate parameter.
	Payloads []Payload

	// Params are probed when the endpoint carries no query parameters.
	Params []string

	// Match decides hits (default BodyMatcher).
	Match Matcher

	// Describe renders the finding description.
	Describe func(p Payload, param string) string

	// Remediation is copied to every finding.
	Remediation string
}

// Run probes endpoint with every (parameter, payload) pair and returns the
// findings in probe order. It stops early only when ctx is done.
// The embedded Base must have been validated.
func (in *Injector) Run(ctx context.Context, endpoint string) []*finding.Vulnerability {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	match := in.Match
	if match == nil {
		match = BodyMatcher
	}

	params := Limit(CandidateParams(endpoint, in.Params), in.MaxParams)
	payloads := Limit(in.Payloads, in.MaxPayloads)

	var out []*finding.Vulnerability
	for _, param := range params {
		for _, p := range payloads {
			if ctx.Err() != nil {
				return out
			}

			probeURL, err := InjectParam(endpoint, param, p.Value)
			if err != nil {
				logger.Debug("endpoint not probeable",
					slog.String("class", string(in.Class)),
					slog.String("url", endpoint),
					slog.String("error", err.Error()))
				return out
			}

			resp, err := in.Client.Do(ctx, httpclient.Get(probeURL))
			if err != nil {
				if ctx.Err() != nil {
					return out
				}
				logger.Debug("probe failed",
					slog.String("class", string(in.Class)),
					slog.String("url", probeURL),
					slog.String("param", param),
					slog.String("error", err.Error()))
				continue
			}

			evidence, ok := match(resp, p, probeURL)
			if !ok {
				continue
			}

			v := finding.New(in.Class, probeURL)
			if in.Severity != "" {
				v.Severity = in.Severity
			}
			v.Parameter = param
			v.Payload = p.Value
			v.Evidence = evidence
			v.Remediation = in.Remediation
			v.PoC = PoC{URL: probeURL}.String()
			if in.Describe != nil {
				v.Description = in.Describe(p, param)
			}

			out = append(out, v)
			in.NotifyVulnerabilityFound(v)
		}
	}
	return out
}
