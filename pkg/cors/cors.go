// Package cors detects CORS misconfiguration by sending requests with
// foreign Origin headers and inspecting the Access-Control-Allow-* response
// headers. Unlike the parameter-based detectors its severity depends on
// the response, so the match policy and severity rule live together here.
package cors

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "CORS Misconfiguration Scanner"

// Origins are probed against every endpoint, in order.
var Origins = []string{
	"https://evil.com",
	"http://attacker.com",
	"null",
	"http://localhost",
}

const remediation = "Use a whitelist of allowed origins. Never use wildcard (*) with credentials. Properly validate the Origin header."

// Config configures the detector.
type Config struct {
	attackconfig.Base

	// Origins overrides the probed origins.
	Origins []string

	// SuffixOrigin adds a probe where the target's registrable domain is
	// used as a subdomain of an attacker domain, catching prefix-match
	// origin validation.
	SuffixOrigin bool
}

func DefaultConfig() Config {
	return Config{Origins: Origins, SuffixOrigin: true}
}

// Detector implements probe.Detector for CORS misconfiguration.
type Detector struct {
	config Config
}

var _ probe.Detector = (*Detector)(nil)

func New(cfg Config) *Detector {
	cfg.Validate()
	if len(cfg.Origins) == 0 {
		cfg.Origins = Origins
	}
	return &Detector{config: cfg}
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.CORS }

// Scan sends one request per origin and reports each permissive response.
func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	origins := d.config.Origins
	if d.config.SuffixOrigin {
		if o := SuffixOrigin(endpoint); o != "" {
			origins = append(append([]string(nil), origins...), o)
		}
	}
	origins = probe.Limit(origins, d.config.MaxPayloads)

	var out []*finding.Vulnerability
	for _, origin := range origins {
		if ctx.Err() != nil {
			return out
		}

		resp, err := d.config.Client.Do(ctx, httpclient.Get(endpoint).WithHeader("Origin", origin))
		if err != nil {
			if ctx.Err() != nil {
				return out
			}
			d.config.Logger.Debug("cors probe failed",
				slog.String("url", endpoint),
				slog.String("origin", origin),
				slog.String("error", err.Error()))
			continue
		}

		v := Evaluate(endpoint, origin, resp)
		if v == nil {
			continue
		}
		out = append(out, v)
		d.config.NotifyVulnerabilityFound(v)
	}
	return out
}

// Evaluate applies the header-reflection policy to one response and
// returns the finding, or nil when the response is not permissive.
func Evaluate(endpoint, origin string, resp *httpclient.Response) *finding.Vulnerability {
	acao := strings.TrimSpace(resp.Header.Get("Access-Control-Allow-Origin"))
	if acao == "" {
		return nil
	}
	credentials := strings.EqualFold(strings.TrimSpace(resp.Header.Get("Access-Control-Allow-Credentials")), "true")

	sev, ok := Assess(acao, origin, credentials)
	if !ok {
		return nil
	}

	v := finding.New(finding.CORS, endpoint)
	v.Severity = sev
	v.Payload = "Origin: " + origin
	v.Evidence = fmt.Sprintf("Access-Control-Allow-Origin: %s\nAccess-Control-Allow-Credentials: %t", acao, credentials)
	v.Description = describe(acao, origin, credentials)
	v.Remediation = remediation
	v.PoC = probe.PoC{URL: endpoint, HeaderName: "Origin", HeaderValue: origin}.String()
	return v
}

// Assess decides whether an Access-Control-Allow-Origin value is permissive
// for the probed origin and at which severity. Credentials escalate any
// permissive response to Critical; otherwise a wildcard or null grant is
// High and a reflected origin is Medium. A reflection must echo the probed
// origin exactly; a value that merely contains it is a fixed grant.
func Assess(acao, origin string, credentials bool) (finding.Severity, bool) {
	open := acao == "*" || acao == "null"
	reflected := strings.EqualFold(acao, origin)
	if !open && !reflected {
		return "", false
	}
	switch {
	case credentials:
		return finding.Critical, true
	case open:
		return finding.High, true
	default:
		return finding.Medium, true
	}
}

func describe(acao, origin string, credentials bool) string {
	switch {
	case credentials && (acao == "*" || acao == origin):
		return fmt.Sprintf("Critical CORS misconfiguration: Access-Control-Allow-Origin is '%s' with credentials enabled. This allows any origin to access sensitive data.", acao)
	case acao == "*":
		return "CORS misconfiguration: Access-Control-Allow-Origin is set to wildcard (*), allowing any origin to access resources."
	default:
		return fmt.Sprintf("CORS misconfiguration: Origin '%s' is reflected in Access-Control-Allow-Origin header.", origin)
	}
}

// SuffixOrigin returns https://<registrable domain>.evil.com for the
// endpoint's host, or "" for IP literals and unparseable URLs.
func SuffixOrigin(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return "https://" + domain + ".evil.com"
}
