package scanner

import (
	"context"
	"net/url"
	"testing"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
	"github.com/shadowprobe/shadowprobe/pkg/probe/probetest"
)

// stubDetector returns a fixed number of findings tagged with its class.
type stubDetector struct {
	name  string
	class finding.Class
	hits  int
	calls int
}

func (s *stubDetector) Name() string         { return s.name }
func (s *stubDetector) Class() finding.Class { return s.class }
func (s *stubDetector) Scan(_ context.Context, endpoint string) []*finding.Vulnerability {
	s.calls++
	out := make([]*finding.Vulnerability, s.hits)
	for i := range out {
		out[i] = finding.New(s.class, endpoint)
	}
	return out
}

var _ probe.Detector = (*stubDetector)(nil)

func TestEngine_DefaultRegistrationOrder(t *testing.T) {
	e := New(attackconfig.Base{Client: probetest.Static(200, "")})

	want := []string{
		"SQL Injection Scanner",
		"XSS Scanner",
		"SSRF Scanner",
		"LFI Scanner",
		"SSTI Scanner",
		"Command Injection Scanner",
		"XXE Scanner",
		"CORS Misconfiguration Scanner",
		"Open Redirect Scanner",
	}
	got := e.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d detectors, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("detector %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEngine_ConcatenatesInRegistrationOrder(t *testing.T) {
	a := &stubDetector{name: "a", class: finding.SQLi}
	b := &stubDetector{name: "b", class: finding.XSS, hits: 2}
	c := &stubDetector{name: "c", class: finding.LFI}
	d := &stubDetector{name: "d", class: finding.CORS, hits: 1}

	vulns := NewWithDetectors(a, b, c, d).ScanURL(context.Background(), "http://t/?q=1")
	if len(vulns) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(vulns))
	}
	wantClasses := []finding.Class{finding.XSS, finding.XSS, finding.CORS}
	for i, v := range vulns {
		if v.Class != wantClasses[i] {
			t.Errorf("finding %d: expected class %s, got %s", i, wantClasses[i], v.Class)
		}
	}
	for _, s := range []*stubDetector{a, b, c, d} {
		if s.calls != 1 {
			t.Errorf("detector %s called %d times", s.name, s.calls)
		}
	}
}

func TestEngine_UnreachableTargetYieldsNoFindings(t *testing.T) {
	e := New(attackconfig.Base{Client: probetest.Failing(httpclient.ErrConnect)})
	if vulns := e.ScanURL(context.Background(), "http://t/xml?id=1"); len(vulns) != 0 {
		t.Fatalf("expected no findings, got %d", len(vulns))
	}
}

func TestEngine_EndToEndSQLi(t *testing.T) {
	doer := probetest.New(func(req *httpclient.Request) (*httpclient.Response, error) {
		u, _ := url.Parse(req.URL)
		if u.Query().Get("id") == "' OR '1'='1" {
			return probetest.Respond(200, "You have an error in your SQL syntax near mysql"), nil
		}
		return probetest.Respond(200, "catalog"), nil
	})
	vulns := New(attackconfig.Base{Client: doer}).ScanURL(context.Background(), "http://t/item?id=7")
	if len(vulns) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(vulns))
	}
	if vulns[0].Class != finding.SQLi || vulns[0].Severity != finding.Critical {
		t.Errorf("unexpected finding %s/%s", vulns[0].Class, vulns[0].Severity)
	}
}

func TestEngine_CancelledSkipsDetectors(t *testing.T) {
	a := &stubDetector{name: "a", class: finding.SQLi, hits: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if vulns := NewWithDetectors(a).ScanURL(ctx, "http://t/"); len(vulns) != 0 {
		t.Fatalf("expected no findings, got %d", len(vulns))
	}
	if a.calls != 0 {
		t.Errorf("expected detector not to run")
	}
}

func TestEngine_Only(t *testing.T) {
	e := New(attackconfig.Base{Client: probetest.Static(200, "")})
	sub := e.Only(finding.CORS, finding.SQLi)
	if sub.Count() != 2 {
		t.Fatalf("expected 2 detectors, got %d", sub.Count())
	}
	if names := sub.Names(); names[0] != "SQL Injection Scanner" || names[1] != "CORS Misconfiguration Scanner" {
		t.Errorf("unexpected order %v", names)
	}
	if !sub.Has(finding.CORS) || sub.Has(finding.XSS) {
		t.Error("unexpected membership")
	}
	if e.Only() != e {
		t.Error("expected Only() with no classes to return the engine")
	}
}
