package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/ratelimit"
	"github.com/shadowprobe/shadowprobe/pkg/stats"
)

func TestMain(m *testing.M) {
	SetNoColor(true)
	os.Exit(m.Run())
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	return &buf
}

func TestPrintBanner(t *testing.T) {
	buf := capture(t)
	PrintBanner()
	if !strings.Contains(buf.String(), "v"+defaults.Version) {
		t.Errorf("banner missing version: %q", buf.String())
	}
}

func TestSilentSuppressesBanner(t *testing.T) {
	buf := capture(t)
	SetSilent(true)
	defer SetSilent(false)

	PrintBanner()
	PrintInfo("hidden")
	if buf.Len() != 0 {
		t.Errorf("silent mode printed %q", buf.String())
	}
	if !IsSilent() {
		t.Error("IsSilent() = false after SetSilent(true)")
	}
}

func TestPrintConfigBanner_SkipsEmpty(t *testing.T) {
	buf := capture(t)
	PrintConfigBanner([]ConfigOption{
		{Name: "Target", Value: "http://t/"},
		{Name: "Proxy", Value: ""},
		{Name: "Depth", Value: "3"},
	})
	out := buf.String()
	if !strings.Contains(out, "http://t/") || !strings.Contains(out, "Depth") {
		t.Errorf("config banner missing options: %q", out)
	}
	if strings.Contains(out, "Proxy") {
		t.Errorf("empty option should be skipped: %q", out)
	}
	if strings.Index(out, "Target") > strings.Index(out, "Depth") {
		t.Errorf("options printed out of order: %q", out)
	}
}

func TestFormatFinding(t *testing.T) {
	v := finding.New(finding.XSS, "http://t/search?q=x")
	v.Parameter = "q"

	line := FormatFinding(v)
	for _, want := range []string{"high", "xss", "http://t/search?q=x", "q"} {
		if !strings.Contains(line, want) {
			t.Errorf("FormatFinding() = %q, missing %q", line, want)
		}
	}
}

func TestPrintFinding_Verbose(t *testing.T) {
	buf := capture(t)
	v := finding.New(finding.SQLi, "http://t/?id=1")
	v.Payload = "'"
	v.Evidence = "You have an error\nin your SQL syntax"
	v.PoC = "curl -v 'http://t/?id=%27'"

	PrintFinding(v, true)
	out := buf.String()
	if !strings.Contains(out, "evidence: You have an error in your SQL syntax") {
		t.Errorf("evidence should be flattened to one line: %q", out)
	}
	if !strings.Contains(out, "poc:      curl -v") {
		t.Errorf("missing poc line: %q", out)
	}

	buf.Reset()
	PrintFinding(v, false)
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("non-verbose finding should be one line: %q", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	buf := capture(t)
	vulns := []*finding.Vulnerability{
		finding.New(finding.SQLi, "http://t/a"),
		finding.New(finding.XSS, "http://t/b"),
		finding.New(finding.XSS, "http://t/c"),
	}
	r := &finding.Report{
		ScanID:          "abc",
		Target:          "http://t/",
		Status:          finding.StatusCompleted,
		Vulnerabilities: vulns,
		Endpoints:       []string{"http://t/", "http://t/a"},
		TotalRequests:   17,
	}
	PrintSummary(r, stats.Snapshot{Duration: 1500 * time.Millisecond, TotalRequests: 17, SuccessfulRequests: 17})

	out := buf.String()
	for _, want := range []string{"Scan Summary", "abc", "completed", "Requests:", "17", "Critical:", "High:", "1.50s", "100.0%", "Cross-Site Scripting (XSS)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Medium:") {
		t.Errorf("zero severities should be omitted:\n%s", out)
	}
}

func TestPrintSummary_RateLimit(t *testing.T) {
	r := &finding.Report{ScanID: "abc", Target: "http://t/", Status: finding.StatusCompleted}

	buf := capture(t)
	PrintSummary(r, stats.Snapshot{})
	if strings.Contains(buf.String(), "Backoffs:") {
		t.Errorf("rate limit rows shown without a limiter:\n%s", buf.String())
	}

	buf = capture(t)
	PrintSummary(r, stats.Snapshot{RateLimit: ratelimit.Stats{Permits: 2, Interval: 500 * time.Millisecond, Backoffs: 4}})
	out := buf.String()
	for _, want := range []string{"Rate limit:", "2 permits, 500ms", "Backoffs:", "4"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEndpoints(t *testing.T) {
	buf := capture(t)
	PrintEndpoints([]string{"http://t/", "http://t/about"})
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("expected 2 lines, got %d", got)
	}
}

func TestSeverityStyle_DistinctPerLevel(t *testing.T) {
	for i, a := range finding.Severities {
		for _, b := range finding.Severities[i+1:] {
			if SeverityStyle(a).GetBackground() == SeverityStyle(b).GetBackground() {
				t.Errorf("%s and %s share a background", a, b)
			}
		}
	}
}

func TestStatusCodeStyle(t *testing.T) {
	if StatusCodeStyle(200).GetForeground() != Status2xx {
		t.Error("2xx should be green")
	}
	if StatusCodeStyle(302).GetForeground() != Status3xx {
		t.Error("3xx should be blue")
	}
	if StatusCodeStyle(404).GetForeground() != Status4xx {
		t.Error("4xx should be yellow")
	}
	if StatusCodeStyle(503).GetForeground() != Status5xx {
		t.Error("5xx should be red")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.50s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateString("abcdefghijklmnop", 10); got != "abcdefg..." {
		t.Errorf("got %q", got)
	}
}
