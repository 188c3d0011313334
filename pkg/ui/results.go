package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/stats"
)

func bracket(s string) string {
	return BracketStyle.Render("[") + s + BracketStyle.Render("]")
}

// FormatFinding renders one finding nuclei-style:
//
//	[high] [xss] http://t/search?q=... [q]
func FormatFinding(v *finding.Vulnerability) string {
	parts := []string{
		bracket(SeverityStyle(v.Severity).Render(string(v.Severity))),
		bracket(ClassStyle.Render(string(v.Class))),
		URLStyle.Render(v.URL),
	}
	if v.Parameter != "" {
		parts = append(parts, bracket(StatLabelStyle.Render(v.Parameter)))
	}
	return strings.Join(parts, " ")
}

// PrintFinding prints a live finding line. With verbose, payload, evidence
// and the proof of concept follow on indented lines.
func PrintFinding(v *finding.Vulnerability, verbose bool) {
	if IsSilent() {
		return
	}
	w := writer()
	fmt.Fprintln(w, FormatFinding(v))
	if !verbose {
		return
	}
	if v.Payload != "" {
		fmt.Fprintf(w, "      %s\n", SubtitleStyle.Render("payload:  "+truncateString(v.Payload, 80)))
	}
	if v.Evidence != "" {
		fmt.Fprintf(w, "      %s\n", SubtitleStyle.Render("evidence: "+truncateString(oneLine(v.Evidence), 80)))
	}
	if v.PoC != "" {
		fmt.Fprintf(w, "      %s\n", SubtitleStyle.Render("poc:      "+v.PoC))
	}
}

// PrintEndpoints lists crawled URLs, one per line.
func PrintEndpoints(urls []string) {
	w := writer()
	for _, u := range urls {
		fmt.Fprintln(w, URLStyle.Render(u))
	}
}

// PrintSummary prints the end-of-scan box: status, counts by severity,
// request statistics.
func PrintSummary(r *finding.Report, s stats.Snapshot) {
	w := writer()
	PrintSection("Scan Summary")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %s\n", ConfigLabelStyle.Render("Target:"), URLStyle.Render(r.Target))
	fmt.Fprintf(w, "  %s %s\n", ConfigLabelStyle.Render("Scan ID:"), StatValueStyle.Render(r.ScanID))
	fmt.Fprintf(w, "  %s %s\n", ConfigLabelStyle.Render("Status:"), statusStyle(r.Status))
	fmt.Fprintln(w)

	const boxWidth = 50
	border := "  +" + strings.Repeat("-", boxWidth-2) + "+"
	row := func(label, value string) {
		const labelW = 22
		fmt.Fprintf(w, "  |  %s%s|\n",
			StatLabelStyle.Render(pad(label, labelW)),
			StatValueStyle.Render(pad(value, boxWidth-4-labelW)),
		)
	}

	fmt.Fprintln(w, BracketStyle.Render(border))
	row("Endpoints:", fmt.Sprintf("%d", len(r.Endpoints)))
	row("Requests:", fmt.Sprintf("%d", r.TotalRequests))
	row("Vulnerabilities:", fmt.Sprintf("%d", len(r.Vulnerabilities)))
	fmt.Fprintln(w, BracketStyle.Render(border))

	counts := r.CountBySeverity()
	for _, sev := range finding.Severities {
		if n := counts[sev]; n > 0 {
			row(sev.Label()+":", fmt.Sprintf("%d", n))
		}
	}
	if len(counts) > 0 {
		fmt.Fprintln(w, BracketStyle.Render(border))
	}

	row("Duration:", formatDuration(s.Duration))
	row("Req/sec:", fmt.Sprintf("%.1f", s.RequestsPerSecond))
	row("Success rate:", fmt.Sprintf("%.1f%%", s.SuccessRate()))
	row("Avg response:", formatDuration(s.AverageResponseTime))
	row("Cache hit rate:", fmt.Sprintf("%.1f%%", s.CacheHitRate()))
	if rl := s.RateLimit; rl.Permits > 0 {
		row("Rate limit:", fmt.Sprintf("%d permits, %s", rl.Permits, formatDuration(rl.Interval)))
		row("Backoffs:", fmt.Sprintf("%d", rl.Backoffs))
	}
	fmt.Fprintln(w, BracketStyle.Render(border))

	if classes := r.CountByClass(); len(classes) > 0 {
		fmt.Fprintln(w)
		names := make([]string, 0, len(classes))
		for c := range classes {
			names = append(names, string(c))
		}
		sort.Strings(names)
		for _, c := range names {
			fmt.Fprintf(w, "  %s %s\n", ClassStyle.Render(finding.Class(c).Name()), StatValueStyle.Render(fmt.Sprintf("%d", classes[finding.Class(c)])))
		}
	}
	fmt.Fprintln(w)
}

func statusStyle(s finding.Status) string {
	switch s {
	case finding.StatusCompleted:
		return SuccessStyle.Render(string(s))
	case finding.StatusCancelled:
		return WarningStyle.Render(string(s))
	case finding.StatusFailed:
		return FailStyle.Render(string(s))
	default:
		return StatValueStyle.Render(string(s))
	}
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateString truncates a string with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
