package finding

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a scan.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Report is what the scan core hands downstream: findings in discovery
// order, every discovered endpoint and the attempted request count.
type Report struct {
	ScanID          string           `json:"scan_id"`
	Target          string           `json:"target"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time,omitempty"`
	Status          Status           `json:"status"`
	Vulnerabilities []*Vulnerability `json:"vulnerabilities"`
	Endpoints       []string         `json:"endpoints"`
	TotalRequests   int64            `json:"total_requests"`
	Error           string           `json:"error,omitempty"`
}

// Duration returns the wall time of the scan, or zero while running.
func (r *Report) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// CountBySeverity tallies findings per severity.
func (r *Report) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int)
	for _, v := range r.Vulnerabilities {
		out[v.Severity]++
	}
	return out
}

// CountByClass tallies findings per class.
func (r *Report) CountByClass() map[Class]int {
	out := make(map[Class]int)
	for _, v := range r.Vulnerabilities {
		out[v.Class]++
	}
	return out
}

// SortBySeverity returns a copy of vulns ordered most severe first.
// Ties keep their original relative order.
func SortBySeverity(vulns []*Vulnerability) []*Vulnerability {
	out := make([]*Vulnerability, len(vulns))
	copy(out, vulns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Score() > out[j].Severity.Score()
	})
	return out
}
