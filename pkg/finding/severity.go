package finding

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Severity represents the severity level of a security finding.
// Values are lowercase strings.
type Severity string

const (
	// Critical represents immediate system compromise (SQLi, SSTI, command injection).
	Critical Severity = "critical"

	// High represents significant impact requiring prompt fix (XSS, LFI, XXE).
	High Severity = "high"

	// Medium represents moderate impact (open redirect, reflected CORS).
	Medium Severity = "medium"

	// Low represents limited impact (verbose errors, minor info leak).
	Low Severity = "low"

	// Info represents informational findings with no direct security impact.
	Info Severity = "info"
)

// Severities lists all levels from most to least severe.
var Severities = []Severity{Critical, High, Medium, Low, Info}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Score returns a numeric score for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// Compare returns a positive number when s is more severe than o,
// negative when less, zero when equal.
func (s Severity) Compare(o Severity) int {
	return s.Score() - o.Score()
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

var titleCaser = cases.Title(language.English)

// Label returns the display form, e.g. "Critical".
func (s Severity) Label() string {
	return titleCaser.String(string(s))
}
