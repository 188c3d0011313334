package finding

import (
	"time"

	"github.com/google/uuid"
)

// Vulnerability is one detected issue.
type Vulnerability struct {
	ID          string    `json:"id"`
	Class       Class     `json:"class"`
	Severity    Severity  `json:"severity"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	Parameter   string    `json:"parameter,omitempty"`
	Payload     string    `json:"payload"`
	Evidence    string    `json:"evidence"`
	Description string    `json:"description"`
	Remediation string    `json:"remediation"`
	PoC         string    `json:"poc,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	// Populated by enrichment, never by detectors.
	Confidence *float64 `json:"confidence,omitempty"`
	Analysis   string   `json:"analysis,omitempty"`
}

// New returns a GET finding of class c at url with a fresh ID, the class
// default severity and the current timestamp.
func New(c Class, url string) *Vulnerability {
	return &Vulnerability{
		ID:        uuid.NewString(),
		Class:     c,
		Severity:  c.DefaultSeverity(),
		URL:       url,
		Method:    "GET",
		Timestamp: time.Now().UTC(),
	}
}
