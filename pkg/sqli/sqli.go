// Package sqli detects SQL injection through query parameters by looking
// for database error text reflected in the response.
package sqli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
)

// Name is the detector's display name.
const Name = "SQL Injection Scanner"

// CommonParams are probed when an endpoint has no query string.
var CommonParams = []string{"id", "user", "username", "search", "query"}

// Payloads are tried in order for each parameter. Payloads without
// patterns are timing or auth-bypass probes and never match on body text.
var Payloads = []probe.Payload{
	{
		Value:       "' OR '1'='1",
		Description: "Classic SQLi boolean-based",
		Patterns:    []string{"sql", "syntax", "mysql", "postgresql", "sqlite", "oracle"},
	},
	{
		Value:       "' OR 1=1--",
		Description: "SQLi with comment",
		Patterns:    []string{"sql", "error"},
	},
	{
		Value:       "' UNION SELECT NULL--",
		Description: "UNION-based SQLi",
		Patterns:    []string{"union", "select"},
	},
	{
		Value:       "1' AND SLEEP(5)--",
		Description: "Time-based blind SQLi",
	},
	{
		Value:       "admin'--",
		Description: "Authentication bypass",
	},
}

// DBMS names a database backend inferred from error text.
type DBMS string

const (
	DBMSMySQL      DBMS = "MySQL"
	DBMSPostgreSQL DBMS = "PostgreSQL"
	DBMSSQLite     DBMS = "SQLite"
	DBMSOracle     DBMS = "Oracle"
	DBMSMSSQL      DBMS = "Microsoft SQL Server"
	DBMSUnknown    DBMS = ""
)

var dbmsMarkers = []struct {
	marker string
	dbms   DBMS
}{
	{"mysql", DBMSMySQL},
	{"mariadb", DBMSMySQL},
	{"postgresql", DBMSPostgreSQL},
	{"pg_query", DBMSPostgreSQL},
	{"sqlite", DBMSSQLite},
	{"ora-", DBMSOracle},
	{"oracle", DBMSOracle},
	{"sql server", DBMSMSSQL},
	{"odbc", DBMSMSSQL},
}

// FingerprintDBMS guesses the backend from error text in body.
func FingerprintDBMS(body string) DBMS {
	lower := strings.ToLower(body)
	for _, m := range dbmsMarkers {
		if strings.Contains(lower, m.marker) {
			return m.dbms
		}
	}
	return DBMSUnknown
}

const remediation = "Use parameterized queries or prepared statements. Never directly concatenate user input into SQL queries. Implement proper input validation and sanitization."

// Config configures the detector.
type Config struct {
	attackconfig.Base
	Params   []string
	Payloads []probe.Payload
}

// DefaultConfig returns the stock parameters and payloads.
func DefaultConfig() Config {
	return Config{Params: CommonParams, Payloads: Payloads}
}

// Detector implements probe.Detector for SQL injection.
type Detector struct {
	injector *probe.Injector
}

var _ probe.Detector = (*Detector)(nil)

// New creates a detector. Empty Params or Payloads take the defaults.
func New(cfg Config) *Detector {
	cfg.Validate()
	if len(cfg.Params) == 0 {
		cfg.Params = CommonParams
	}
	if len(cfg.Payloads) == 0 {
		cfg.Payloads = Payloads
	}

	return &Detector{injector: &probe.Injector{
		Base:        cfg.Base,
		Class:       finding.SQLi,
		Payloads:    cfg.Payloads,
		Params:      cfg.Params,
		Match:       match,
		Describe:    describe,
		Remediation: remediation,
	}}
}

// match is the substring policy with the backend appended to the evidence
// when the error text names one.
func match(resp *httpclient.Response, p probe.Payload, probeURL string) (string, bool) {
	evidence, ok := probe.BodyMatcher(resp, p, probeURL)
	if !ok {
		return "", false
	}
	if dbms := FingerprintDBMS(resp.Text()); dbms != DBMSUnknown {
		evidence = fmt.Sprintf("[%s] %s", dbms, evidence)
	}
	return evidence, true
}

func describe(p probe.Payload, _ string) string {
	return fmt.Sprintf("SQL Injection detected using %s. The application is vulnerable to SQL injection attacks.", p.Description)
}

func (d *Detector) Name() string { return Name }

func (d *Detector) Class() finding.Class { return finding.SQLi }

// Scan probes endpoint with every parameter/payload pair.
func (d *Detector) Scan(ctx context.Context, endpoint string) []*finding.Vulnerability {
	return d.injector.Run(ctx, endpoint)
}
