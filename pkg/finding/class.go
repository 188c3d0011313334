package finding

// Class tags the vulnerability class of a finding.
type Class string

const (
	SQLi                  Class = "sqli"
	XSS                   Class = "xss"
	SSRF                  Class = "ssrf"
	LFI                   Class = "lfi"
	RFI                   Class = "rfi"
	CommandInjection      Class = "cmdi"
	SSTI                  Class = "ssti"
	XXE                   Class = "xxe"
	OpenRedirect          Class = "open-redirect"
	PathTraversal         Class = "path-traversal"
	CORS                  Class = "cors"
	CSRF                  Class = "csrf"
	Deserialization       Class = "deserialization"
	AuthenticationBypass  Class = "authentication"
	AuthorizationBypass   Class = "authorization"
	InformationDisclosure Class = "information-disclosure"
)

type classInfo struct {
	name     string
	severity Severity
}

var classes = map[Class]classInfo{
	SQLi:                  {"SQL Injection", Critical},
	XSS:                   {"Cross-Site Scripting (XSS)", High},
	SSRF:                  {"Server-Side Request Forgery (SSRF)", High},
	LFI:                   {"Local File Inclusion (LFI)", High},
	RFI:                   {"Remote File Inclusion (RFI)", High},
	CommandInjection:      {"Command Injection", Critical},
	SSTI:                  {"Server-Side Template Injection (SSTI)", Critical},
	XXE:                   {"XML External Entity (XXE)", High},
	OpenRedirect:          {"Open Redirect", Medium},
	PathTraversal:         {"Path Traversal", High},
	CORS:                  {"CORS Misconfiguration", Medium},
	CSRF:                  {"Cross-Site Request Forgery (CSRF)", Medium},
	Deserialization:       {"Insecure Deserialization", Critical},
	AuthenticationBypass:  {"Authentication Bypass", Critical},
	AuthorizationBypass:   {"Authorization Bypass", High},
	InformationDisclosure: {"Information Disclosure", Low},
}

// Name returns the human-readable class name. Unknown classes are returned
// verbatim so custom tags still render.
func (c Class) Name() string {
	if info, ok := classes[c]; ok {
		return info.name
	}
	return string(c)
}

// DefaultSeverity returns the severity a detector assigns to a match of
// this class when the match policy does not decide otherwise.
func (c Class) DefaultSeverity() Severity {
	if info, ok := classes[c]; ok {
		return info.severity
	}
	return Info
}

// IsKnown reports whether c is one of the predefined classes.
func (c Class) IsKnown() bool {
	_, ok := classes[c]
	return ok
}

// String returns the tag.
func (c Class) String() string {
	return string(c)
}
