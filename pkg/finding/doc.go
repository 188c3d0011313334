// Package finding provides the vulnerability record produced by detectors
// and the scan report handed to enrichment and reporting.
//
// A Vulnerability is created once by a detector on a positive match and is
// never mutated by the scan core afterwards:
//
//	v := finding.New(finding.SQLi, probeURL)
//	v.Parameter = "id"
//	v.Payload = "' OR '1'='1"
//	v.Evidence = excerpt
package finding
