// Package probe holds what every detector shares: the Detector contract,
// static payload definitions, and the parameter-injection algorithm used by
// the query-parameter detectors.
//
// An Injector expands an endpoint into probes, one per (parameter, payload)
// pair, sends each through the configured client and applies a match
// policy to the response. Probe failures are logged and skipped; an
// Injector never returns an error.
package probe
