package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shadowprobe/shadowprobe/pkg/finding"
)

// Detector probes one endpoint for one vulnerability class.
// Scan never fails; network errors yield fewer findings, not an error.
type Detector interface {
	Name() string
	Class() finding.Class
	Scan(ctx context.Context, endpoint string) []*finding.Vulnerability
}

// Payload is one static probe value with the substrings that reveal a hit.
// An empty Patterns list never matches by body content.
type Payload struct {
	Value       string
	Description string
	Patterns    []string
}

// Limit returns at most n items (n <= 0 means all).
func Limit[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}

// CandidateParams returns the query parameter names already on endpoint in
// order of appearance, or fallback when it carries none.
func CandidateParams(endpoint string, fallback []string) []string {
	u, err := url.Parse(endpoint)
	if err != nil || u.RawQuery == "" {
		return append([]string(nil), fallback...)
	}

	seen := make(map[string]bool)
	var names []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, key)
	}
	if len(names) == 0 {
		return append([]string(nil), fallback...)
	}
	return names
}

// InjectParam sets param to the URL-encoded value on endpoint, replacing
// an existing value in place or appending when absent. Other parameters
// keep their original order and encoding.
func InjectParam(endpoint, param, value string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("probe: parse endpoint: %w", err)
	}

	encoded := url.QueryEscape(param) + "=" + url.QueryEscape(value)
	var pairs []string
	replaced := false
	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, "&") {
			key, _, _ := strings.Cut(pair, "=")
			if k, err := url.QueryUnescape(key); err == nil {
				key = k
			}
			if key == param {
				if !replaced {
					pairs = append(pairs, encoded)
					replaced = true
				}
				continue
			}
			pairs = append(pairs, pair)
		}
	}
	if !replaced {
		pairs = append(pairs, encoded)
	}

	u.RawQuery = strings.Join(pairs, "&")
	u.Fragment = ""
	return u.String(), nil
}

// ContainsAny returns the first pattern that occurs in body.
func ContainsAny(body string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p != "" && strings.Contains(body, p) {
			return p, true
		}
	}
	return "", false
}

// Excerpt returns body truncated to at most max bytes on a rune boundary,
// with "..." appended when anything was cut.
func Excerpt(body string, max int) string {
	if max <= 0 || len(body) <= max {
		return body
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
