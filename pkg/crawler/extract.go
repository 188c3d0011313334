package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// linkAttrs maps the elements that reference other resources to the
// attribute carrying the reference.
var linkAttrs = map[atom.Atom]string{
	atom.A:      "href",
	atom.Form:   "action",
	atom.Script: "src",
	atom.Link:   "href",
}

// ExtractLinks returns the absolute, fragment-free URLs referenced by
// a[href], form[action], script[src] and link[href] in body, in document
// order without duplicates. A <base href> before the first reference
// changes the resolution base. Unresolvable or non-HTTP references are
// dropped.
func ExtractLinks(body []byte, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		t := z.Token()
		if t.DataAtom == atom.Base {
			if href := getAttr(t, "href"); href != "" {
				if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
					base = base.ResolveReference(u)
				}
			}
			continue
		}

		attr, ok := linkAttrs[t.DataAtom]
		if !ok {
			continue
		}
		resolved := resolveURL(getAttr(t, attr), base)
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true
		links = append(links, resolved)
	}
}

func getAttr(t html.Token, name string) string {
	for _, a := range t.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// resolveURL resolves href against base and strips the fragment.
// Pseudo-scheme links and pure fragments yield "".
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	if resolved.Path == "" {
		resolved.Path = "/"
	}
	return resolved.String()
}

// Normalize parses rawURL, strips its fragment and gives an empty path
// the root path. Two endpoints are the same iff their normalized forms are
// equal.
func Normalize(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Opaque == "" && u.Host != "" {
		u.Path = "/"
	}
	return u, nil
}
