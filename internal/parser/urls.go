package parser

import (
	"net/url"
	"strings"
)

func parseURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

// hostIs reports whether raw's host is one of domains or a subdomain of one.
func hostIs(raw string, domains ...string) bool {
	u, ok := parseURL(raw)
	if !ok {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func pathParts(u *url.URL) []string {
	var out []string
	for _, p := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
