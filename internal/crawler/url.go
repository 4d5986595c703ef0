package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL so the visited set never re-processes
// the same page under a different spelling. It lowercases scheme and host,
// removes default ports and fragments, and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ValidateSeedURL checks a submitted seed URL and returns a
// ValidationError when it cannot be crawled.
func ValidateSeedURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return &ValidationError{Field: "url", Reason: "must not be empty"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Reason: "scheme must be http or https"}
	}
	if u.Hostname() == "" {
		return &ValidationError{Field: "url", Reason: "missing host"}
	}
	return nil
}

// SameDomain reports whether candidate shares the seed's host. The crawl
// never leaves the seed's domain.
func SameDomain(seed, candidate string) bool {
	a, err := url.Parse(seed)
	if err != nil {
		return false
	}
	b, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return strings.EqualFold(stripWWW(a.Hostname()), stripWWW(b.Hostname()))
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
