package extract

import (
	"regexp"
	"strings"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// facebookPattern matches facebook URLs in markup or text. The character
// class deliberately excludes backslashes and quotes, so JSON-escaped
// fragments like facebook.com\/acme collapse to a bare-host match and
// are rejected by the path checks below.
var facebookPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?facebook\.com(/[A-Za-z0-9_.%/\-]*(?:\?id=\d+)?)?`)

// First path segments that identify service pages rather than profiles.
var nonProfileSegments = map[string]struct{}{
	"login":         {},
	"help":          {},
	"privacy":       {},
	"terms":         {},
	"settings":      {},
	"policies":      {},
	"legal":         {},
	"share":         {},
	"sharer":        {},
	"sharer.php":    {},
	"dialog":        {},
	"plugins":       {},
	"hashtag":       {},
	"search":        {},
	"watch":         {},
	"marketplace":   {},
	"stories":       {},
	"reel":          {},
	"gaming":        {},
	"recover":       {},
	"reg":           {},
	"signup":        {},
	"messages":      {},
	"notifications": {},
	"home.php":      {},
}

var profileSegment = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// SocialProfileURLs scans page content for facebook URLs whose path
// identifies a profile, page, group, or numeric-id form. Service pages,
// bare hosts, and malformed matches are rejected. Output is normalized
// (scheme and www. stripped, trailing separators trimmed) and
// deduplicated.
func SocialProfileURLs(content crawler.PageContent) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, match := range facebookPattern.FindAllString(content.Markup(), -1) {
		normalized, ok := normalizeProfileURL(match)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func normalizeProfileURL(match string) (string, bool) {
	rest := strings.ToLower(match)
	for _, prefix := range []string{"https://", "http://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	rest = strings.TrimPrefix(rest, "www.")
	rest = strings.TrimPrefix(rest, "facebook.com")

	path := strings.Trim(rest, "/")
	if path == "" {
		// Bare host, nothing identifying a profile.
		return "", false
	}
	if strings.Contains(rest, "//") || strings.Contains(path, "..") || strings.Contains(path, "%") {
		return "", false
	}

	segments := strings.Split(path, "/")
	first, query, hasQuery := strings.Cut(segments[0], "?")
	if _, blocked := nonProfileSegments[first]; blocked {
		return "", false
	}

	switch first {
	case "profile.php":
		// Numeric-id form: profile.php?id=123.
		if len(segments) != 1 || !hasQuery || !strings.HasPrefix(query, "id=") {
			return "", false
		}
	case "groups", "people", "pages", "pg":
		if len(segments) < 2 {
			return "", false
		}
	default:
		if hasQuery || !profileSegment.MatchString(first) {
			return "", false
		}
	}

	return "facebook.com/" + path, true
}
