package session

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// Selectors for navigation-like regions. Contact information is
// disproportionately reachable through these, so their links get the
// larger tier-1 cap.
const navSelector = `nav a[href], header a[href], [role="navigation"] a[href], .nav a[href], .navbar a[href], .menu a[href]`

// Conventionally named informational paths, probed against the page
// origin alongside the page's own navigation links.
var informationalPaths = []string{
	"/about",
	"/about/",
	"/about-us",
	"/about-us/",
	"/contact",
	"/contact/",
	"/contact-us",
	"/contact-us/",
}

// discoverLinks collects candidate outbound links from a page in priority
// order: navigation links and conventional informational paths first
// (capped at tier1Cap), then any remaining same-domain link (capped at
// tier2Cap). Only links on the seed's domain are returned.
func discoverLinks(content crawler.PageContent, pageURL, seedURL string, tier1Cap, tier2Cap int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.Markup()))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	admit := func(candidate string, limit int, used *int) {
		if *used >= limit {
			return
		}
		normalized, err := crawler.NormalizeURL(candidate)
		if err != nil {
			return
		}
		if !crawler.SameDomain(seedURL, normalized) {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
		*used++
	}

	var tier1Used int
	doc.Find(navSelector).Each(func(_ int, sel *goquery.Selection) {
		if link, ok := resolveHref(base, sel); ok {
			admit(link, tier1Cap, &tier1Used)
		}
	})
	origin := base.Scheme + "://" + base.Host
	for _, path := range informationalPaths {
		admit(origin+path, tier1Cap, &tier1Used)
	}

	var tier2Used int
	doc.Find(`a[href]`).Each(func(_ int, sel *goquery.Selection) {
		if link, ok := resolveHref(base, sel); ok {
			admit(link, tier2Cap, &tier2Used)
		}
	})

	return out
}

func resolveHref(base *url.URL, sel *goquery.Selection) (string, bool) {
	href, ok := sel.Attr("href")
	if !ok {
		return "", false
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return resolved.String(), true
}
