// Package extract turns page content into candidate contact signals.
// All functions are pure: same content in, same signals out.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// The pattern is case-insensitive; matched text keeps its original case.
var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// Emails scans two signal channels, mailto: link targets and plain-text
// pattern matches over the markup-stripped page text, and returns the
// deduplicated union.
func Emails(content crawler.PageContent) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || !emailPattern.MatchString(candidate) {
			return
		}
		candidate = emailPattern.FindString(candidate)
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	text := content.Markup()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.Markup()))
	if err == nil {
		doc.Find(`a[href]`).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok {
				return
			}
			for _, target := range mailtoTargets(href) {
				add(target)
			}
		})
		text = doc.Text()
	}

	for _, match := range emailPattern.FindAllString(text, -1) {
		add(match)
	}
	return out
}

// mailtoTargets extracts the address list from a mailto: href, dropping
// any ?subject=... tail.
func mailtoTargets(href string) []string {
	if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return nil
	}
	rest := href[len("mailto:"):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if unescaped, err := url.QueryUnescape(rest); err == nil {
		rest = unescaped
	}
	return strings.Split(rest, ",")
}
