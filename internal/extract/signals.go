package extract

import (
	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// PageSignals applies the per-page extraction policy: email is the
// higher-value, lower-noise signal, so the social-profile heuristic only
// runs on pages where email extraction found nothing. The decision is
// per-page, not per-job; a job can still accumulate both signal types
// across different pages.
func PageSignals(content crawler.PageContent) (emails, profiles []string) {
	emails = Emails(content)
	if len(emails) == 0 {
		profiles = SocialProfileURLs(content)
	}
	return emails, profiles
}
