package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

func TestEmails_MailtoAndTextUnion(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		<html><body>
			<a href="mailto:sales@acme.com">Email sales</a>
			<a href="mailto:Support@acme.com?subject=hello">Support</a>
			<p>Reach our founder at jane.doe@acme.com or sales@acme.com.</p>
		</body></html>`))

	emails := Emails(content)
	require.ElementsMatch(t, []string{
		"sales@acme.com",
		"Support@acme.com",
		"jane.doe@acme.com",
	}, emails)
}

func TestEmails_CasePreservedDeduplicated(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`<p>INFO@Example.ORG and INFO@Example.ORG</p>`))
	emails := Emails(content)
	require.Equal(t, []string{"INFO@Example.ORG"}, emails)
}

func TestEmails_MailtoMultipleRecipients(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`<a href="mailto:a@x.com,b@x.com">write us</a>`))
	require.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, Emails(content))
}

func TestEmails_Idempotent(t *testing.T) {
	t.Parallel()

	content := crawler.RenderedContent(`<div>contact: ops@example.io</div>`)
	first := Emails(content)
	second := Emails(content)
	require.Equal(t, first, second)
	require.Equal(t, []string{"ops@example.io"}, second)
}

func TestEmails_NoMatches(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`<p>no contact info here, not even an at sign</p>`))
	require.Empty(t, Emails(content))
}

func TestSocialProfileURLs_FiltersServicePages(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		<a href="https://facebook.com/login">log in</a>
		<a href="https://www.facebook.com/acme.page">follow us</a>
		<a href="https://facebook.com/help/123">help</a>
		<a href="https://facebook.com/privacy">privacy</a>`))

	profiles := SocialProfileURLs(content)
	require.Equal(t, []string{"facebook.com/acme.page"}, profiles)
}

func TestSocialProfileURLs_NormalizesAndDeduplicates(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		<a href="https://www.facebook.com/acme/">one</a>
		<a href="http://facebook.com/acme">two</a>
		facebook.com/acme`))

	profiles := SocialProfileURLs(content)
	require.Equal(t, []string{"facebook.com/acme"}, profiles)
}

func TestSocialProfileURLs_AcceptsProfileGroupAndNumericForms(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		<a href="https://facebook.com/profile.php?id=1234567">numeric</a>
		<a href="https://facebook.com/groups/gophers">group</a>
		<a href="https://facebook.com/people/Jane-Doe/100044">person</a>`))

	profiles := SocialProfileURLs(content)
	require.ElementsMatch(t, []string{
		"facebook.com/profile.php?id=1234567",
		"facebook.com/groups/gophers",
		"facebook.com/people/jane-doe/100044",
	}, profiles)
}

func TestSocialProfileURLs_RejectsBareHostAndArtifacts(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		Visit facebook.com for more.
		{"link":"https:\/\/facebook.com\/escaped"}
		<a href="https://facebook.com//doubled">doubled</a>`))

	require.Empty(t, SocialProfileURLs(content))
}

func TestPageSignals_SkipsSocialWhenEmailFound(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		<a href="mailto:a@x.com">mail</a>
		<a href="https://facebook.com/acme.page">fb</a>`))

	emails, profiles := PageSignals(content)
	require.Equal(t, []string{"a@x.com"}, emails)
	require.Empty(t, profiles)
}

func TestPageSignals_SocialRunsOnEmaillessPage(t *testing.T) {
	t.Parallel()

	content := crawler.RawContent([]byte(`
		<a href="https://facebook.com/login">login</a>
		<a href="https://facebook.com/acme.page">fb</a>`))

	emails, profiles := PageSignals(content)
	require.Empty(t, emails)
	require.Equal(t, []string{"facebook.com/acme.page"}, profiles)
}
