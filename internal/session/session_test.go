package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	fetched   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, req.URL)
	f.mu.Unlock()
	if err, ok := f.errs[req.URL]; ok {
		return crawler.FetchResponse{}, err
	}
	body, ok := f.responses[req.URL]
	if !ok {
		return crawler.FetchResponse{}, errors.New("status 404")
	}
	return crawler.FetchResponse{
		URL:        req.URL,
		StatusCode: http.StatusOK,
		Body:       []byte(body),
	}, nil
}

func TestRun_SinglePageMailto(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.responses["https://example.com"] = `<html><body><a href="mailto:a@x.com">mail</a></body></html>`

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 1}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"a@x.com"}, result.Emails)
	require.Empty(t, result.FacebookURLs)
	require.Equal(t, []string{"https://example.com"}, result.CrawledURLs)
}

func TestRun_SessionErrorIsFatal(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["https://example.com"] = &crawler.SessionError{Err: errors.New("browser failed to start")}

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 5}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")

	var sessionErr *crawler.SessionError
	require.ErrorAs(t, err, &sessionErr)
	require.Empty(t, result.Emails)
	require.Empty(t, result.CrawledURLs)
}

func TestRun_PerPageFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.responses["https://example.com"] = `<a href="/broken">x</a><a href="/ok">y</a>`
	fetcher.errs["https://example.com/broken"] = errors.New("connection reset")
	fetcher.responses["https://example.com/ok"] = `<p>team@example.com</p>`

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 20, Concurrency: 1}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.Contains(t, result.Emails, "team@example.com")
	require.NotContains(t, result.CrawledURLs, "https://example.com/broken")
	require.Contains(t, result.CrawledURLs, "https://example.com/ok")
}

func TestRun_VisitedURLsNeverReprocessed(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	// Both pages link back to the seed and to each other.
	fetcher.responses["https://example.com"] = `<a href="/loop">loop</a><a href="https://example.com">self</a>`
	fetcher.responses["https://example.com/loop"] = `<a href="https://example.com">back</a><a href="/loop">self</a>`

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 20, Concurrency: 1}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, u := range result.CrawledURLs {
		seen[u]++
	}
	for u, count := range seen {
		require.Equal(t, 1, count, "url %s crawled more than once", u)
	}
}

func TestRun_BudgetBoundsTraversal(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.responses["https://example.com"] = `
		<a href="/p1">1</a><a href="/p2">2</a><a href="/p3">3</a>
		<a href="/p4">4</a><a href="/p5">5</a>`
	for _, p := range []string{"p1", "p2", "p3", "p4", "p5"} {
		fetcher.responses["https://example.com/"+p] = `<p>nothing</p>`
	}

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 3, Concurrency: 1}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.Len(t, result.CrawledURLs, 3)
}

func TestRun_NavigationLinksPrioritized(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.responses["https://example.com"] = `
		<html><body>
			<div><a href="/blog/post-1">a generic link</a></div>
			<nav><a href="/contact-page">contact nav</a></nav>
		</body></html>`
	fetcher.responses["https://example.com/contact-page"] = `<p>hr@example.com</p>`
	fetcher.responses["https://example.com/blog/post-1"] = `<p>nothing</p>`

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 2, Concurrency: 1}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com", "https://example.com/contact-page"}, result.CrawledURLs)
	require.Equal(t, []string{"hr@example.com"}, result.Emails)
}

func TestRun_StaysOnSeedDomain(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.responses["https://example.com"] = `
		<a href="https://other.org/page">offsite</a>
		<a href="/local">local</a>`
	fetcher.responses["https://example.com/local"] = `<p>nothing</p>`

	runner := NewRunner(fetcher, nil, nil, Config{MaxPages: 20, Concurrency: 1}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.NotContains(t, result.CrawledURLs, "https://other.org/page")
	for _, u := range fetcher.fetched {
		require.True(t, crawler.SameDomain("https://example.com", u), "fetched offsite url %s", u)
	}
}

func TestRun_RenderedContentWhenDetectorPromotes(t *testing.T) {
	t.Parallel()

	probe := newFakeFetcher()
	probe.responses["https://example.com"] = `<div id="root"></div>`
	headless := newFakeFetcher()
	headless.responses["https://example.com"] = `<div id="root"><a href="mailto:spa@x.com">mail</a></div>`

	runner := NewRunner(probe, headless, promoteAll{}, Config{MaxPages: 1, HeadlessAllowed: true}, zap.NewNop())
	result, err := runner.Run(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"spa@x.com"}, result.Emails)
}

type promoteAll struct{}

func (promoteAll) ShouldPromote(crawler.FetchResponse) bool { return true }
