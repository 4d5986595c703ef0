// Package session drives the budgeted traversal of a single crawl job.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/contact-crawler/internal/crawler"
	"github.com/leadharvest/contact-crawler/internal/extract"
	"github.com/leadharvest/contact-crawler/internal/metrics"
)

// Config controls traversal bounds for every session a Runner starts.
type Config struct {
	// MaxPages is the global page budget per job.
	MaxPages int
	// Concurrency bounds simultaneous page visits within one session.
	Concurrency int
	// Tier1LinkCap caps navigation/informational links enqueued per page.
	Tier1LinkCap int
	// Tier2LinkCap caps generic same-domain links enqueued per page.
	Tier2LinkCap int
	// Timeout, when positive, caps a session's wall-clock duration so
	// pool shutdown latency stays bounded.
	Timeout time.Duration
	// HeadlessAllowed enables promotion to the rendering fetcher.
	HeadlessAllowed bool
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Tier1LinkCap <= 0 {
		c.Tier1LinkCap = 15
	}
	if c.Tier2LinkCap <= 0 {
		c.Tier2LinkCap = 5
	}
	return c
}

// Runner starts crawl sessions. One Runner is shared by all workers; all
// per-job state lives in the run it creates.
type Runner struct {
	probe    crawler.Fetcher
	headless crawler.Fetcher
	detector crawler.RenderDetector
	cfg      Config
	logger   *zap.Logger
}

// NewRunner constructs a Runner. The headless fetcher and detector are
// optional; without them every page is consumed as a raw body.
func NewRunner(
	probe crawler.Fetcher,
	headless crawler.Fetcher,
	detector crawler.RenderDetector,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		probe:    probe,
		headless: headless,
		detector: detector,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run traverses up to the page budget starting from seedURL, staying on
// the seed's domain, and returns the accumulated signals. Per-page
// failures are logged and skipped; only a failure of the crawl capability
// itself returns an error, always as a *crawler.SessionError, alongside
// whatever was accumulated before it.
func (r *Runner) Run(ctx context.Context, jobID, seedURL string) (crawler.SessionResult, error) {
	if r.probe == nil {
		return crawler.SessionResult{}, &crawler.SessionError{Err: errors.New("no fetcher configured")}
	}
	seed, err := crawler.NormalizeURL(seedURL)
	if err != nil {
		return crawler.SessionResult{}, &crawler.SessionError{Err: fmt.Errorf("seed url: %w", err)}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	run := &run{
		runner:   r,
		jobID:    jobID,
		seedURL:  seed,
		visited:  map[string]struct{}{seed: {}},
		frontier: []string{seed},
		emailSet: make(map[string]struct{}),
		fbSet:    make(map[string]struct{}),
	}
	run.traverse(ctx)

	result := crawler.SessionResult{
		Emails:       run.emails,
		FacebookURLs: run.facebookURLs,
		CrawledURLs:  run.crawled,
	}
	if run.fatal != nil {
		return result, run.fatal
	}
	return result, nil
}

// run holds the state of one job's traversal.
type run struct {
	runner  *Runner
	jobID   string
	seedURL string

	mu           sync.Mutex
	visited      map[string]struct{}
	frontier     []string
	emails       []string
	facebookURLs []string
	crawled      []string
	emailSet     map[string]struct{}
	fbSet        map[string]struct{}
	fatal        error
}

// traverse processes the frontier in waves of up to Concurrency pages,
// breadth-first by enqueue order, until the budget is exhausted or the
// frontier drains.
func (r *run) traverse(ctx context.Context) {
	for {
		if ctx.Err() != nil || r.fatalSet() {
			return
		}
		batch := r.nextBatch()
		if len(batch) == 0 {
			return
		}
		var wg sync.WaitGroup
		for _, pageURL := range batch {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				r.visit(ctx, u)
			}(pageURL)
		}
		wg.Wait()
	}
}

func (r *run) nextBatch() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	remaining := r.runner.cfg.MaxPages - len(r.crawled)
	if remaining <= 0 {
		return nil
	}
	n := min(min(remaining, r.runner.cfg.Concurrency), len(r.frontier))
	batch := r.frontier[:n]
	r.frontier = r.frontier[n:]
	return batch
}

func (r *run) fatalSet() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal != nil
}

// visit fetches one page, extracts signals, and enqueues discovered
// links. Any failure here, including an extraction panic, is contained:
// it never aborts the traversal.
func (r *run) visit(ctx context.Context, pageURL string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.runner.logger.Error("page visit panicked",
				zap.String("job_id", r.jobID),
				zap.String("url", pageURL),
				zap.Any("panic", rec),
			)
		}
	}()

	content, finalURL, err := r.fetch(ctx, pageURL)
	if err != nil {
		var sessionErr *crawler.SessionError
		if errors.As(err, &sessionErr) {
			r.mu.Lock()
			if r.fatal == nil {
				r.fatal = sessionErr
			}
			r.mu.Unlock()
			return
		}
		metrics.IncPageFailed()
		r.runner.logger.Warn("page fetch failed",
			zap.String("job_id", r.jobID),
			zap.String("url", pageURL),
			zap.Error(&crawler.FetchError{URL: pageURL, Err: err}),
		)
		return
	}

	emails, profiles := extract.PageSignals(content)
	links := discoverLinks(content, finalURL, r.seedURL, r.runner.cfg.Tier1LinkCap, r.runner.cfg.Tier2LinkCap)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.crawled = append(r.crawled, pageURL)
	for _, email := range emails {
		if _, dup := r.emailSet[email]; !dup {
			r.emailSet[email] = struct{}{}
			r.emails = append(r.emails, email)
		}
	}
	for _, profile := range profiles {
		if _, dup := r.fbSet[profile]; !dup {
			r.fbSet[profile] = struct{}{}
			r.facebookURLs = append(r.facebookURLs, profile)
		}
	}
	// Past the budget every enqueue is a no-op.
	if len(r.crawled) < r.runner.cfg.MaxPages {
		for _, link := range links {
			if _, dup := r.visited[link]; dup {
				continue
			}
			r.visited[link] = struct{}{}
			r.frontier = append(r.frontier, link)
		}
	}
	metrics.ObservePage(len(emails), len(profiles))
}

// fetch obtains one page's content, either a raw response body or a
// rendered DOM when the detector promotes the fetch.
func (r *run) fetch(ctx context.Context, pageURL string) (crawler.PageContent, string, error) {
	resp, err := r.runner.probe.Fetch(ctx, crawler.FetchRequest{JobID: r.jobID, URL: pageURL})
	if err != nil {
		return crawler.PageContent{}, "", err
	}
	finalURL := resp.URL
	if finalURL == "" {
		finalURL = pageURL
	}

	if r.runner.cfg.HeadlessAllowed && r.runner.headless != nil &&
		r.runner.detector != nil && r.runner.detector.ShouldPromote(resp) {
		rendered, err := r.runner.headless.Fetch(ctx, crawler.FetchRequest{
			JobID:       r.jobID,
			URL:         pageURL,
			UseHeadless: true,
		})
		if err != nil {
			r.runner.logger.Warn("headless promotion failed",
				zap.String("job_id", r.jobID),
				zap.String("url", pageURL),
				zap.Error(err),
			)
		} else {
			if rendered.URL != "" {
				finalURL = rendered.URL
			}
			return crawler.RenderedContent(string(rendered.Body)), finalURL, nil
		}
	}
	return crawler.RawContent(resp.Body), finalURL, nil
}
