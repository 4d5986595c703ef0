package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/contact-crawler/internal/crawler"
	"github.com/leadharvest/contact-crawler/internal/metrics"
)

// SessionRunner starts one crawl session per claimed job.
type SessionRunner interface {
	Run(ctx context.Context, jobID, seedURL string) (crawler.SessionResult, error)
}

// Config controls pool behavior.
type Config struct {
	// PollInterval is the sleep between poll cycles.
	PollInterval time.Duration
	// ErrorBackoff is the longer sleep after a cycle error.
	ErrorBackoff time.Duration
	// BatchSize caps how many queued records one cycle fetches.
	BatchSize int
	// MaxConcurrentWorkers caps sessions launched within one cycle.
	// The cap slices the fetched batch rather than holding a semaphore
	// across cycles, so peak concurrency can exceed it when a cycle
	// overlaps with slow sessions from an earlier one.
	MaxConcurrentWorkers int
	// TerminalWriteRetries bounds re-attempts of the terminal
	// reconciliation write before giving up loudly.
	TerminalWriteRetries int
	// TerminalWriteBackoff is the base delay between those re-attempts.
	TerminalWriteBackoff time.Duration
	// EventTopic, when set together with a publisher, receives a payload
	// per terminal job.
	EventTopic string
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxConcurrentWorkers <= 0 {
		c.MaxConcurrentWorkers = 5
	}
	if c.TerminalWriteRetries <= 0 {
		c.TerminalWriteRetries = 3
	}
	if c.TerminalWriteBackoff <= 0 {
		c.TerminalWriteBackoff = 500 * time.Millisecond
	}
	return c
}

// Pool polls the store for queued jobs, claims them through the registry,
// and runs one crawl session per claimed job.
type Pool struct {
	store     crawler.Store
	runner    SessionRunner
	registry  ClaimRegistry
	publisher crawler.Publisher
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}

	sessions sync.WaitGroup
}

// New constructs a Pool. The publisher is optional.
func New(
	store crawler.Store,
	runner SessionRunner,
	registry ClaimRegistry,
	publisher crawler.Publisher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Pool{
		store:     store,
		runner:    runner,
		registry:  registry,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Start launches the poll loop. Starting a running pool is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stopped = make(chan struct{})
	p.running = true
	go p.loop(ctx, p.stopped)
	p.logger.Info("worker pool started",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("max_concurrent_workers", p.cfg.MaxConcurrentWorkers),
	)
}

// Stop halts the poll loop and blocks until it exits. In-flight crawl
// sessions run to completion; no new sessions are launched.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	stopped := p.stopped
	p.mu.Unlock()

	cancel()
	<-stopped
	p.logger.Info("worker pool stopped")
}

// Wait blocks until all in-flight sessions settle. Useful for bounded
// shutdown after Stop.
func (p *Pool) Wait() {
	p.sessions.Wait()
}

// Status reports the pool's health snapshot.
func (p *Pool) Status() crawler.PoolStatus {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	return crawler.PoolStatus{
		Running:        running,
		ActiveJobCount: p.registry.Count(),
	}
}

// loop runs cycles until the context is canceled. A cycle error is
// logged and followed by the longer backoff; the loop itself never exits
// on one.
func (p *Pool) loop(ctx context.Context, stopped chan<- struct{}) {
	defer close(stopped)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := p.cycle(ctx); err != nil {
			p.logger.Error("poll cycle failed", zap.Error(err))
			timer.Reset(p.cfg.ErrorBackoff)
			continue
		}
		timer.Reset(p.cfg.PollInterval)
	}
}

// cycle claims up to MaxConcurrentWorkers of the oldest queued jobs and
// launches a session for each. It does not wait for the sessions.
func (p *Pool) cycle(ctx context.Context) error {
	batch, err := p.store.ListByStatus(ctx, crawler.JobStatusQueued, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list queued jobs: %w", err)
	}

	launched := 0
	for _, job := range batch {
		if launched >= p.cfg.MaxConcurrentWorkers {
			break
		}
		if !p.registry.TryClaim(job.ID) {
			continue
		}
		processing := crawler.JobStatusProcessing
		startedAt := p.now()
		if _, err := p.store.Update(ctx, job.ID, crawler.JobUpdate{
			Status:    &processing,
			StartedAt: &startedAt,
		}); err != nil {
			p.registry.Release(job.ID)
			p.logger.Error("claim update failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		launched++
		metrics.SetActiveJobs(p.registry.Count())
		p.sessions.Add(1)
		go p.runJob(job)
	}
	return nil
}

// runJob executes one crawl session and reconciles its outcome into the
// store. Sessions deliberately run on a background context so stopping
// the pool never aborts them mid-crawl.
func (p *Pool) runJob(job crawler.Job) {
	defer p.sessions.Done()
	defer func() {
		p.registry.Release(job.ID)
		metrics.SetActiveJobs(p.registry.Count())
	}()

	result, err := p.runSession(context.Background(), job)

	status := crawler.JobStatusDone
	if err != nil {
		status = crawler.JobStatusError
	}
	pages := len(result.CrawledURLs)
	upd := crawler.JobUpdate{
		Status:       &status,
		Emails:       emptyIfNil(result.Emails),
		FacebookURLs: emptyIfNil(result.FacebookURLs),
		CrawledURLs:  emptyIfNil(result.CrawledURLs),
		PagesCrawled: &pages,
	}
	if err != nil {
		message := err.Error()
		if message == "" {
			message = "crawl session failed"
		}
		upd.Error = &message
		p.logger.Warn("crawl session failed",
			zap.String("job_id", job.ID),
			zap.String("url", job.URL),
			zap.Error(err),
		)
	} else {
		p.logger.Info("crawl session finished",
			zap.String("job_id", job.ID),
			zap.Int("pages_crawled", pages),
			zap.Int("emails", len(result.Emails)),
			zap.Int("facebook_urls", len(result.FacebookURLs)),
		)
	}

	p.reconcile(job.ID, upd)
	metrics.IncJobTerminal(string(status))
	p.publishTerminal(job, status, result)
}

// runSession converts a panic anywhere below the runner into a session
// failure instead of killing the pool.
func (p *Pool) runSession(ctx context.Context, job crawler.Job) (result crawler.SessionResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("session panic: %v", rec)
		}
	}()
	return p.runner.Run(ctx, job.ID, job.URL)
}

// reconcile writes the terminal update, retrying with backoff. A job
// whose terminal write never lands stays in processing indefinitely, so
// the final failure is logged loudly.
func (p *Pool) reconcile(jobID string, upd crawler.JobUpdate) {
	var err error
	for attempt := 1; attempt <= p.cfg.TerminalWriteRetries; attempt++ {
		if _, err = p.store.Update(context.Background(), jobID, upd); err == nil {
			return
		}
		time.Sleep(p.cfg.TerminalWriteBackoff * time.Duration(attempt))
	}
	p.logger.Error("terminal status write failed, job may be stuck in processing",
		zap.String("job_id", jobID),
		zap.Int("attempts", p.cfg.TerminalWriteRetries),
		zap.Error(err),
	)
}

func (p *Pool) publishTerminal(job crawler.Job, status crawler.JobStatus, result crawler.SessionResult) {
	if p.publisher == nil || p.cfg.EventTopic == "" {
		return
	}
	payload := map[string]any{
		"job_id":        job.ID,
		"url":           job.URL,
		"status":        string(status),
		"pages_crawled": len(result.CrawledURLs),
		"emails":        len(result.Emails),
		"facebook_urls": len(result.FacebookURLs),
		"timestamp":     p.now().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.publisher.Publish(ctx, p.cfg.EventTopic, payload); err != nil {
		p.logger.Warn("terminal event publish failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (p *Pool) now() time.Time {
	if p.clock != nil {
		return p.clock.Now()
	}
	return time.Now().UTC()
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
