// Package crawler defines core types shared across subsystems.
package crawler

import (
	"time"
)

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values persisted in the job store. Transitions are
// forward-only: queued -> processing -> done|error.
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further transitions may occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// rank orders statuses along the lifecycle so stores can reject
// backward transitions.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusDone, JobStatusError:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next keeps the
// lifecycle monotonic.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// Job represents one crawl-and-extract request and its accumulated outcome.
type Job struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Status       JobStatus  `json:"status"`
	Emails       []string   `json:"emails"`
	FacebookURLs []string   `json:"facebookUrls"`
	CrawledURLs  []string   `json:"crawledUrls"`
	PagesCrawled int        `json:"pagesCrawled"`
	Error        string     `json:"error,omitempty"`
	RetryCount   int        `json:"retryCount"`
	MaxRetries   int        `json:"maxRetries"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// JobUpdate is a partial update applied by Store.Update. Nil fields are
// left untouched.
type JobUpdate struct {
	Status       *JobStatus
	Emails       []string
	FacebookURLs []string
	CrawledURLs  []string
	PagesCrawled *int
	Error        *string
	RetryCount   *int
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// ContentKind tags which form of page content a fetch produced.
type ContentKind int

// A page visit yields exactly one of the two content forms.
const (
	ContentRaw ContentKind = iota
	ContentRendered
)

// PageContent carries the markup of one visited page, either the raw
// response body or the rendered DOM, never both.
type PageContent struct {
	kind   ContentKind
	markup string
}

// RawContent wraps a raw HTTP response body.
func RawContent(body []byte) PageContent {
	return PageContent{kind: ContentRaw, markup: string(body)}
}

// RenderedContent wraps a rendered DOM snapshot.
func RenderedContent(text string) PageContent {
	return PageContent{kind: ContentRendered, markup: text}
}

// Kind returns the content form.
func (c PageContent) Kind() ContentKind {
	return c.kind
}

// Markup returns the page markup regardless of form, so extraction and
// link discovery consume both forms uniformly.
func (c PageContent) Markup() string {
	return c.markup
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	JobID       string
	URL         string
	UseHeadless bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// SessionResult is the aggregate a crawl session hands back to the pool.
type SessionResult struct {
	Emails       []string
	FacebookURLs []string
	CrawledURLs  []string
}

// PoolStatus is the scheduler's health snapshot.
type PoolStatus struct {
	Running        bool `json:"running"`
	ActiveJobCount int  `json:"activeJobCount"`
}
