// Package memory provides an in-memory job store for development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// Store implements crawler.Store with a mutex-guarded map.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]crawler.Job
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]crawler.Job)}
}

// Create inserts a new queued record.
func (s *Store) Create(_ context.Context, id, url string) (crawler.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; exists {
		return crawler.Job{}, &crawler.StoreError{Op: "create", Err: errors.New("duplicate job id")}
	}
	now := time.Now().UTC()
	job := crawler.Job{
		ID:           id,
		URL:          url,
		Status:       crawler.JobStatusQueued,
		Emails:       []string{},
		FacebookURLs: []string{},
		CrawledURLs:  []string{},
		MaxRetries:   3,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.jobs[id] = job
	return job, nil
}

// Update applies a partial update. Terminal records are read-only and
// status transitions only move forward.
func (s *Store) Update(_ context.Context, id string, upd crawler.JobUpdate) (crawler.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return crawler.Job{}, crawler.ErrNotFound
	}
	if job.Status.Terminal() {
		return crawler.Job{}, &crawler.StoreError{Op: "update", Err: errors.New("job is terminal")}
	}
	if upd.Status != nil && !job.Status.CanTransitionTo(*upd.Status) {
		return crawler.Job{}, &crawler.StoreError{Op: "update", Err: errors.New("backward status transition")}
	}

	now := time.Now().UTC()
	applyUpdate(&job, upd, now)
	s.jobs[id] = job
	return job, nil
}

// Get fetches a job snapshot by id.
func (s *Store) Get(_ context.Context, id string) (crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return crawler.Job{}, crawler.ErrNotFound
	}
	return job, nil
}

// ListByStatus returns up to limit jobs in the given status, oldest first.
func (s *Store) ListByStatus(_ context.Context, status crawler.JobStatus, limit int) ([]crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawler.Job
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func applyUpdate(job *crawler.Job, upd crawler.JobUpdate, now time.Time) {
	if upd.Status != nil {
		job.Status = *upd.Status
		if *upd.Status == crawler.JobStatusProcessing && job.StartedAt == nil {
			job.StartedAt = pointerTime(now)
		}
		if upd.Status.Terminal() && job.CompletedAt == nil {
			job.CompletedAt = pointerTime(now)
		}
	}
	if upd.Emails != nil {
		job.Emails = append([]string(nil), upd.Emails...)
	}
	if upd.FacebookURLs != nil {
		job.FacebookURLs = append([]string(nil), upd.FacebookURLs...)
	}
	if upd.CrawledURLs != nil {
		job.CrawledURLs = append([]string(nil), upd.CrawledURLs...)
	}
	if upd.PagesCrawled != nil {
		job.PagesCrawled = *upd.PagesCrawled
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.RetryCount != nil {
		job.RetryCount = *upd.RetryCount
	}
	if upd.StartedAt != nil {
		job.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		job.CompletedAt = upd.CompletedAt
	}
	job.UpdatedAt = now
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
