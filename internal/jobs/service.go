// Package jobs exposes the job lifecycle operations used by the HTTP API.
package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// StatusReporter reports the worker pool's current state.
type StatusReporter interface {
	Status() crawler.PoolStatus
}

// Service validates submissions and reads job records on behalf of the API.
type Service struct {
	store  crawler.Store
	idGen  crawler.IDGenerator
	pool   StatusReporter
	logger *zap.Logger
}

// NewService builds a Service.
func NewService(store crawler.Store, idGen crawler.IDGenerator, pool StatusReporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		idGen:  idGen,
		pool:   pool,
		logger: logger,
	}
}

// Submit validates the seed URL and enqueues a new job in the queued state.
// The scheduler picks it up on its next poll cycle; submission never blocks
// on crawl work.
func (s *Service) Submit(ctx context.Context, seedURL string) (crawler.Job, error) {
	if err := crawler.ValidateSeedURL(seedURL); err != nil {
		return crawler.Job{}, err
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return crawler.Job{}, fmt.Errorf("generate job id: %w", err)
	}

	job, err := s.store.Create(ctx, id, seedURL)
	if err != nil {
		return crawler.Job{}, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
	)
	return job, nil
}

// Poll returns the current record for the given job id.
func (s *Service) Poll(ctx context.Context, id string) (crawler.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return crawler.Job{}, err
	}
	return job, nil
}

// PoolStatus reports whether the scheduler is running and how many jobs
// are actively being crawled.
func (s *Service) PoolStatus() crawler.PoolStatus {
	if s.pool == nil {
		return crawler.PoolStatus{}
	}
	return s.pool.Status()
}
