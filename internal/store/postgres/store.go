// Package postgres provides the Postgres-backed job store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

// Expected schema:
//
//	CREATE TABLE jobs (
//		id            TEXT PRIMARY KEY,
//		url           TEXT NOT NULL,
//		status        TEXT NOT NULL,
//		emails        TEXT[] NOT NULL DEFAULT '{}',
//		facebook_urls TEXT[] NOT NULL DEFAULT '{}',
//		crawled_urls  TEXT[] NOT NULL DEFAULT '{}',
//		pages_crawled INT NOT NULL DEFAULT 0,
//		error         TEXT,
//		retry_count   INT NOT NULL DEFAULT 0,
//		max_retries   INT NOT NULL DEFAULT 3,
//		created_at    TIMESTAMPTZ NOT NULL,
//		started_at    TIMESTAMPTZ,
//		updated_at    TIMESTAMPTZ NOT NULL,
//		completed_at  TIMESTAMPTZ
//	);

const jobColumns = `id, url, status, emails, facebook_urls, crawled_urls, pages_crawled,
	COALESCE(error, ''), retry_count, max_retries, created_at, started_at, updated_at, completed_at`

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Store implements crawler.Store on Postgres.
type Store struct {
	pool pgxPool
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily
// for testing).
func NewStoreWithPool(pool pgxPool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Create inserts a new queued record.
func (s *Store) Create(ctx context.Context, id, url string) (crawler.Job, error) {
	now := time.Now().UTC()
	query := `INSERT INTO jobs (id, url, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	RETURNING ` + jobColumns
	job, err := scanJob(s.pool.QueryRow(ctx, query, id, url, crawler.JobStatusQueued, now))
	if err != nil {
		return crawler.Job{}, &crawler.StoreError{Op: "create", Err: err}
	}
	return job, nil
}

// Get fetches a job snapshot by id.
func (s *Store) Get(ctx context.Context, id string) (crawler.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.Job{}, crawler.ErrNotFound
		}
		return crawler.Job{}, &crawler.StoreError{Op: "get", Err: err}
	}
	return job, nil
}

// Update applies a partial update. Terminal records are read-only and
// status transitions only move forward.
func (s *Store) Update(ctx context.Context, id string, upd crawler.JobUpdate) (crawler.Job, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return crawler.Job{}, err
	}
	if current.Status.Terminal() {
		return crawler.Job{}, &crawler.StoreError{Op: "update", Err: errors.New("job is terminal")}
	}
	if upd.Status != nil && !current.Status.CanTransitionTo(*upd.Status) {
		return crawler.Job{}, &crawler.StoreError{Op: "update", Err: errors.New("backward status transition")}
	}

	now := time.Now().UTC()
	sets := []string{"updated_at = $2"}
	args := []any{id, now}
	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		addSet("status", *upd.Status)
		if *upd.Status == crawler.JobStatusProcessing && current.StartedAt == nil && upd.StartedAt == nil {
			addSet("started_at", now)
		}
		if upd.Status.Terminal() && upd.CompletedAt == nil {
			addSet("completed_at", now)
		}
	}
	if upd.Emails != nil {
		addSet("emails", upd.Emails)
	}
	if upd.FacebookURLs != nil {
		addSet("facebook_urls", upd.FacebookURLs)
	}
	if upd.CrawledURLs != nil {
		addSet("crawled_urls", upd.CrawledURLs)
	}
	if upd.PagesCrawled != nil {
		addSet("pages_crawled", *upd.PagesCrawled)
	}
	if upd.Error != nil {
		addSet("error", *upd.Error)
	}
	if upd.RetryCount != nil {
		addSet("retry_count", *upd.RetryCount)
	}
	if upd.StartedAt != nil {
		addSet("started_at", *upd.StartedAt)
	}
	if upd.CompletedAt != nil {
		addSet("completed_at", *upd.CompletedAt)
	}

	query := fmt.Sprintf(
		`UPDATE jobs SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "),
		jobColumns,
	)
	job, err := scanJob(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.Job{}, crawler.ErrNotFound
		}
		return crawler.Job{}, &crawler.StoreError{Op: "update", Err: err}
	}
	return job, nil
}

// ListByStatus returns up to limit jobs in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status crawler.JobStatus, limit int) ([]crawler.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, &crawler.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var jobs []crawler.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, &crawler.StoreError{Op: "list", Err: err}
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, &crawler.StoreError{Op: "list", Err: err}
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (crawler.Job, error) {
	var job crawler.Job
	err := row.Scan(
		&job.ID,
		&job.URL,
		&job.Status,
		&job.Emails,
		&job.FacebookURLs,
		&job.CrawledURLs,
		&job.PagesCrawled,
		&job.Error,
		&job.RetryCount,
		&job.MaxRetries,
		&job.CreatedAt,
		&job.StartedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return crawler.Job{}, fmt.Errorf("scan job: %w", err)
	}
	return job, nil
}
