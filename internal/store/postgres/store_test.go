package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

var rowColumns = []string{
	"id", "url", "status", "emails", "facebook_urls", "crawled_urls",
	"pages_crawled", "error", "retry_count", "max_retries",
	"created_at", "started_at", "updated_at", "completed_at",
}

func queuedRow(id string, createdAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(rowColumns).AddRow(
		id, "https://example.com", "queued",
		[]string{}, []string{}, []string{},
		0, "", 0, 3,
		createdAt, nil, createdAt, nil,
	)
}

func TestCreateInsertsQueuedRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("INSERT INTO jobs").
		WithArgs("job-1", "https://example.com", crawler.JobStatusQueued, pgxmock.AnyArg()).
		WillReturnRows(queuedRow("job-1", now))

	store := NewStoreWithPool(mock)
	job, err := store.Create(context.Background(), "job-1", "https://example.com")
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusQueued, job.Status)
	require.Equal(t, "job-1", job.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReturnsNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	store := NewStoreWithPool(mock)
	_, err = store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, crawler.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTransitionsToProcessing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(queuedRow("job-1", now))

	processingRow := pgxmock.NewRows(rowColumns).AddRow(
		"job-1", "https://example.com", "processing",
		[]string{}, []string{}, []string{},
		0, "", 0, 3,
		now, &now, now, nil,
	)
	mock.ExpectQuery("UPDATE jobs SET").
		WithArgs("job-1", pgxmock.AnyArg(), crawler.JobStatusProcessing, pgxmock.AnyArg()).
		WillReturnRows(processingRow)

	store := NewStoreWithPool(mock)
	processing := crawler.JobStatusProcessing
	job, err := store.Update(context.Background(), "job-1", crawler.JobUpdate{Status: &processing})
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsTerminalRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	doneRow := pgxmock.NewRows(rowColumns).AddRow(
		"job-1", "https://example.com", "done",
		[]string{"a@x.com"}, []string{}, []string{"https://example.com"},
		1, "", 0, 3,
		now, &now, now, &now,
	)
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(doneRow)

	store := NewStoreWithPool(mock)
	_, err = store.Update(context.Background(), "job-1", crawler.JobUpdate{Emails: []string{"late@x.com"}})
	var storeErr *crawler.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatusOrdersOldestFirst(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	older := time.Unix(1700000000, 0).UTC()
	newer := older.Add(time.Minute)
	rows := pgxmock.NewRows(rowColumns).
		AddRow("job-1", "https://example.com", "queued", []string{}, []string{}, []string{}, 0, "", 0, 3, older, nil, older, nil).
		AddRow("job-2", "https://example.org", "queued", []string{}, []string{}, []string{}, 0, "", 0, 3, newer, nil, newer, nil)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE status").
		WithArgs(crawler.JobStatusQueued, 10).
		WillReturnRows(rows)

	store := NewStoreWithPool(mock)
	jobs, err := store.ListByStatus(context.Background(), crawler.JobStatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "job-1", jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
