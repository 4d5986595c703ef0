package crawler

import (
	"context"
	"time"
)

// Store persists job records. Implementations must keep status
// transitions monotonic and reject duplicate ids on Create.
type Store interface {
	Create(ctx context.Context, id, url string) (Job, error)
	Update(ctx context.Context, id string, upd JobUpdate) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	// ListByStatus returns up to limit jobs in the given status,
	// ordered by CreatedAt ascending.
	ListByStatus(ctx context.Context, status JobStatus, limit int) ([]Job, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// RenderDetector decides whether a raw fetch should be promoted to a
// headless render before extraction.
type RenderDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// Publisher pushes terminal job events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
