package crawler

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a job id with no record. It is distinct from other
// store failures so callers can tell "not yet visible" from "failed".
var ErrNotFound = errors.New("job not found")

// ValidationError rejects a malformed seed URL before any record exists.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a record-store failure (connectivity, constraint
// violation). It is surfaced to the caller of the mutating operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// FetchError marks a single page that failed to load or extract. It is
// contained inside the crawl session and never fails the job.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SessionError marks a crawl session that could not run at all. It is
// terminal for the job.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("crawl session: %v", e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
