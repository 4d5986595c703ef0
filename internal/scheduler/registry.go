// Package scheduler runs the polling worker pool that claims queued jobs
// and reconciles their terminal state.
package scheduler

import (
	"sync"
)

// ClaimRegistry tracks which job ids are currently being processed and
// guards the at-most-one-active invariant: a claimed id cannot be
// claimed again until it is released. It is injectable so tests can
// simulate contention; it does not protect against a second pool
// instance claiming the same record from the store.
type ClaimRegistry interface {
	// TryClaim atomically claims id, reporting false if already claimed.
	TryClaim(id string) bool
	// Release frees a previously claimed id.
	Release(id string)
	// Count returns the number of currently claimed ids.
	Count() int
}

// MemoryRegistry is the in-process ClaimRegistry used by a single pool.
type MemoryRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewMemoryRegistry constructs a MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{active: make(map[string]struct{})}
}

// TryClaim implements ClaimRegistry.
func (r *MemoryRegistry) TryClaim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, claimed := r.active[id]; claimed {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

// Release implements ClaimRegistry.
func (r *MemoryRegistry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// Count implements ClaimRegistry.
func (r *MemoryRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
