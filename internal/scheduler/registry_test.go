package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_ClaimReleaseCount(t *testing.T) {
	t.Parallel()

	registry := NewMemoryRegistry()
	require.True(t, registry.TryClaim("job-1"))
	require.False(t, registry.TryClaim("job-1"))
	require.Equal(t, 1, registry.Count())

	registry.Release("job-1")
	require.Zero(t, registry.Count())
	require.True(t, registry.TryClaim("job-1"))
}

func TestMemoryRegistry_ConcurrentClaimersGetOneWinner(t *testing.T) {
	t.Parallel()

	registry := NewMemoryRegistry()
	var wins atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if registry.TryClaim("contested") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(1), wins.Load())
	require.Equal(t, 1, registry.Count())
}
