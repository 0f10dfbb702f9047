package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundCleanupRunCleanupDeletesExpiredItems(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryVectorStore(nil)
	now := time.Now()

	metadata := NewMetadata(NewSource(SourceUser), now.Add(-2*time.Hour)).WithTTL(3600)
	item, err := NewMemoryItem(NewSessionID(), KindEpisode, "old item", metadata)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, item, []float32{1}))

	worker := NewBackgroundCleanup(store, CleanupConfig{Enabled: true, MaxMemoriesPerSession: 500}, zerolog.Nop())

	stats, err := worker.runCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ExpiredDeleted)

	exists, err := store.ExistsHash(ctx, item.SessionID, item.ContentHash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBackgroundCleanupRunCleanupCapsBatchSize(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryVectorStore(nil)
	now := time.Now()

	for i := 0; i < 5; i++ {
		metadata := NewMetadata(NewSource(SourceUser), now.Add(-2*time.Hour)).WithTTL(3600)
		item, err := NewMemoryItem(NewSessionID(), KindEpisode, "old item", metadata)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, item, []float32{1}))
	}

	worker := NewBackgroundCleanup(store, CleanupConfig{Enabled: true, MaxMemoriesPerSession: 2}, zerolog.Nop())

	stats, err := worker.runCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ExpiredDeleted)
}

func TestBackgroundCleanupShutdownIsIdempotent(t *testing.T) {
	worker := NewBackgroundCleanup(NewInMemoryVectorStore(nil), DefaultCleanupConfig(), zerolog.Nop())

	assert.NotPanics(t, func() {
		worker.Shutdown()
		worker.Shutdown()
	})
}

func TestBackgroundCleanupSpawnStopsOnShutdown(t *testing.T) {
	store := NewInMemoryVectorStore(nil)
	worker := NewBackgroundCleanup(store, CleanupConfig{Enabled: true, IntervalSeconds: 3600}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Spawn(ctx)
	worker.Shutdown()

	// No assertion beyond not hanging: the worker goroutine must observe
	// the shutdown channel and return.
	time.Sleep(10 * time.Millisecond)
}
