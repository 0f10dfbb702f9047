package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CleanupStats reports one sweep's outcome.
type CleanupStats struct {
	ExpiredDeleted int
	DurationMs     int64
}

// BackgroundCleanup is the cooperative periodic TTL sweep worker, driven
// by a ticker plus a done channel so Shutdown can interrupt a sleeping
// loop without waiting for the next tick.
type BackgroundCleanup struct {
	store  VectorStore
	config CleanupConfig
	logger zerolog.Logger

	shutdown chan struct{}
	once     sync.Once
}

// NewBackgroundCleanup builds a worker bound to store, not yet running.
func NewBackgroundCleanup(store VectorStore, config CleanupConfig, logger zerolog.Logger) *BackgroundCleanup {
	return &BackgroundCleanup{
		store:    store,
		config:   config,
		logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// Shutdown signals the worker loop to exit after its current iteration.
// Safe to call more than once.
func (c *BackgroundCleanup) Shutdown() {
	c.once.Do(func() { close(c.shutdown) })
}

// Spawn starts the worker loop in its own goroutine.
func (c *BackgroundCleanup) Spawn(ctx context.Context) {
	go c.run(ctx)
}

func (c *BackgroundCleanup) run(ctx context.Context) {
	if !c.config.Enabled {
		return
	}

	interval := time.Duration(c.config.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := c.runCleanup(ctx)
			if err != nil {
				c.logger.Warn().Err(err).Msg("background cleanup: sweep failed, continuing")
				continue
			}
			c.logger.Debug().
				Int("expired_deleted", stats.ExpiredDeleted).
				Int64("duration_ms", stats.DurationMs).
				Msg("background cleanup: sweep complete")
		case <-c.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCleanup performs one sweep: find expired items, delete them, time it.
func (c *BackgroundCleanup) runCleanup(ctx context.Context) (CleanupStats, error) {
	start := time.Now()

	expired, err := c.store.FindExpired(ctx, start)
	if err != nil {
		return CleanupStats{}, newError("BackgroundCleanup.runCleanup", ErrStorageFailure, err)
	}
	if len(expired) == 0 {
		return CleanupStats{DurationMs: time.Since(start).Milliseconds()}, nil
	}

	if c.config.MaxMemoriesPerSession > 0 && len(expired) > c.config.MaxMemoriesPerSession {
		expired = expired[:c.config.MaxMemoriesPerSession]
	}

	if err := c.store.DeleteByIDs(ctx, expired); err != nil {
		return CleanupStats{}, newError("BackgroundCleanup.runCleanup", ErrStorageFailure, err)
	}

	return CleanupStats{ExpiredDeleted: len(expired), DurationMs: time.Since(start).Milliseconds()}, nil
}
