package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCachedTranscriptStore layers a Redis-backed recent-events cache in
// front of a durable TranscriptStore: writes go to both, reads prefer
// Redis and fall back to the backing store on a cache miss, repopulating
// asynchronously.
type RedisCachedTranscriptStore struct {
	backing   TranscriptStore
	redis     *redis.Client
	maxCached int
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewRedisCachedTranscriptStore builds the cache, pinging Redis once to
// fail fast on misconfiguration.
func NewRedisCachedTranscriptStore(ctx context.Context, backing TranscriptStore, cfg RedisConfig, maxCached int, ttl time.Duration, logger zerolog.Logger) (*RedisCachedTranscriptStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, newError("NewRedisCachedTranscriptStore", ErrStorageFailure, fmt.Errorf("connect to redis: %w", err))
	}

	if maxCached <= 0 {
		maxCached = 50
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisCachedTranscriptStore{backing: backing, redis: client, maxCached: maxCached, ttl: ttl, logger: logger}, nil
}

func eventsKey(session SessionID) string { return fmt.Sprintf("session:%s:events", session.String()) }

// AppendEvents writes through to the backing store, then best-effort pushes
// the same events into the Redis cache list (newest first, trimmed to
// maxCached, with a refreshed TTL). Cache-write failures are logged, not
// propagated: a stale or missing cache entry just falls back to the
// backing store on the next read.
func (c *RedisCachedTranscriptStore) AppendEvents(ctx context.Context, events []TranscriptEvent) error {
	if err := c.backing.AppendEvents(ctx, events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	key := eventsKey(events[0].SessionID)
	for i := 0; i < len(events); i++ {
		payload, err := json.Marshal(events[i])
		if err != nil {
			continue
		}
		if err := c.redis.LPush(ctx, key, payload).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("transcript cache: LPush failed")
		}
	}
	if err := c.redis.LTrim(ctx, key, 0, int64(c.maxCached-1)).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("transcript cache: LTrim failed")
	}
	if err := c.redis.Expire(ctx, key, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("transcript cache: Expire failed")
	}
	return nil
}

// LoadRecent prefers the Redis cache; on a miss it falls back to the
// backing store and repopulates the cache in the background.
func (c *RedisCachedTranscriptStore) LoadRecent(ctx context.Context, session SessionID, limit int) ([]TranscriptEvent, error) {
	key := eventsKey(session)

	raw, err := c.redis.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err == nil && len(raw) > 0 {
		events := make([]TranscriptEvent, 0, len(raw))
		for i := len(raw) - 1; i >= 0; i-- {
			var ev TranscriptEvent
			if err := json.Unmarshal([]byte(raw[i]), &ev); err != nil {
				continue
			}
			events = append(events, ev)
		}
		if len(events) > 0 {
			return events, nil
		}
	}

	events, err := c.backing.LoadRecent(ctx, session, limit)
	if err != nil {
		return nil, err
	}

	go c.repopulate(context.Background(), session, events)
	return events, nil
}

func (c *RedisCachedTranscriptStore) repopulate(ctx context.Context, session SessionID, events []TranscriptEvent) {
	key := eventsKey(session)
	c.redis.Del(ctx, key)
	for i := 0; i < len(events); i++ {
		payload, err := json.Marshal(events[i])
		if err != nil {
			continue
		}
		c.redis.LPush(ctx, key, payload)
	}
	c.redis.Expire(ctx, key, c.ttl)
}

// LoadRange bypasses the cache; range queries are not the hot path this
// cache optimizes for.
func (c *RedisCachedTranscriptStore) LoadRange(ctx context.Context, session SessionID, fromTS, toTS time.Time) ([]TranscriptEvent, error) {
	return c.backing.LoadRange(ctx, session, fromTS, toTS)
}

func (c *RedisCachedTranscriptStore) CountTurns(ctx context.Context, session SessionID) (int64, error) {
	return c.backing.CountTurns(ctx, session)
}

// Close closes the Redis client; the backing store is owned by its caller.
func (c *RedisCachedTranscriptStore) Close() error { return c.redis.Close() }

// RedisCachedSummaryStore layers a short Redis TTL cache (default one
// hour) in front of a durable SummaryStore.
type RedisCachedSummaryStore struct {
	backing SummaryStore
	redis   *redis.Client
	ttl     time.Duration
}

// NewRedisCachedSummaryStore wraps backing with a Redis cache sharing the
// given client (typically the same one used by RedisCachedTranscriptStore).
func NewRedisCachedSummaryStore(backing SummaryStore, client *redis.Client, ttl time.Duration) *RedisCachedSummaryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCachedSummaryStore{backing: backing, redis: client, ttl: ttl}
}

func summaryKey(session SessionID) string { return fmt.Sprintf("session:%s:summary", session.String()) }

func (c *RedisCachedSummaryStore) Get(ctx context.Context, session SessionID) (SummaryRecord, bool, error) {
	raw, err := c.redis.Get(ctx, summaryKey(session)).Result()
	if err == nil && raw != "" {
		var rec SummaryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			return rec, true, nil
		}
	}
	return c.backing.Get(ctx, session)
}

func (c *RedisCachedSummaryStore) Set(ctx context.Context, record SummaryRecord) error {
	if err := c.backing.Set(ctx, record); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	c.redis.Set(ctx, summaryKey(record.SessionID), payload, c.ttl)
	return nil
}
