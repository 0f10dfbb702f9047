package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore implements TranscriptStore, SummaryStore, and VectorStore
// over a single Postgres+pgvector connection pool, split into the three
// narrow collaborator contracts this engine expects instead of one
// monolithic interface.
type PostgresStore struct {
	db    *pgxpool.Pool
	ndims int
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, ndims int) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, newError("NewPostgresStore", ErrInvalidConfig, fmt.Errorf("parse database url: %w", err))
	}

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, newError("NewPostgresStore", ErrStorageFailure, fmt.Errorf("connect: %w", err))
	}

	store := &PostgresStore{db: db, ndims: ndims}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, newError("NewPostgresStore", ErrStorageFailure, fmt.Errorf("init schema: %w", err))
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS memory_items (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			metadata JSONB NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memory_items_session ON memory_items(session_id);
		CREATE INDEX IF NOT EXISTS idx_memory_items_session_hash ON memory_items(session_id, content_hash);
		CREATE INDEX IF NOT EXISTS idx_memory_items_embedding ON memory_items
		USING hnsw (embedding vector_cosine_ops)
		WITH (m = 16, ef_construction = 64);

		CREATE TABLE IF NOT EXISTS transcript_events (
			turn_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			insertion_rank BIGSERIAL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_name TEXT,
			tool_payload TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_transcript_session_ts ON transcript_events(session_id, ts, insertion_rank);

		CREATE TABLE IF NOT EXISTS session_summaries (
			session_id TEXT PRIMARY KEY,
			summary_text TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			turn_count_at_update BIGINT NOT NULL
		);
	`, s.ndims)

	_, err := s.db.Exec(ctx, schema)
	return err
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.db.Close() }

// --- VectorStore ---

func (s *PostgresStore) Upsert(ctx context.Context, item MemoryItem, embedding []float32) error {
	if len(embedding) != s.ndims {
		return newError("PostgresStore.Upsert", ErrInvalidInput, fmt.Errorf("embedding has %d dims, want %d", len(embedding), s.ndims))
	}

	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return newError("PostgresStore.Upsert", ErrInvalidInput, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO memory_items (id, session_id, kind, content, content_hash, metadata, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at
	`, item.ID.String(), item.SessionID.String(), string(item.Kind), item.Content, item.ContentHash,
		metadataJSON, pgvector.NewVector(embedding), item.Metadata.CreatedAt, item.Metadata.UpdatedAt)
	if err != nil {
		return newError("PostgresStore.Upsert", ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, session SessionID, queryText string, topK int, minSimilarity float64) ([]ScoredItem, error) {
	return nil, newError("PostgresStore.Query", ErrInvalidInput, fmt.Errorf("Query requires an embedder; use QueryWithEmbedding"))
}

func (s *PostgresStore) QueryWithEmbedding(ctx context.Context, session SessionID, embedding []float32, topK int, minSimilarity float64) ([]ScoredItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, kind, content, content_hash, metadata, created_at, updated_at,
		       1 - (embedding <=> $1::vector) AS similarity
		FROM memory_items
		WHERE session_id = $2 AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1::vector) >= $3
		ORDER BY embedding <=> $1::vector
		LIMIT $4
	`, pgvector.NewVector(embedding), session.String(), minSimilarity, topK)
	if err != nil {
		return nil, newError("PostgresStore.QueryWithEmbedding", ErrStorageFailure, err)
	}
	defer rows.Close()

	var results []ScoredItem
	for rows.Next() {
		item, similarity, err := scanMemoryRowWithSimilarity(rows)
		if err != nil {
			return nil, newError("PostgresStore.QueryWithEmbedding", ErrStorageFailure, err)
		}
		results = append(results, ScoredItem{Item: item, Similarity: similarity})
	}
	return results, rows.Err()
}

func (s *PostgresStore) ExistsHash(ctx context.Context, session SessionID, contentHash string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM memory_items WHERE session_id = $1 AND content_hash = $2)
	`, session.String(), contentHash).Scan(&exists)
	if err != nil {
		return false, newError("PostgresStore.ExistsHash", ErrStorageFailure, err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteByIDs(ctx context.Context, ids []MemoryID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := s.db.Exec(ctx, `DELETE FROM memory_items WHERE id = ANY($1)`, strs)
	if err != nil {
		return newError("PostgresStore.DeleteByIDs", ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStore) FindExpired(ctx context.Context, now time.Time) ([]MemoryID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, metadata, created_at FROM memory_items
	`)
	if err != nil {
		return nil, newError("PostgresStore.FindExpired", ErrStorageFailure, err)
	}
	defer rows.Close()

	var expired []MemoryID
	for rows.Next() {
		var idStr string
		var metadataJSON []byte
		var createdAt time.Time
		if err := rows.Scan(&idStr, &metadataJSON, &createdAt); err != nil {
			return nil, newError("PostgresStore.FindExpired", ErrStorageFailure, err)
		}
		var metadata MemoryMetadata
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			continue
		}
		if metadata.TTLSeconds == nil {
			continue
		}
		if now.Sub(createdAt).Seconds() >= float64(*metadata.TTLSeconds) {
			id, err := ParseMemoryID(idStr)
			if err != nil {
				continue
			}
			expired = append(expired, id)
		}
	}
	return expired, rows.Err()
}

func scanMemoryRowWithSimilarity(rows pgx.Rows) (MemoryItem, float64, error) {
	var idStr, sessionStr, kindStr, content, contentHash string
	var metadataJSON []byte
	var createdAt, updatedAt time.Time
	var similarity float64

	if err := rows.Scan(&idStr, &sessionStr, &kindStr, &content, &contentHash, &metadataJSON, &createdAt, &updatedAt, &similarity); err != nil {
		return MemoryItem{}, 0, err
	}

	id, err := ParseMemoryID(idStr)
	if err != nil {
		return MemoryItem{}, 0, err
	}
	session, err := ParseSessionID(sessionStr)
	if err != nil {
		return MemoryItem{}, 0, err
	}
	var metadata MemoryMetadata
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return MemoryItem{}, 0, err
	}

	item := MemoryItem{
		ID:          id,
		SessionID:   session,
		Kind:        ParseKindLossy(kindStr),
		Content:     content,
		ContentHash: contentHash,
		Metadata:    metadata,
	}
	return item, similarity, nil
}

// --- TranscriptStore ---

func (s *PostgresStore) AppendEvents(ctx context.Context, events []TranscriptEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO transcript_events (turn_id, session_id, ts, role, content, tool_name, tool_payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, ev.TurnID.String(), ev.SessionID.String(), ev.Timestamp, string(ev.Role), ev.Content, ev.ToolName, ev.ToolPayload)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return newError("PostgresStore.AppendEvents", ErrStorageFailure, err)
		}
	}
	return nil
}

func (s *PostgresStore) LoadRecent(ctx context.Context, session SessionID, limit int) ([]TranscriptEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT turn_id, session_id, ts, role, content, tool_name, tool_payload
		FROM transcript_events
		WHERE session_id = $1
		ORDER BY ts DESC, insertion_rank DESC
		LIMIT $2
	`, session.String(), limit)
	if err != nil {
		return nil, newError("PostgresStore.LoadRecent", ErrStorageFailure, err)
	}
	defer rows.Close()

	events, err := scanTranscriptRows(rows)
	if err != nil {
		return nil, err
	}
	reverseTranscriptEvents(events)
	return events, nil
}

func (s *PostgresStore) LoadRange(ctx context.Context, session SessionID, fromTS, toTS time.Time) ([]TranscriptEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT turn_id, session_id, ts, role, content, tool_name, tool_payload
		FROM transcript_events
		WHERE session_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC, insertion_rank ASC
	`, session.String(), fromTS, toTS)
	if err != nil {
		return nil, newError("PostgresStore.LoadRange", ErrStorageFailure, err)
	}
	defer rows.Close()
	return scanTranscriptRows(rows)
}

func (s *PostgresStore) CountTurns(ctx context.Context, session SessionID) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT turn_id) FROM transcript_events WHERE session_id = $1
	`, session.String()).Scan(&count)
	if err != nil {
		return 0, newError("PostgresStore.CountTurns", ErrStorageFailure, err)
	}
	return count, nil
}

func scanTranscriptRows(rows pgx.Rows) ([]TranscriptEvent, error) {
	var events []TranscriptEvent
	for rows.Next() {
		var turnStr, sessionStr, roleStr, content string
		var toolName, toolPayload *string
		var ts time.Time

		if err := rows.Scan(&turnStr, &sessionStr, &ts, &roleStr, &content, &toolName, &toolPayload); err != nil {
			return nil, newError("scanTranscriptRows", ErrStorageFailure, err)
		}

		turnID, err := ParseTurnID(turnStr)
		if err != nil {
			return nil, err
		}
		sessionID, err := ParseSessionID(sessionStr)
		if err != nil {
			return nil, err
		}

		ev := TranscriptEvent{TurnID: turnID, SessionID: sessionID, Timestamp: ts, Role: TranscriptRole(roleStr), Content: content}
		if toolName != nil {
			ev.ToolName = *toolName
		}
		if toolPayload != nil {
			ev.ToolPayload = *toolPayload
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func reverseTranscriptEvents(events []TranscriptEvent) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}

// --- SummaryStore ---

func (s *PostgresStore) Get(ctx context.Context, session SessionID) (SummaryRecord, bool, error) {
	var rec SummaryRecord
	rec.SessionID = session

	err := s.db.QueryRow(ctx, `
		SELECT summary_text, updated_at, turn_count_at_update
		FROM session_summaries WHERE session_id = $1
	`, session.String()).Scan(&rec.SummaryText, &rec.UpdatedAt, &rec.TurnCountAtUpdate)
	if err == pgx.ErrNoRows {
		return SummaryRecord{}, false, nil
	}
	if err != nil {
		return SummaryRecord{}, false, newError("PostgresStore.Get", ErrStorageFailure, err)
	}
	return rec, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, record SummaryRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO session_summaries (session_id, summary_text, updated_at, turn_count_at_update)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			summary_text = EXCLUDED.summary_text,
			updated_at = EXCLUDED.updated_at,
			turn_count_at_update = EXCLUDED.turn_count_at_update
	`, record.SessionID.String(), record.SummaryText, record.UpdatedAt, record.TurnCountAtUpdate)
	if err != nil {
		return newError("PostgresStore.Set", ErrStorageFailure, err)
	}
	return nil
}
