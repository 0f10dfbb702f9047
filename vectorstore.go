package memory

import (
	"context"
	"time"
)

// ScoredItem pairs a stored memory item with its similarity to a query.
type ScoredItem struct {
	Item       MemoryItem
	Similarity float64
}

// VectorStore is the embedding-backed memory item store. Upserts for
// a single session may be issued concurrently by distinct extractor
// outputs; implementations must linearize them by item.ID.
type VectorStore interface {
	// Upsert inserts or replaces item by ID. embedding dimensionality must
	// match the configured ndims; a mismatch is InvalidInput.
	Upsert(ctx context.Context, item MemoryItem, embedding []float32) error
	// Query returns items from session with similarity >= minSimilarity,
	// descending similarity order, the store embedding queryText internally.
	Query(ctx context.Context, session SessionID, queryText string, topK int, minSimilarity float64) ([]ScoredItem, error)
	// QueryWithEmbedding is the same contract as Query but takes a
	// caller-supplied embedding instead of computing one internally.
	QueryWithEmbedding(ctx context.Context, session SessionID, embedding []float32, topK int, minSimilarity float64) ([]ScoredItem, error)
	// ExistsHash reports whether an item with content_hash already exists
	// for session. Invariant V1: true immediately after any Upsert of a
	// matching hash.
	ExistsHash(ctx context.Context, session SessionID, contentHash string) (bool, error)
	// DeleteByIDs atomically removes both the memory record and its
	// embedding row for each ID, leaving no orphaned row (invariant V2).
	DeleteByIDs(ctx context.Context, ids []MemoryID) error
	// FindExpired scans for items whose TTL has elapsed as of now, used by
	// the background cleanup worker.
	FindExpired(ctx context.Context, now time.Time) ([]MemoryID, error)
}

// Embedder is the embedding-provider collaborator contract, external
// to this core.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is the completion-provider collaborator contract, used
// only by the optional LLM extractor, external to this core. Summary
// updates do not call it.
type Completer interface {
	Complete(ctx context.Context, preamble, prompt string, temperature float64, maxTokens int) (string, error)
}
