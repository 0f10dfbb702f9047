package memory

import (
	"context"
)

// DedupOutcome tags the result of CheckSemanticDuplicate.
type DedupOutcome int

const (
	// DedupExactDuplicate means an item with this exact content_hash
	// already exists; the caller should skip storing anything.
	DedupExactDuplicate DedupOutcome = iota
	// DedupUnique means no sufficiently similar item exists; Item/Embedding
	// carry the new item to upsert as-is.
	DedupUnique
	// DedupMerged means an existing item absorbed the new content; Item
	// carries the merged record (existing.ID) to upsert in place.
	DedupMerged
)

// DedupResult is the outcome of the semantic-dedup check.
type DedupResult struct {
	Outcome    DedupOutcome
	Item       MemoryItem
	Embedding  []float32
	Similarity float64
}

// SemanticDedupConfig configures the optional semantic-dedup path.
type SemanticDedupConfig struct {
	Enabled       bool
	Threshold     float64
	MaxCandidates int
}

// DefaultSemanticDedupConfig returns the default similarity threshold.
func DefaultSemanticDedupConfig() SemanticDedupConfig {
	return SemanticDedupConfig{Enabled: true, Threshold: 0.92, MaxCandidates: 5}
}

// CheckSemanticDuplicate runs exact-hash check, then nearest-neighbor
// search at or above threshold, then either a unique result or a merge
// against the closest existing match.
func CheckSemanticDuplicate(ctx context.Context, store VectorStore, embedder Embedder, cfg SemanticDedupConfig, candidate MemoryItem) (DedupResult, error) {
	exists, err := store.ExistsHash(ctx, candidate.SessionID, candidate.ContentHash)
	if err != nil {
		return DedupResult{}, err
	}
	if exists {
		return DedupResult{Outcome: DedupExactDuplicate}, nil
	}

	embedding, err := embedder.EmbedText(ctx, candidate.Content)
	if err != nil {
		return DedupResult{}, newError("CheckSemanticDuplicate", ErrEmbeddingFailure, err)
	}

	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	scored, err := store.QueryWithEmbedding(ctx, candidate.SessionID, embedding, maxCandidates, cfg.Threshold)
	if err != nil {
		return DedupResult{}, err
	}

	var best *ScoredItem
	for i := range scored {
		if scored[i].Similarity < cfg.Threshold {
			continue
		}
		if best == nil || scored[i].Similarity > best.Similarity {
			best = &scored[i]
		}
	}

	if best == nil {
		return DedupResult{Outcome: DedupUnique, Item: candidate, Embedding: embedding}, nil
	}

	merged := mergeItems(best.Item, candidate)
	return DedupResult{Outcome: DedupMerged, Item: merged, Embedding: embedding, Similarity: best.Similarity}, nil
}

// mergeItems combines existing and new per the kind's merge hint and the
// metadata-merge rules, keeping existing's ID.
func mergeItems(existing, incoming MemoryItem) MemoryItem {
	merged := existing

	switch existing.Kind.MergeHintFor() {
	case MergeReplace:
		merged.Kind = incoming.Kind
		merged.Content = incoming.Content
	case MergeAppend:
		// keep existing content/kind; no concatenation in the duplicate path
	case MergeAccumulate:
		if len([]rune(incoming.Content)) > len([]rune(existing.Content)) {
			merged.Content = incoming.Content
			merged.Kind = incoming.Kind
		} else {
			merged.Kind = existing.Kind
		}
	}

	merged.Metadata = mergeMetadata(existing.Metadata, incoming.Metadata)
	merged.ContentHash = ContentHash(merged.Content)
	return merged
}

func mergeMetadata(a, b MemoryMetadata) MemoryMetadata {
	m := a

	if b.Salience > m.Salience {
		m.Salience = b.Salience
	}
	if b.UpdatedAt.After(m.UpdatedAt) {
		m.UpdatedAt = b.UpdatedAt
	}
	m.CreatedAt = a.CreatedAt

	m.Tags = unionTagsPreservingOrder(a.Tags, b.Tags)

	m.Source = b.Source

	switch {
	case a.TTLSeconds != nil && b.TTLSeconds != nil:
		min := *a.TTLSeconds
		if *b.TTLSeconds < min {
			min = *b.TTLSeconds
		}
		m.TTLSeconds = &min
	case a.TTLSeconds != nil:
		m.TTLSeconds = a.TTLSeconds
	default:
		m.TTLSeconds = b.TTLSeconds
	}

	m.RetrievalCount = saturatingAdd(a.RetrievalCount, b.RetrievalCount)

	switch {
	case a.LastRetrievedAt == nil:
		m.LastRetrievedAt = b.LastRetrievedAt
	case b.LastRetrievedAt == nil:
		m.LastRetrievedAt = a.LastRetrievedAt
	case b.LastRetrievedAt.After(*a.LastRetrievedAt):
		m.LastRetrievedAt = b.LastRetrievedAt
	default:
		m.LastRetrievedAt = a.LastRetrievedAt
	}

	return m
}

func unionTagsPreservingOrder(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, t := range a {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range b {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if sum < a {
		return int64(^uint64(0) >> 1)
	}
	return sum
}
