package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// InMemoryTranscriptStore is a process-local TranscriptStore guarded by a
// plain map+mutex, for tests and single-process deployments with no
// durability requirement.
type InMemoryTranscriptStore struct {
	mu     sync.RWMutex
	events map[SessionID][]TranscriptEvent
}

// NewInMemoryTranscriptStore builds an empty store.
func NewInMemoryTranscriptStore() *InMemoryTranscriptStore {
	return &InMemoryTranscriptStore{events: make(map[SessionID][]TranscriptEvent)}
}

func (s *InMemoryTranscriptStore) AppendEvents(ctx context.Context, events []TranscriptEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session := events[0].SessionID
	s.events[session] = append(s.events[session], events...)
	return nil
}

func (s *InMemoryTranscriptStore) LoadRecent(ctx context.Context, session SessionID, limit int) ([]TranscriptEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.events[session]
	start := 0
	if len(all) > limit {
		start = len(all) - limit
	}
	out := make([]TranscriptEvent, len(all)-start)
	copy(out, all[start:])
	return out, nil
}

func (s *InMemoryTranscriptStore) LoadRange(ctx context.Context, session SessionID, fromTS, toTS time.Time) ([]TranscriptEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TranscriptEvent
	for _, ev := range s.events[session] {
		if !ev.Timestamp.Before(fromTS) && !ev.Timestamp.After(toTS) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *InMemoryTranscriptStore) CountTurns(ctx context.Context, session SessionID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[TurnID]bool)
	for _, ev := range s.events[session] {
		seen[ev.TurnID] = true
	}
	return int64(len(seen)), nil
}

// InMemorySummaryStore is a process-local SummaryStore.
type InMemorySummaryStore struct {
	mu      sync.RWMutex
	records map[SessionID]SummaryRecord
}

// NewInMemorySummaryStore builds an empty store.
func NewInMemorySummaryStore() *InMemorySummaryStore {
	return &InMemorySummaryStore{records: make(map[SessionID]SummaryRecord)}
}

func (s *InMemorySummaryStore) Get(ctx context.Context, session SessionID) (SummaryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[session]
	return rec, ok, nil
}

func (s *InMemorySummaryStore) Set(ctx context.Context, record SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SessionID] = record
	return nil
}

// storedVector pairs a memory item with its embedding for in-memory cosine scans.
type storedVector struct {
	item      MemoryItem
	embedding []float32
}

// InMemoryVectorStore is a process-local VectorStore doing brute-force
// cosine similarity scans, used for tests and backing the semantic-dedup
// and ranking paths without a real vector database.
type InMemoryVectorStore struct {
	mu       sync.RWMutex
	items    map[MemoryID]storedVector
	embedder Embedder
}

// NewInMemoryVectorStore builds an empty store. embedder may be nil if only
// QueryWithEmbedding will be used (e.g. from tests driving embeddings directly).
func NewInMemoryVectorStore(embedder Embedder) *InMemoryVectorStore {
	return &InMemoryVectorStore{items: make(map[MemoryID]storedVector), embedder: embedder}
}

func (s *InMemoryVectorStore) Upsert(ctx context.Context, item MemoryItem, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = storedVector{item: item, embedding: embedding}
	return nil
}

func (s *InMemoryVectorStore) Query(ctx context.Context, session SessionID, queryText string, topK int, minSimilarity float64) ([]ScoredItem, error) {
	if s.embedder == nil {
		return nil, newError("InMemoryVectorStore.Query", ErrInvalidInput, nil)
	}
	embedding, err := s.embedder.EmbedText(ctx, queryText)
	if err != nil {
		return nil, newError("InMemoryVectorStore.Query", ErrEmbeddingFailure, err)
	}
	return s.QueryWithEmbedding(ctx, session, embedding, topK, minSimilarity)
}

func (s *InMemoryVectorStore) QueryWithEmbedding(ctx context.Context, session SessionID, embedding []float32, topK int, minSimilarity float64) ([]ScoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredItem
	for _, sv := range s.items {
		if sv.item.SessionID != session {
			continue
		}
		sim := cosineSimilarity(embedding, sv.embedding)
		if sim >= minSimilarity {
			scored = append(scored, ScoredItem{Item: sv.item, Similarity: sim})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *InMemoryVectorStore) ExistsHash(ctx context.Context, session SessionID, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sv := range s.items {
		if sv.item.SessionID == session && sv.item.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryVectorStore) DeleteByIDs(ctx context.Context, ids []MemoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.items, id)
	}
	return nil
}

func (s *InMemoryVectorStore) FindExpired(ctx context.Context, now time.Time) ([]MemoryID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []MemoryID
	for id, sv := range s.items {
		if sv.item.Metadata.TTLSeconds == nil {
			continue
		}
		if now.Sub(sv.item.Metadata.CreatedAt).Seconds() >= float64(*sv.item.Metadata.TTLSeconds) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FakeEmbedder produces deterministic, content-derived vectors for tests:
// no network calls, but distinct content reliably yields distinct vectors
// and near-duplicate content yields near-identical ones.
type FakeEmbedder struct {
	ndims int
}

// NewFakeEmbedder builds an embedder producing vectors of the given dimension.
func NewFakeEmbedder(ndims int) *FakeEmbedder {
	if ndims <= 0 {
		ndims = 8
	}
	return &FakeEmbedder{ndims: ndims}
}

func (f *FakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.embed(text), nil
}

func (f *FakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

// embed hashes overlapping trigrams of the normalized text into buckets,
// giving similar strings similar (though not identical) vectors.
func (f *FakeEmbedder) embed(text string) []float32 {
	vec := make([]float32, f.ndims)
	norm := Normalize(text)
	if len(norm) == 0 {
		return vec
	}
	runes := []rune(norm)
	for i := range runes {
		end := i + 3
		if end > len(runes) {
			end = len(runes)
		}
		gram := string(runes[i:end])
		h := Fingerprint(gram)
		bucket := int(h[len(h)-1]) % f.ndims
		vec[bucket]++
	}

	var norm2 float64
	for _, v := range vec {
		norm2 += float64(v) * float64(v)
	}
	if norm2 == 0 {
		return vec
	}
	scale := float32(1.0 / math.Sqrt(norm2))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
