package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *MemoryEngine {
	t.Helper()
	embedder := NewFakeEmbedder(32)
	backends := Backends{
		Transcript: NewInMemoryTranscriptStore(),
		Summary:    NewInMemorySummaryStore(),
		Vector:     NewInMemoryVectorStore(embedder),
		Embedder:   embedder,
	}
	config := DefaultMemoryConfig()
	config.ShortTerm.Window = 4
	config.Summary.IntervalTurns = 2

	engine, err := NewMemoryEngine(backends, config, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

// failingEmbedder always returns an error, for exercising RecordTurn's
// embedding-failure short-circuit.
type failingEmbedder struct{ err error }

func (f failingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}

func (f failingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}

// failingVectorStore wraps a VectorStore but fails every Upsert, for
// exercising RecordTurn's upsert-failure short-circuit.
type failingVectorStore struct {
	VectorStore
	err error
}

func (f failingVectorStore) Upsert(ctx context.Context, item MemoryItem, embedding []float32) error {
	return f.err
}

func TestRecordTurnShortCircuitsOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("embedding provider unavailable")
	backends := Backends{
		Transcript: NewInMemoryTranscriptStore(),
		Summary:    NewInMemorySummaryStore(),
		Vector:     NewInMemoryVectorStore(nil),
		Embedder:   failingEmbedder{err: wantErr},
	}
	engine, err := NewMemoryEngine(backends, DefaultMemoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	session := NewSessionID()

	_, err = engine.RecordTurn(ctx, session, "My name is Roy.", "Hi Roy.", nil)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrEmbeddingFailure))

	exists, existsErr := engine.backends.Vector.ExistsHash(ctx, session, ContentHash("My name is Roy"))
	require.NoError(t, existsErr)
	assert.False(t, exists, "no candidate should have been stored once embedding failed")
}

func TestRecordTurnShortCircuitsOnUpsertFailure(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("vector store unavailable")
	embedder := NewFakeEmbedder(16)
	backends := Backends{
		Transcript: NewInMemoryTranscriptStore(),
		Summary:    NewInMemorySummaryStore(),
		Vector:     failingVectorStore{VectorStore: NewInMemoryVectorStore(embedder), err: wantErr},
		Embedder:   embedder,
	}
	engine, err := NewMemoryEngine(backends, DefaultMemoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	session := NewSessionID()

	_, err = engine.RecordTurn(ctx, session, "My name is Roy.", "Hi Roy.", nil)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrStorageFailure))
}

func TestRecordTurnAppendsTranscriptAndExtractsMemories(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	result, err := engine.RecordTurn(ctx, session, "My name is Roy.", "Nice to meet you, Roy.", nil)
	require.NoError(t, err)

	assert.False(t, result.TurnID.IsZero())
	require.NotEmpty(t, result.StoredItems)

	turns, err := engine.backends.Transcript.LoadRecent(ctx, session, 10)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestRecordTurnDeduplicatesRepeatedContentAcrossTurns(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	first, err := engine.RecordTurn(ctx, session, "My name is Roy.", "Noted.", nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.StoredItems)

	second, err := engine.RecordTurn(ctx, session, "My name is Roy.", "Noted again.", nil)
	require.NoError(t, err)

	for _, item := range second.StoredItems {
		assert.NotEqual(t, first.StoredItems[0].ContentHash, item.ContentHash)
	}
}

func TestRecordTurnTriggersSummaryOnInterval(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	first, err := engine.RecordTurn(ctx, session, "hi there", "hello", nil)
	require.NoError(t, err)
	assert.False(t, first.Summarized)

	second, err := engine.RecordTurn(ctx, session, "how are you", "great, thanks", nil)
	require.NoError(t, err)
	assert.True(t, second.Summarized)

	rec, ok, err := engine.backends.Summary.Get(ctx, session)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, rec.SummaryText)
}

func TestPrepareContextReturnsPromptBlockWithSections(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	_, err := engine.RecordTurn(ctx, session, "My name is Roy.", "Hi Roy.", nil)
	require.NoError(t, err)

	prepared, err := engine.PrepareContext(ctx, session, "What is my name?", nil)
	require.NoError(t, err)

	assert.Contains(t, prepared.PromptBlock, "[MEMORY_SUMMARY]")
	assert.Contains(t, prepared.PromptBlock, "[MEMORY_RELEVANT]")
	assert.Contains(t, prepared.PromptBlock, "[SHORT_TERM]")
	assert.Contains(t, prepared.PromptBlock, "[USER_MESSAGE]\nWhat is my name?")
}

func TestPrepareContextLoadsRecentTurnsWhenNoneSupplied(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	_, err := engine.RecordTurn(ctx, session, "hello there", "hi, how can I help", nil)
	require.NoError(t, err)

	prepared, err := engine.PrepareContext(ctx, session, "follow up question", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, prepared.ShortTerm)
}

func TestPrepareContextHonorsCallerSuppliedRecentTurns(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()
	turn := NewTurnID()
	now := time.Now()

	custom := []TranscriptEvent{NewUserEvent(turn, session, "custom turn content", now)}

	prepared, err := engine.PrepareContext(ctx, session, "question", custom)
	require.NoError(t, err)

	require.Len(t, prepared.ShortTerm, 1)
	assert.Equal(t, "custom turn content", prepared.ShortTerm[0].Content)
}

func TestPrepareContextExpiresAndDeletesStaleMemories(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	metadata := NewMetadata(NewSource(SourceUser), time.Now().Add(-2*time.Hour)).WithTTL(60)
	item, err := NewMemoryItem(session, KindEpisode, "stale episode content about something", metadata)
	require.NoError(t, err)
	embedding, err := engine.backends.Embedder.EmbedText(ctx, item.Content)
	require.NoError(t, err)
	require.NoError(t, engine.backends.Vector.Upsert(ctx, item, embedding))

	_, err = engine.PrepareContext(ctx, session, "stale episode content about something", nil)
	require.NoError(t, err)

	exists, err := engine.backends.Vector.ExistsHash(ctx, session, item.ContentHash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRecordTurnSkipsInvalidExtractedCandidates(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	session := NewSessionID()

	result, err := engine.RecordTurn(ctx, session, "my api_key is abc123 and I like coffee", "noted", nil)
	require.NoError(t, err)

	for _, item := range result.StoredItems {
		assert.NotContains(t, strings.ToLower(item.Content), "api_key")
	}
}

func TestFilterCandidateAppliesPerKindTTLDefault(t *testing.T) {
	ctx := context.Background()
	embedder := NewFakeEmbedder(16)
	backends := Backends{
		Transcript: NewInMemoryTranscriptStore(),
		Summary:    NewInMemorySummaryStore(),
		Vector:     NewInMemoryVectorStore(embedder),
		Embedder:   embedder,
	}
	config := DefaultMemoryConfig()
	config.Retention.TTLSecondsByKind = map[MemoryKind]int64{KindEpisode: 120}

	engine, err := NewMemoryEngine(backends, config, zerolog.Nop())
	require.NoError(t, err)

	session := NewSessionID()
	item, err := NewMemoryItem(session, KindEpisode, "an episodic memory with no ttl override set", NewMetadata(NewSource(SourceUser), time.Now()))
	require.NoError(t, err)

	accept, filtered, err := engine.filterCandidate(ctx, session, item)
	require.NoError(t, err)
	require.True(t, accept)
	require.NotNil(t, filtered.Metadata.TTLSeconds)
	assert.Equal(t, int64(120), *filtered.Metadata.TTLSeconds)
}

func TestNewMemoryEngineRejectsInvalidConfig(t *testing.T) {
	backends := Backends{
		Transcript: NewInMemoryTranscriptStore(),
		Summary:    NewInMemorySummaryStore(),
		Vector:     NewInMemoryVectorStore(nil),
		Embedder:   NewFakeEmbedder(8),
	}
	cfg := DefaultMemoryConfig()
	cfg.Retrieval.TopK = -1

	_, err := NewMemoryEngine(backends, cfg, zerolog.Nop())

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidConfig))
}
