package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryTextRendersTurnsThenUserMessage(t *testing.T) {
	session := NewSessionID()
	turn := NewTurnID()
	now := time.Now()
	turns := []TranscriptEvent{
		NewUserEvent(turn, session, "hi", now),
		NewAssistantEvent(turn, session, "hello", now),
	}

	got := BuildQueryText("what's up?", turns)

	assert.Equal(t, "user: hi\nassistant: hello\nuser: what's up?", got)
}

func TestBuildQueryTextWithNoTurns(t *testing.T) {
	got := BuildQueryText("hello", nil)

	assert.Equal(t, "user: hello", got)
}

func newScoredItem(t *testing.T, salience int, updatedAt time.Time, similarity float64) ScoredItem {
	t.Helper()
	metadata := NewMetadata(NewSource(SourceUser), updatedAt).WithSalience(salience)
	metadata.UpdatedAt = updatedAt
	item, err := NewMemoryItem(NewSessionID(), KindFact, "some content", metadata)
	require.NoError(t, err)
	return ScoredItem{Item: item, Similarity: similarity}
}

func TestRankOrdersByDescendingScore(t *testing.T) {
	now := time.Now()
	scoring := ScoringConfig{AlphaRecency: 0.15, BetaSalience: 0.35, RecencyHalfLifeSeconds: 604800}

	low := newScoredItem(t, 10, now, 0.3)
	high := newScoredItem(t, 90, now, 0.3)

	ranked := Rank([]ScoredItem{low, high}, scoring, now)

	require.Len(t, ranked, 2)
	assert.Equal(t, high.Item.ID, ranked[0].Item.ID)
	assert.Equal(t, low.Item.ID, ranked[1].Item.ID)
}

func TestRankTiesBrokenBySimilarityThenUpdatedAt(t *testing.T) {
	now := time.Now()
	scoring := ScoringConfig{AlphaRecency: 0, BetaSalience: 0, RecencyHalfLifeSeconds: 604800}

	older := newScoredItem(t, 50, now.Add(-time.Hour), 0.5)
	newer := newScoredItem(t, 50, now, 0.5)

	ranked := Rank([]ScoredItem{older, newer}, scoring, now)

	require.Len(t, ranked, 2)
	assert.Equal(t, newer.Item.ID, ranked[0].Item.ID)
}

func TestRankRecencyDecaysWithAge(t *testing.T) {
	now := time.Now()
	scoring := ScoringConfig{AlphaRecency: 1.0, BetaSalience: 0, RecencyHalfLifeSeconds: 3600}

	fresh := newScoredItem(t, 50, now, 0.1)
	stale := newScoredItem(t, 50, now.Add(-24*time.Hour), 0.1)

	ranked := Rank([]ScoredItem{stale, fresh}, scoring, now)

	require.Len(t, ranked, 2)
	assert.Equal(t, fresh.Item.ID, ranked[0].Item.ID)
}

func TestRankHandlesEmptyInput(t *testing.T) {
	ranked := Rank(nil, ScoringConfig{RecencyHalfLifeSeconds: 604800}, time.Now())

	assert.Empty(t, ranked)
}
