package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryItemComputesHashAndTrimsContent(t *testing.T) {
	session := NewSessionID()
	now := time.Now()
	metadata := NewMetadata(NewSource(SourceUser), now)

	item, err := NewMemoryItem(session, KindFact, "  I like coffee  ", metadata)
	require.NoError(t, err)

	assert.Equal(t, "I like coffee", item.Content)
	assert.Equal(t, ContentHash("I like coffee"), item.ContentHash)
	assert.False(t, item.ID.IsZero())
}

func TestNewMemoryItemRejectsEmptyContent(t *testing.T) {
	_, err := NewMemoryItem(NewSessionID(), KindFact, "    ", NewMetadata(NewSource(SourceUser), time.Now()))

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidInput))
}

func TestTruncateToBudgetCutsByRuneAndRehashes(t *testing.T) {
	item, err := NewMemoryItem(NewSessionID(), KindFact, "abcdefghij", NewMetadata(NewSource(SourceUser), time.Now()))
	require.NoError(t, err)

	truncated := item.TruncateToBudget(5)

	assert.Equal(t, "abcde", truncated.Content)
	assert.Equal(t, ContentHash("abcde"), truncated.ContentHash)
}

func TestTruncateToBudgetTrimsTrailingWhitespaceAfterCut(t *testing.T) {
	item, err := NewMemoryItem(NewSessionID(), KindFact, "abc   def", NewMetadata(NewSource(SourceUser), time.Now()))
	require.NoError(t, err)

	truncated := item.TruncateToBudget(5)

	assert.Equal(t, "abc", truncated.Content)
}

func TestValidateRejectsOversizedContent(t *testing.T) {
	item, err := NewMemoryItem(NewSessionID(), KindFact, strings.Repeat("a", 50), NewMetadata(NewSource(SourceUser), time.Now()))
	require.NoError(t, err)

	assert.NoError(t, item.Validate(100))
	err = item.Validate(10)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidInput))
}

func TestValidateRejectsSensitiveContent(t *testing.T) {
	cases := []string{
		"my api_key is abc123",
		"here is my password: hunters2",
		"Bearer abcdef1234567890",
		"the token is sk-abcdefghijklmnop",
	}

	for _, content := range cases {
		item, err := NewMemoryItem(NewSessionID(), KindFact, content, NewMetadata(NewSource(SourceUser), time.Now()))
		require.NoError(t, err)

		err = item.Validate(1000)
		require.Error(t, err, "content %q should be rejected", content)
		assert.True(t, IsCode(err, ErrInvalidInput))
	}
}

func TestValidateRejectsOutOfRangeSalience(t *testing.T) {
	metadata := NewMetadata(NewSource(SourceUser), time.Now())
	metadata.Salience = 500

	item, err := NewMemoryItem(NewSessionID(), KindFact, "I like tea", metadata)
	require.NoError(t, err)

	err = item.Validate(1000)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidInput))
}

func TestNormalizeForHashMatchesContentHashInput(t *testing.T) {
	item, err := NewMemoryItem(NewSessionID(), KindFact, "  I LIKE Coffee  ", NewMetadata(NewSource(SourceUser), time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "i like coffee", item.NormalizeForHash())
}
