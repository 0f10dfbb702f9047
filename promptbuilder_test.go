package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRankedItem(t *testing.T, kind MemoryKind, content string, tags []string, salience int, updatedAt time.Time) RankedItem {
	t.Helper()
	metadata := NewMetadata(NewSource(SourceUser), updatedAt).WithSalience(salience).WithTags(tags)
	metadata.UpdatedAt = updatedAt
	item, err := NewMemoryItem(NewSessionID(), kind, content, metadata)
	require.NoError(t, err)
	return RankedItem{Item: item, Similarity: 0.8, Score: 0.9}
}

func TestBuildPromptBlockSectionOrderAndFormat(t *testing.T) {
	now := time.Now()
	session := NewSessionID()
	turn := NewTurnID()

	parts := PromptParts{
		Summary: "User is a Go developer.",
		Memories: []RankedItem{
			newRankedItem(t, KindIdentity, "User's name is Roy.", []string{"name"}, 90, now.Add(-time.Hour)),
		},
		ShortTerm: []TranscriptEvent{
			NewUserEvent(turn, session, "hi", now),
			NewAssistantEvent(turn, session, "hello", now),
		},
		UserMessage: "What's my name?",
	}

	block := BuildPromptBlock(parts, now)

	wantPrefix := "[MEMORY_SUMMARY]\nUser is a Go developer.\n[MEMORY_RELEVANT]\n"
	assert.Contains(t, block, wantPrefix)
	assert.Contains(t, block, "(identity) User's name is Roy. [tags: name] [salience: 90] [age_s: 3600]")
	assert.Contains(t, block, "[SHORT_TERM]\n- User: hi\n- Assistant: hello\n")
	assert.Contains(t, block, "[USER_MESSAGE]\nWhat's my name?\n")

	summaryIdx := indexOf(block, "[MEMORY_SUMMARY]")
	memIdx := indexOf(block, "[MEMORY_RELEVANT]")
	shortIdx := indexOf(block, "[SHORT_TERM]")
	userIdx := indexOf(block, "[USER_MESSAGE]")
	assert.True(t, summaryIdx < memIdx && memIdx < shortIdx && shortIdx < userIdx)
}

func TestBuildPromptBlockOmitsEmptySummaryLine(t *testing.T) {
	block := BuildPromptBlock(PromptParts{UserMessage: "hi"}, time.Now())

	assert.Contains(t, block, "[MEMORY_SUMMARY]\n[MEMORY_RELEVANT]\n")
}

func TestRenderMemoryLineDefaultsTagsToNone(t *testing.T) {
	now := time.Now()
	ranked := newRankedItem(t, KindFact, "some fact", nil, 60, now)

	line := renderMemoryLine(ranked, now)

	assert.Contains(t, line, "[tags: none]")
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
