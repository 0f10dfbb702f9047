package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMetadataDefaults(t *testing.T) {
	now := time.Now().UTC()
	m := NewMetadata(NewSource(SourceUser), now)

	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)
	assert.Equal(t, 50, m.Salience)
	assert.Equal(t, SourceUser, m.Source.Kind)
}

func TestWithSalienceClamps(t *testing.T) {
	m := NewMetadata(NewSource(SourceUser), time.Now())

	assert.Equal(t, 100, m.WithSalience(500).Salience)
	assert.Equal(t, 0, m.WithSalience(-5).Salience)
	assert.Equal(t, 42, m.WithSalience(42).Salience)
}

func TestWithTagsSortsLexicographically(t *testing.T) {
	m := NewMetadata(NewSource(SourceUser), time.Now()).WithTags([]string{"zebra", "apple", "mango"})

	assert.Equal(t, []string{"apple", "mango", "zebra"}, m.Tags)
}

func TestAddModalityIsIdempotentAndSorted(t *testing.T) {
	m := NewMetadata(NewSource(SourceUser), time.Now())
	m = m.AddModality(ModalityCode)
	m = m.AddModality(ModalityAudio)
	m = m.AddModality(ModalityCode)

	assert.Equal(t, []string{"modality:audio", "modality:code"}, m.Tags)
}

func TestModalitiesAndPrimaryModality(t *testing.T) {
	m := NewMetadata(NewSource(SourceUser), time.Now())
	assert.Equal(t, ModalityText, m.PrimaryModality())

	m = m.AddModality(ModalityImage)
	assert.True(t, m.HasModality(ModalityImage))
	assert.Equal(t, ModalityImage, m.PrimaryModality())
	assert.ElementsMatch(t, []Modality{ModalityImage}, m.Modalities())
}

func TestAddModelTagAndLookup(t *testing.T) {
	m := NewMetadata(NewSource(SourceAssistant), time.Now()).AddModelTag("gpt-4o-mini")

	model, ok := m.ModelFromTags()
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestRecordRetrievalBumpsCounters(t *testing.T) {
	now := time.Now()
	m := NewMetadata(NewSource(SourceUser), now)

	m = m.RecordRetrieval(now.Add(time.Minute))

	assert.Equal(t, int64(1), m.RetrievalCount)
	assert.NotNil(t, m.LastRetrievedAt)
}

func TestIsFrequentlyUsedRequiresThreeRetrievalsWithinAWeek(t *testing.T) {
	now := time.Now()
	m := NewMetadata(NewSource(SourceUser), now)

	assert.False(t, m.IsFrequentlyUsed(now))

	m.RetrievalCount = 3
	recent := now.Add(-time.Hour)
	m.LastRetrievedAt = &recent
	assert.True(t, m.IsFrequentlyUsed(now))

	stale := now.Add(-8 * 24 * time.Hour)
	m.LastRetrievedAt = &stale
	assert.False(t, m.IsFrequentlyUsed(now))
}

func TestDynamicSalienceBoostsWithRetrievalAndDecaysWithAge(t *testing.T) {
	now := time.Now()
	base := NewMetadata(NewSource(SourceUser), now).WithSalience(50)
	base.RetrievalCount = 5
	base.UpdatedAt = now

	fresh := base.DynamicSalience(now, 7*24*time.Hour)
	assert.Greater(t, fresh, 50)

	base.UpdatedAt = now.Add(-30 * 24 * time.Hour)
	stale := base.DynamicSalience(now, 7*24*time.Hour)
	assert.Less(t, stale, fresh)
}
