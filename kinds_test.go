package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindCodeRoundTripsForEveryKnownKind(t *testing.T) {
	for _, k := range AllKinds {
		code := k.Code()
		assert.NotEqual(t, uint8(255), code, "kind %s should have a stable code", k)
		assert.Equal(t, k, KindFromCode(code))
	}
}

func TestKindFromCodeMapsUnknownCodeToUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, KindFromCode(250))
}

func TestParseKindAcceptsCanonicalAndAliasForms(t *testing.T) {
	cases := []struct {
		in   string
		want MemoryKind
	}{
		{"identity", KindIdentity},
		{"Preference", KindPreference},
		{"pref", KindPreference},
		{"dislike", KindAversion},
		{"tool_output", KindToolResult},
		{"ToolResult", KindToolResult},
		{"code-artifact", KindCodeArtifact},
		{"doc", KindDocumentArtifact},
		{"todo", KindTask},
		{"playbook", KindProcedure},
	}

	for _, c := range cases {
		got, err := ParseKind(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseKindRejectsUnrecognized(t *testing.T) {
	_, err := ParseKind("not_a_real_kind")

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidInput))
}

func TestParseKindLossyFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, ParseKindLossy("nonsense"))
	assert.Equal(t, KindFact, ParseKindLossy("fact"))
}

func TestPromptTagWrapsKindInParens(t *testing.T) {
	assert.Equal(t, "(fact)", KindFact.PromptTag())
}

func TestFamilyClassifiesEachBucket(t *testing.T) {
	assert.Equal(t, FamilySemantic, KindIdentity.Family())
	assert.Equal(t, FamilyEpisodic, KindSummary.Family())
	assert.Equal(t, FamilyProcedural, KindPlan.Family())
	assert.Equal(t, FamilyArtifact, KindCodeArtifact.Family())
	assert.Equal(t, FamilyMeta, KindFeedback.Family())
	assert.Equal(t, FamilyOther, KindOther.Family())
}

func TestMergeHintForMatchesFamilyIntuition(t *testing.T) {
	assert.Equal(t, MergeReplace, KindIdentity.MergeHintFor())
	assert.Equal(t, MergeAccumulate, KindDecision.MergeHintFor())
	assert.Equal(t, MergeAppend, KindEpisode.MergeHintFor())
}
