package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDsAreUniqueAndNonZero(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()

	assert.False(t, a.IsZero())
	assert.NotEqual(t, a, b)
}

func TestSessionIDRoundTripsThroughString(t *testing.T) {
	id := NewSessionID()

	parsed, err := ParseSessionID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseSessionIDRejectsGarbage(t *testing.T) {
	_, err := ParseSessionID("not-a-uuid")

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidInput))
}

func TestZeroValueIDsAreZero(t *testing.T) {
	var s SessionID
	var turn TurnID
	var mem MemoryID

	assert.True(t, s.IsZero())
	assert.True(t, turn.IsZero())
	assert.True(t, mem.IsZero())
}
