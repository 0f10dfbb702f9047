package memory

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestResolveEmbeddingModelMapsKnownNames(t *testing.T) {
	assert.Equal(t, openai.LargeEmbedding3, resolveEmbeddingModel("text-embedding-3-large"))
	assert.Equal(t, openai.AdaEmbeddingV2, resolveEmbeddingModel("text-embedding-ada-002"))
	assert.Equal(t, openai.SmallEmbedding3, resolveEmbeddingModel("text-embedding-3-small"))
}

func TestResolveEmbeddingModelDefaultsToSmall(t *testing.T) {
	assert.Equal(t, openai.SmallEmbedding3, resolveEmbeddingModel("something-unrecognized"))
}
