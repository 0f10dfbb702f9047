package memory

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder over the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder builds an embedder for the given config, mapping the
// configured model name to the matching go-openai constant.
func NewOpenAIEmbedder(cfg OpenAIConfig, embedding EmbeddingConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(cfg.APIKey),
		model:  resolveEmbeddingModel(embedding.Model),
	}
}

func resolveEmbeddingModel(name string) openai.EmbeddingModel {
	switch name {
	case "text-embedding-3-large":
		return openai.LargeEmbedding3
	case "text-embedding-ada-002":
		return openai.AdaEmbeddingV2
	default:
		return openai.SmallEmbedding3
	}
}

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, newError("OpenAIEmbedder.EmbedText", ErrEmbeddingFailure, fmt.Errorf("no embedding returned"))
	}
	return embeddings[0], nil
}

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, newError("OpenAIEmbedder.EmbedTexts", ErrEmbeddingFailure, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, newError("OpenAIEmbedder.EmbedTexts", ErrEmbeddingFailure, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// OpenAICompleter implements Completer over OpenAI chat completions.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a completer for the given config.
func NewOpenAICompleter(cfg OpenAIConfig, llm LLMConfig) *OpenAICompleter {
	return &OpenAICompleter{client: openai.NewClient(cfg.APIKey), model: llm.Model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, preamble, prompt string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: preamble},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", newError("OpenAICompleter.Complete", ErrCompletionFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", newError("OpenAICompleter.Complete", ErrCompletionFailure, fmt.Errorf("no completion choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}
