package memory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DeploymentMode selects which Backends wiring NewEngine assembles.
type DeploymentMode string

const (
	// ModeInMemory keeps everything in process memory: no persistence,
	// suitable for tests and local development.
	ModeInMemory DeploymentMode = "in_memory"
	// ModePersistent backs every store with Postgres+pgvector directly.
	ModePersistent DeploymentMode = "persistent"
	// ModeHybrid fronts the Postgres transcript and summary stores with a
	// Redis cache for low-latency reads.
	ModeHybrid DeploymentMode = "hybrid"
)

// NewEngine builds a MemoryEngine wired for the given mode.
func NewEngine(ctx context.Context, mode DeploymentMode, config MemoryConfig, logger zerolog.Logger) (*MemoryEngine, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var backends Backends

	switch mode {
	case ModeInMemory:
		embedder := NewFakeEmbedder(config.Embedding.NDims)
		backends = Backends{
			Transcript: NewInMemoryTranscriptStore(),
			Summary:    NewInMemorySummaryStore(),
			Vector:     NewInMemoryVectorStore(embedder),
			Embedder:   embedder,
		}

	case ModePersistent:
		store, err := NewPostgresStore(ctx, config.Postgres, config.Embedding.NDims)
		if err != nil {
			return nil, err
		}
		backends = Backends{
			Transcript: store,
			Summary:    store,
			Vector:     store,
			Embedder:   NewOpenAIEmbedder(config.OpenAI, config.Embedding),
		}

	case ModeHybrid:
		store, err := NewPostgresStore(ctx, config.Postgres, config.Embedding.NDims)
		if err != nil {
			return nil, err
		}
		cachedTranscript, err := NewRedisCachedTranscriptStore(ctx, store, config.Redis, config.shortTermLoadLimit(), 24*time.Hour, logger)
		if err != nil {
			return nil, err
		}
		backends = Backends{
			Transcript: cachedTranscript,
			Summary:    NewRedisCachedSummaryStore(store, redis.NewClient(&redis.Options{Addr: config.Redis.Addr, Password: config.Redis.Password, DB: config.Redis.DB}), time.Hour),
			Vector:     store,
			Embedder:   NewOpenAIEmbedder(config.OpenAI, config.Embedding),
		}

	default:
		return nil, newError("NewEngine", ErrInvalidConfig, nil)
	}

	if config.Extractor.Mode == ExtractorLLM {
		backends.Completer = NewOpenAICompleter(config.OpenAI, config.LLM)
	}

	return NewMemoryEngine(backends, config, logger)
}
