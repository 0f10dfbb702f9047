package memory

import "fmt"

// ExtractorMode selects the extraction strategy used by the engine.
type ExtractorMode string

const (
	ExtractorHeuristic ExtractorMode = "heuristic"
	ExtractorLLM       ExtractorMode = "llm"
)

// ShortTermConfig controls the recent-turns window held per session.
type ShortTermConfig struct {
	Window        int `json:"window"`         // turns included verbatim in the prompt
	CacheCapacity int `json:"cache_capacity"` // LRU size for (session, hash) dedup shortcut
}

// SummaryConfig controls rolling per-session summary cadence.
type SummaryConfig struct {
	IntervalTurns int  `json:"interval_turns"` // turns between summary updates
	MaxChars      int  `json:"max_chars"`      // summary text cap (tail retained)
	UseLLM        bool `json:"use_llm"`
}

// RetrievalConfig controls the vector-store fetch step.
type RetrievalConfig struct {
	TopK          int     `json:"top_k"`          // max memories fetched per prepare
	MinSimilarity float64 `json:"min_similarity"` // floor applied before ranking
}

// ScoringConfig controls the ranking formula.
type ScoringConfig struct {
	AlphaRecency           float64 `json:"alpha_recency"`
	BetaSalience           float64 `json:"beta_salience"`
	RecencyHalfLifeSeconds int64   `json:"recency_half_life_seconds"`
}

// ExtractorConfig controls the heuristic/LLM extraction step.
type ExtractorConfig struct {
	Mode            ExtractorMode `json:"mode"`
	LLMEveryNTurns  int           `json:"llm_every_n_turns"`
	LLMMaxItems     int           `json:"llm_max_items"`
	MinContentChars int           `json:"min_content_chars"`
}

// PromptConfig controls the prompt budget enforcer.
type PromptConfig struct {
	MaxChars       int `json:"max_chars"`        // total prompt block cap
	MaxMemoryChars int `json:"max_memory_chars"` // per-memory content cap
}

// EmbeddingConfig describes the embedding provider's shape.
type EmbeddingConfig struct {
	Model   string `json:"model"`
	NDims   int    `json:"ndims"`
	BaseURL string `json:"base_url,omitempty"`
}

// LLMConfig describes the completion provider's shape, used only by the
// optional LLM extractor and summarizer.
type LLMConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	BaseURL     string  `json:"base_url,omitempty"`
}

// RetentionConfig carries optional per-kind TTL overrides.
type RetentionConfig struct {
	TTLSecondsByKind map[MemoryKind]int64 `json:"ttl_seconds_by_kind,omitempty"`
}

// CleanupConfig controls the background TTL sweep worker.
type CleanupConfig struct {
	IntervalSeconds       int64 `json:"interval_seconds"`
	Enabled               bool  `json:"enabled"`
	MaxMemoriesPerSession int   `json:"max_memories_per_session"`
}

// DefaultCleanupConfig returns the engine's default cleanup cadence.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{IntervalSeconds: 3600, Enabled: true, MaxMemoriesPerSession: 500}
}

// CleanupConfigBuilder is a fluent builder for CleanupConfig that only
// overrides fields explicitly set, leaving the rest at their defaults.
type CleanupConfigBuilder struct {
	cfg CleanupConfig
	set struct{ interval, enabled, maxPerSession bool }
}

// NewCleanupConfigBuilder starts a builder seeded with defaults.
func NewCleanupConfigBuilder() *CleanupConfigBuilder {
	return &CleanupConfigBuilder{cfg: DefaultCleanupConfig()}
}

func (b *CleanupConfigBuilder) IntervalSeconds(seconds int64) *CleanupConfigBuilder {
	b.cfg.IntervalSeconds = seconds
	b.set.interval = true
	return b
}

func (b *CleanupConfigBuilder) Enabled(enabled bool) *CleanupConfigBuilder {
	b.cfg.Enabled = enabled
	b.set.enabled = true
	return b
}

func (b *CleanupConfigBuilder) MaxMemoriesPerSession(max int) *CleanupConfigBuilder {
	b.cfg.MaxMemoriesPerSession = max
	b.set.maxPerSession = true
	return b
}

func (b *CleanupConfigBuilder) Build() CleanupConfig { return b.cfg }

// RedisConfig holds the optional short-term cache connection (hybrid mode).
type RedisConfig struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// PostgresConfig holds the durable store connection.
type PostgresConfig struct {
	DatabaseURL string `json:"database_url,omitempty"`
}

// OpenAIConfig holds the embedding/completion provider connection.
type OpenAIConfig struct {
	APIKey string `json:"api_key,omitempty"`
}

// MemoryConfig is the top-level configuration composing every sub-config,
// plus the connection settings needed to build the concrete backends.
type MemoryConfig struct {
	ShortTerm ShortTermConfig
	Summary   SummaryConfig
	Retrieval RetrievalConfig
	Scoring   ScoringConfig
	Extractor ExtractorConfig
	Prompt    PromptConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Retention RetentionConfig
	Cleanup   CleanupConfig

	Postgres PostgresConfig
	Redis    RedisConfig
	OpenAI   OpenAIConfig
}

// DefaultMemoryConfig returns the engine's documented default settings.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		ShortTerm: ShortTermConfig{Window: 6, CacheCapacity: 256},
		Summary:   SummaryConfig{IntervalTurns: 8, MaxChars: 1200, UseLLM: false},
		Retrieval: RetrievalConfig{TopK: 6, MinSimilarity: 0.2},
		Scoring: ScoringConfig{
			AlphaRecency:           0.15,
			BetaSalience:           0.35,
			RecencyHalfLifeSeconds: 604800,
		},
		Extractor: ExtractorConfig{
			Mode:            ExtractorHeuristic,
			LLMEveryNTurns:  6,
			LLMMaxItems:     6,
			MinContentChars: 10,
		},
		Prompt:    PromptConfig{MaxChars: 3600, MaxMemoryChars: 1200},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", NDims: 768},
		LLM:       LLMConfig{Model: "gpt-4o-mini", Temperature: 0.4, MaxTokens: 512},
		Retention: RetentionConfig{},
		Cleanup:   DefaultCleanupConfig(),
	}
}

// Validate enforces that every field must be > 0 where zero would be
// nonsensical, plus every per-kind TTL override, returning InvalidConfig
// describing the first violation.
func (c MemoryConfig) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"short_term.window", c.ShortTerm.Window > 0},
		{"short_term.cache_capacity", c.ShortTerm.CacheCapacity > 0},
		{"summary.interval_turns", c.Summary.IntervalTurns > 0},
		{"summary.max_chars", c.Summary.MaxChars > 0},
		{"retrieval.top_k", c.Retrieval.TopK > 0},
		{"prompt.max_chars", c.Prompt.MaxChars > 0},
		{"prompt.max_memory_chars", c.Prompt.MaxMemoryChars > 0},
		{"embedding.ndims", c.Embedding.NDims > 0},
		{"extractor.min_content_chars", c.Extractor.MinContentChars > 0},
	}
	for _, chk := range checks {
		if !chk.ok {
			return newError("MemoryConfig.Validate", ErrInvalidConfig, fmt.Errorf("%s must be > 0", chk.name))
		}
	}
	for kind, ttl := range c.Retention.TTLSecondsByKind {
		if ttl <= 0 {
			return newError("MemoryConfig.Validate", ErrInvalidConfig, fmt.Errorf("retention.ttl_seconds_by_kind[%s] must be > 0", kind))
		}
	}
	if c.Extractor.Mode != ExtractorHeuristic && c.Extractor.Mode != ExtractorLLM {
		return newError("MemoryConfig.Validate", ErrInvalidConfig, fmt.Errorf("extractor.mode %q is not recognized", c.Extractor.Mode))
	}
	return nil
}

// WithDefaults fills zero-valued fields with the package's documented
// defaults, leaving any field the caller already set untouched.
func (c MemoryConfig) WithDefaults() MemoryConfig {
	d := DefaultMemoryConfig()
	if c.ShortTerm.Window == 0 {
		c.ShortTerm.Window = d.ShortTerm.Window
	}
	if c.ShortTerm.CacheCapacity == 0 {
		c.ShortTerm.CacheCapacity = d.ShortTerm.CacheCapacity
	}
	if c.Summary.IntervalTurns == 0 {
		c.Summary.IntervalTurns = d.Summary.IntervalTurns
	}
	if c.Summary.MaxChars == 0 {
		c.Summary.MaxChars = d.Summary.MaxChars
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = d.Retrieval.TopK
	}
	if c.Retrieval.MinSimilarity == 0 {
		c.Retrieval.MinSimilarity = d.Retrieval.MinSimilarity
	}
	if c.Scoring.AlphaRecency == 0 {
		c.Scoring.AlphaRecency = d.Scoring.AlphaRecency
	}
	if c.Scoring.BetaSalience == 0 {
		c.Scoring.BetaSalience = d.Scoring.BetaSalience
	}
	if c.Scoring.RecencyHalfLifeSeconds == 0 {
		c.Scoring.RecencyHalfLifeSeconds = d.Scoring.RecencyHalfLifeSeconds
	}
	if c.Extractor.Mode == "" {
		c.Extractor.Mode = d.Extractor.Mode
	}
	if c.Extractor.LLMEveryNTurns == 0 {
		c.Extractor.LLMEveryNTurns = d.Extractor.LLMEveryNTurns
	}
	if c.Extractor.LLMMaxItems == 0 {
		c.Extractor.LLMMaxItems = d.Extractor.LLMMaxItems
	}
	if c.Extractor.MinContentChars == 0 {
		c.Extractor.MinContentChars = d.Extractor.MinContentChars
	}
	if c.Prompt.MaxChars == 0 {
		c.Prompt.MaxChars = d.Prompt.MaxChars
	}
	if c.Prompt.MaxMemoryChars == 0 {
		c.Prompt.MaxMemoryChars = d.Prompt.MaxMemoryChars
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = d.Embedding.Model
	}
	if c.Embedding.NDims == 0 {
		c.Embedding.NDims = d.Embedding.NDims
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = d.LLM.Temperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = d.LLM.MaxTokens
	}
	if c.Cleanup == (CleanupConfig{}) {
		c.Cleanup = d.Cleanup
	} else {
		if c.Cleanup.IntervalSeconds == 0 {
			c.Cleanup.IntervalSeconds = d.Cleanup.IntervalSeconds
		}
		if c.Cleanup.MaxMemoriesPerSession == 0 {
			c.Cleanup.MaxMemoriesPerSession = d.Cleanup.MaxMemoriesPerSession
		}
	}
	return c
}

// shortTermLoadLimit is the "2x window" fetch size prepare_context uses
// when the caller did not supply recent_turns.
func (c MemoryConfig) shortTermLoadLimit() int {
	return 2 * c.ShortTerm.Window
}
