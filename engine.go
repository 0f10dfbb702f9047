package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Backends composes the collaborators a MemoryEngine orchestrates.
// Completer is used only by the LLM extractor and may be nil when it is
// disabled; summary updates never call it.
type Backends struct {
	Transcript TranscriptStore
	Summary    SummaryStore
	Vector     VectorStore
	Embedder   Embedder
	Completer  Completer
}

// sessionState is the per-session turn/summary/LLM counters, guarded by its
// own mutex so concurrent record_turn calls for distinct sessions never
// contend.
type sessionState struct {
	mu              sync.Mutex
	turnCount       int64
	lastSummaryTurn int64
	lastLLMTurn     int64
}

// PreparedContext is prepare_context's return value.
type PreparedContext struct {
	Summary     string
	Memories    []RankedItem
	ShortTerm   []TranscriptEvent
	UserMessage string
	PromptBlock string
}

// RecordResult reports what record_turn stored, useful for callers and
// tests asserting against specific scenarios.
type RecordResult struct {
	TurnID      TurnID
	StoredItems []MemoryItem
	Summarized  bool
}

// dedupKey is the (session, content_hash) pair cached by the engine-wide LRU
// to short-circuit repeated exact-duplicate extraction.
type dedupKey struct {
	session SessionID
	hash    string
}

// MemoryEngine is the orchestrator: it wires the extractor, ranking,
// TTL pruning, and prompt builder over a Backends set. Its duplicate
// filtering is exact-hash only; the dedup config is held but RecordTurn
// does not run CheckSemanticDuplicate.
type MemoryEngine struct {
	backends  Backends
	config    MemoryConfig
	extractor *HeuristicExtractor
	dedup     SemanticDedupConfig
	logger    zerolog.Logger

	sessions sync.Map // SessionID -> *sessionState
	cache    *lru.Cache[dedupKey, struct{}]
}

// NewMemoryEngine validates config, builds the heuristic extractor, and
// sizes the dedup LRU from short_term.cache_capacity.
func NewMemoryEngine(backends Backends, config MemoryConfig, logger zerolog.Logger) (*MemoryEngine, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[dedupKey, struct{}](config.ShortTerm.CacheCapacity)
	if err != nil {
		return nil, newError("NewMemoryEngine", ErrInvalidConfig, err)
	}

	return &MemoryEngine{
		backends:  backends,
		config:    config,
		extractor: NewHeuristicExtractor(config.Extractor, config.Prompt),
		dedup:     DefaultSemanticDedupConfig(),
		logger:    logger,
		cache:     cache,
	}, nil
}

func (e *MemoryEngine) stateFor(session SessionID) *sessionState {
	actual, _ := e.sessions.LoadOrStore(session, &sessionState{})
	return actual.(*sessionState)
}

// PrepareContext implements the prepare_context pipeline.
func (e *MemoryEngine) PrepareContext(ctx context.Context, session SessionID, userMsg string, recentTurns []TranscriptEvent) (PreparedContext, error) {
	now := time.Now().UTC()

	if len(recentTurns) == 0 {
		loaded, err := e.backends.Transcript.LoadRecent(ctx, session, e.config.shortTermLoadLimit())
		if err != nil {
			return PreparedContext{}, newError("PrepareContext.LoadRecent", ErrStorageFailure, err)
		}
		recentTurns = loaded
	}

	queryText := BuildQueryText(userMsg, recentTurns)

	raw, err := e.backends.Vector.Query(ctx, session, queryText, e.config.Retrieval.TopK, e.config.Retrieval.MinSimilarity)
	if err != nil {
		return PreparedContext{}, newError("PrepareContext.Query", ErrStorageFailure, err)
	}

	items := make([]MemoryItem, len(raw))
	for i, r := range raw {
		items[i] = r.Item
	}

	kept, expired := ApplyTTL(items, e.config.Retention, now)
	if len(expired) > 0 {
		ids := make([]MemoryID, len(expired))
		for i, it := range expired {
			ids[i] = it.ID
		}
		if err := e.backends.Vector.DeleteByIDs(ctx, ids); err != nil {
			e.logger.Warn().Err(err).Str("session", session.String()).Msg("prepare_context: failed deleting expired memories")
		}
	}

	keptSet := make(map[MemoryID]bool, len(kept))
	for _, it := range kept {
		keptSet[it.ID] = true
	}
	var scoredKept []ScoredItem
	for _, r := range raw {
		if keptSet[r.Item.ID] {
			scoredKept = append(scoredKept, r)
		}
	}
	ranked := Rank(scoredKept, e.config.Scoring, now)

	var summaryText string
	if rec, ok, err := e.backends.Summary.Get(ctx, session); err != nil {
		return PreparedContext{}, newError("PrepareContext.SummaryGet", ErrStorageFailure, err)
	} else if ok {
		summaryText = rec.SummaryText
	}

	parts := PromptParts{
		Summary:     summaryText,
		Memories:    ranked,
		ShortTerm:   recentTurns,
		UserMessage: userMsg,
	}
	parts = EnforceBudget(parts, e.config.Prompt.MaxChars, now)

	return PreparedContext{
		Summary:     parts.Summary,
		Memories:    parts.Memories,
		ShortTerm:   parts.ShortTerm,
		UserMessage: userMsg,
		PromptBlock: BuildPromptBlock(parts, now),
	}, nil
}

// RecordTurn implements the record_turn pipeline.
func (e *MemoryEngine) RecordTurn(ctx context.Context, session SessionID, userMsg, assistantMsg string, toolEvents []TranscriptEvent) (RecordResult, error) {
	now := time.Now().UTC()
	turnID := NewTurnID()

	events := make([]TranscriptEvent, 0, 2+len(toolEvents))
	events = append(events, NewUserEvent(turnID, session, userMsg, now))
	events = append(events, NewAssistantEvent(turnID, session, assistantMsg, now))
	for _, te := range toolEvents {
		te.TurnID = turnID
		te.SessionID = session
		events = append(events, te)
	}

	if err := e.backends.Transcript.AppendEvents(ctx, events); err != nil {
		return RecordResult{}, newError("RecordTurn.AppendEvents", ErrStorageFailure, err)
	}

	state := e.stateFor(session)
	state.mu.Lock()
	state.turnCount++
	turnCount := state.turnCount
	state.mu.Unlock()

	var candidates []MemoryItem
	for _, ev := range events {
		candidates = append(candidates, e.extractor.ExtractFromEvent(ev, now)...)
	}

	if e.config.Extractor.Mode == ExtractorLLM && e.backends.Completer != nil {
		state.mu.Lock()
		due := turnCount-state.lastLLMTurn >= int64(e.config.Extractor.LLMEveryNTurns)
		state.mu.Unlock()
		if due {
			llmItems, err := e.runLLMExtractor(ctx, session, events, now)
			if err != nil {
				e.logger.Warn().Err(err).Str("session", session.String()).Msg("record_turn: llm extractor failed, continuing without it")
			} else {
				candidates = append(candidates, llmItems...)
			}
			state.mu.Lock()
			state.lastLLMTurn = turnCount
			state.mu.Unlock()
		}
	}

	var stored []MemoryItem
	for _, cand := range candidates {
		accept, item, err := e.filterCandidate(ctx, session, cand)
		if err != nil {
			e.logger.Warn().Err(err).Str("session", session.String()).Msg("record_turn: candidate filter failed, skipping")
			continue
		}
		if !accept {
			continue
		}

		embedding, err := e.backends.Embedder.EmbedText(ctx, item.Content)
		if err != nil {
			return RecordResult{}, newError("RecordTurn.Embed", ErrEmbeddingFailure, err)
		}
		if err := e.backends.Vector.Upsert(ctx, item, embedding); err != nil {
			return RecordResult{}, newError("RecordTurn.Upsert", ErrStorageFailure, err)
		}

		e.cache.Add(dedupKey{session: session, hash: item.ContentHash}, struct{}{})
		stored = append(stored, item)
	}

	summarized := false
	state.mu.Lock()
	dueSummary := turnCount-state.lastSummaryTurn >= int64(e.config.Summary.IntervalTurns)
	state.mu.Unlock()
	if dueSummary {
		if err := e.updateSummary(ctx, session, now); err != nil {
			return RecordResult{}, newError("RecordTurn.Summary", ErrStorageFailure, err)
		}
		state.mu.Lock()
		state.lastSummaryTurn = turnCount
		state.mu.Unlock()
		summarized = true
	}

	return RecordResult{TurnID: turnID, StoredItems: stored, Summarized: summarized}, nil
}

// filterCandidate applies the per-candidate filter: TTL defaulting,
// validation, then the two-tier dedup shortcut (local LRU, then the
// store's exists_hash).
func (e *MemoryEngine) filterCandidate(ctx context.Context, session SessionID, item MemoryItem) (bool, MemoryItem, error) {
	if item.Metadata.TTLSeconds == nil {
		if ttl, ok := e.config.Retention.TTLSecondsByKind[item.Kind]; ok {
			item.Metadata = item.Metadata.WithTTL(ttl)
		}
	}

	if err := item.Validate(e.config.Prompt.MaxMemoryChars); err != nil {
		return false, MemoryItem{}, nil
	}

	key := dedupKey{session: session, hash: item.ContentHash}
	if _, ok := e.cache.Get(key); ok {
		return false, MemoryItem{}, nil
	}

	exists, err := e.backends.Vector.ExistsHash(ctx, session, item.ContentHash)
	if err != nil {
		return false, MemoryItem{}, err
	}
	if exists {
		e.cache.Add(key, struct{}{})
		return false, MemoryItem{}, nil
	}

	return true, item, nil
}

// updateSummary implements the simple summary update: append new
// transcript text since the prior update, then retain only the trailing
// max_chars code points.
func (e *MemoryEngine) updateSummary(ctx context.Context, session SessionID, now time.Time) error {
	prior, ok, err := e.backends.Summary.Get(ctx, session)
	if err != nil {
		return err
	}

	fromTS := time.Time{}
	text := ""
	if ok {
		fromTS = prior.UpdatedAt
		text = prior.SummaryText
	}

	events, err := e.backends.Transcript.LoadRange(ctx, session, fromTS, now)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(text)
	for _, ev := range events {
		b.WriteByte('\n')
		b.WriteString(roleLabel(ev.Role))
		b.WriteString(": ")
		b.WriteString(ev.Content)
	}
	text = b.String()

	runes := []rune(text)
	if len(runes) > e.config.Summary.MaxChars {
		text = string(runes[len(runes)-e.config.Summary.MaxChars:])
	}

	turnCount, err := e.backends.Transcript.CountTurns(ctx, session)
	if err != nil {
		return err
	}

	return e.backends.Summary.Set(ctx, SummaryRecord{
		SessionID:         session,
		SummaryText:       text,
		UpdatedAt:         now,
		TurnCountAtUpdate: turnCount,
	})
}

// runLLMExtractor drives the optional LLM-backed extraction path. It sends
// the turn's transcript to the Completer under a fixed extraction preamble
// and turns each output line of at least min_content_chars into a Fact
// item, up to llm_max_items. It returns no items when no Completer is
// wired in.
func (e *MemoryEngine) runLLMExtractor(ctx context.Context, session SessionID, events []TranscriptEvent, now time.Time) ([]MemoryItem, error) {
	if e.backends.Completer == nil {
		return nil, nil
	}

	var transcript strings.Builder
	for _, ev := range events {
		transcript.WriteString(roleLabel(ev.Role))
		transcript.WriteString(": ")
		transcript.WriteString(ev.Content)
		transcript.WriteByte('\n')
	}

	preamble := "Extract durable facts, preferences, and decisions from this exchange as short standalone statements, one per line. Skip anything already obvious from context."
	out, err := e.backends.Completer.Complete(ctx, preamble, transcript.String(), e.config.LLM.Temperature, e.config.LLM.MaxTokens)
	if err != nil {
		return nil, newError("runLLMExtractor", ErrCompletionFailure, err)
	}

	var items []MemoryItem
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < e.config.Extractor.MinContentChars {
			continue
		}
		if len(items) >= e.config.Extractor.LLMMaxItems {
			break
		}
		metadata := NewMetadata(NewSource(SourceAssistant), now).WithSalience(defaultExtractorSalience(KindFact))
		item, err := NewMemoryItem(session, KindFact, line, metadata)
		if err != nil {
			continue
		}
		item = item.TruncateToBudget(e.config.Prompt.MaxMemoryChars)
		if err := item.Validate(e.config.Prompt.MaxMemoryChars); err != nil {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}
