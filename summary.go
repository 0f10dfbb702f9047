package memory

import (
	"context"
	"time"
)

// SummaryRecord is the per-session rolling summary; at most one per session.
type SummaryRecord struct {
	SessionID         SessionID `json:"session_id"`
	SummaryText       string    `json:"summary_text"`
	UpdatedAt         time.Time `json:"updated_at"`
	TurnCountAtUpdate int64     `json:"turn_count_at_update"`
}

// SummaryStore holds the single rolling summary per session.
// UpdatedAt is expected to be monotonic per session; a caller overwriting
// with an earlier timestamp is accepted but is a usage bug, not an error.
type SummaryStore interface {
	// Get returns the session's summary record, or (zero, false) if none exists.
	Get(ctx context.Context, session SessionID) (SummaryRecord, bool, error)
	// Set upserts the record by session_id.
	Set(ctx context.Context, record SummaryRecord) error
}
