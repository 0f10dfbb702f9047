package memory

import (
	"context"
	"time"
)

// TranscriptRole identifies who produced a transcript event.
type TranscriptRole string

const (
	RoleUser      TranscriptRole = "user"
	RoleAssistant TranscriptRole = "assistant"
	RoleTool      TranscriptRole = "tool"
	RoleSystem    TranscriptRole = "system"
)

// TranscriptEvent is one immutable entry in a session's append-only log.
type TranscriptEvent struct {
	TurnID      TurnID         `json:"turn_id"`
	SessionID   SessionID      `json:"session_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Role        TranscriptRole `json:"role"`
	Content     string         `json:"content"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolPayload string         `json:"tool_payload,omitempty"`
}

// NewUserEvent builds a user-authored transcript event for the given turn.
func NewUserEvent(turnID TurnID, sessionID SessionID, content string, now time.Time) TranscriptEvent {
	return TranscriptEvent{TurnID: turnID, SessionID: sessionID, Timestamp: now, Role: RoleUser, Content: content}
}

// NewAssistantEvent builds an assistant-authored transcript event for the given turn.
func NewAssistantEvent(turnID TurnID, sessionID SessionID, content string, now time.Time) TranscriptEvent {
	return TranscriptEvent{TurnID: turnID, SessionID: sessionID, Timestamp: now, Role: RoleAssistant, Content: content}
}

// NewToolEvent builds a tool-call transcript event for the given turn.
func NewToolEvent(turnID TurnID, sessionID SessionID, toolName, payload string, now time.Time) TranscriptEvent {
	return TranscriptEvent{
		TurnID: turnID, SessionID: sessionID, Timestamp: now, Role: RoleTool,
		Content: payload, ToolName: toolName, ToolPayload: payload,
	}
}

// TranscriptStore is the append-only event log contract. All
// operations may suspend on I/O; empty events on AppendEvents is a no-op
// success; storage failures surface unchanged.
type TranscriptStore interface {
	// AppendEvents atomically appends events within a single transaction.
	AppendEvents(ctx context.Context, events []TranscriptEvent) error
	// LoadRecent returns the most recent `limit` events for session, in
	// chronological order.
	LoadRecent(ctx context.Context, session SessionID, limit int) ([]TranscriptEvent, error)
	// LoadRange returns events within [fromTS, toTS] inclusive, chronological order.
	LoadRange(ctx context.Context, session SessionID, fromTS, toTS time.Time) ([]TranscriptEvent, error)
	// CountTurns returns the count of distinct turn IDs for session.
	CountTurns(ctx context.Context, session SessionID) (int64, error)
}
