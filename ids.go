package memory

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// SessionID scopes all memory operations to a single logical conversation.
type SessionID uuid.UUID

// TurnID identifies one user/assistant exchange (plus optional tool events).
type TurnID uuid.UUID

// MemoryID identifies a single durable extracted memory item.
type MemoryID uuid.UUID

// UserID identifies the human or agent principal behind a session, when known.
type UserID uuid.UUID

// NewSessionID mints a fresh, time-ordered session identifier.
func NewSessionID() SessionID { return SessionID(newUUID()) }

// NewTurnID mints a fresh, time-ordered turn identifier.
func NewTurnID() TurnID { return TurnID(newUUID()) }

// NewMemoryID mints a fresh, time-ordered memory identifier.
func NewMemoryID() MemoryID { return MemoryID(newUUID()) }

// NewUserID mints a fresh, time-ordered user identifier.
func NewUserID() UserID { return UserID(newUUID()) }

func newUUID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the process entropy source is broken; fall
		// back to a random v4 rather than panic on a hot path.
		return uuid.New()
	}
	return id
}

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id TurnID) String() string    { return uuid.UUID(id).String() }
func (id MemoryID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }

// IsZero reports whether the identifier is the unset/zero value.
func (id SessionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id TurnID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MemoryID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseSessionID parses a canonical string form, returning InvalidInput on failure.
func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, newError("ParseSessionID", ErrInvalidInput, err)
	}
	return SessionID(u), nil
}

// ParseTurnID parses a canonical string form, returning InvalidInput on failure.
func ParseTurnID(s string) (TurnID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TurnID{}, newError("ParseTurnID", ErrInvalidInput, err)
	}
	return TurnID(u), nil
}

// ParseMemoryID parses a canonical string form, returning InvalidInput on failure.
func ParseMemoryID(s string) (MemoryID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MemoryID{}, newError("ParseMemoryID", ErrInvalidInput, err)
	}
	return MemoryID(u), nil
}

// ParseUserID parses a canonical string form, returning InvalidInput on failure.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, newError("ParseUserID", ErrInvalidInput, err)
	}
	return UserID(u), nil
}

// Value implements driver.Valuer so identifiers can be bound directly as
// query parameters against pgx.
func (id SessionID) Value() (driver.Value, error) { return id.String(), nil }
func (id TurnID) Value() (driver.Value, error)     { return id.String(), nil }
func (id MemoryID) Value() (driver.Value, error)   { return id.String(), nil }
func (id UserID) Value() (driver.Value, error)     { return id.String(), nil }

var _ fmt.Stringer = SessionID{}
