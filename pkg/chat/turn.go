// Package chat holds the conversation domain types shared across the
// orchestrator, the stores, and the API surface.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message in a conversation. Turns are immutable once
// persisted; assistant turns are created only after streaming finishes.
type Turn struct {
	ID        string             `json:"id"`
	Role      Role               `json:"role"`
	Text      string             `json:"text"`
	Error     bool               `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Sources   []ContextSourceRef `json:"sources,omitempty"`
}

// NewTurn creates a turn with a fresh id and timestamp.
func NewTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// Exchange is one completed user/assistant round trip, the unit the
// memory extraction pipeline works on.
type Exchange struct {
	ID            string `json:"id"`
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`
}
