// Package eventstream publishes app events for companion processes,
// such as a sync agent or analytics sidecar, to consume. Publishing is
// best-effort; the chat path never blocks on it.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/perpetual-s/gemi/pkg/chat"
)

// SchemaVersionV1 is the current event schema version.
const SchemaVersionV1 = 1

// TypeTurnPersisted identifies a turn-persisted event.
const TypeTurnPersisted = "gemi.turn.persisted"

// TurnPersistedEvent is emitted after a turn is written to the
// conversation log.
type TurnPersistedEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	SchemaVersion int       `json:"schema_version"`
	OccurredAt    time.Time `json:"occurred_at"`
	Turn          chat.Turn `json:"turn"`
}

// NewTurnPersisted wraps a persisted turn in an event envelope.
func NewTurnPersisted(turn chat.Turn) TurnPersistedEvent {
	return TurnPersistedEvent{
		ID:            uuid.NewString(),
		Type:          TypeTurnPersisted,
		SchemaVersion: SchemaVersionV1,
		OccurredAt:    time.Now().UTC(),
		Turn:          turn,
	}
}
