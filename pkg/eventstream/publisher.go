package eventstream

import (
	"context"
	"errors"
)

// ErrEmptyTurn indicates an event with no turn payload.
var ErrEmptyTurn = errors.New("event turn cannot be empty")

// Publisher defines the interface for emitting app events.
type Publisher interface {
	// PublishTurnPersisted emits a turn-persisted event.
	PublishTurnPersisted(ctx context.Context, event TurnPersistedEvent) error

	// Close flushes and releases the publisher.
	Close() error
}
