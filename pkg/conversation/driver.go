// Package conversation provides the append-only conversation log.
//
// The log stores completed turns in order. The orchestrator reads a
// bounded recent window for prompt context and appends finished turns;
// it never mutates persisted turns.
package conversation

import (
	"context"

	"github.com/perpetual-s/gemi/pkg/chat"
)

// Driver defines the interface for persisting and reading conversation
// turns in a storage backend.
type Driver interface {
	// Append stores a turn at the end of the log.
	Append(ctx context.Context, turn chat.Turn) error

	// RecentTurns returns up to limit of the most recent turns,
	// ordered oldest to newest. A non-positive limit yields an empty
	// window.
	RecentTurns(ctx context.Context, limit int) ([]chat.Turn, error)

	// List returns all turns, ordered oldest to newest.
	List(ctx context.Context) ([]chat.Turn, error)

	// Close closes the log and releases any resources.
	Close() error
}
