// Package inmemory provides an in-memory conversation log driver, used
// primarily by tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/perpetual-s/gemi/pkg/chat"
)

// Driver implements conversation.Driver with a mutex-guarded slice.
type Driver struct {
	mu    sync.RWMutex
	turns []chat.Turn
}

// NewDriver creates an empty in-memory conversation log.
func NewDriver() *Driver {
	return &Driver{}
}

// Append stores a turn at the end of the log.
func (d *Driver) Append(_ context.Context, turn chat.Turn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.turns = append(d.turns, turn)
	return nil
}

// RecentTurns returns up to limit of the most recent turns, oldest to
// newest. A non-positive limit yields an empty window.
func (d *Driver) RecentTurns(_ context.Context, limit int) ([]chat.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	start := len(d.turns) - limit
	if start < 0 {
		start = 0
	}

	window := make([]chat.Turn, len(d.turns)-start)
	copy(window, d.turns[start:])

	return window, nil
}

// List returns all turns, oldest to newest.
func (d *Driver) List(_ context.Context) ([]chat.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := make([]chat.Turn, len(d.turns))
	copy(all, d.turns)

	return all, nil
}

// Count returns the number of stored turns.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.turns)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
