// Package inmemory provides an in-memory journal driver, used
// primarily by tests.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/perpetual-s/gemi/pkg/journal"
)

// Driver implements journal.Driver with in-process data structures.
type Driver struct {
	mu      sync.RWMutex
	entries []journal.Entry
}

// NewDriver creates an empty in-memory journal store.
func NewDriver() *Driver {
	return &Driver{}
}

// Insert stores an entry.
func (d *Driver) Insert(_ context.Context, entry journal.Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = append(d.entries, entry)
	return nil
}

// Get retrieves an entry by id.
func (d *Driver) Get(_ context.Context, id string) (journal.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, entry := range d.entries {
		if entry.ID == id {
			return entry, nil
		}
	}

	return journal.Entry{}, journal.ErrNotFound{ID: id}
}

// Recent returns up to limit entries, newest first.
func (d *Driver) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	recent := make([]journal.Entry, len(d.entries))
	copy(recent, d.entries)

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})

	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}

	return recent, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
