package memorystore

import "context"

// Driver defines the interface for persisting and searching memories.
type Driver interface {
	// Insert persists a candidate and returns the stored record.
	// Candidates whose normalized content matches an existing record
	// are dropped; the existing record is returned with inserted=false.
	Insert(ctx context.Context, candidate Candidate) (record Record, inserted bool, err error)

	// Search returns up to limit records whose content contains any
	// keyword extracted from the free-text query (see Keywords),
	// ordered by pin state, importance, then recency.
	Search(ctx context.Context, query string, limit int) ([]Record, error)

	// All returns every record, newest first.
	All(ctx context.Context) ([]Record, error)

	// Pin sets the pin state of a record.
	Pin(ctx context.Context, id string, pinned bool) error

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
