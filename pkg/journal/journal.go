// Package journal defines the journal entry store the semantic
// retriever draws its passages from. Entry composition and rendering
// live in the app layer; the orchestrator only reads entries.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a single journal entry.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry creates an entry with a fresh id and timestamp.
func NewEntry(title, content, mood string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Mood:      mood,
		CreatedAt: time.Now().UTC(),
	}
}

// Driver defines the interface for persisting and reading journal entries.
type Driver interface {
	// Insert stores an entry.
	Insert(ctx context.Context, entry Entry) error

	// Get retrieves an entry by id.
	Get(ctx context.Context, id string) (Entry, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound indicates an entry was not found.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("journal entry not found: %s", e.ID)
}
