// Package sqlite provides a SQLite-backed journal entry driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perpetual-s/gemi/pkg/journal"
)

// Driver implements journal.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed journal store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		mood TEXT,
		created_at DATETIME NOT NULL
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Insert stores an entry.
func (d *Driver) Insert(ctx context.Context, entry journal.Entry) error {
	query := `INSERT INTO entries (id, title, content, mood, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		entry.ID,
		entry.Title,
		entry.Content,
		entry.Mood,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	return nil
}

// Get retrieves an entry by id.
func (d *Driver) Get(ctx context.Context, id string) (journal.Entry, error) {
	query := `SELECT id, title, content, mood, created_at FROM entries WHERE id = ?`

	var entry journal.Entry
	var mood sql.NullString
	var createdAt string

	err := d.db.QueryRowContext(ctx, query, id).Scan(&entry.ID, &entry.Title, &entry.Content, &mood, &createdAt)
	if err == sql.ErrNoRows {
		return journal.Entry{}, journal.ErrNotFound{ID: id}
	}
	if err != nil {
		return journal.Entry{}, fmt.Errorf("failed to scan entry: %w", err)
	}

	entry.Mood = mood.String

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	entry.CreatedAt = ts

	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (d *Driver) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	query := `SELECT id, title, content, mood, created_at FROM entries ORDER BY created_at DESC LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var entry journal.Entry
		var mood sql.NullString
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Title, &entry.Content, &mood, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		entry.Mood = mood.String

		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		entry.CreatedAt = ts

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}
