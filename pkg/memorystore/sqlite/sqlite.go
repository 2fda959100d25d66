// Package sqlite provides a SQLite-backed memory store driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/perpetual-s/gemi/pkg/memorystore"
)

// Driver implements memorystore.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed memory store.
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

// migrate creates the necessary tables if they don't exist.
// The UNIQUE constraint on normalized content is the dedupe boundary:
// inserting an equivalent fact twice is a no-op.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		normalized TEXT NOT NULL UNIQUE,
		importance REAL NOT NULL,
		tags TEXT,
		pinned INTEGER NOT NULL DEFAULT 0,
		source TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Insert persists a candidate, deduplicating on normalized content.
func (d *Driver) Insert(ctx context.Context, candidate memorystore.Candidate) (memorystore.Record, bool, error) {
	normalized := memorystore.Normalize(candidate.Content)
	if normalized == "" {
		return memorystore.Record{}, false, memorystore.ErrEmptyContent
	}

	record := memorystore.Record{
		ID:         uuid.NewString(),
		Content:    strings.TrimSpace(candidate.Content),
		Importance: candidate.Importance,
		Tags:       candidate.Tags,
		Source:     candidate.Source,
		CreatedAt:  time.Now().UTC(),
	}

	var tagsJSON sql.NullString
	if len(record.Tags) > 0 {
		b, err := json.Marshal(record.Tags)
		if err != nil {
			return memorystore.Record{}, false, fmt.Errorf("failed to marshal tags: %w", err)
		}
		tagsJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
	INSERT INTO memories (id, content, normalized, importance, tags, pinned, source, created_at)
	VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	ON CONFLICT(normalized) DO NOTHING
	`

	result, err := d.db.ExecContext(ctx, query,
		record.ID,
		record.Content,
		normalized,
		record.Importance,
		tagsJSON,
		record.Source,
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return memorystore.Record{}, false, fmt.Errorf("failed to insert memory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return memorystore.Record{}, false, fmt.Errorf("failed to read insert result: %w", err)
	}

	if affected == 0 {
		existing, err := d.getByNormalized(ctx, normalized)
		if err != nil {
			return memorystore.Record{}, false, err
		}
		return existing, false, nil
	}

	return record, true, nil
}

func (d *Driver) getByNormalized(ctx context.Context, normalized string) (memorystore.Record, error) {
	query := `SELECT id, content, importance, tags, pinned, source, created_at FROM memories WHERE normalized = ?`

	record, err := d.scanRecord(d.db.QueryRowContext(ctx, query, normalized))
	if err == sql.ErrNoRows {
		return memorystore.Record{}, memorystore.ErrNotFound{ID: normalized}
	}
	if err != nil {
		return memorystore.Record{}, fmt.Errorf("failed to load existing memory: %w", err)
	}

	return record, nil
}

// Search performs keyword matching over memory content. The free-text
// query is reduced to keywords; a record matches when its content
// contains any of them.
func (d *Driver) Search(ctx context.Context, query string, limit int) ([]memorystore.Record, error) {
	keywords := memorystore.Keywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, content, importance, tags, pinned, source, created_at FROM memories WHERE (`)

	args := make([]any, 0, len(keywords)+1)
	for i, keyword := range keywords {
		if i > 0 {
			sb.WriteString(` OR `)
		}
		sb.WriteString(`lower(content) LIKE ?`)
		args = append(args, "%"+keyword+"%")
	}

	sb.WriteString(`) ORDER BY pinned DESC, importance DESC, created_at DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	return d.scanRecords(rows)
}

// All returns every record, newest first.
func (d *Driver) All(ctx context.Context) ([]memorystore.Record, error) {
	query := `SELECT id, content, importance, tags, pinned, source, created_at FROM memories ORDER BY created_at DESC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	return d.scanRecords(rows)
}

// Pin sets the pin state of a record.
func (d *Driver) Pin(ctx context.Context, id string, pinned bool) error {
	result, err := d.db.ExecContext(ctx, `UPDATE memories SET pinned = ? WHERE id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("failed to pin memory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read pin result: %w", err)
	}
	if affected == 0 {
		return memorystore.ErrNotFound{ID: id}
	}

	return nil
}

// Delete removes a record.
func (d *Driver) Delete(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return memorystore.ErrNotFound{ID: id}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *Driver) scanRecord(row rowScanner) (memorystore.Record, error) {
	var record memorystore.Record
	var tagsJSON, source sql.NullString
	var createdAt string

	err := row.Scan(&record.ID, &record.Content, &record.Importance, &tagsJSON, &record.Pinned, &source, &createdAt)
	if err != nil {
		return memorystore.Record{}, err
	}

	if tagsJSON.Valid {
		if err := json.Unmarshal([]byte(tagsJSON.String), &record.Tags); err != nil {
			return memorystore.Record{}, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	record.Source = source.String

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return memorystore.Record{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.CreatedAt = ts

	return record, nil
}

func (d *Driver) scanRecords(rows *sql.Rows) ([]memorystore.Record, error) {
	var records []memorystore.Record

	for rows.Next() {
		record, err := d.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}

	return records, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}
