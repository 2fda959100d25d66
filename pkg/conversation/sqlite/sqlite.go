// Package sqlite provides a SQLite-backed conversation log driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perpetual-s/gemi/pkg/chat"
)

// Driver implements conversation.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed conversation log.
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
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		error INTEGER NOT NULL DEFAULT 0,
		sources TEXT,
		created_at DATETIME NOT NULL
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Append stores a turn at the end of the log.
func (d *Driver) Append(ctx context.Context, turn chat.Turn) error {
	var sourcesJSON sql.NullString
	if len(turn.Sources) > 0 {
		b, err := json.Marshal(turn.Sources)
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		sourcesJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO turns (id, role, text, error, sources, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		turn.ID,
		string(turn.Role),
		turn.Text,
		turn.Error,
		sourcesJSON,
		turn.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

// RecentTurns returns up to limit of the most recent turns, oldest to
// newest. A non-positive limit yields an empty window.
func (d *Driver) RecentTurns(ctx context.Context, limit int) ([]chat.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT id, role, text, error, sources, created_at FROM turns ORDER BY seq DESC LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := d.scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// The query returns newest first; flip to oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// List returns all turns, oldest to newest.
func (d *Driver) List(ctx context.Context) ([]chat.Turn, error) {
	query := `SELECT id, role, text, error, sources, created_at FROM turns ORDER BY seq ASC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	return d.scanTurns(rows)
}

func (d *Driver) scanTurns(rows *sql.Rows) ([]chat.Turn, error) {
	var turns []chat.Turn

	for rows.Next() {
		var turn chat.Turn
		var role string
		var sourcesJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&turn.ID, &role, &turn.Text, &turn.Error, &sourcesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		turn.Role = chat.Role(role)

		if sourcesJSON.Valid {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &turn.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
			}
		}

		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		turn.CreatedAt = ts

		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return turns, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}
