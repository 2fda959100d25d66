// Package inmemory provides an in-memory memory store driver, used
// primarily by tests.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perpetual-s/gemi/pkg/memorystore"
)

// Driver implements memorystore.Driver with in-process data structures.
type Driver struct {
	mu sync.RWMutex

	// records in insertion order; normalized maps canonical content to
	// the record index for dedupe.
	records    []memorystore.Record
	normalized map[string]int
}

// NewDriver creates an empty in-memory memory store.
func NewDriver() *Driver {
	return &Driver{
		normalized: make(map[string]int),
	}
}

// Insert persists a candidate, deduplicating on normalized content.
func (d *Driver) Insert(_ context.Context, candidate memorystore.Candidate) (memorystore.Record, bool, error) {
	normalized := memorystore.Normalize(candidate.Content)
	if normalized == "" {
		return memorystore.Record{}, false, memorystore.ErrEmptyContent
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if idx, ok := d.normalized[normalized]; ok {
		return d.records[idx], false, nil
	}

	record := memorystore.Record{
		ID:         uuid.NewString(),
		Content:    strings.TrimSpace(candidate.Content),
		Importance: candidate.Importance,
		Tags:       append([]string(nil), candidate.Tags...),
		Source:     candidate.Source,
		CreatedAt:  time.Now().UTC(),
	}

	d.normalized[normalized] = len(d.records)
	d.records = append(d.records, record)

	return record, true, nil
}

// Search performs keyword matching over memory content. A record
// matches when its content contains any keyword extracted from the
// query.
func (d *Driver) Search(_ context.Context, query string, limit int) ([]memorystore.Record, error) {
	keywords := memorystore.Keywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var matches []memorystore.Record
	for _, record := range d.records {
		content := strings.ToLower(record.Content)
		for _, keyword := range keywords {
			if strings.Contains(content, keyword) {
				matches = append(matches, record)
				break
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Pinned != matches[j].Pinned {
			return matches[i].Pinned
		}
		if matches[i].Importance != matches[j].Importance {
			return matches[i].Importance > matches[j].Importance
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// All returns every record, newest first.
func (d *Driver) All(_ context.Context) ([]memorystore.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := make([]memorystore.Record, len(d.records))
	copy(all, d.records)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return all, nil
}

// Pin sets the pin state of a record.
func (d *Driver) Pin(_ context.Context, id string, pinned bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.records {
		if d.records[i].ID == id {
			d.records[i].Pinned = pinned
			return nil
		}
	}

	return memorystore.ErrNotFound{ID: id}
}

// Delete removes a record.
func (d *Driver) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.records {
		if d.records[i].ID == id {
			delete(d.normalized, memorystore.Normalize(d.records[i].Content))
			d.records = append(d.records[:i], d.records[i+1:]...)

			// Reindex the dedupe map after the removal shifted indices.
			for n, idx := range d.normalized {
				if idx > i {
					d.normalized[n] = idx - 1
				}
			}
			return nil
		}
	}

	return memorystore.ErrNotFound{ID: id}
}

// Count returns the number of stored records.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.records)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
