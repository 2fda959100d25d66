// Package retrieval performs semantic search over journal entries: it
// embeds query text, finds the nearest entry embeddings in the vector
// store, and loads the matching entries for prompt assembly.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/embeddings"
	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/vector"
)

// Match is a journal entry paired with its similarity score.
type Match struct {
	Entry journal.Entry
	Score float32
}

// Retriever resolves free text into relevant journal entries.
type Retriever struct {
	embedder embeddings.Embedder
	vectors  vector.Driver
	journal  journal.Driver
	logger   *zap.Logger
}

// NewRetriever creates a Retriever over the given embedder, vector
// store, and journal store.
func NewRetriever(embedder embeddings.Embedder, vectors vector.Driver, journalDriver journal.Driver, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		journal:  journalDriver,
		logger:   logger,
	}
}

// Search returns up to topK journal entries most similar to the query,
// best match first. Vector hits whose entry has since been deleted are
// skipped.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.vectors.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		entry, err := r.journal.Get(ctx, result.ID)
		if err != nil {
			var notFound journal.ErrNotFound
			if errors.As(err, &notFound) {
				r.logger.Debug("vector hit has no journal entry, skipping",
					zap.String("id", result.ID),
				)
				continue
			}
			return nil, fmt.Errorf("loading entry %s: %w", result.ID, err)
		}
		matches = append(matches, Match{Entry: entry, Score: result.Score})
	}

	r.logger.Debug("semantic search complete",
		zap.String("query", query),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// Indexer writes journal entry embeddings into the vector store.
type Indexer struct {
	embedder embeddings.Embedder
	vectors  vector.Driver
	logger   *zap.Logger
}

// NewIndexer creates an Indexer over the given embedder and vector store.
func NewIndexer(embedder embeddings.Embedder, vectors vector.Driver, logger *zap.Logger) *Indexer {
	return &Indexer{
		embedder: embedder,
		vectors:  vectors,
		logger:   logger,
	}
}

// IndexEntry embeds an entry's title and content and stores the
// embedding under the entry's id. Re-indexing an entry replaces its
// previous embedding.
func (i *Indexer) IndexEntry(ctx context.Context, entry journal.Entry) error {
	text := entry.Content
	if entry.Title != "" {
		text = entry.Title + "\n\n" + entry.Content
	}

	embedding, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding entry %s: %w", entry.ID, err)
	}

	err = i.vectors.Add(ctx, []vector.Document{{
		ID:        entry.ID,
		Embedding: embedding,
	}})
	if err != nil {
		return fmt.Errorf("storing embedding for entry %s: %w", entry.ID, err)
	}

	i.logger.Debug("indexed journal entry",
		zap.String("id", entry.ID),
		zap.String("title", entry.Title),
	)

	return nil
}

// RemoveEntry drops an entry's embedding from the vector store.
func (i *Indexer) RemoveEntry(ctx context.Context, id string) error {
	if err := i.vectors.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("removing embedding for entry %s: %w", id, err)
	}
	return nil
}
