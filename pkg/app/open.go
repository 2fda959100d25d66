package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/config"
	"github.com/perpetual-s/gemi/pkg/dotdir"
	embeddingsollama "github.com/perpetual-s/gemi/pkg/embeddings/ollama"
	"github.com/perpetual-s/gemi/pkg/journal"
	journalsqlite "github.com/perpetual-s/gemi/pkg/journal/sqlite"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	memorysqlite "github.com/perpetual-s/gemi/pkg/memorystore/sqlite"
	"github.com/perpetual-s/gemi/pkg/retrieval"
	vectorqdrant "github.com/perpetual-s/gemi/pkg/vector/qdrant"
	vectorsqlitevec "github.com/perpetual-s/gemi/pkg/vector/sqlitevec"
)

// sqlitePath resolves the on-disk location of a database file.
// storage.sqlite_path overrides the directory the database files live
// in; the dot directory is the default.
func sqlitePath(configDir string, cfg *config.Config, filename string) (string, error) {
	if cfg.Storage.SQLitePath != "" {
		return filepath.Join(cfg.Storage.SQLitePath, filename), nil
	}
	return dotdir.NewManager().DatabasePath(configDir, filename)
}

// OpenJournal opens just the journal store. Commands that only read or
// write entries use this instead of assembling the full stack.
func OpenJournal(configDir string, cfg *config.Config) (journal.Driver, error) {
	path, err := sqlitePath(configDir, cfg, journalDB)
	if err != nil {
		return nil, err
	}

	driver, err := journalsqlite.NewDriver(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal store: %w", err)
	}
	return driver, nil
}

// OpenMemories opens just the memory store.
func OpenMemories(configDir string, cfg *config.Config) (memorystore.Driver, error) {
	path, err := sqlitePath(configDir, cfg, memoryDB)
	if err != nil {
		return nil, err
	}

	driver, err := memorysqlite.NewDriver(path)
	if err != nil {
		return nil, fmt.Errorf("opening memory store: %w", err)
	}
	return driver, nil
}

// OpenIndexer assembles the embedder and vector store needed to index
// journal entries, without the generation or conversation stack. The
// returned close function releases both.
func OpenIndexer(ctx context.Context, configDir string, cfg *config.Config, logger *zap.Logger) (*retrieval.Indexer, func() error, error) {
	embedder, err := embeddingsollama.NewEmbedder(embeddingsollama.Config{
		BaseURL: cfg.Embedding.Target,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	switch cfg.VectorStore.Provider {
	case "sqlite":
		path, err := sqlitePath(configDir, cfg, vectorDB)
		if err != nil {
			_ = embedder.Close()
			return nil, nil, err
		}

		driver, err := vectorsqlitevec.NewDriver(vectorsqlitevec.Config{
			DBPath:     path,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)
		if err != nil {
			_ = embedder.Close()
			return nil, nil, fmt.Errorf("opening sqlite-vec store: %w", err)
		}

		closer := func() error {
			errDriver := driver.Close()
			errEmbedder := embedder.Close()
			if errDriver != nil {
				return errDriver
			}
			return errEmbedder
		}
		return retrieval.NewIndexer(embedder, driver, logger), closer, nil

	case "qdrant":
		driver, err := vectorqdrant.NewDriver(ctx, vectorqdrant.Config{
			Host:       cfg.VectorStore.Host,
			Port:       cfg.VectorStore.Port,
			Collection: cfg.VectorStore.Collection,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)
		if err != nil {
			_ = embedder.Close()
			return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
		}

		closer := func() error {
			errDriver := driver.Close()
			errEmbedder := embedder.Close()
			if errDriver != nil {
				return errDriver
			}
			return errEmbedder
		}
		return retrieval.NewIndexer(embedder, driver, logger), closer, nil

	default:
		_ = embedder.Close()
		return nil, nil, fmt.Errorf("unknown vector store provider %q (available: sqlite, qdrant)", cfg.VectorStore.Provider)
	}
}
