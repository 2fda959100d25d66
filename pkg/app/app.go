// Package app wires the configured drivers into a runnable orchestrator
// stack. The chat and serve commands share this assembly.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/config"
	"github.com/perpetual-s/gemi/pkg/conversation"
	conversationpg "github.com/perpetual-s/gemi/pkg/conversation/postgres"
	conversationsqlite "github.com/perpetual-s/gemi/pkg/conversation/sqlite"
	"github.com/perpetual-s/gemi/pkg/embeddings"
	embeddingsollama "github.com/perpetual-s/gemi/pkg/embeddings/ollama"
	"github.com/perpetual-s/gemi/pkg/eventstream"
	eventskafka "github.com/perpetual-s/gemi/pkg/eventstream/kafka"
	eventsnop "github.com/perpetual-s/gemi/pkg/eventstream/nop"
	"github.com/perpetual-s/gemi/pkg/extraction"
	"github.com/perpetual-s/gemi/pkg/generation"
	generationollama "github.com/perpetual-s/gemi/pkg/generation/ollama"
	"github.com/perpetual-s/gemi/pkg/journal"
	journalsqlite "github.com/perpetual-s/gemi/pkg/journal/sqlite"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	memorysqlite "github.com/perpetual-s/gemi/pkg/memorystore/sqlite"
	"github.com/perpetual-s/gemi/pkg/orchestrator"
	"github.com/perpetual-s/gemi/pkg/retrieval"
	"github.com/perpetual-s/gemi/pkg/session"
	"github.com/perpetual-s/gemi/pkg/vector"
	vectorqdrant "github.com/perpetual-s/gemi/pkg/vector/qdrant"
	vectorsqlitevec "github.com/perpetual-s/gemi/pkg/vector/sqlitevec"
)

const (
	conversationDB = "conversation.db"
	journalDB      = "journal.db"
	memoryDB       = "memory.db"
	vectorDB       = "vectors.db"
)

// App holds the assembled orchestrator stack.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Conversations conversation.Driver
	Journal       journal.Driver
	Memories      memorystore.Driver
	Vectors       vector.Driver
	Embedder      embeddings.Embedder
	Generator     generation.Service
	Publisher     eventstream.Publisher

	Retriever *retrieval.Retriever
	Indexer   *retrieval.Indexer
	Builder   *orchestrator.Builder
	Pipeline  *extraction.Pipeline
	Session   *session.Session
}

// New assembles the stack from the given config. configDir overrides
// the .gemi/ directory resolution for on-disk stores.
func New(ctx context.Context, configDir string, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStores(ctx, configDir); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initVectors(ctx, configDir); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initPublisher(); err != nil {
		a.Close()
		return nil, err
	}

	a.Generator = generationollama.NewService(generationollama.Config{
		BaseURL: cfg.Generation.Target,
		Model:   cfg.Generation.Model,
	}, logger)

	a.Retriever = retrieval.NewRetriever(a.Embedder, a.Vectors, a.Journal, logger)
	a.Indexer = retrieval.NewIndexer(a.Embedder, a.Vectors, logger)

	a.Builder = orchestrator.NewBuilder(
		a.Conversations,
		a.Retriever,
		a.Memories,
		orchestrator.DefaultIntents(a.Journal, a.Conversations),
		orchestrator.Config{
			HistoryTurns: cfg.Context.HistoryTurns,
			JournalTopK:  cfg.Context.JournalTopK,
			MemoryLimit:  cfg.Context.MemoryLimit,
			PromptBudget: cfg.Context.PromptBudget,
		},
		logger,
	)

	var extractor session.Extractor
	if cfg.Memory.Enabled {
		pipeline, err := extraction.NewPipeline(&extraction.Config{
			Generator: a.Generator,
			Memories:  a.Memories,
			Logger:    logger,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating extraction pipeline: %w", err)
		}
		a.Pipeline = pipeline
		extractor = pipeline
	} else {
		logger.Info("memory extraction disabled")
	}

	a.Session = session.NewSession(a.Builder, a.Conversations, a.Generator, extractor, a.Publisher, logger)

	return a, nil
}

func (a *App) initStores(ctx context.Context, configDir string) error {
	cfg := a.Config

	switch cfg.Storage.Provider {
	case "sqlite":
		conversationPath, err := sqlitePath(configDir, cfg, conversationDB)
		if err != nil {
			return err
		}
		if a.Conversations, err = conversationsqlite.NewDriver(conversationPath); err != nil {
			return fmt.Errorf("opening conversation store: %w", err)
		}

		journalPath, err := sqlitePath(configDir, cfg, journalDB)
		if err != nil {
			return err
		}
		if a.Journal, err = journalsqlite.NewDriver(journalPath); err != nil {
			return fmt.Errorf("opening journal store: %w", err)
		}

		memoryPath, err := sqlitePath(configDir, cfg, memoryDB)
		if err != nil {
			return err
		}
		if a.Memories, err = memorysqlite.NewDriver(memoryPath); err != nil {
			return fmt.Errorf("opening memory store: %w", err)
		}

		a.Logger.Info("using SQLite storage",
			zap.String("conversation", conversationPath),
			zap.String("journal", journalPath),
			zap.String("memory", memoryPath),
		)

	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn must be set for the postgres provider")
		}

		var err error
		if a.Conversations, err = conversationpg.NewDriver(ctx, cfg.Storage.PostgresDSN); err != nil {
			return fmt.Errorf("opening postgres conversation store: %w", err)
		}

		// Journal and memory stay on SQLite; only the conversation log
		// has a postgres driver today.
		journalPath, err := sqlitePath(configDir, cfg, journalDB)
		if err != nil {
			return err
		}
		if a.Journal, err = journalsqlite.NewDriver(journalPath); err != nil {
			return fmt.Errorf("opening journal store: %w", err)
		}

		memoryPath, err := sqlitePath(configDir, cfg, memoryDB)
		if err != nil {
			return err
		}
		if a.Memories, err = memorysqlite.NewDriver(memoryPath); err != nil {
			return fmt.Errorf("opening memory store: %w", err)
		}

		a.Logger.Info("using postgres conversation storage")

	default:
		return fmt.Errorf("unknown storage provider %q (available: sqlite, postgres)", cfg.Storage.Provider)
	}

	return nil
}

func (a *App) initVectors(ctx context.Context, configDir string) error {
	cfg := a.Config

	embedder, err := embeddingsollama.NewEmbedder(embeddingsollama.Config{
		BaseURL: cfg.Embedding.Target,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	a.Embedder = embedder

	switch cfg.VectorStore.Provider {
	case "sqlite":
		path, err := sqlitePath(configDir, cfg, vectorDB)
		if err != nil {
			return err
		}

		a.Vectors, err = vectorsqlitevec.NewDriver(vectorsqlitevec.Config{
			DBPath:     path,
			Dimensions: cfg.Embedding.Dimensions,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("opening sqlite-vec store: %w", err)
		}

	case "qdrant":
		var err error
		a.Vectors, err = vectorqdrant.NewDriver(ctx, vectorqdrant.Config{
			Host:       cfg.VectorStore.Host,
			Port:       cfg.VectorStore.Port,
			Collection: cfg.VectorStore.Collection,
			Dimensions: cfg.Embedding.Dimensions,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("connecting to qdrant: %w", err)
		}

	default:
		return fmt.Errorf("unknown vector store provider %q (available: sqlite, qdrant)", cfg.VectorStore.Provider)
	}

	return nil
}

func (a *App) initPublisher() error {
	cfg := a.Config

	switch cfg.Events.Provider {
	case "", "none":
		a.Publisher = eventsnop.NewPublisher()

	case "kafka":
		publisher, err := eventskafka.NewPublisher(eventskafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("creating kafka publisher: %w", err)
		}
		a.Publisher = publisher

	default:
		return fmt.Errorf("unknown events provider %q (available: none, kafka)", cfg.Events.Provider)
	}

	return nil
}

// Close tears the stack down in reverse dependency order. Safe on a
// partially-assembled App.
func (a *App) Close() {
	if a.Pipeline != nil {
		a.Pipeline.Close()
	}
	if a.Generator != nil {
		_ = a.Generator.Close()
	}
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.Vectors != nil {
		_ = a.Vectors.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.Memories != nil {
		_ = a.Memories.Close()
	}
	if a.Journal != nil {
		_ = a.Journal.Close()
	}
	if a.Conversations != nil {
		_ = a.Conversations.Close()
	}
}
