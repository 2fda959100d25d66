// Package api exposes the chat orchestrator, journal, and memory store
// over HTTP for the desktop shell and companion tools.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/generation"
	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	"github.com/perpetual-s/gemi/pkg/orchestrator"
	"github.com/perpetual-s/gemi/pkg/retrieval"
	"github.com/perpetual-s/gemi/pkg/session"
)

// Server is the API server for the gemi chat orchestrator.
type Server struct {
	config    Config
	session   *session.Session
	memories  memorystore.Driver
	journal   journal.Driver
	retriever orchestrator.Retriever
	indexer   *retrieval.Indexer
	generator generation.Service
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server. All collaborators are injected so
// they can be shared with the CLI wiring; retriever and indexer may be
// nil when no journal index is configured.
func NewServer(
	config Config,
	sess *session.Session,
	memories memorystore.Driver,
	journalDriver journal.Driver,
	retriever orchestrator.Retriever,
	indexer *retrieval.Indexer,
	generator generation.Service,
	logger *zap.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		session:   sess,
		memories:  memories,
		journal:   journalDriver,
		retriever: retriever,
		indexer:   indexer,
		generator: generator,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/model/ping", s.handleModelPing)

	app.Post("/api/chat", s.handleChat)
	app.Post("/api/chat/cancel", s.handleChatCancel)

	app.Get("/api/memories", s.handleListMemories)
	app.Delete("/api/memories/:id", s.handleDeleteMemory)
	app.Post("/api/memories/:id/pin", s.handlePinMemory)

	app.Get("/api/search", s.handleSearch)

	app.Get("/api/journal/entries", s.handleListEntries)
	app.Post("/api/journal/entries", s.handleCreateEntry)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
