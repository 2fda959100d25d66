package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/memorystore"
)

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatChunk is one NDJSON line of the streamed chat response. The
// first line carries the context sources, then one fragment per line,
// then a final done line with the terminal state.
type chatChunk struct {
	Type    string                  `json:"type"`
	Sources []chat.ContextSourceRef `json:"sources,omitempty"`
	Text    string                  `json:"text,omitempty"`
	State   string                  `json:"state,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleModelPing checks the generation backend is reachable.
func (s *Server) handleModelPing(c *fiber.Ctx) error {
	if err := s.generator.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "generation backend unreachable"})
	}
	return c.JSON("pong")
}

// handleChat submits one user message and streams the reply as NDJSON.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message cannot be empty"})
	}

	// The generation outlives this request context; the handle owns
	// its lifecycle and /api/chat/cancel stops it.
	handle, err := s.session.Send(context.Background(), req.Message)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()

		enc := json.NewEncoder(pw)
		if err := enc.Encode(chatChunk{Type: "sources", Sources: handle.Sources()}); err != nil {
			handle.Cancel()
			return
		}

		for fragment := range handle.Fragments() {
			if err := enc.Encode(chatChunk{Type: "fragment", Text: fragment}); err != nil {
				// Client went away; stop generating.
				handle.Cancel()
				s.logger.Debug("chat stream client disconnected",
					zap.Error(err),
				)
				return
			}
		}

		<-handle.Done()
		_ = enc.Encode(chatChunk{Type: "done", State: string(handle.State())})
	}()

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Context().SetBodyStream(pr, -1)
	return nil
}

// handleChatCancel cancels the running generation, if any.
func (s *Server) handleChatCancel(c *fiber.Ctx) error {
	s.session.Cancel()
	return c.JSON(map[string]any{"cancelled": true})
}

// handleListMemories returns every stored memory, newest first.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	records, err := s.memories.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to list memories"})
	}

	return c.JSON(map[string]any{
		"count":    len(records),
		"memories": records,
	})
}

// handleDeleteMemory removes one memory by id.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := s.memories.Delete(c.Context(), id); err != nil {
		var notFound memorystore.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "memory not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to delete memory"})
	}

	return c.JSON(map[string]any{"deleted": id})
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// handlePinMemory sets the pin state of one memory.
func (s *Server) handlePinMemory(c *fiber.Ctx) error {
	id := c.Params("id")

	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if err := s.memories.Pin(c.Context(), id, req.Pinned); err != nil {
		var notFound memorystore.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "memory not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to pin memory"})
	}

	return c.JSON(map[string]any{"id": id, "pinned": req.Pinned})
}

// handleSearch runs semantic search over journal entries.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.retriever == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "semantic search not configured"})
	}

	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "q parameter required"})
	}
	topK := c.QueryInt("k", 5)

	matches, err := s.retriever.Search(c.Context(), query, topK)
	if err != nil {
		s.logger.Warn("search failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "search failed"})
	}

	return c.JSON(map[string]any{
		"count":   len(matches),
		"matches": matches,
	})
}

// handleListEntries returns recent journal entries, newest first.
func (s *Server) handleListEntries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	entries, err := s.journal.Recent(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to list entries"})
	}

	return c.JSON(map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

type createEntryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

// handleCreateEntry stores a journal entry and indexes it for semantic
// search. Indexing failures are logged, not surfaced; the entry itself
// is already durable.
func (s *Server) handleCreateEntry(c *fiber.Ctx) error {
	var req createEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "content cannot be empty"})
	}

	entry := journal.NewEntry(req.Title, req.Content, req.Mood)
	if err := s.journal.Insert(c.Context(), entry); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to store entry"})
	}

	if s.indexer != nil {
		if err := s.indexer.IndexEntry(c.Context(), entry); err != nil {
			s.logger.Warn("failed to index entry",
				zap.String("id", entry.ID),
				zap.Error(err),
			)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}
