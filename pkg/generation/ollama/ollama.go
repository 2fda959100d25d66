// Package ollama implements the generation service against a local
// Ollama server using its native chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/generation"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gemma3:latest"

	// DefaultBaseURL is the default Ollama server address.
	DefaultBaseURL = "http://localhost:11434"
)

// Service talks to an Ollama server's /api/chat endpoint.
type Service struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// Config holds configuration for the Ollama generation service.
type Config struct {
	// BaseURL is the Ollama server URL. Defaults to "http://localhost:11434".
	BaseURL string

	// Model is the chat model name. Defaults to "gemma3:latest".
	Model string
}

// NewService creates an Ollama-backed generation service.
func NewService(c Config, logger *zap.Logger) *Service {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Service{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// chatRequest is the Ollama-native chat request format.
type chatRequest struct {
	Model    string               `json:"model"`
	Messages []generation.Message `json:"messages"`
	Stream   bool                 `json:"stream"`
}

// chatChunk represents a single chat response chunk from Ollama. In
// non-streaming mode the whole response arrives as one chunk.
type chatChunk struct {
	Model     string             `json:"model"`
	CreatedAt time.Time          `json:"created_at"`
	Message   generation.Message `json:"message"`
	Done      bool               `json:"done"`
}

// StreamChat starts a streaming completion against /api/chat. The NDJSON
// response body is consumed on a background goroutine that feeds the
// returned stream.
func (s *Service) StreamChat(ctx context.Context, messages []generation.Message) (*generation.Stream, error) {
	resp, err := s.send(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	stream := generation.NewStream()
	go s.consume(resp.Body, stream)

	return stream, nil
}

func (s *Service) consume(body io.ReadCloser, stream *generation.Stream) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.logger.Debug("failed to parse stream chunk",
				zap.Error(err),
				zap.String("line", string(line)),
			)
			continue
		}

		if chunk.Message.Content != "" {
			stream.Send(chunk.Message.Content)
		}

		if chunk.Done {
			stream.Finish(nil)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		stream.Finish(fmt.Errorf("reading stream: %w", err))
		return
	}

	// Body ended without a done chunk; treat as a truncated response.
	stream.Finish(fmt.Errorf("stream ended before completion"))
}

// ChatOnce runs a non-streaming completion and returns the response text.
func (s *Service) ChatOnce(ctx context.Context, messages []generation.Message) (string, error) {
	resp, err := s.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chunk chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return chunk.Message.Content, nil
}

func (s *Service) send(ctx context.Context, messages []generation.Message, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	s.logger.Debug("sending chat request",
		zap.String("model", s.model),
		zap.Int("message_count", len(messages)),
		zap.Bool("stream", stream),
	)

	url := s.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// Ping checks the server is reachable via /api/tags.
func (s *Service) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinging ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return nil
}

// Close is a no-op; the HTTP client holds no long-lived resources.
func (s *Service) Close() error {
	return nil
}
