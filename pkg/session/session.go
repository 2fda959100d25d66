// Package session owns the streamed generation lifecycle: it starts a
// completion from an assembled prompt bundle, accumulates fragments,
// enforces the single-flight rule per conversation, and finalizes the
// result into a persisted turn.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/conversation"
	"github.com/perpetual-s/gemi/pkg/eventstream"
	"github.com/perpetual-s/gemi/pkg/generation"
	"github.com/perpetual-s/gemi/pkg/utils"
)

// Builder assembles the prompt bundle for one user message.
type Builder interface {
	Build(ctx context.Context, userText string) (chat.PromptBundle, error)
}

// Extractor receives completed exchanges for background memory
// extraction. The returned channel closes when the run finishes; the
// session never waits on it.
type Extractor interface {
	Process(exchange chat.Exchange) <-chan struct{}
}

// Session drives conversations: one Session per conversation, at most
// one running generation at a time.
type Session struct {
	builder       Builder
	conversations conversation.Driver
	generator     generation.Service
	extractor     Extractor
	publisher     eventstream.Publisher
	logger        *zap.Logger

	mu      sync.Mutex
	current *Handle
}

// NewSession creates a session. extractor may be nil to disable memory
// extraction; publisher may be nil to disable events.
func NewSession(
	builder Builder,
	conversations conversation.Driver,
	generator generation.Service,
	extractor Extractor,
	publisher eventstream.Publisher,
	logger *zap.Logger,
) *Session {
	return &Session{
		builder:       builder,
		conversations: conversations,
		generator:     generator,
		extractor:     extractor,
		publisher:     publisher,
		logger:        logger,
	}
}

// Send submits one user message: it assembles the prompt, cancels any
// generation still running from a previous Send, persists the user
// turn, and starts streaming. The returned handle is already terminal
// when generation could not start; callers stream via Fragments and
// inspect State after Done closes.
//
// Send returns an error only for empty user text; generation failures
// surface as a failed handle with an error-flagged turn.
func (s *Session) Send(ctx context.Context, userText string) (*Handle, error) {
	bundle, err := s.builder.Build(ctx, userText)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	// Single-flight: the previous generation must be fully torn down
	// before the new one starts accumulating fragments.
	if prev != nil {
		prev.Cancel()
		<-prev.Done()
	}

	userTurn := chat.NewTurn(chat.RoleUser, userText)
	if err := s.conversations.Append(ctx, userTurn); err != nil {
		s.logger.Warn("failed to persist user turn",
			zap.String("turn_id", userTurn.ID),
			zap.Error(err),
		)
	}

	genCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle := newHandle(bundle.Sources, cancel)

	stream, err := s.generator.StreamChat(genCtx, []generation.Message{
		{Role: string(chat.RoleUser), Content: bundle.Prompt},
	})
	if err != nil {
		s.fail(handle, err)
		close(handle.fragments)
		close(handle.done)
		cancel()
		return handle, nil
	}

	s.mu.Lock()
	s.current = handle
	s.mu.Unlock()

	go s.consume(genCtx, handle, stream, userText)

	return handle, nil
}

// Cancel cancels the current running generation, if any. Safe to call
// at any time.
func (s *Session) Cancel() {
	s.mu.Lock()
	handle := s.current
	s.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
}

// Current returns the most recently started handle, or nil.
func (s *Session) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// consume drains the fragment stream into the handle and finalizes it.
func (s *Session) consume(ctx context.Context, handle *Handle, stream *generation.Stream, userText string) {
	for fragment := range stream.Fragments() {
		if !handle.append(fragment) {
			// Cancelled; keep draining so the producer can exit.
			continue
		}

		select {
		case handle.fragments <- fragment:
		case <-ctx.Done():
		}
	}

	s.finalize(handle, userText, stream.Err())
}

// finalize transitions the handle to its terminal state and persists
// the outcome. Cancelled generations persist nothing.
func (s *Session) finalize(handle *Handle, userText string, streamErr error) {
	handle.mu.Lock()
	cancelled := handle.state == StateCancelled
	if !cancelled {
		if streamErr != nil {
			handle.state = StateFailed
		} else {
			handle.state = StateCompleted
		}
	}
	text := handle.text.String()
	handle.mu.Unlock()

	switch {
	case cancelled:
		s.logger.Debug("generation cancelled, discarding partial text",
			zap.Int("partial_length", len(text)),
		)

	case streamErr != nil:
		s.fail(handle, streamErr)

	default:
		turn := chat.NewTurn(chat.RoleAssistant, text)
		turn.Sources = handle.sources
		s.persist(turn)

		if s.extractor != nil {
			s.extractor.Process(chat.Exchange{
				ID:            turn.ID,
				UserText:      userText,
				AssistantText: text,
			})
		}
	}

	close(handle.fragments)
	close(handle.done)
	handle.cancel()
}

// fail marks the handle failed and persists a short user-facing error
// turn. The raw cause is logged, not shown.
func (s *Session) fail(handle *Handle, cause error) {
	handle.mu.Lock()
	handle.state = StateFailed
	handle.mu.Unlock()

	s.logger.Warn("generation failed",
		zap.Error(cause),
	)

	turn := chat.NewTurn(chat.RoleAssistant, fmt.Sprintf(
		"Sorry, I wasn't able to finish that reply (%s). Please try again.",
		utils.Truncate(utils.FirstLine(cause.Error()), 80),
	))
	turn.Error = true
	s.persist(turn)
}

func (s *Session) persist(turn chat.Turn) {
	ctx := context.Background()

	if err := s.conversations.Append(ctx, turn); err != nil {
		s.logger.Warn("failed to persist assistant turn",
			zap.String("turn_id", turn.ID),
			zap.Error(err),
		)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTurnPersisted(ctx, eventstream.NewTurnPersisted(turn)); err != nil {
			s.logger.Warn("failed to publish turn event",
				zap.String("turn_id", turn.ID),
				zap.Error(err),
			)
		}
	}
}
