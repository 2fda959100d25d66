// Package orchestrator assembles the bounded, provenance-tagged prompt
// that grounds each assistant reply. Four independent context sources
// (recent conversation, semantic journal search, long-term memory, and
// special-intent analysis) are gathered concurrently, joined in a fixed
// order, and trimmed to the generation backend's prompt budget.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/conversation"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	"github.com/perpetual-s/gemi/pkg/retrieval"
)

// segmentSeparator joins contributing context segments. Segments are
// never merged; a segment that cannot fit is dropped whole.
const segmentSeparator = "\n\n---\n\n"

const closingInstruction = "Use the context above to respond personally and warmly. " +
	"Draw on the user's own words where it helps, and never invent details the context does not support."

// Retriever is the slice of semantic search the builder needs.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Match, error)
}

// Config bounds the builder's context gathering.
type Config struct {
	// HistoryTurns is the number of recent conversation turns included.
	HistoryTurns int

	// JournalTopK is the number of journal passages requested.
	JournalTopK int

	// MemoryLimit is the number of memory records requested.
	MemoryLimit int

	// PromptBudget is the maximum assembled prompt length in runes.
	PromptBudget int
}

// DefaultConfig returns the builder bounds used when none are configured.
func DefaultConfig() Config {
	return Config{
		HistoryTurns: 10,
		JournalTopK:  3,
		MemoryLimit:  5,
		PromptBudget: 8000,
	}
}

// Builder assembles prompt bundles. All collaborators are injected;
// each gathering step degrades to an empty segment on failure.
type Builder struct {
	conversations conversation.Driver
	retriever     Retriever
	memories      memorystore.Driver
	intents       []Intent
	config        Config
	logger        *zap.Logger
}

// NewBuilder creates a Builder. retriever may be nil when no journal
// index is configured; intents may be empty.
func NewBuilder(
	conversations conversation.Driver,
	retriever Retriever,
	memories memorystore.Driver,
	intents []Intent,
	config Config,
	logger *zap.Logger,
) *Builder {
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = DefaultConfig().HistoryTurns
	}
	if config.JournalTopK <= 0 {
		config.JournalTopK = DefaultConfig().JournalTopK
	}
	if config.MemoryLimit <= 0 {
		config.MemoryLimit = DefaultConfig().MemoryLimit
	}
	if config.PromptBudget <= 0 {
		config.PromptBudget = DefaultConfig().PromptBudget
	}

	return &Builder{
		conversations: conversations,
		retriever:     retriever,
		memories:      memories,
		intents:       intents,
		config:        config,
		logger:        logger,
	}
}

// segment is one gathered context block plus its provenance tag.
type segment struct {
	source chat.ContextSourceRef
	text   string
}

// Build assembles a prompt bundle for one user message. The four
// gathering steps run concurrently; a failing step contributes nothing.
// Build fails only on empty user text.
func (b *Builder) Build(ctx context.Context, userText string) (chat.PromptBundle, error) {
	if strings.TrimSpace(userText) == "" {
		return chat.PromptBundle{}, fmt.Errorf("user text cannot be empty")
	}

	var (
		wg       sync.WaitGroup
		segments [4]*segment
	)

	gather := func(idx int, step func(context.Context) *segment) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			segments[idx] = step(ctx)
		}()
	}

	gather(0, func(ctx context.Context) *segment { return b.conversationSegment(ctx) })
	gather(1, func(ctx context.Context) *segment { return b.journalSegment(ctx, userText) })
	gather(2, func(ctx context.Context) *segment { return b.memorySegment(ctx, userText) })
	gather(3, func(ctx context.Context) *segment { return b.intentSegment(ctx, userText) })

	wg.Wait()

	return b.assemble(segments[:], userText), nil
}

func (b *Builder) conversationSegment(ctx context.Context) *segment {
	turns, err := b.conversations.RecentTurns(ctx, b.config.HistoryTurns)
	if err != nil {
		b.logger.Warn("conversation history unavailable, omitting segment",
			zap.Error(err),
		)
		return nil
	}
	if len(turns) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	included := 0
	for _, turn := range turns {
		// Error-flagged turns hold apology text for the UI; they are
		// not replayed to the model.
		if turn.Error {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Text)
		included++
	}
	if included == 0 {
		return nil
	}

	return &segment{
		source: chat.ContextSourceRef{
			Kind:    chat.SourceConversation,
			Title:   "Recent conversation",
			Preview: fmt.Sprintf("%d recent turns", included),
		},
		text: strings.TrimRight(sb.String(), "\n"),
	}
}

func (b *Builder) journalSegment(ctx context.Context, userText string) *segment {
	if b.retriever == nil {
		return nil
	}

	matches, err := b.retriever.Search(ctx, userText, b.config.JournalTopK)
	if err != nil {
		b.logger.Warn("journal retrieval failed, omitting segment",
			zap.Error(err),
		)
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Relevant journal entries:\n")
	for _, match := range matches {
		title := match.Entry.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&sb, "Entry: %s (%s)\n%s\n",
			title,
			match.Entry.CreatedAt.Format("2006-01-02"),
			match.Entry.Content,
		)
	}

	return &segment{
		source: chat.ContextSourceRef{
			Kind:    chat.SourceJournal,
			Title:   "Journal entries",
			Preview: fmt.Sprintf("%d relevant entries found", len(matches)),
		},
		text: strings.TrimRight(sb.String(), "\n"),
	}
}

func (b *Builder) memorySegment(ctx context.Context, userText string) *segment {
	records, err := b.memories.Search(ctx, userText, b.config.MemoryLimit)
	if err != nil {
		b.logger.Warn("memory search failed, omitting segment",
			zap.Error(err),
		)
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Things to remember about the user:\n")
	for _, record := range records {
		fmt.Fprintf(&sb, "- %s (importance: %.1f)\n", record.Content, record.Importance)
	}

	return &segment{
		source: chat.ContextSourceRef{
			Kind:    chat.SourceMemory,
			Title:   "Long-term memory",
			Preview: fmt.Sprintf("%d memories relevant", len(records)),
		},
		text: strings.TrimRight(sb.String(), "\n"),
	}
}

func (b *Builder) intentSegment(ctx context.Context, userText string) *segment {
	intent, ok := Detect(b.intents, userText)
	if !ok {
		return nil
	}

	paragraph, err := intent.Handle(ctx, userText)
	if err != nil {
		b.logger.Warn("intent handler failed, omitting segment",
			zap.String("intent", intent.Name),
			zap.Error(err),
		)
		return nil
	}
	if paragraph == "" {
		return nil
	}

	return &segment{
		source: chat.ContextSourceRef{
			Kind:    chat.SourceAnalysis,
			Title:   intent.Title,
			Preview: intent.Preview,
		},
		text: paragraph,
	}
}

// assemble joins contributing segments in fixed order, then the closing
// instruction and the literal user message. Segments that would push
// the prompt past the budget are dropped whole; the user message is
// always included.
func (b *Builder) assemble(segments []*segment, userText string) chat.PromptBundle {
	tail := closingInstruction + "\n\nUser message: " + userText

	var (
		parts   []string
		sources []chat.ContextSourceRef
		length  = len([]rune(tail))
	)

	for _, seg := range segments {
		if seg == nil {
			continue
		}

		cost := len([]rune(seg.text)) + len([]rune(segmentSeparator))
		if length+cost > b.config.PromptBudget {
			b.logger.Debug("dropping context segment over prompt budget",
				zap.String("kind", string(seg.source.Kind)),
				zap.Int("segment_length", cost),
			)
			continue
		}

		parts = append(parts, seg.text)
		sources = append(sources, seg.source)
		length += cost
	}

	parts = append(parts, tail)

	return chat.PromptBundle{
		Prompt:  strings.Join(parts, segmentSeparator),
		Sources: sources,
	}
}
