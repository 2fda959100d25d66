package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/conversation/inmemory"
	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/logger"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	memoryinmem "github.com/perpetual-s/gemi/pkg/memorystore/inmemory"
	"github.com/perpetual-s/gemi/pkg/orchestrator"
	"github.com/perpetual-s/gemi/pkg/retrieval"
)

func TestOrchestrator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Orchestrator Suite")
}

type stubRetriever struct {
	matches []retrieval.Match
	err     error
}

func (s *stubRetriever) Search(ctx context.Context, query string, topK int) ([]retrieval.Match, error) {
	return s.matches, s.err
}

// failingConversations fails every read.
type failingConversations struct{}

func (failingConversations) Append(ctx context.Context, turn chat.Turn) error { return nil }

func (failingConversations) RecentTurns(ctx context.Context, limit int) ([]chat.Turn, error) {
	return nil, errors.New("log unavailable")
}

func (failingConversations) List(ctx context.Context) ([]chat.Turn, error) {
	return nil, errors.New("log unavailable")
}

func (failingConversations) Close() error { return nil }

type stubJournal struct {
	entries []journal.Entry
	err     error
}

func (s *stubJournal) Insert(ctx context.Context, entry journal.Entry) error { return nil }

func (s *stubJournal) Get(ctx context.Context, id string) (journal.Entry, error) {
	return journal.Entry{}, journal.ErrNotFound{ID: id}
}

func (s *stubJournal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	return s.entries, s.err
}

func (s *stubJournal) Close() error { return nil }

func sourceKinds(bundle chat.PromptBundle) []chat.SourceKind {
	kinds := make([]chat.SourceKind, 0, len(bundle.Sources))
	for _, source := range bundle.Sources {
		kinds = append(kinds, source.Kind)
	}
	return kinds
}

var _ = Describe("Builder", func() {
	var (
		conversations *inmemory.Driver
		memories      *memoryinmem.Driver
		retriever     *stubRetriever
		journalStub   *stubJournal
		intents       []orchestrator.Intent
		config        orchestrator.Config
	)

	BeforeEach(func() {
		conversations = inmemory.NewDriver()
		memories = memoryinmem.NewDriver()
		retriever = &stubRetriever{}
		journalStub = &stubJournal{}
		intents = orchestrator.DefaultIntents(journalStub, conversations)
		config = orchestrator.DefaultConfig()
	})

	build := func(userText string) chat.PromptBundle {
		builder := orchestrator.NewBuilder(conversations, retriever, memories, intents, config, logger.NewLogger(false))
		bundle, err := builder.Build(context.Background(), userText)
		Expect(err).NotTo(HaveOccurred())
		return bundle
	}

	It("rejects empty user text", func() {
		builder := orchestrator.NewBuilder(conversations, retriever, memories, intents, config, logger.NewLogger(false))
		_, err := builder.Build(context.Background(), "   ")
		Expect(err).To(HaveOccurred())
	})

	Context("with all sources empty", func() {
		It("returns just the instruction and the literal user message, with no sources", func() {
			bundle := build("hello there")
			Expect(bundle.Sources).To(BeEmpty())
			Expect(bundle.Prompt).To(ContainSubstring("User message: hello there"))
		})
	})

	Context("with every external source failing", func() {
		It("still returns a valid bundle containing the user message", func() {
			retriever.err = errors.New("retriever timeout")
			journalStub.err = errors.New("journal unavailable")
			builder := orchestrator.NewBuilder(failingConversations{}, retriever, memories, intents, config, logger.NewLogger(false))

			bundle, err := builder.Build(context.Background(), "how have I been feeling?")
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Prompt).To(ContainSubstring("User message: how have I been feeling?"))
			Expect(bundle.Sources).To(BeEmpty())
		})
	})

	Context("with prior conversation turns", func() {
		BeforeEach(func() {
			Expect(conversations.Append(context.Background(), chat.NewTurn(chat.RoleUser, "I started climbing"))).To(Succeed())
			Expect(conversations.Append(context.Background(), chat.NewTurn(chat.RoleAssistant, "That sounds exciting!"))).To(Succeed())
		})

		It("contributes a conversation segment with role-prefixed lines", func() {
			bundle := build("tell me more")
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{chat.SourceConversation}))
			Expect(bundle.Prompt).To(ContainSubstring("user: I started climbing"))
			Expect(bundle.Prompt).To(ContainSubstring("assistant: That sounds exciting!"))
		})

		It("skips error-flagged turns when gathering history", func() {
			apology := chat.NewTurn(chat.RoleAssistant, "Sorry, I wasn't able to finish that reply.")
			apology.Error = true
			Expect(conversations.Append(context.Background(), apology)).To(Succeed())

			bundle := build("tell me more")
			Expect(bundle.Prompt).NotTo(ContainSubstring("wasn't able to finish"))
			Expect(bundle.Prompt).To(ContainSubstring("user: I started climbing"))
		})
	})

	Context("with journal matches", func() {
		BeforeEach(func() {
			entry := journal.NewEntry("Climbing gym", "First time on the wall today.", "energized")
			retriever.matches = []retrieval.Match{{Entry: entry, Score: 0.9}}
		})

		It("contributes a journal segment with an entry-count preview", func() {
			bundle := build("what did I write about climbing?")
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{chat.SourceJournal}))
			Expect(bundle.Sources[0].Preview).To(Equal("1 relevant entries found"))
			Expect(bundle.Prompt).To(ContainSubstring("Entry: Climbing gym"))
		})

		It("omits the journal segment when the retriever fails", func() {
			retriever.err = errors.New("retriever timeout")
			bundle := build("what did I write about climbing?")
			Expect(sourceKinds(bundle)).NotTo(ContainElement(chat.SourceJournal))
			Expect(bundle.Prompt).To(ContainSubstring("User message:"))
		})
	})

	Context("with stored memories", func() {
		BeforeEach(func() {
			candidate := memorystore.NewCandidate("User recently got a promotion at work", "conversation")
			_, inserted, err := memories.Insert(context.Background(), candidate)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())
		})

		It("contributes a memory segment with importance annotations", func() {
			bundle := build("promotion")
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{chat.SourceMemory}))
			Expect(bundle.Sources[0].Preview).To(Equal("1 memories relevant"))
			Expect(bundle.Prompt).To(ContainSubstring("(importance: 0.7)"))
		})

		It("recalls memories for conversational phrasing", func() {
			bundle := build("what did I say about my promotion?")
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{chat.SourceMemory}))
			Expect(bundle.Prompt).To(ContainSubstring("got a promotion at work"))
		})
	})

	Context("special intents", func() {
		It("fires the mood trend handler on a feeling question with no entries", func() {
			bundle := build("How have I been feeling?")
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{chat.SourceAnalysis}))
			Expect(bundle.Sources[0].Title).To(Equal("Mood trend"))
			Expect(bundle.Prompt).To(ContainSubstring("no mood has been recorded"))
		})

		It("summarizes recorded moods", func() {
			journalStub.entries = []journal.Entry{
				{Title: "a", Mood: "calm", CreatedAt: time.Now()},
				{Title: "b", Mood: "anxious", CreatedAt: time.Now()},
				{Title: "c", Mood: "calm", CreatedAt: time.Now()},
			}
			bundle := build("what's my mood been like?")
			Expect(bundle.Prompt).To(ContainSubstring("calm (2)"))
			Expect(bundle.Prompt).To(ContainSubstring("anxious (1)"))
		})

		It("fires the weekly recap handler", func() {
			journalStub.entries = []journal.Entry{
				{Title: "Ridge hike", CreatedAt: time.Now().AddDate(0, 0, -1)},
				{Title: "Old entry", CreatedAt: time.Now().AddDate(0, 0, -30)},
			}
			bundle := build("give me a recap of my week")
			Expect(bundle.Sources[0].Title).To(Equal("Weekly recap"))
			Expect(bundle.Prompt).To(ContainSubstring("Ridge hike"))
			Expect(bundle.Prompt).NotTo(ContainSubstring("Old entry"))
		})

		It("resolves overlapping triggers by table order", func() {
			// "feeling" (mood trend) and "this week" (weekly recap)
			// both match; the mood trend sits earlier in the table.
			bundle := build("How have I been feeling this week?")
			Expect(bundle.Sources[0].Title).To(Equal("Mood trend"))
		})

		It("fires at most one intent per request", func() {
			bundle := build("recap what we talked about last time this week")
			analysisCount := 0
			for _, source := range bundle.Sources {
				if source.Kind == chat.SourceAnalysis {
					analysisCount++
				}
			}
			Expect(analysisCount).To(Equal(1))
		})
	})

	Context("prompt budget", func() {
		BeforeEach(func() {
			entry := journal.NewEntry("Long entry", strings.Repeat("wordy journal text ", 50), "")
			retriever.matches = []retrieval.Match{{Entry: entry, Score: 0.9}}
			Expect(conversations.Append(context.Background(), chat.NewTurn(chat.RoleUser, "short turn"))).To(Succeed())
		})

		It("never exceeds the budget and drops whole segments only", func() {
			config.PromptBudget = 300
			bundle := build("what have I written lately?")

			Expect(len([]rune(bundle.Prompt))).To(BeNumerically("<=", config.PromptBudget))
			// The long journal segment cannot fit; the short conversation
			// segment can, and survives intact.
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{chat.SourceConversation}))
			Expect(bundle.Prompt).To(ContainSubstring("user: short turn"))
			Expect(bundle.Prompt).NotTo(ContainSubstring("wordy journal text"))
		})

		It("keeps every contributing segment when the budget is generous", func() {
			bundle := build("what have I written lately?")
			Expect(sourceKinds(bundle)).To(Equal([]chat.SourceKind{
				chat.SourceConversation,
				chat.SourceJournal,
			}))
		})
	})
})
