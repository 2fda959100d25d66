package extraction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/extraction"
	"github.com/perpetual-s/gemi/pkg/generation"
	"github.com/perpetual-s/gemi/pkg/logger"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	"github.com/perpetual-s/gemi/pkg/memorystore/inmemory"
)

func TestExtraction(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extraction Suite")
}

// stubGenerator returns a canned single-shot completion.
type stubGenerator struct {
	output string
	err    error
	calls  int
}

func (g *stubGenerator) StreamChat(ctx context.Context, _ []generation.Message) (*generation.Stream, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGenerator) ChatOnce(ctx context.Context, _ []generation.Message) (string, error) {
	g.calls++
	return g.output, g.err
}

func (g *stubGenerator) Ping(ctx context.Context) error { return nil }

func (g *stubGenerator) Close() error { return nil }

var _ = Describe("Pipeline", func() {
	var (
		generator *stubGenerator
		memories  *inmemory.Driver
		pipeline  *extraction.Pipeline
	)

	BeforeEach(func() {
		generator = &stubGenerator{}
		memories = inmemory.NewDriver()

		var err error
		pipeline, err = extraction.NewPipeline(&extraction.Config{
			Generator: generator,
			Memories:  memories,
			Logger:    logger.NewLogger(false),
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pipeline.Close)
	})

	process := func(exchange chat.Exchange) {
		Eventually(pipeline.Process(exchange), 5*time.Second).Should(BeClosed())
	}

	Context("with a significant exchange", func() {
		BeforeEach(func() {
			generator.output = "- Got a promotion\n"
		})

		It("inserts a memory with default importance and tags", func() {
			process(chat.Exchange{
				ID:            "ex-1",
				UserText:      "I got a promotion today!",
				AssistantText: "Congratulations!",
			})

			all, err := memories.All(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].Content).To(Equal("Got a promotion"))
			Expect(all[0].Importance).To(Equal(memorystore.DefaultImportance))
			Expect(all[0].Tags).To(ConsistOf("conversation", "fact"))
			Expect(all[0].Source).To(Equal("ex-1"))
		})

		It("never removes memories when the same exchange is processed twice", func() {
			exchange := chat.Exchange{ID: "ex-1", UserText: "I got a promotion today!"}
			process(exchange)
			process(exchange)

			Expect(memories.Count()).To(Equal(1))
		})
	})

	Context("with multiple fact lines and noise", func() {
		BeforeEach(func() {
			generator.output = "Here are the facts:\n- Started climbing\n\n- Sister visits in June\nnot a fact line\n-   \n"
		})

		It("keeps only non-empty dash-prefixed lines", func() {
			process(chat.Exchange{ID: "ex-2"})

			all, err := memories.All(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			contents := []string{all[0].Content, all[1].Content}
			Expect(contents).To(ConsistOf("Started climbing", "Sister visits in June"))
		})
	})

	Context("when the completion fails", func() {
		BeforeEach(func() {
			generator.err = errors.New("model unavailable")
		})

		It("stops silently without inserting anything", func() {
			process(chat.Exchange{ID: "ex-3", UserText: "hello"})
			Expect(memories.Count()).To(Equal(0))
		})
	})

	Context("when the model finds nothing significant", func() {
		BeforeEach(func() {
			generator.output = "   \n"
		})

		It("inserts nothing", func() {
			process(chat.Exchange{ID: "ex-4", UserText: "nice weather"})
			Expect(memories.Count()).To(Equal(0))
		})
	})
})

var _ = Describe("ParseFacts", func() {
	It("trims the marker and surrounding whitespace", func() {
		Expect(extraction.ParseFacts("-  spaced out fact  ")).To(Equal([]string{"spaced out fact"}))
	})

	It("returns nothing for prose without markers", func() {
		Expect(extraction.ParseFacts("No significant facts were found.")).To(BeEmpty())
	})
})
