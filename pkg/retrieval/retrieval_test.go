package retrieval_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/logger"
	"github.com/perpetual-s/gemi/pkg/retrieval"
	"github.com/perpetual-s/gemi/pkg/vector"
)

func TestRetrieval(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Retrieval Suite")
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) Close() error { return nil }

type stubVectors struct {
	results []vector.QueryResult
	err     error
	added   []vector.Document
	deleted []string
}

func (s *stubVectors) Add(ctx context.Context, docs []vector.Document) error {
	s.added = append(s.added, docs...)
	return nil
}

func (s *stubVectors) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	return s.results, s.err
}

func (s *stubVectors) Delete(ctx context.Context, ids []string) error {
	s.deleted = append(s.deleted, ids...)
	return nil
}

func (s *stubVectors) Close() error { return nil }

type stubJournal struct {
	entries map[string]journal.Entry
}

func (s *stubJournal) Insert(ctx context.Context, entry journal.Entry) error {
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubJournal) Get(ctx context.Context, id string) (journal.Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return journal.Entry{}, journal.ErrNotFound{ID: id}
	}
	return entry, nil
}

func (s *stubJournal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	return nil, nil
}

func (s *stubJournal) Close() error { return nil }

var _ = Describe("Retriever", func() {
	var (
		embedder *stubEmbedder
		vectors  *stubVectors
		store    *stubJournal
		ret      *retrieval.Retriever
	)

	BeforeEach(func() {
		embedder = &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}}
		vectors = &stubVectors{}
		store = &stubJournal{entries: map[string]journal.Entry{}}
		ret = retrieval.NewRetriever(embedder, vectors, store, logger.NewLogger(false))
	})

	Context("when the vector store returns hits", func() {
		BeforeEach(func() {
			hiking := journal.NewEntry("Hiking trip", "Climbed the ridge at dawn.", "energized")
			rainy := journal.NewEntry("Rainy day", "Stayed in and read.", "calm")
			store.entries[hiking.ID] = hiking
			store.entries[rainy.ID] = rainy
			vectors.results = []vector.QueryResult{
				{Document: vector.Document{ID: hiking.ID}, Score: 0.92},
				{Document: vector.Document{ID: rainy.ID}, Score: 0.41},
			}
		})

		It("returns entries best match first", func() {
			matches, err := ret.Search(context.Background(), "mountains", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Entry.Title).To(Equal("Hiking trip"))
			Expect(matches[0].Score).To(BeNumerically(">", matches[1].Score))
		})

		It("skips hits whose entry was deleted", func() {
			vectors.results = append(vectors.results, vector.QueryResult{
				Document: vector.Document{ID: "gone"},
				Score:    0.3,
			})

			matches, err := ret.Search(context.Background(), "mountains", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
		})
	})

	Context("when embedding fails", func() {
		BeforeEach(func() {
			embedder.err = vector.ErrEmbedding
		})

		It("returns the error", func() {
			_, err := ret.Search(context.Background(), "mountains", 5)
			Expect(err).To(MatchError(vector.ErrEmbedding))
		})
	})
})

var _ = Describe("Indexer", func() {
	var (
		embedder *stubEmbedder
		vectors  *stubVectors
		indexer  *retrieval.Indexer
	)

	BeforeEach(func() {
		embedder = &stubEmbedder{vec: []float32{0.5, 0.5}}
		vectors = &stubVectors{}
		indexer = retrieval.NewIndexer(embedder, vectors, logger.NewLogger(false))
	})

	It("stores the entry embedding under the entry id", func() {
		entry := journal.NewEntry("First snow", "Woke up to a white garden.", "")
		Expect(indexer.IndexEntry(context.Background(), entry)).To(Succeed())
		Expect(vectors.added).To(HaveLen(1))
		Expect(vectors.added[0].ID).To(Equal(entry.ID))
		Expect(vectors.added[0].Embedding).To(Equal([]float32{0.5, 0.5}))
	})

	It("removes embeddings by id", func() {
		Expect(indexer.RemoveEntry(context.Background(), "abc")).To(Succeed())
		Expect(vectors.deleted).To(Equal([]string{"abc"}))
	})
})
