package sqlite

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/memorystore"
)

func TestSQLiteMemorystore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Memorystore Suite")
}

var _ = Describe("SQLite Driver", func() {
	var (
		driver *Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		driver, err = NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("Insert", func() {
		It("stores a candidate with its importance and tags", func() {
			record, inserted, err := driver.Insert(ctx, memorystore.NewCandidate("Got a promotion", "ex-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())
			Expect(record.ID).NotTo(BeEmpty())
			Expect(record.Importance).To(Equal(0.7))
			Expect(record.Tags).To(ConsistOf("conversation", "fact"))
		})

		It("drops candidates whose normalized content already exists", func() {
			first, inserted, err := driver.Insert(ctx, memorystore.NewCandidate("Got a promotion.", "ex-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())

			second, inserted, err := driver.Insert(ctx, memorystore.NewCandidate("got a  promotion", "ex-2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))

			all, err := driver.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("rejects empty content", func() {
			_, _, err := driver.Insert(ctx, memorystore.NewCandidate("  ", "ex-1"))
			Expect(err).To(MatchError(memorystore.ErrEmptyContent))
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			for _, content := range []string{
				"Loves hiking in the mountains",
				"Started a new job at a bakery",
				"Hiking trip planned for October",
			} {
				_, _, err := driver.Insert(ctx, memorystore.NewCandidate(content, "ex"))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("matches on keywords case-insensitively", func() {
			records, err := driver.Search(ctx, "HIKING", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})

		It("matches when any keyword hits", func() {
			records, err := driver.Search(ctx, "bakery hiking", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
		})

		It("matches full-sentence queries", func() {
			_, _, err := driver.Insert(ctx, memorystore.NewCandidate("Got a promotion", "ex"))
			Expect(err).NotTo(HaveOccurred())

			for _, query := range []string{
				"what did I say about my promotion?",
				"tell me about the promotion",
				"promotion?",
			} {
				records, err := driver.Search(ctx, query, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1), query)
				Expect(records[0].Content).To(Equal("Got a promotion"))
			}
		})

		It("returns nothing when the query is all stopwords", func() {
			records, err := driver.Search(ctx, "what about it?", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("returns nothing for an empty query", func() {
			records, err := driver.Search(ctx, "   ", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("respects the limit", func() {
			records, err := driver.Search(ctx, "hiking", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("orders pinned records first", func() {
			records, err := driver.Search(ctx, "hiking", 10)
			Expect(err).NotTo(HaveOccurred())

			last := records[len(records)-1]
			Expect(driver.Pin(ctx, last.ID, true)).To(Succeed())

			records, err = driver.Search(ctx, "hiking", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].ID).To(Equal(last.ID))
		})
	})

	Describe("Pin and Delete", func() {
		It("errors on unknown ids", func() {
			Expect(driver.Pin(ctx, "missing", true)).To(MatchError(memorystore.ErrNotFound{ID: "missing"}))
			Expect(driver.Delete(ctx, "missing")).To(MatchError(memorystore.ErrNotFound{ID: "missing"}))
		})

		It("deletes a record", func() {
			record, _, err := driver.Insert(ctx, memorystore.NewCandidate("transient", "ex"))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Delete(ctx, record.ID)).To(Succeed())

			all, err := driver.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})
	})
})
