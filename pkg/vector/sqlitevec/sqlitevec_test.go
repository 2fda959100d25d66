package sqlitevec_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/vector"
	"github.com/perpetual-s/gemi/pkg/vector/sqlitevec"
)

func TestSqlitevec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sqlitevec Suite")
}

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("returns an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("returns an error when dimensions are not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("creates a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("implements vector.Driver", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("Add and Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("does nothing when given empty docs", func() {
			Expect(driver.Add(context.Background(), nil)).To(Succeed())
		})

		It("returns the nearest document first", func() {
			docs := []vector.Document{
				{ID: "doc-1", Embedding: []float32{1, 0, 0, 0}},
				{ID: "doc-2", Embedding: []float32{0, 1, 0, 0}},
				{ID: "doc-3", Embedding: []float32{0.9, 0.1, 0, 0}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())

			results, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("doc-1"))
			Expect(results[1].ID).To(Equal("doc-3"))
			Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
		})

		It("replaces the embedding when a document is re-added", func() {
			Expect(driver.Add(context.Background(), []vector.Document{
				{ID: "doc-1", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
			Expect(driver.Add(context.Background(), []vector.Document{
				{ID: "doc-1", Embedding: []float32{0, 0, 0, 1}},
			})).To(Succeed())

			results, err := driver.Query(context.Background(), []float32{0, 0, 0, 1}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("doc-1"))
		})
	})

	Describe("Delete", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Add(context.Background(), []vector.Document{
				{ID: "doc-1", Embedding: []float32{1, 0, 0, 0}},
				{ID: "doc-2", Embedding: []float32{0, 1, 0, 0}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("removes documents by id", func() {
			Expect(driver.Delete(context.Background(), []string{"doc-1"})).To(Succeed())

			results, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			for _, result := range results {
				Expect(result.ID).NotTo(Equal("doc-1"))
			}
		})

		It("is a no-op for unknown ids", func() {
			Expect(driver.Delete(context.Background(), []string{"missing"})).To(Succeed())
		})
	})
})
