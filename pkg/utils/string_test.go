package utils

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUtils(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Utils Suite")
}

var _ = Describe("Truncate", func() {
	It("returns short strings unchanged", func() {
		Expect(Truncate("hello", 10)).To(Equal("hello"))
	})

	It("cuts long strings and appends an ellipsis", func() {
		Expect(Truncate("hello world", 5)).To(Equal("hello..."))
	})

	It("returns exact-length strings unchanged", func() {
		Expect(Truncate("hello", 5)).To(Equal("hello"))
	})

	It("never splits a multibyte rune at the boundary", func() {
		Expect(Truncate("café au lait", 4)).To(Equal("café..."))
		Expect(Truncate("日記を書いた", 3)).To(Equal("日記を..."))
	})
})

var _ = Describe("FirstLine", func() {
	It("returns the first non-empty line", func() {
		Expect(FirstLine("\n\n  first\nsecond")).To(Equal("first"))
	})

	It("returns empty for whitespace-only input", func() {
		Expect(FirstLine("  \n\t\n")).To(Equal(""))
	})
})
