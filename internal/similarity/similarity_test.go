package similarity_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/similarity"
)

var _ = Describe("Cosine", func() {
	It("returns 1 for identical vectors", func() {
		v := []float64{0.5, 0.5, 0.7}
		Expect(float64(similarity.Cosine(v, v))).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("returns -1 for opposite vectors", func() {
		a := []float64{1, 2, 3}
		b := []float64{-1, -2, -3}
		Expect(float64(similarity.Cosine(a, b))).To(BeNumerically("~", -1.0, 1e-9))
	})

	It("returns 0 for orthogonal vectors", func() {
		a := []float64{1, 0}
		b := []float64{0, 1}
		Expect(float64(similarity.Cosine(a, b))).To(BeZero())
	})

	It("is symmetric", func() {
		a := []float64{0.1, 0.9, 0.3, 0.2}
		b := []float64{0.4, 0.2, 0.8, 0.1}
		Expect(similarity.Cosine(a, b)).To(Equal(similarity.Cosine(b, a)))
	})

	It("guards zero vectors instead of producing NaN", func() {
		a := []float64{0, 0, 0}
		b := []float64{1, 2, 3}
		Expect(float64(similarity.Cosine(a, b))).To(BeZero())
		Expect(float64(similarity.Cosine(a, a))).To(BeZero())
	})

	It("returns 0 for empty input", func() {
		Expect(float64(similarity.Cosine(nil, nil))).To(BeZero())
	})

	It("zero-pads vectors of unequal length", func() {
		a := []float64{1, 1}
		b := []float64{1, 1, 0}
		Expect(float64(similarity.Cosine(a, b))).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("stays within [-1, 1]", func() {
		a := []float64{3.2, -1.5, 0.7, 2.2}
		b := []float64{-0.3, 4.1, 1.9, -2.8}
		got := float64(similarity.Cosine(a, b))
		Expect(got).To(BeNumerically(">=", -1.0))
		Expect(got).To(BeNumerically("<=", 1.0))
	})
})

var _ = Describe("Keyword", func() {
	It("returns 1 for identical text", func() {
		text := "database connection pool exhausted under load"
		Expect(float64(similarity.Keyword(text, text))).To(Equal(1.0))
	})

	It("returns 0 for disjoint vocabulary", func() {
		Expect(float64(similarity.Keyword("database timeout error", "frontend render glitch"))).To(BeZero())
	})

	It("is symmetric", func() {
		a := "login crashes with stack trace"
		b := "stack trace when login crashes on startup"
		Expect(similarity.Keyword(a, b)).To(Equal(similarity.Keyword(b, a)))
	})

	It("is case-insensitive and ignores punctuation", func() {
		Expect(float64(similarity.Keyword("OAuth, Redirect! URI", "oauth redirect uri"))).To(Equal(1.0))
	})

	It("drops words of length two or less", func() {
		// "is", "a", "to" contribute nothing on either side.
		Expect(float64(similarity.Keyword("it is a bug", "bug to it"))).To(Equal(1.0))
	})

	It("returns 0 when both texts are empty after filtering", func() {
		Expect(float64(similarity.Keyword("a to of", "is it"))).To(BeZero())
	})

	It("stays within [0, 1]", func() {
		got := float64(similarity.Keyword("webhook delivery retries failing", "webhook retries"))
		Expect(got).To(BeNumerically(">", 0))
		Expect(got).To(BeNumerically("<", 1))
	})

	It("converts to the percentage scale explicitly", func() {
		j := similarity.Keyword("payment declined error", "payment declined error")
		Expect(float64(j.Percent())).To(Equal(100.0))
	})
})
