package classify_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/classify"
	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/embedding"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/similarity"
)

// stubProvider returns canned vectors per text, or a configured error.
type stubProvider struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if vec, ok := p.vectors[text]; ok {
		return vec, nil
	}
	return []float64{0, 0, 1}, nil
}

func (p *stubProvider) Model() string   { return "test-model" }
func (p *stubProvider) Dimensions() int { return 3 }

func newService(provider *stubProvider) *embedding.Service {
	cache := embedding.NewCache(nil, nil, "test-model", 3, nil)
	return embedding.NewService(cache, provider, nil)
}

var _ = Describe("Classifier", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	signal := domain.Signal{
		ID:     1,
		Source: domain.SourceDiscord,
		Title:  "Webhook delivery fails",
		Body:   "webhook delivery retries keep failing with timeout errors",
	}

	Describe("keyword mode", func() {
		It("ranks candidates by overlap and filters below threshold", func() {
			classifier := classify.New(nil, nil)
			candidates := []classify.Candidate{
				{ID: 10, Text: "completely unrelated frontend styling"},
				{ID: 20, Text: "webhook delivery retries failing with timeout errors constantly"},
				{ID: 30, Text: "webhook timeout"},
			}

			matches, fellBack, err := classifier.Classify(ctx, signal, candidates, classify.Options{
				MinPercent: 20,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fellBack).To(BeFalse())

			Expect(matches).NotTo(BeEmpty())
			Expect(matches[0].CandidateID).To(Equal(int64(20)))
			Expect(matches[0].Mode).To(Equal(classify.ModeKeyword))
			Expect(matches[0].MatchedTerms).To(ContainElement("webhook"))
			for _, m := range matches {
				Expect(m.CandidateID).NotTo(Equal(int64(10)))
				Expect(m.Score).To(BeNumerically(">=", 20))
			}
		})

		It("breaks ties by candidate insertion order", func() {
			classifier := classify.New(nil, nil)
			candidates := []classify.Candidate{
				{ID: 1, Text: "webhook delivery"},
				{ID: 2, Text: "webhook delivery"},
			}

			matches, _, err := classifier.Classify(ctx, signal, candidates, classify.Options{MinPercent: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].CandidateID).To(Equal(int64(1)))
			Expect(matches[1].CandidateID).To(Equal(int64(2)))
		})

		It("truncates to top-K", func() {
			classifier := classify.New(nil, nil)
			var candidates []classify.Candidate
			for i := int64(1); i <= 10; i++ {
				candidates = append(candidates, classify.Candidate{ID: i, Text: "webhook delivery timeout errors"})
			}

			matches, _, err := classifier.Classify(ctx, signal, candidates, classify.Options{MinPercent: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(classify.DefaultTopK))
		})

		It("rejects signals with empty text", func() {
			classifier := classify.New(nil, nil)
			_, _, err := classifier.Classify(ctx, domain.Signal{ID: 2}, nil, classify.Options{})
			Expect(faults.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("semantic mode", func() {
		It("scores by cosine similarity against candidate vectors", func() {
			provider := &stubProvider{vectors: map[string][]float64{
				signal.Text(): {1, 0, 0},
			}}
			classifier := classify.New(newService(provider), nil)

			candidates := []classify.Candidate{
				{ID: 10, Text: "a", Vector: []float64{1, 0, 0}},  // identical direction
				{ID: 20, Text: "b", Vector: []float64{0, 1, 0}},  // orthogonal
				{ID: 30, Text: "c", Vector: []float64{0.9, 0.1, 0}},
			}

			matches, fellBack, err := classifier.Classify(ctx, signal, candidates, classify.Options{
				UseSemantic: true,
				MinCosine:   similarity.DefaultCosineThreshold,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fellBack).To(BeFalse())

			Expect(matches).To(HaveLen(2))
			Expect(matches[0].CandidateID).To(Equal(int64(10)))
			Expect(matches[1].CandidateID).To(Equal(int64(30)))
			Expect(matches[0].Mode).To(Equal(classify.ModeSemantic))
		})

		It("ranks vectorless candidates by overlap ratio on the cosine scale", func() {
			provider := &stubProvider{vectors: map[string][]float64{
				signal.Text(): {1, 0, 0},
			}}
			classifier := classify.New(newService(provider), nil)

			candidates := []classify.Candidate{
				{ID: 20, Text: "webhook delivery retries failing with timeout errors constantly"}, // no vector
				{ID: 10, Text: "a", Vector: []float64{0.99, 0.1, 0}},
			}
			opts := classify.Options{UseSemantic: true, MinPercent: 20}

			matches, _, err := classifier.Classify(ctx, signal, candidates, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].CandidateID).To(Equal(int64(10)))
			Expect(matches[0].Mode).To(Equal(classify.ModeSemantic))
			Expect(matches[1].CandidateID).To(Equal(int64(20)))
			Expect(matches[1].Mode).To(Equal(classify.ModeKeyword))
			Expect(matches[1].Score).To(BeNumerically("<=", 1))

			opts.TopK = 1
			matches, _, err = classifier.Classify(ctx, signal, candidates, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].CandidateID).To(Equal(int64(10)))
		})

		It("degrades a single item to keyword matching when the provider errors", func() {
			provider := &stubProvider{err: &faults.QuotaError{Op: "embed", Err: errors.New("429")}}
			classifier := classify.New(newService(provider), nil)

			candidates := []classify.Candidate{
				{ID: 20, Text: "webhook delivery retries failing with timeout errors constantly"},
			}

			matches, fellBack, err := classifier.Classify(ctx, signal, candidates, classify.Options{
				UseSemantic: true,
				MinPercent:  20,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fellBack).To(BeTrue())
			Expect(matches).NotTo(BeEmpty())
			Expect(matches[0].Mode).To(Equal(classify.ModeKeyword))
		})

		It("serves repeated classifications from the embedding cache", func() {
			provider := &stubProvider{vectors: map[string][]float64{
				signal.Text(): {1, 0, 0},
			}}
			classifier := classify.New(newService(provider), nil)
			candidates := []classify.Candidate{{ID: 10, Text: "a", Vector: []float64{1, 0, 0}}}
			opts := classify.Options{UseSemantic: true}

			_, _, err := classifier.Classify(ctx, signal, candidates, opts)
			Expect(err).NotTo(HaveOccurred())
			_, _, err = classifier.Classify(ctx, signal, candidates, opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(provider.calls).To(Equal(1))
		})
	})
})
