package grouping_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/grouping"
)

func sig(id int64, source domain.Source, body string, updated time.Time) domain.Signal {
	return domain.Signal{
		ID:        id,
		Source:    source,
		SourceID:  body,
		Body:      body,
		UpdatedAt: updated,
	}
}

func memberIDs(g domain.GroupCandidate) []int64 {
	ids := make([]int64, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.SignalID
	}
	return ids
}

var _ = Describe("Group", func() {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	It("groups signals with identical bodies at any threshold", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "payment webhook fails with timeout", now),
			sig(2, domain.SourceDiscord, "payment webhook fails with timeout", now),
		}

		result := grouping.Group(signals, grouping.KeywordScorer(), grouping.Options{MinSimilarity: 1.0})
		Expect(result.Groups).To(HaveLen(1))
		Expect(memberIDs(result.Groups[0])).To(ConsistOf(int64(1), int64(2)))
		Expect(result.Groups[0].AvgSimilarity).To(Equal(1.0))
		Expect(result.Ungrouped).To(BeEmpty())
	})

	It("never groups signals with disjoint vocabulary at a positive threshold", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "database migration stuck", now),
			sig(2, domain.SourceDiscord, "frontend button color wrong", now),
		}

		result := grouping.Group(signals, grouping.KeywordScorer(), grouping.Options{MinSimilarity: 0.01})
		Expect(result.Groups).To(BeEmpty())
		Expect(result.Ungrouped).To(HaveLen(2))
		Expect(result.Ungrouped[0].Reason).To(Equal("no candidates above threshold"))
	})

	It("never emits a group with fewer than two members and accounts for every signal", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "login crash stack trace", now),
			sig(2, domain.SourceDiscord, "login crash stack trace observed", now),
			sig(3, domain.SourceDiscord, "completely unrelated report", now),
		}

		result := grouping.Group(signals, grouping.KeywordScorer(), grouping.Options{MinSimilarity: 0.5})

		accounted := 0
		for _, g := range result.Groups {
			Expect(len(g.Members)).To(BeNumerically(">=", 2))
			accounted += len(g.Members)
		}
		accounted += len(result.Ungrouped)
		Expect(accounted).To(Equal(len(signals)))
	})

	It("is idempotent for a fixed input ordering", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "webhook timeout failures spiking", now),
			sig(2, domain.SourceGitHub, "webhook timeout failures spiking again", now),
			sig(3, domain.SourceDiscord, "dark mode feature request", now),
			sig(4, domain.SourceDiscord, "dark mode feature request please", now),
		}
		opts := grouping.Options{MinSimilarity: 0.4}

		first := grouping.Group(signals, grouping.KeywordScorer(), opts)
		second := grouping.Group(signals, grouping.KeywordScorer(), opts)

		Expect(second.Groups).To(HaveLen(len(first.Groups)))
		for i := range first.Groups {
			Expect(memberIDs(second.Groups[i])).To(Equal(memberIDs(first.Groups[i])))
		}
	})

	It("does not transitively close: members joined via the seed do not recruit", func() {
		// 1~2 and 2~3 clear the threshold but 1~3 does not, so 3 stays out
		// of the seed-1 group and has no later partner.
		scores := map[[2]int64]float64{
			{1, 2}: 0.9,
			{2, 3}: 0.9,
			{1, 3}: 0.1,
		}
		scorer := func(a, b domain.Signal) float64 {
			if s, ok := scores[[2]int64{a.ID, b.ID}]; ok {
				return s
			}
			return scores[[2]int64{b.ID, a.ID}]
		}

		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "a", now),
			sig(2, domain.SourceDiscord, "b", now),
			sig(3, domain.SourceDiscord, "c", now),
		}

		result := grouping.Group(signals, scorer, grouping.Options{MinSimilarity: 0.5})
		Expect(result.Groups).To(HaveLen(1))
		Expect(memberIDs(result.Groups[0])).To(ConsistOf(int64(1), int64(2)))
		Expect(result.Ungrouped).To(HaveLen(1))
		Expect(result.Ungrouped[0].SignalID).To(Equal(int64(3)))
	})

	It("averages similarity over all member pairs, not just seed pairs", func() {
		scores := map[[2]int64]float64{
			{1, 2}: 0.8,
			{1, 3}: 0.8,
			{2, 3}: 0.2,
		}
		scorer := func(a, b domain.Signal) float64 {
			if s, ok := scores[[2]int64{a.ID, b.ID}]; ok {
				return s
			}
			return scores[[2]int64{b.ID, a.ID}]
		}

		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "a", now),
			sig(2, domain.SourceDiscord, "b", now),
			sig(3, domain.SourceDiscord, "c", now),
		}

		result := grouping.Group(signals, scorer, grouping.Options{MinSimilarity: 0.5})
		Expect(result.Groups).To(HaveLen(1))
		Expect(result.Groups[0].AvgSimilarity).To(BeNumerically("~", (0.8+0.8+0.2)/3, 1e-9))
	})

	It("prefers tracker-sourced signals as canonical, then recency", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "payment webhook timeout", now.Add(time.Hour)),
			sig(2, domain.SourceGitHub, "payment webhook timeout", now.Add(-time.Hour)),
			sig(3, domain.SourceGitHub, "payment webhook timeout", now),
		}

		result := grouping.Group(signals, grouping.KeywordScorer(), grouping.Options{MinSimilarity: 0.9})
		Expect(result.Groups).To(HaveLen(1))
		Expect(result.Groups[0].CanonicalID).To(Equal(int64(3)))
	})

	It("flags groups whose members span categories as cross-cutting", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "export to csv broken", now),
			sig(2, domain.SourceDiscord, "export to csv broken", now),
		}
		opts := grouping.Options{
			MinSimilarity: 0.9,
			Categories:    map[int64]string{1: "exports", 2: "billing"},
		}

		result := grouping.Group(signals, grouping.KeywordScorer(), opts)
		Expect(result.Groups).To(HaveLen(1))
		Expect(result.Groups[0].IsCrossCutting).To(BeTrue())
	})

	It("truncates to maxGroups and reports dropped members as ungrouped", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceDiscord, "alpha beta gamma delta", now),
			sig(2, domain.SourceDiscord, "alpha beta gamma delta", now),
			sig(3, domain.SourceDiscord, "epsilon zeta theta iota", now),
			sig(4, domain.SourceDiscord, "epsilon zeta theta kappa", now),
		}

		result := grouping.Group(signals, grouping.KeywordScorer(), grouping.Options{
			MinSimilarity: 0.5,
			MaxGroups:     1,
		})
		Expect(result.Groups).To(HaveLen(1))
		// The tighter (identical) cluster survives.
		Expect(memberIDs(result.Groups[0])).To(ConsistOf(int64(1), int64(2)))
		Expect(result.Ungrouped).To(HaveLen(2))
		for _, u := range result.Ungrouped {
			Expect(u.Reason).To(Equal("group budget exceeded"))
		}
	})
})

var _ = Describe("FindDuplicates", func() {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	It("only pairs near-identical signals", func() {
		signals := []domain.Signal{
			sig(1, domain.SourceGitHub, "crash when uploading large files to storage", now),
			sig(2, domain.SourceGitHub, "crash when uploading large files to storage", now),
			sig(3, domain.SourceGitHub, "crash when downloading small files", now),
		}

		result := grouping.FindDuplicates(signals, grouping.KeywordScorer(), 0, 0)
		Expect(result.Groups).To(HaveLen(1))
		Expect(memberIDs(result.Groups[0])).To(ConsistOf(int64(1), int64(2)))
	})
})
