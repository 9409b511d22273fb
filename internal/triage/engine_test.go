package triage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/triage"
)

var _ = Describe("Score", func() {
	It("classifies a clear bug report with high confidence", func() {
		result := triage.Score(triage.Input{
			Title:  "Crash on login — TypeError: cannot read property",
			Labels: []string{"bug"},
			Body: "The app crashes on login.\n" +
				"    at Object.login (auth.js:42)\n" +
				"    at processTicks (internal/process.js:10)",
		})

		Expect(result.Result).To(Equal(domain.TriageBug))
		Expect(result.Confidence).To(BeNumerically(">=", 0.70))
	})

	It("classifies a setup question as question or config with low confidence", func() {
		result := triage.Score(triage.Input{
			Title:  "How do I configure the OAuth redirect URI?",
			Labels: []string{"question"},
			Body:   "I set OAUTH_REDIRECT_URI and CLIENT_SECRET but the callback never fires. What am I missing?",
		})

		Expect(result.Result).To(BeElementOf(domain.TriageQuestion, domain.TriageConfig))
		Expect(result.Confidence).To(BeNumerically("<", 0.35))
	})

	It("classifies a labelled feature request as feature", func() {
		result := triage.Score(triage.Input{
			Title:  "Add dark mode",
			Labels: []string{"enhancement"},
			Body:   "It would be nice to have a dark theme option for night use.",
		})

		Expect(result.Result).To(Equal(domain.TriageFeature))
		Expect(result.Confidence).To(BeNumerically("<", 0.10))
	})

	It("stays at the neutral baseline when no factor matches", func() {
		result := triage.Score(triage.Input{
			Title: "Something odd",
			Body:  "Not sure what happened here honestly.",
		})

		Expect(result.Confidence).To(Equal(0.5))
		Expect(result.Reasoning).To(ContainSubstring("no factors matched"))
	})

	It("lands in the unclear band when weak signals pull below the bug threshold", func() {
		result := triage.Score(triage.Input{
			Title: "Something odd with the deploy",
			Body:  "After setting DEPLOY_TARGET nothing happens, not sure why.",
		})

		Expect(result.Result).To(Equal(domain.TriageUnclear))
		Expect(result.Confidence).To(BeNumerically("~", 0.45, 1e-9))
	})

	It("is deterministic for identical input", func() {
		in := triage.Input{
			Title:  "Error saving profile",
			Labels: []string{"bug"},
			Body:   "Steps to reproduce: open profile, hit save. Expected: saved. Actual: error toast.",
		}

		first := triage.Score(in)
		second := triage.Score(in)
		Expect(second).To(Equal(first))
	})

	It("clamps confidence to [0, 1] regardless of how many factors fire", func() {
		maxed := triage.Score(triage.Input{
			Title:  "Crash error failure broken exception",
			Labels: []string{"bug", "regression"},
			Body: "Steps to reproduce:\n1. run\nExpected: works. Actual: panic.\n" +
				"panic: runtime error\ngoroutine 1 [running]:\n```go\nmain()\n```\nversion 2.1.0",
		})
		Expect(maxed.Confidence).To(BeNumerically("<=", 1.0))

		floored := triage.Score(triage.Input{
			Title:  "How do I configure this? Would be nice to add an option",
			Labels: []string{"question", "enhancement"},
			Body:   "Feature request: please add SOME_ENV_VAR support. It would help if configurable.",
		})
		Expect(floored.Confidence).To(BeNumerically(">=", 0.0))
	})

	It("reports every factor in evaluation order with matched flags", func() {
		result := triage.Score(triage.Input{
			Title:  "Crash in exporter",
			Labels: []string{"bug"},
			Body:   "no further detail",
		})

		Expect(result.Factors).NotTo(BeEmpty())
		Expect(result.Factors[0].Name).To(Equal("bug_label"))
		Expect(result.Factors[0].Matched).To(BeTrue())

		matchedCount := 0
		for _, f := range result.Factors {
			if f.Matched {
				matchedCount++
				Expect(f.Detail).NotTo(BeEmpty())
			}
		}
		Expect(matchedCount).To(BeNumerically(">=", 2)) // bug_label + error keyword
		Expect(result.Reasoning).To(ContainSubstring("bug_label"))
	})

	It("adapts a signal into scoring input", func() {
		sig := domain.Signal{
			Title:  "Crash on upload",
			Body:   "panic: index out of range",
			Labels: []string{"bug"},
		}
		result := triage.Score(triage.FromSignal(sig))
		Expect(result.Result).To(Equal(domain.TriageBug))
	})
})
