// Package grouping clusters related signals with greedy seed-based
// single-linkage. Issue-centric and thread-centric passes share this core;
// duplicate detection is the same algorithm at a higher threshold.
package grouping

import (
	"sort"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/similarity"
)

// Scorer computes pairwise similarity between two signals on the [0,1]
// scale. Which similarity backs it (keyword overlap or embedding cosine)
// is the caller's choice; the clustering core is agnostic.
type Scorer func(a, b domain.Signal) float64

// KeywordScorer scores pairs by word overlap.
func KeywordScorer() Scorer {
	return func(a, b domain.Signal) float64 {
		return float64(similarity.Keyword(a.Text(), b.Text()))
	}
}

// VectorScorer scores pairs by cosine similarity of their cached
// embeddings. A pair with a missing vector scores 0 rather than failing
// the pass.
func VectorScorer(vectors map[int64][]float64) Scorer {
	return func(a, b domain.Signal) float64 {
		va, okA := vectors[a.ID]
		vb, okB := vectors[b.ID]
		if !okA || !okB {
			return 0
		}
		return float64(similarity.Cosine(va, vb))
	}
}

// Options bounds one grouping pass.
type Options struct {
	MinSimilarity float64
	MaxGroups     int
	MaxGroupSize  int
	// Categories maps signal IDs to their feature/category, used to flag
	// cross-cutting groups. Optional.
	Categories map[int64]string
}

// Group runs one greedy single-pass clustering over signals in input
// order. For each unclaimed seed, every later unclaimed signal whose
// similarity to the seed clears the threshold joins the seed's group; a
// joining member does not pull in further members in the same pass (no
// transitive closure — a deliberate precision-over-recall choice).
//
// Every input signal ends up either in an emitted group (>= 2 members) or
// in Ungrouped with a reason. Output order is deterministic for a fixed
// input ordering; the seed tie-break is input-order dependent.
func Group(signals []domain.Signal, score Scorer, opts Options) domain.GroupingResult {
	claimed := make(map[int64]bool, len(signals))
	var groups []domain.GroupCandidate
	var ungrouped []domain.Ungrouped

	for i, seed := range signals {
		if claimed[seed.ID] {
			continue
		}

		members := []domain.Signal{seed}
		memberScores := []float64{1} // seed's own slot; replaced below
		for j := i + 1; j < len(signals); j++ {
			other := signals[j]
			if claimed[other.ID] {
				continue
			}
			if opts.MaxGroupSize > 0 && len(members) >= opts.MaxGroupSize {
				break
			}
			s := score(seed, other)
			if s >= opts.MinSimilarity {
				members = append(members, other)
				memberScores = append(memberScores, s)
			}
		}

		if len(members) < 2 {
			ungrouped = append(ungrouped, domain.Ungrouped{
				SignalID: seed.ID,
				Reason:   "no candidates above threshold",
			})
			continue
		}

		for _, m := range members {
			claimed[m.ID] = true
		}

		group := domain.GroupCandidate{
			CanonicalID:   canonical(members).ID,
			AvgSimilarity: pairwiseMean(members, score),
			Status:        domain.GroupStatusPending,
		}
		group.Members = make([]domain.GroupMember, len(members))
		for k, m := range members {
			group.Members[k] = domain.GroupMember{SignalID: m.ID, Similarity: memberScores[k]}
		}
		group.Members[0].Similarity = group.AvgSimilarity // seed has no single pair score
		group.IsCrossCutting = crossCutting(members, opts.Categories)
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].AvgSimilarity > groups[j].AvgSimilarity
	})

	if opts.MaxGroups > 0 && len(groups) > opts.MaxGroups {
		for _, dropped := range groups[opts.MaxGroups:] {
			for _, m := range dropped.Members {
				ungrouped = append(ungrouped, domain.Ungrouped{
					SignalID: m.SignalID,
					Reason:   "group budget exceeded",
				})
			}
		}
		groups = groups[:opts.MaxGroups]
	}

	return domain.GroupingResult{Groups: groups, Ungrouped: ungrouped}
}

// FindDuplicates runs the clustering core at the duplicate threshold.
// Emitted groups are "likely duplicate" sets rather than related groups.
// A non-positive threshold uses the default.
func FindDuplicates(signals []domain.Signal, score Scorer, threshold float64, maxGroups int) domain.GroupingResult {
	if threshold <= 0 {
		threshold = float64(similarity.DuplicateThreshold)
	}
	return Group(signals, score, Options{
		MinSimilarity: threshold,
		MaxGroups:     maxGroups,
	})
}

// pairwiseMean averages similarity over all pairs among the final members,
// not just pairs with the seed. This rewards tight clusters over loose
// ones that only share the seed.
func pairwiseMean(members []domain.Signal, score Scorer) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += score(members[i], members[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// canonical picks the group's representative: tracker-sourced signals win
// over chat-sourced ones, and within the same class the most recently
// updated wins.
func canonical(members []domain.Signal) domain.Signal {
	best := members[0]
	for _, m := range members[1:] {
		if sourceRank(m.Source) > sourceRank(best.Source) {
			best = m
			continue
		}
		if sourceRank(m.Source) == sourceRank(best.Source) && m.UpdatedAt.After(best.UpdatedAt) {
			best = m
		}
	}
	return best
}

func sourceRank(s domain.Source) int {
	if s == domain.SourceGitHub {
		return 1
	}
	return 0
}

func crossCutting(members []domain.Signal, categories map[int64]string) bool {
	if len(categories) == 0 {
		return false
	}
	seen := ""
	for _, m := range members {
		cat, ok := categories[m.ID]
		if !ok || cat == "" {
			continue
		}
		if seen == "" {
			seen = cat
			continue
		}
		if cat != seen {
			return true
		}
	}
	return false
}
