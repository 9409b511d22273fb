// Package classify matches a signal against a candidate pool (open issues,
// the feature taxonomy) and returns ranked matches above threshold.
package classify

import (
	"context"
	"log/slog"
	"sort"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/embedding"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/similarity"
)

// DefaultTopK bounds how many matches a classification returns.
const DefaultTopK = 5

// Mode names which similarity produced a match's score, and therefore
// which scale the score is on.
type Mode string

const (
	// ModeSemantic scores are cosine similarities on the 0.0-1.0 scale.
	ModeSemantic Mode = "semantic"
	// ModeKeyword scores come from word overlap: a percentage on the
	// 0-100 scale in a keyword result set, or the raw 0-1 overlap ratio
	// when a vectorless candidate is ranked among semantic matches.
	ModeKeyword Mode = "keyword"
)

// Candidate is one pool entry a signal can match against. Vector is
// optional; without it (or with semantic mode disabled) the candidate is
// scored by keyword overlap.
type Candidate struct {
	ID     int64
	Kind   embedding.Kind
	Text   string
	Vector []float64
}

// Match is one ranked result. Score's scale is determined by Mode; the two
// scales are never mixed within one result set.
type Match struct {
	CandidateID  int64    `json:"candidate_id"`
	Score        float64  `json:"score"`
	Mode         Mode     `json:"mode"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// Options controls thresholds per scale and result count.
type Options struct {
	UseSemantic bool
	MinPercent  similarity.Percent
	MinCosine   similarity.Score
	TopK        int
}

func (o Options) topK() int {
	if o.TopK <= 0 {
		return DefaultTopK
	}
	return o.TopK
}

func (o Options) minPercent() similarity.Percent {
	if o.MinPercent == 0 {
		return similarity.DefaultPercentThreshold
	}
	return o.MinPercent
}

func (o Options) minCosine() similarity.Score {
	if o.MinCosine == 0 {
		return similarity.DefaultCosineThreshold
	}
	return o.MinCosine
}

// Classifier scores signals against candidates, preferring semantic
// similarity and degrading per-item to keyword matching when the
// embedding provider fails.
type Classifier struct {
	embedder *embedding.Service
	logger   *slog.Logger
}

func New(embedder *embedding.Service, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{embedder: embedder, logger: logger}
}

// Classify ranks candidates for one signal. Output is deterministic given
// identical signal text, candidate set and cache state: descending by
// score with ties broken by candidate insertion order.
//
// The returned bool reports whether the item fell back from semantic to
// keyword matching, so batch callers can summarize degradation.
func (c *Classifier) Classify(ctx context.Context, signal domain.Signal, candidates []Candidate, opts Options) ([]Match, bool, error) {
	if signal.Body == "" && signal.Title == "" {
		return nil, false, &faults.ValidationError{Field: "signal", Reason: "empty text"}
	}

	semantic := func(ctx context.Context) ([]Match, error) {
		return c.classifySemantic(ctx, signal, candidates, opts)
	}
	keyword := func(ctx context.Context) ([]Match, error) {
		return c.classifyKeyword(signal, candidates, opts), nil
	}

	if !opts.UseSemantic || c.embedder == nil {
		matches, err := keyword(ctx)
		return matches, false, err
	}
	return runWithFallback(ctx, semantic, keyword, c.logger)
}

func (c *Classifier) classifySemantic(ctx context.Context, signal domain.Signal, candidates []Candidate, opts Options) ([]Match, error) {
	vec, err := c.embedder.Vector(ctx, embedding.KindSignal, signal.ID, signal.Text())
	if err != nil {
		return nil, err
	}

	minCosine := opts.minCosine()

	var matches []Match
	for _, cand := range candidates {
		if len(cand.Vector) == 0 {
			// No embedding for this candidate; score it by word overlap so
			// it is not silently dropped from the pool. The overlap ratio
			// stays on [0,1] here so it ranks against cosine scores instead
			// of over them.
			overlap := similarity.Keyword(signal.Text(), cand.Text)
			if overlap.Percent() >= opts.minPercent() {
				matches = append(matches, Match{
					CandidateID:  cand.ID,
					Score:        float64(overlap),
					Mode:         ModeKeyword,
					MatchedTerms: similarity.SharedTerms(signal.Text(), cand.Text),
				})
			}
			continue
		}
		score := similarity.Cosine(vec, cand.Vector)
		if score >= minCosine {
			matches = append(matches, Match{
				CandidateID: cand.ID,
				Score:       float64(score),
				Mode:        ModeSemantic,
			})
		}
	}
	return rank(matches, opts.topK()), nil
}

func (c *Classifier) classifyKeyword(signal domain.Signal, candidates []Candidate, opts Options) []Match {
	var matches []Match
	for _, cand := range candidates {
		if m, ok := keywordMatch(signal, cand, opts); ok {
			matches = append(matches, m)
		}
	}
	return rank(matches, opts.topK())
}

func keywordMatch(signal domain.Signal, cand Candidate, opts Options) (Match, bool) {
	percent := similarity.Keyword(signal.Text(), cand.Text).Percent()
	if percent < opts.minPercent() {
		return Match{}, false
	}
	return Match{
		CandidateID:  cand.ID,
		Score:        float64(percent),
		Mode:         ModeKeyword,
		MatchedTerms: similarity.SharedTerms(signal.Text(), cand.Text),
	}, true
}

// rank sorts descending by score with a stable sort, preserving candidate
// insertion order on ties, then truncates to topK.
func rank(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
