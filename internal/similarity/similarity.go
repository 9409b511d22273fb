// Package similarity provides the pure comparison functions the classifier
// and grouper are built on. Two scales coexist and are never converted
// implicitly: keyword-match confidence surfaces on the 0-100 percentage
// scale, embedding comparisons stay on the 0.0-1.0 cosine scale. The
// distinct named types keep a percentage from ever being compared against
// a cosine threshold.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Score is a cosine similarity on the [-1,1] scale.
type Score float64

// Jaccard is a word-overlap ratio on the [0,1] scale.
type Jaccard float64

// Percent is a keyword-match confidence on the 0-100 scale, used wherever
// a score is surfaced to a human or compared against the historical
// percentage thresholds.
type Percent float64

// Percent converts the overlap ratio to the percentage scale. This is the
// only sanctioned crossing between the two scales.
func (j Jaccard) Percent() Percent {
	return Percent(float64(j) * 100)
}

// DefaultPercentThreshold is the historical acceptance threshold for
// keyword/issue matching.
const DefaultPercentThreshold Percent = 60

// DefaultCosineThreshold is the acceptance threshold for embedding
// comparisons (feature matching, group embeddings).
const DefaultCosineThreshold Score = 0.5

// DuplicateThreshold is the cosine threshold at which related items are
// reported as likely duplicates instead of merely related.
const DuplicateThreshold Score = 0.9

// Cosine computes normalized dot-product similarity between two vectors.
// Zero vectors yield 0 rather than NaN. Vectors of unequal length are
// zero-padded to the longer one; that is a defensive fallback, vectors
// from the same model always have equal dimensionality.
func Cosine(a, b []float64) Score {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return Score(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Keyword computes Jaccard overlap between the word sets of two texts.
// Matching is case-insensitive, punctuation is stripped, and words of
// length <= 2 are dropped as stopwords-by-length.
func Keyword(a, b string) Jaccard {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return Jaccard(float64(intersection) / float64(union))
}

// SharedTerms returns the words both texts share after the same filtering
// Keyword applies, sorted for deterministic output. Used to explain
// keyword matches to a human.
func SharedTerms(a, b string) []string {
	setA := wordSet(a)
	setB := wordSet(b)

	var shared []string
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared = append(shared, w)
		}
	}
	sort.Strings(shared)
	return shared
}

func wordSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}
