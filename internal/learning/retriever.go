// Package learning surfaces historical (issue, merged fix) pairs for a new
// issue: nearest-neighbour retrieval over an embedded bug-fix corpus, plus
// declarative tagging of what a fix changed and where.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/embedding"
	"signalhub.app/correlator/internal/similarity"
)

const (
	// DefaultMaxResults bounds a retrieval when the caller passes 0.
	DefaultMaxResults = 5

	diffCap          = 3000
	truncationMarker = "\n... [diff truncated]"
)

// FixSource lists the corpus restricted to fixes learned from bug issues.
type FixSource interface {
	ListBugFixes(ctx context.Context) ([]domain.HistoricalFix, error)
}

// Retriever ranks historical fixes by cosine similarity between the query
// issue's embedding and each fix's embedded issue text.
type Retriever struct {
	source     FixSource
	embeddings *embedding.Service
	logger     *slog.Logger
}

func NewRetriever(source FixSource, embeddings *embedding.Service, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{source: source, embeddings: embeddings, logger: logger}
}

// FindSimilar returns up to max fixes ranked by similarity to the issue.
// A fix whose embedding cannot be produced is skipped, not fatal; the query
// embedding failing is.
func (r *Retriever) FindSimilar(ctx context.Context, issue domain.Signal, max int) ([]domain.SimilarFix, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	// Same embedding text as classification, so both call sites share the
	// signal's single cache entry instead of invalidating each other.
	query, err := r.embeddings.Vector(ctx, embedding.KindSignal, issue.ID, issue.Text())
	if err != nil {
		return nil, fmt.Errorf("embedding query issue %d: %w", issue.ID, err)
	}

	fixes, err := r.source.ListBugFixes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing fix corpus: %w", err)
	}

	results := make([]domain.SimilarFix, 0, len(fixes))
	for _, fix := range fixes {
		vec, err := r.embeddings.Vector(ctx, embedding.KindFix, fix.ID, fix.Text())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.WarnContext(ctx, "skipping fix without embedding",
				"fix_id", fix.ID, "repo", fix.Repo, "error", err)
			continue
		}
		results = append(results, domain.SimilarFix{
			Fix:           fix,
			Similarity:    float64(similarity.Cosine(query, vec)),
			TruncatedDiff: TruncateDiff(fix.Diff),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > max {
		results = results[:max]
	}
	return results, nil
}

// TruncateDiff bounds a diff for response size, marking the cut.
func TruncateDiff(diff string) string {
	if len(diff) <= diffCap {
		return diff
	}
	return diff[:diffCap] + truncationMarker
}
