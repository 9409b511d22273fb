package service

import (
	"context"
	"fmt"
	"time"

	"signalhub.app/correlator/common/logger"
	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/embedding"
)

// SeedFixes (re)embeds the historical fix corpus in small paced batches.
// Cancellation is checked between batches; vectors already written stay
// valid, so a resumed run only pays for what is missing or stale.
func (s *CorrelationService) SeedFixes(ctx context.Context) (domain.RunSummary, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "correlator.service.seed",
	})

	var summary domain.RunSummary

	fixes, err := s.fixes.ListBugFixes(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing fix corpus: %w", err)
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < len(fixes); start += batchSize {
		if start > 0 && s.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				s.logger.WarnContext(ctx, "seeding cancelled at batch boundary",
					"processed", summary.Processed, "total", len(fixes))
				return summary, ctx.Err()
			case <-time.After(s.cfg.BatchDelay):
			}
		}

		end := min(start+batchSize, len(fixes))
		for _, fix := range fixes[start:end] {
			summary.Processed++
			if _, err := s.embeddings.Vector(ctx, embedding.KindFix, fix.ID, fix.Text()); err != nil {
				summary.RecordError(fmt.Sprintf("%s#%d", fix.Repo, fix.IssueNumber), "embed_fix", err)
				continue
			}
			summary.Succeeded++
		}
	}

	s.logger.InfoContext(ctx, "fix corpus seeded",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped)
	return summary, nil
}
