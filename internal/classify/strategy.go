package classify

import (
	"context"
	"log/slog"

	"signalhub.app/correlator/internal/faults"
)

type strategy func(ctx context.Context) ([]Match, error)

// runWithFallback centralizes the semantic-to-keyword degradation policy:
// quota and transient provider failures degrade the single item to the
// fallback strategy instead of failing the batch, validation failures
// propagate so the item is skipped and recorded.
func runWithFallback(ctx context.Context, preferred, fallback strategy, logger *slog.Logger) ([]Match, bool, error) {
	matches, err := preferred(ctx)
	if err == nil {
		return matches, false, nil
	}

	if faults.IsValidation(err) {
		return nil, false, err
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	logger.WarnContext(ctx, "semantic classification degraded to keyword matching", "error", err)
	matches, fbErr := fallback(ctx)
	if fbErr != nil {
		return nil, true, fbErr
	}
	return matches, true, nil
}
