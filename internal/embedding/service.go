package embedding

import (
	"context"
	"log/slog"
	"time"

	"signalhub.app/correlator/internal/faults"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Service composes the cache and the provider: callers ask for a vector
// by (kind, id, text) and never re-pay for unchanged content. Transient
// provider failures are retried with bounded exponential backoff; quota
// and validation failures propagate for the caller to handle.
type Service struct {
	cache    *Cache
	provider Provider
	logger   *slog.Logger
}

func NewService(cache *Cache, provider Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, provider: provider, logger: logger}
}

// Model returns the configured embedding model identifier.
func (s *Service) Model() string { return s.provider.Model() }

// Vector returns the embedding for text, serving from cache when the
// content hash still matches and computing + caching otherwise.
func (s *Service) Vector(ctx context.Context, kind Kind, id int64, text string) ([]float64, error) {
	hash := HashContent(text)
	if vec, ok := s.cache.Get(ctx, kind, id, hash); ok {
		return vec, nil
	}

	vec, err := s.embedWithRetry(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, kind, id, hash, vec); err != nil {
		// A cache write failure does not invalidate the computed vector.
		s.logger.WarnContext(ctx, "caching embedding failed", "kind", kind, "id", id, "error", err)
	}
	return vec, nil
}

func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float64, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		vec, err := s.provider.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if !faults.IsTransient(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		s.logger.DebugContext(ctx, "transient embedding failure, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
