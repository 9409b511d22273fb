package store

import (
	"context"
	"errors"

	"signalhub.app/correlator/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SignalStore defines the contract for normalized signal data access
type SignalStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Signal, error)
	GetBySourceID(ctx context.Context, source domain.Source, sourceID string) (*domain.Signal, error)
	Upsert(ctx context.Context, signal *domain.Signal) (*domain.Signal, error)
	ListRecent(ctx context.Context, limit int32) ([]domain.Signal, error)
	Delete(ctx context.Context, id int64) error // also removes the signal's embedding
}

// FeatureStore is read-only from the pipeline's perspective; the feature
// taxonomy is maintained by a separate extraction process.
type FeatureStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Feature, error)
	List(ctx context.Context) ([]domain.Feature, error)
}

// FixStore defines the contract for the historical fix corpus
type FixStore interface {
	GetByID(ctx context.Context, id int64) (*domain.HistoricalFix, error)
	Upsert(ctx context.Context, fix *domain.HistoricalFix) (*domain.HistoricalFix, error)
	ListBugFixes(ctx context.Context) ([]domain.HistoricalFix, error)
	Delete(ctx context.Context, id int64) error
}

// GroupStore defines the contract for persisted signal groups
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*domain.GroupCandidate, error)
	Create(ctx context.Context, group *domain.GroupCandidate) error
	List(ctx context.Context, limit int32) ([]domain.GroupCandidate, error)
	MarkExported(ctx context.Context, id int64, externalID, externalURL string) error
	Delete(ctx context.Context, id int64) error
}
