package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"signalhub.app/correlator/core/db"
	"signalhub.app/correlator/internal/domain"
)

type featureStore struct {
	db *db.DB
}

func newFeatureStore(database *db.DB) FeatureStore {
	return &featureStore{db: database}
}

const featureColumns = `id, name, description, category, priority, related_keywords, documentation_urls, created_at, updated_at`

func (s *featureStore) GetByID(ctx context.Context, id int64) (*domain.Feature, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features WHERE id = $1`, id)
	feature, err := scanFeature(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return feature, nil
}

func (s *featureStore) List(ctx context.Context) ([]domain.Feature, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+featureColumns+` FROM features ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var features []domain.Feature
	for rows.Next() {
		feature, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, *feature)
	}
	return features, rows.Err()
}

func scanFeature(row pgx.Row) (*domain.Feature, error) {
	var feature domain.Feature
	err := row.Scan(&feature.ID, &feature.Name, &feature.Description,
		&feature.Category, &feature.Priority, &feature.RelatedKeywords,
		&feature.DocumentationURLs, &feature.CreatedAt, &feature.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &feature, nil
}
