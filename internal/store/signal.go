package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"signalhub.app/correlator/core/db"
	"signalhub.app/correlator/internal/domain"
)

type signalStore struct {
	db *db.DB
}

func newSignalStore(database *db.DB) SignalStore {
	return &signalStore{db: database}
}

const signalColumns = `id, source, source_id, permalink, title, body, labels, metadata, created_at, updated_at`

func (s *signalStore) GetByID(ctx context.Context, id int64) (*domain.Signal, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE id = $1`, id)
	return scanSignal(row)
}

func (s *signalStore) GetBySourceID(ctx context.Context, source domain.Source, sourceID string) (*domain.Signal, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE source = $1 AND source_id = $2`,
		string(source), sourceID)
	return scanSignal(row)
}

// Upsert inserts the signal or, when (source, source_id) already exists,
// refreshes its mutable fields. updated_at drives re-embedding so it always
// takes the incoming value.
func (s *signalStore) Upsert(ctx context.Context, signal *domain.Signal) (*domain.Signal, error) {
	metadata, err := json.Marshal(signal.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling signal metadata: %w", err)
	}

	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO signals (id, source, source_id, permalink, title, body, labels, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source, source_id) DO UPDATE SET
			permalink = EXCLUDED.permalink,
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			labels = EXCLUDED.labels,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING `+signalColumns,
		signal.ID, string(signal.Source), signal.SourceID, signal.Permalink,
		signal.Title, signal.Body, signal.Labels, metadata,
		signal.CreatedAt, signal.UpdatedAt)
	return scanSignal(row)
}

func (s *signalStore) ListRecent(ctx context.Context, limit int32) ([]domain.Signal, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+signalColumns+` FROM signals ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *signal)
	}
	return signals, rows.Err()
}

// Delete removes the signal and its cached embedding in one transaction.
func (s *signalStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM embeddings WHERE kind = 'signal' AND id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM signals WHERE id = $1`, id)
		return err
	})
}

func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var (
		signal   domain.Signal
		source   string
		metadata []byte
	)
	err := row.Scan(&signal.ID, &source, &signal.SourceID, &signal.Permalink,
		&signal.Title, &signal.Body, &signal.Labels, &metadata,
		&signal.CreatedAt, &signal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	signal.Source = domain.Source(source)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &signal.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling signal metadata: %w", err)
		}
	}
	return &signal, nil
}
