package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"signalhub.app/correlator/core/db"
	"signalhub.app/correlator/internal/embedding"
)

// EmbeddingStore is the durable tier of the embedding cache, one row per
// (kind, owner id). Concurrent writers rely on the upsert's last-write-wins
// atomicity, never on application-level locking.
type EmbeddingStore struct {
	db *db.DB
}

func newEmbeddingStore(database *db.DB) *EmbeddingStore {
	return &EmbeddingStore{db: database}
}

// IsAvailable probes the database with a short deadline so an unreachable
// database degrades the cache instead of stalling it.
func (s *EmbeddingStore) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.Ping(probeCtx) == nil
}

func (s *EmbeddingStore) Get(ctx context.Context, kind embedding.Kind, id int64) (*embedding.Entry, error) {
	var entry embedding.Entry
	err := s.db.Pool().QueryRow(ctx, `
		SELECT id, embedding, content_hash, model, updated_at
		FROM embeddings WHERE kind = $1 AND id = $2`,
		string(kind), id).
		Scan(&entry.ID, &entry.Vector, &entry.ContentHash, &entry.Model, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *EmbeddingStore) GetAll(ctx context.Context, kind embedding.Kind) ([]embedding.Entry, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, embedding, content_hash, model, updated_at
		FROM embeddings WHERE kind = $1`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []embedding.Entry
	for rows.Next() {
		var entry embedding.Entry
		if err := rows.Scan(&entry.ID, &entry.Vector, &entry.ContentHash, &entry.Model, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const upsertEmbedding = `
	INSERT INTO embeddings (kind, id, embedding, content_hash, model, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (kind, id) DO UPDATE SET
		embedding = EXCLUDED.embedding,
		content_hash = EXCLUDED.content_hash,
		model = EXCLUDED.model,
		updated_at = EXCLUDED.updated_at`

func (s *EmbeddingStore) Upsert(ctx context.Context, kind embedding.Kind, entry embedding.Entry) error {
	_, err := s.db.Pool().Exec(ctx, upsertEmbedding,
		string(kind), entry.ID, entry.Vector, entry.ContentHash, entry.Model, entry.UpdatedAt)
	return err
}

// UpsertBatch queues one upsert per entry in a single round trip. The
// returned slice is parallel to entries; each item succeeds or fails
// independently.
func (s *EmbeddingStore) UpsertBatch(ctx context.Context, kind embedding.Kind, entries []embedding.Entry) []error {
	errs := make([]error, len(entries))
	if len(entries) == 0 {
		return errs
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(upsertEmbedding,
			string(kind), entry.ID, entry.Vector, entry.ContentHash, entry.Model, entry.UpdatedAt)
	}

	results := s.db.Pool().SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			errs[i] = err
		}
	}
	return errs
}

func (s *EmbeddingStore) Clear(ctx context.Context, kind embedding.Kind) error {
	_, err := s.db.Pool().Exec(ctx, `DELETE FROM embeddings WHERE kind = $1`, string(kind))
	return err
}
