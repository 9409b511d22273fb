package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"signalhub.app/correlator/core/db"
	"signalhub.app/correlator/internal/domain"
)

type fixStore struct {
	db *db.DB
}

func newFixStore(database *db.DB) FixStore {
	return &fixStore{db: database}
}

const fixColumns = `id, repo, issue_number, fix_number, issue_title, issue_body, issue_labels,
	diff, changed_files, fix_patterns, subsystem, review_outcome, content_hash, created_at`

func (s *fixStore) GetByID(ctx context.Context, id int64) (*domain.HistoricalFix, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+fixColumns+` FROM historical_fixes WHERE id = $1`, id)
	fix, err := scanFix(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fix, nil
}

// Upsert keys on (repo, issue_number, fix_number); re-learning the same
// pair overwrites rather than duplicating.
func (s *fixStore) Upsert(ctx context.Context, fix *domain.HistoricalFix) (*domain.HistoricalFix, error) {
	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO historical_fixes (id, repo, issue_number, fix_number, issue_title, issue_body,
			issue_labels, diff, changed_files, fix_patterns, subsystem, review_outcome, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (repo, issue_number, fix_number) DO UPDATE SET
			issue_title = EXCLUDED.issue_title,
			issue_body = EXCLUDED.issue_body,
			issue_labels = EXCLUDED.issue_labels,
			diff = EXCLUDED.diff,
			changed_files = EXCLUDED.changed_files,
			fix_patterns = EXCLUDED.fix_patterns,
			subsystem = EXCLUDED.subsystem,
			review_outcome = EXCLUDED.review_outcome,
			content_hash = EXCLUDED.content_hash
		RETURNING `+fixColumns,
		fix.ID, fix.Repo, fix.IssueNumber, fix.FixNumber, fix.IssueTitle, fix.IssueBody,
		fix.IssueLabels, fix.Diff, fix.ChangedFiles, fix.FixPatterns,
		fix.Subsystem, fix.ReviewOutcome, fix.ContentHash)
	return scanFix(row)
}

// ListBugFixes returns the retrieval corpus: fixes whose issues carried a
// bug-ish label.
func (s *fixStore) ListBugFixes(ctx context.Context) ([]domain.HistoricalFix, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+fixColumns+` FROM historical_fixes
		 WHERE issue_labels && ARRAY['bug', 'fix', 'defect', 'regression']
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []domain.HistoricalFix
	for rows.Next() {
		fix, err := scanFix(rows)
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, *fix)
	}
	return fixes, rows.Err()
}

// Delete removes the fix and its cached embedding in one transaction.
func (s *fixStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM embeddings WHERE kind = 'fix' AND id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM historical_fixes WHERE id = $1`, id)
		return err
	})
}

func scanFix(row pgx.Row) (*domain.HistoricalFix, error) {
	var fix domain.HistoricalFix
	err := row.Scan(&fix.ID, &fix.Repo, &fix.IssueNumber, &fix.FixNumber,
		&fix.IssueTitle, &fix.IssueBody, &fix.IssueLabels,
		&fix.Diff, &fix.ChangedFiles, &fix.FixPatterns,
		&fix.Subsystem, &fix.ReviewOutcome, &fix.ContentHash, &fix.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &fix, nil
}
