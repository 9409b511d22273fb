package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"signalhub.app/correlator/core/db"
	"signalhub.app/correlator/internal/domain"
)

type groupStore struct {
	db *db.DB
}

func newGroupStore(database *db.DB) GroupStore {
	return &groupStore{db: database}
}

const groupColumns = `id, status, canonical_signal_id, avg_similarity, is_cross_cutting, external_id, external_url, created_at`

func (s *groupStore) GetByID(ctx context.Context, id int64) (*domain.GroupCandidate, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	group, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	group.Members, err = s.members(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Create persists the group row and its membership in one transaction so a
// half-written group is never observable.
func (s *groupStore) Create(ctx context.Context, group *domain.GroupCandidate) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO groups (id, status, canonical_signal_id, avg_similarity, is_cross_cutting)
			VALUES ($1, $2, $3, $4, $5)`,
			group.ID, string(group.Status), group.CanonicalID,
			group.AvgSimilarity, group.IsCrossCutting)
		if err != nil {
			return err
		}

		for _, m := range group.Members {
			_, err := tx.Exec(ctx, `
				INSERT INTO group_members (group_id, signal_id, similarity)
				VALUES ($1, $2, $3)`,
				group.ID, m.SignalID, m.Similarity)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *groupStore) List(ctx context.Context, limit int32) ([]domain.GroupCandidate, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+groupColumns+` FROM groups ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.GroupCandidate
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		groups[i].Members, err = s.members(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *groupStore) MarkExported(ctx context.Context, id int64, externalID, externalURL string) error {
	tag, err := s.db.Pool().Exec(ctx, `
		UPDATE groups SET status = $2, external_id = $3, external_url = $4
		WHERE id = $1`,
		id, string(domain.GroupStatusExported), externalID, externalURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *groupStore) Delete(ctx context.Context, id int64) error {
	// group_members rows go with the group via ON DELETE CASCADE
	_, err := s.db.Pool().Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return err
}

func (s *groupStore) members(ctx context.Context, groupID int64) ([]domain.GroupMember, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT signal_id, similarity FROM group_members
		WHERE group_id = $1 ORDER BY similarity DESC, signal_id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.SignalID, &m.Similarity); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanGroup(row pgx.Row) (*domain.GroupCandidate, error) {
	var (
		group  domain.GroupCandidate
		status string
	)
	err := row.Scan(&group.ID, &status, &group.CanonicalID, &group.AvgSimilarity,
		&group.IsCrossCutting, &group.ExternalID, &group.ExternalURL, &group.CreatedAt)
	if err != nil {
		return nil, err
	}
	group.Status = domain.GroupStatus(status)
	return &group, nil
}
