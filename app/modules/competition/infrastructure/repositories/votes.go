package competitiondb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func (r *Impl) CreateVotes(ctx context.Context, db bun.IDB, votes []*SubmissionVote) error {
	if len(votes) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(&votes).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create votes: %w", err)
	}
	return nil
}

func (r *Impl) HasVotes(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID, round int) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*SubmissionVote)(nil)).
		Where("competition_id = ?", competitionID).
		Where("voter_id = ?", voterID).
		Where("round = ?", round).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check votes: %w", err)
	}
	return exists, nil
}

func (r *Impl) GetVotes(ctx context.Context, db bun.IDB, competitionID uuid.UUID, round int) ([]*SubmissionVote, error) {
	db = r.resolveDB(db)
	var out []*SubmissionVote
	err := db.NewSelect().
		Model(&out).
		Where("sv.competition_id = ?", competitionID).
		Where("sv.round = ?", round).
		Order("sv.submission_id ASC", "sv.voter_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return out, nil
}
