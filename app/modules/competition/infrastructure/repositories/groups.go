package competitiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func (r *Impl) HasGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*SubmissionGroup)(nil)).
		Where("competition_id = ?", competitionID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check submission groups: %w", err)
	}
	return exists, nil
}

func (r *Impl) CreateSubmissionGroups(ctx context.Context, db bun.IDB, groups []*SubmissionGroup) error {
	if len(groups) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	for _, g := range groups {
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
	}
	if _, err := db.NewInsert().Model(&groups).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create submission groups: %w", err)
	}
	return nil
}

func (r *Impl) GetSubmissionGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*SubmissionGroup, error) {
	db = r.resolveDB(db)
	var out []*SubmissionGroup
	err := db.NewSelect().
		Model(&out).
		Where("sg.competition_id = ?", competitionID).
		Order("sg.group_number ASC", "sg.submission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission groups: %w", err)
	}
	return out, nil
}

func (r *Impl) UpdateSubmissionGroup(ctx context.Context, db bun.IDB, g *SubmissionGroup) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(g).
		Column("total_points", "first_place_votes", "second_place_votes", "third_place_votes", "rank_in_group").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update submission group: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) CreateRound1Assignments(ctx context.Context, db bun.IDB, assignments []*Round1Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
	}
	if _, err := db.NewInsert().Model(&assignments).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create round 1 assignments: %w", err)
	}
	return nil
}

func (r *Impl) GetRound1Assignment(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID) (*Round1Assignment, error) {
	db = r.resolveDB(db)
	a := new(Round1Assignment)
	err := db.NewSelect().
		Model(a).
		Where("ra.competition_id = ?", competitionID).
		Where("ra.voter_id = ?", voterID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round 1 assignment: %w", err)
	}
	return a, nil
}

func (r *Impl) GetRound1Assignments(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Round1Assignment, error) {
	db = r.resolveDB(db)
	var out []*Round1Assignment
	err := db.NewSelect().
		Model(&out).
		Where("ra.competition_id = ?", competitionID).
		Order("ra.voter_group_number ASC", "ra.voter_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list round 1 assignments: %w", err)
	}
	return out, nil
}

func (r *Impl) MarkAssignmentVoted(ctx context.Context, db bun.IDB, assignmentID uuid.UUID, at time.Time) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Round1Assignment)(nil)).
		Set("has_voted = TRUE").
		Set("voting_completed_date = ?", at).
		Where("id = ?", assignmentID).
		Where("has_voted = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark assignment voted: %w", err)
	}
	return requireRows(res)
}
