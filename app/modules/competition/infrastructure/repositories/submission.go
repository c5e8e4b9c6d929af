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

func (r *Impl) CreateSubmission(ctx context.Context, db bun.IDB, s *Submission) error {
	db = r.resolveDB(db)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(s).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *Impl) GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*Submission, error) {
	db = r.resolveDB(db)
	s := new(Submission)
	if err := db.NewSelect().Model(s).Where("s.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

func (r *Impl) GetSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Submission, error) {
	return r.listSubmissions(ctx, r.resolveDB(db), competitionID, nil)
}

func (r *Impl) GetEligibleRound1Submissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Submission, error) {
	return r.listSubmissions(ctx, r.resolveDB(db), competitionID, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("s.is_eligible_for_round1_voting = TRUE").Where("s.is_disqualified = FALSE")
	})
}

func (r *Impl) GetAdvancedSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Submission, error) {
	return r.listSubmissions(ctx, r.resolveDB(db), competitionID, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("s.advanced_to_round2 = TRUE").Where("s.is_disqualified = FALSE")
	})
}

func (r *Impl) listSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*Submission, error) {
	var out []*Submission
	q := db.NewSelect().
		Model(&out).
		Where("s.competition_id = ?", competitionID).
		Order("s.submitted_at ASC", "s.id ASC")
	if filter != nil {
		q = filter(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return out, nil
}

func (r *Impl) GetSubmissionCount(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Submission)(nil)).
		Where("competition_id = ?", competitionID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

func (r *Impl) GetSubmissionByUser(ctx context.Context, db bun.IDB, competitionID, userID uuid.UUID) (*Submission, error) {
	db = r.resolveDB(db)
	s := new(Submission)
	err := db.NewSelect().
		Model(s).
		Where("s.competition_id = ?", competitionID).
		Where("s.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission by user: %w", err)
	}
	return s, nil
}

func (r *Impl) UpdateSubmission(ctx context.Context, db bun.IDB, s *Submission) error {
	db = r.resolveDB(db)
	s.UpdatedAt = time.Now().UTC()
	res, err := db.NewUpdate().
		Model(s).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return requireRows(res)
}
