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

func (r *Impl) GetJudgment(ctx context.Context, db bun.IDB, submissionID, judgeID uuid.UUID, round int) (*SubmissionJudgment, error) {
	db = r.resolveDB(db)
	j := new(SubmissionJudgment)
	err := db.NewSelect().
		Model(j).
		Relation("CriteriaScores").
		Where("sj.submission_id = ?", submissionID).
		Where("sj.judge_id = ?", judgeID).
		Where("sj.round = ?", round).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get judgment: %w", err)
	}
	return j, nil
}

func (r *Impl) SaveJudgment(ctx context.Context, db bun.IDB, j *SubmissionJudgment) error {
	db = r.resolveDB(db)
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.UpdatedAt = time.Now().UTC()

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// A completed row never matches the conflict update, so concurrent saves
		// cannot rewrite it.
		res, err := tx.NewInsert().
			Model(j).
			On("CONFLICT (submission_id, judge_id, round) DO UPDATE").
			Set("overall_score = EXCLUDED.overall_score").
			Set("feedback = EXCLUDED.feedback").
			Set("is_completed = EXCLUDED.is_completed").
			Set("completed_at = EXCLUDED.completed_at").
			Set("updated_at = EXCLUDED.updated_at").
			Where("sj.is_completed = FALSE").
			Returning("id").
			Exec(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJudgmentCompleted
		}
		if err != nil {
			return fmt.Errorf("failed to upsert judgment: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrJudgmentCompleted
		}

		if _, err := tx.NewDelete().
			Model((*CriteriaScore)(nil)).
			Where("judgment_id = ?", j.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear criteria scores: %w", err)
		}
		if len(j.CriteriaScores) == 0 {
			return nil
		}
		for _, cs := range j.CriteriaScores {
			cs.JudgmentID = j.ID
			if cs.ID == uuid.Nil {
				cs.ID = uuid.New()
			}
		}
		if _, err := tx.NewInsert().Model(&j.CriteriaScores).Exec(ctx); err != nil {
			return fmt.Errorf("failed to save criteria scores: %w", err)
		}
		return nil
	})
}

func (r *Impl) GetCompletedJudgments(ctx context.Context, db bun.IDB, competitionID, judgeID uuid.UUID, round int) ([]*SubmissionJudgment, error) {
	db = r.resolveDB(db)
	var out []*SubmissionJudgment
	err := db.NewSelect().
		Model(&out).
		Where("sj.competition_id = ?", competitionID).
		Where("sj.judge_id = ?", judgeID).
		Where("sj.round = ?", round).
		Where("sj.is_completed = TRUE").
		Order("sj.submission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed judgments: %w", err)
	}
	return out, nil
}

func (r *Impl) GetSongCreatorPicks(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*SongCreatorPick, error) {
	db = r.resolveDB(db)
	var out []*SongCreatorPick
	err := db.NewSelect().
		Model(&out).
		Where("scp.competition_id = ?", competitionID).
		Order("scp.rank ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list song creator picks: %w", err)
	}
	return out, nil
}

func (r *Impl) ReplaceSongCreatorPicks(ctx context.Context, db bun.IDB, competitionID uuid.UUID, picks []*SongCreatorPick) error {
	db = r.resolveDB(db)
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*SongCreatorPick)(nil)).
			Where("competition_id = ?", competitionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear song creator picks: %w", err)
		}
		if len(picks) == 0 {
			return nil
		}
		for _, p := range picks {
			p.CompetitionID = competitionID
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
		}
		if _, err := tx.NewInsert().Model(&picks).Exec(ctx); err != nil {
			return fmt.Errorf("failed to save song creator picks: %w", err)
		}
		return nil
	})
}
