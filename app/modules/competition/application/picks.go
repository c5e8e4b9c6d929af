package competitionservice

import (
	"context"
	"fmt"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordSongCreatorPicks stores the song creator's ranking of the finalists. When the
// competition is waiting for a manual winner, picks that favour one of the tied
// submissions complete it.
func (s *CompetitionService) RecordSongCreatorPicks(ctx context.Context, req PicksRequest) (*PicksResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "RecordSongCreatorPicks", req.CompetitionID.String(), func(ctx context.Context) (results.OperationResult[*PicksResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*PicksResult, error], error) {
			return s.recordPicksLogic(ctx, db, req, box)
		})
	}))
}

func (s *CompetitionService) recordPicksLogic(ctx context.Context, db bun.IDB, req PicksRequest, box *outbox) (results.OperationResult[*PicksResult, error], error) {
	c, err := s.lockCompetition(ctx, db, req.CompetitionID)
	if err != nil {
		return failureOrError[*PicksResult](err)
	}
	switch c.Status {
	case competitiondomain.StatusVotingRound2Open,
		competitiondomain.StatusVotingRound2Tallying,
		competitiondomain.StatusRequiresManualWinnerSelection:
	default:
		return failureOrError[*PicksResult](fmt.Errorf("%w: picks are not accepted while %s", ErrInvalidStatus, c.Status))
	}
	if !req.Admin && (c.SongCreatorID == nil || *c.SongCreatorID != req.PickedBy) {
		return failureOrError[*PicksResult](fmt.Errorf("%w: only the song creator may pick", ErrNotAuthorized))
	}

	finalists, result, err := s.decideRound2(ctx, db, c.ID)
	if err != nil {
		return failureOrError[*PicksResult](err)
	}
	if err := validatePicks(req.Picks, finalists); err != nil {
		return failureOrError[*PicksResult](err)
	}

	rows := make([]*competitiondb.SongCreatorPick, len(req.Picks))
	ranks := make(map[uuid.UUID]int, len(req.Picks))
	for i, p := range req.Picks {
		rows[i] = &competitiondb.SongCreatorPick{
			CompetitionID: c.ID,
			SubmissionID:  p.SubmissionID,
			Rank:          p.Rank,
			PickedBy:      req.PickedBy,
		}
		ranks[p.SubmissionID] = p.Rank
	}
	if err := s.repo.ReplaceSongCreatorPicks(ctx, db, c.ID, rows); err != nil {
		return failureOrError[*PicksResult](fmt.Errorf("failed to save picks: %w", err))
	}

	out := &PicksResult{CompetitionID: c.ID, Saved: len(rows)}
	if c.Status != competitiondomain.StatusRequiresManualWinnerSelection {
		return results.SuccessResult[*PicksResult, error](out), nil
	}

	resolved, ok := competitiondomain.ResolveTie(result, ranks)
	if !ok {
		s.logger.InfoContext(ctx, "Picks saved but none of the tied submissions was picked")
		return results.SuccessResult[*PicksResult, error](out), nil
	}
	if err := s.complete(ctx, db, c, finalists, resolved, competitiondomain.EdgeResolveManualSelection, box); err != nil {
		return failureOrError[*PicksResult](err)
	}
	out.Resolved = true
	out.Winner = resolved.Winner
	return results.SuccessResult[*PicksResult, error](out), nil
}

// validatePicks requires one to three picks with distinct ranks 1..3 on distinct finalists.
func validatePicks(picks []Pick, finalists map[uuid.UUID]*competitiondb.Submission) error {
	if len(picks) == 0 || len(picks) > competitiondomain.BallotSize {
		return fmt.Errorf("%w: expected 1 to %d picks, got %d", ErrInvalidPick, competitiondomain.BallotSize, len(picks))
	}
	seenRank := make(map[int]bool, len(picks))
	seenSub := make(map[uuid.UUID]bool, len(picks))
	for _, p := range picks {
		if p.Rank < 1 || p.Rank > competitiondomain.BallotSize {
			return fmt.Errorf("%w: rank %d out of range", ErrInvalidPick, p.Rank)
		}
		if seenRank[p.Rank] {
			return fmt.Errorf("%w: rank %d used twice", ErrInvalidPick, p.Rank)
		}
		if seenSub[p.SubmissionID] {
			return fmt.Errorf("%w: submission %s picked twice", ErrInvalidPick, p.SubmissionID)
		}
		if _, ok := finalists[p.SubmissionID]; !ok {
			return fmt.Errorf("%w: submission %s is not a finalist", ErrInvalidPick, p.SubmissionID)
		}
		seenRank[p.Rank] = true
		seenSub[p.SubmissionID] = true
	}
	return nil
}
