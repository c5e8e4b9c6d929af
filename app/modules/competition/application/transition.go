package competitionservice

import (
	"context"
	"errors"
	"fmt"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OpenSubmissions moves an upcoming competition to OpenForSubmissions.
func (s *CompetitionService) OpenSubmissions(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "OpenSubmissions", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
			return s.transitionLogic(ctx, db, competitionID, competitiondomain.EdgeOpenSubmissions, box)
		})
	}))
}

// lockCompetition loads a competition with a row lock, mapping a missing row to
// ErrCompetitionNotFound.
func (s *CompetitionService) lockCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*competitiondb.Competition, error) {
	c, err := s.repo.LockCompetition(ctx, db, id)
	if err != nil {
		if errors.Is(err, competitiondb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCompetitionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load competition: %w", err)
	}
	return c, nil
}

func (s *CompetitionService) getCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*competitiondb.Competition, error) {
	c, err := s.repo.GetCompetition(ctx, db, id)
	if err != nil {
		if errors.Is(err, competitiondb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCompetitionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load competition: %w", err)
	}
	return c, nil
}

// applyTransition moves c along edge with a compare-and-swap on its status.
func (s *CompetitionService) applyTransition(ctx context.Context, db bun.IDB, c *competitiondb.Competition, edge competitiondomain.Edge, box *outbox) (competitiondomain.Transition, error) {
	t, err := competitiondomain.CheckTransition(edge, c.Status)
	if err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidStateTransition, err)
	}
	if err := s.repo.UpdateCompetitionStatus(ctx, db, c.ID, t.From, t.To); err != nil {
		switch {
		case errors.Is(err, competitiondb.ErrStatusMismatch):
			return t, fmt.Errorf("%w: %s lost a concurrent status change", ErrInvalidStateTransition, edge)
		case errors.Is(err, competitiondb.ErrNotFound):
			return t, fmt.Errorf("%w: %s", ErrCompetitionNotFound, c.ID)
		default:
			return t, fmt.Errorf("failed to apply %s: %w", edge, err)
		}
	}
	c.Status = t.To
	box.statusChanged(c.ID, t.From, t.To, false, s.now())
	return t, nil
}

// transitionLogic is a lifecycle step with no side effects beyond the status change.
func (s *CompetitionService) transitionLogic(ctx context.Context, db bun.IDB, competitionID uuid.UUID, edge competitiondomain.Edge, box *outbox) (results.OperationResult[*TransitionResult, error], error) {
	c, err := s.lockCompetition(ctx, db, competitionID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	t, err := s.applyTransition(ctx, db, c, edge, box)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	return results.SuccessResult[*TransitionResult, error](&TransitionResult{
		CompetitionID: c.ID,
		From:          t.From,
		To:            t.To,
	}), nil
}

// chain runs steps one transaction each, stopping at the first failure. The result
// spans from the first step's origin to the last step reached.
func (s *CompetitionService) chain(ctx context.Context, box *outbox, steps ...func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error)) (results.OperationResult[*TransitionResult, error], error) {
	var combined *TransitionResult
	for _, step := range steps {
		res, err := runInTx(s, ctx, box, step)
		if err != nil || res.IsFailure() {
			return res, err
		}
		combined = mergeTransitions(combined, *res.Success)
	}
	return results.SuccessResult[*TransitionResult, error](combined), nil
}

func mergeTransitions(acc, next *TransitionResult) *TransitionResult {
	if acc == nil {
		out := *next
		return &out
	}
	acc.To = next.To
	if next.Groups > 0 {
		acc.Groups = next.Groups
		acc.Voters = next.Voters
	}
	if next.Disqualified != nil {
		acc.Disqualified = next.Disqualified
	}
	if next.Advanced != nil {
		acc.Advanced = next.Advanced
	}
	if next.Winner != nil {
		acc.Winner = next.Winner
	}
	if next.Tied != nil {
		acc.Tied = next.Tied
	}
	return acc
}
