package competitionservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultPageSize = 50

// GetCompetition returns a competition by ID.
func (s *CompetitionService) GetCompetition(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error) {
	return unwrap(withTelemetry(s, ctx, "GetCompetition", competitionID.String(), func(ctx context.Context) (results.OperationResult[*competitiondb.Competition, error], error) {
		c, err := s.getCompetition(ctx, nil, competitionID)
		if err != nil {
			return failureOrError[*competitiondb.Competition](err)
		}
		return results.SuccessResult[*competitiondb.Competition, error](c), nil
	}))
}

// ListCompetitionsByStatus pages through competitions in a status. Pages start at 1.
func (s *CompetitionService) ListCompetitionsByStatus(ctx context.Context, status string, page, pageSize int) ([]*competitiondb.Competition, error) {
	return unwrap(withTelemetry(s, ctx, "ListCompetitionsByStatus", status, func(ctx context.Context) (results.OperationResult[[]*competitiondb.Competition, error], error) {
		st, err := competitiondomain.ParseStatus(status)
		if err != nil {
			return failureOrError[[]*competitiondb.Competition](fmt.Errorf("%w: %w", ErrInvalidStatus, err))
		}
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = defaultPageSize
		}
		list, err := s.repo.GetCompetitionsByStatus(ctx, nil, st, page, pageSize)
		if err != nil {
			return failureOrError[[]*competitiondb.Competition](fmt.Errorf("failed to list competitions: %w", err))
		}
		return results.SuccessResult[[]*competitiondb.Competition, error](list), nil
	}))
}

// UpdateCompetitionStatus forces a competition into status, bypassing the transition
// table. The result is returned even when the update fails so callers can report it.
func (s *CompetitionService) UpdateCompetitionStatus(ctx context.Context, competitionID uuid.UUID, status string) (*StatusUpdateResult, error) {
	box := &outbox{}
	attempt := &StatusUpdateResult{CompetitionID: competitionID, NewStatus: competitiondomain.Status(status)}
	result, err := withTelemetry(s, ctx, "UpdateCompetitionStatus", competitionID.String(), func(ctx context.Context) (results.OperationResult[*StatusUpdateResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*StatusUpdateResult, error], error) {
			return s.updateStatusLogic(ctx, db, competitionID, status, attempt, box)
		})
	})
	out, err := unwrap(result, err)
	if err != nil {
		attempt.Success = false
		attempt.Message = err.Error()
		return attempt, err
	}
	return out, nil
}

// updateStatusLogic records the status it read in attempt before writing.
func (s *CompetitionService) updateStatusLogic(ctx context.Context, db bun.IDB, competitionID uuid.UUID, status string, attempt *StatusUpdateResult, box *outbox) (results.OperationResult[*StatusUpdateResult, error], error) {
	next, err := competitiondomain.ParseStatus(status)
	if err != nil {
		return failureOrError[*StatusUpdateResult](fmt.Errorf("%w: %w", ErrInvalidStatus, err))
	}
	c, err := s.lockCompetition(ctx, db, competitionID)
	if err != nil {
		return failureOrError[*StatusUpdateResult](err)
	}
	attempt.OldStatus = c.Status

	out := &StatusUpdateResult{CompetitionID: c.ID, OldStatus: c.Status, NewStatus: next, Success: true}
	if c.Status == next {
		out.Message = "status unchanged"
		return results.SuccessResult[*StatusUpdateResult, error](out), nil
	}

	if next == competitiondomain.StatusCompleted && c.CompletedDate == nil {
		now := s.now()
		c.CompletedDate = &now
		if err := s.repo.UpdateCompetition(ctx, db, c); err != nil {
			return failureOrError[*StatusUpdateResult](fmt.Errorf("failed to set completed date: %w", err))
		}
	}
	if err := s.repo.UpdateCompetitionStatus(ctx, db, c.ID, c.Status, next); err != nil {
		if errors.Is(err, competitiondb.ErrStatusMismatch) {
			return failureOrError[*StatusUpdateResult](fmt.Errorf("%w: status changed concurrently", ErrInvalidStateTransition))
		}
		return failureOrError[*StatusUpdateResult](fmt.Errorf("failed to update status: %w", err))
	}
	box.statusChanged(c.ID, c.Status, next, true, s.now())
	if !competitiondomain.CanTransition(c.Status, next) {
		s.logger.WarnContext(ctx, "Manual status change outside the transition table",
			slog.String("from", c.Status.String()),
			slog.String("to", next.String()),
		)
	}
	out.Message = fmt.Sprintf("status changed from %s to %s", c.Status, next)
	return results.SuccessResult[*StatusUpdateResult, error](out), nil
}
