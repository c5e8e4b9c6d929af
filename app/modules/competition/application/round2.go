package competitionservice

import (
	"context"
	"fmt"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetupRound2 opens round 2 for a competition waiting in VotingRound2Setup.
func (s *CompetitionService) SetupRound2(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "SetupRound2", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
			return s.setupRound2Logic(ctx, db, competitionID, box)
		})
	}))
}

func (s *CompetitionService) setupRound2Logic(ctx context.Context, db bun.IDB, competitionID uuid.UUID, box *outbox) (results.OperationResult[*TransitionResult, error], error) {
	c, err := s.lockCompetition(ctx, db, competitionID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	if _, err := competitiondomain.CheckTransition(competitiondomain.EdgeOpenRound2, c.Status); err != nil {
		return failureOrError[*TransitionResult](fmt.Errorf("%w: %w", ErrInvalidStateTransition, err))
	}

	advanced, err := s.repo.GetAdvancedSubmissions(ctx, db, c.ID)
	if err != nil {
		return failureOrError[*TransitionResult](fmt.Errorf("failed to load finalists: %w", err))
	}
	if len(advanced) == 0 {
		return failureOrError[*TransitionResult](fmt.Errorf("%w: no submissions advanced to round 2", ErrInsufficientData))
	}

	if c.Round2VotingEndDate.IsZero() || c.Round2VotingEndDate.Before(c.Round1VotingEndDate) {
		c.Round2VotingEndDate = laterOf(s.now(), c.Round1VotingEndDate).Add(s.opts.Round2Voting)
		if err := s.repo.UpdateCompetition(ctx, db, c); err != nil {
			return failureOrError[*TransitionResult](fmt.Errorf("failed to set round 2 end date: %w", err))
		}
	}

	t, err := s.applyTransition(ctx, db, c, competitiondomain.EdgeOpenRound2, box)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}

	ids := make([]uuid.UUID, len(advanced))
	for i, sub := range advanced {
		ids[i] = sub.ID
	}
	return results.SuccessResult[*TransitionResult, error](&TransitionResult{
		CompetitionID: c.ID,
		From:          t.From,
		To:            t.To,
		Advanced:      ids,
	}), nil
}

// CloseRound2Voting closes round 2 and decides the winner.
func (s *CompetitionService) CloseRound2Voting(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "CloseRound2Voting", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return s.chain(ctx, box,
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.transitionLogic(ctx, db, competitionID, competitiondomain.EdgeCloseRound2, box)
			},
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.tallyRound2Logic(ctx, db, competitionID, box)
			},
		)
	}))
}

// TallyRound2 decides the winner of a competition stuck in VotingRound2Tallying.
func (s *CompetitionService) TallyRound2(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "TallyRound2", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
			return s.tallyRound2Logic(ctx, db, competitionID, box)
		})
	}))
}

// tallyRound2Logic totals the final vote. A unique top score completes the
// competition; a shared one hands it to the song creator.
func (s *CompetitionService) tallyRound2Logic(ctx context.Context, db bun.IDB, competitionID uuid.UUID, box *outbox) (results.OperationResult[*TransitionResult, error], error) {
	c, err := s.lockCompetition(ctx, db, competitionID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	if c.Status != competitiondomain.StatusVotingRound2Tallying {
		_, err := competitiondomain.CheckTransition(competitiondomain.EdgeComplete, c.Status)
		return failureOrError[*TransitionResult](fmt.Errorf("%w: %w", ErrInvalidStateTransition, err))
	}

	finalists, result, err := s.decideRound2(ctx, db, c.ID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}

	from := c.Status
	if result.IsTie() {
		if err := s.saveStandings(ctx, db, finalists, result, false); err != nil {
			return failureOrError[*TransitionResult](err)
		}
		if _, err := s.applyTransition(ctx, db, c, competitiondomain.EdgeRequireManualSelection, box); err != nil {
			return failureOrError[*TransitionResult](err)
		}
		box.add(competitionevents.ManualSelectionRequiredV1, competitionevents.ManualSelectionRequiredPayload{
			CompetitionID: c.ID,
			TiedIDs:       result.Tied,
			TopScore:      result.Standings[0].Score,
		})
		return results.SuccessResult[*TransitionResult, error](&TransitionResult{
			CompetitionID: c.ID,
			From:          from,
			To:            c.Status,
			Tied:          result.Tied,
		}), nil
	}

	if err := s.complete(ctx, db, c, finalists, result, competitiondomain.EdgeComplete, box); err != nil {
		return failureOrError[*TransitionResult](err)
	}
	return results.SuccessResult[*TransitionResult, error](&TransitionResult{
		CompetitionID: c.ID,
		From:          from,
		To:            c.Status,
		Winner:        result.Winner,
	}), nil
}

// decideRound2 loads the finalists and their round 2 votes and ranks them.
func (s *CompetitionService) decideRound2(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (map[uuid.UUID]*competitiondb.Submission, competitiondomain.Round2Result, error) {
	advanced, err := s.repo.GetAdvancedSubmissions(ctx, db, competitionID)
	if err != nil {
		return nil, competitiondomain.Round2Result{}, fmt.Errorf("failed to load finalists: %w", err)
	}
	if len(advanced) == 0 {
		return nil, competitiondomain.Round2Result{}, fmt.Errorf("%w: no finalists to rank", ErrInsufficientData)
	}
	votes, err := s.repo.GetVotes(ctx, db, competitionID, competitiondb.Round2)
	if err != nil {
		return nil, competitiondomain.Round2Result{}, fmt.Errorf("failed to load round 2 votes: %w", err)
	}

	finalists := make(map[uuid.UUID]*competitiondb.Submission, len(advanced))
	ids := make([]uuid.UUID, len(advanced))
	for i, sub := range advanced {
		finalists[sub.ID] = sub
		ids[i] = sub.ID
	}
	outcomes := make([]competitiondomain.RankedOutcome, len(votes))
	for i, v := range votes {
		outcomes[i] = v.Outcome()
	}
	return finalists, competitiondomain.DecideRound2(ids, outcomes), nil
}

// saveStandings writes round 2 scores, and final placings when final is set.
func (s *CompetitionService) saveStandings(ctx context.Context, db bun.IDB, finalists map[uuid.UUID]*competitiondb.Submission, result competitiondomain.Round2Result, final bool) error {
	for _, st := range result.Standings {
		sub := finalists[st.SubmissionID]
		score := st.Score
		sub.Round2Score = &score
		if final {
			rank := st.Rank
			sub.FinalScore = &score
			sub.FinalRank = &rank
			sub.IsWinner = result.Winner != nil && *result.Winner == sub.ID
		}
		if err := s.repo.UpdateSubmission(ctx, db, sub); err != nil {
			return fmt.Errorf("failed to save round 2 result: %w", err)
		}
	}
	return nil
}

// complete records the winner and moves the competition to Completed along edge.
func (s *CompetitionService) complete(ctx context.Context, db bun.IDB, c *competitiondb.Competition, finalists map[uuid.UUID]*competitiondb.Submission, result competitiondomain.Round2Result, edge competitiondomain.Edge, box *outbox) error {
	if err := s.saveStandings(ctx, db, finalists, result, true); err != nil {
		return err
	}

	now := s.now()
	c.CompletedDate = &now
	c.WinnerSubmissionID = result.Winner
	if err := s.repo.UpdateCompetition(ctx, db, c); err != nil {
		return fmt.Errorf("failed to record winner: %w", err)
	}
	if _, err := s.applyTransition(ctx, db, c, edge, box); err != nil {
		return err
	}

	var score int
	for _, st := range result.Standings {
		if st.SubmissionID == *result.Winner {
			score = st.Score
		}
	}
	box.add(competitionevents.WinnerSelectedV1, competitionevents.WinnerSelectedPayload{
		CompetitionID:      c.ID,
		WinnerSubmissionID: *result.Winner,
		FinalScore:         score,
		ByManualSelection:  edge == competitiondomain.EdgeResolveManualSelection,
	})
	return nil
}
