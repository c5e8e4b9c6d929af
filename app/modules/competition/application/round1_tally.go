package competitionservice

import (
	"context"
	"fmt"
	"time"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const disqualifiedForNotVoting = "did not vote in round 1"

// CloseRound1Voting closes round 1, tallies the groups and opens round 2. A failure
// after the close leaves the competition in the status the last committed step reached.
func (s *CompetitionService) CloseRound1Voting(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "CloseRound1Voting", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return s.chain(ctx, box,
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.transitionLogic(ctx, db, competitionID, competitiondomain.EdgeCloseRound1, box)
			},
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.tallyRound1Logic(ctx, db, competitionID, box)
			},
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.setupRound2Logic(ctx, db, competitionID, box)
			},
		)
	}))
}

// TallyRound1 tallies a competition stuck in VotingRound1Tallying.
func (s *CompetitionService) TallyRound1(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "TallyRound1", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
			return s.tallyRound1Logic(ctx, db, competitionID, box)
		})
	}))
}

// tallyRound1Logic disqualifies submitters who never voted, tallies every group over
// the remaining submissions and marks the top of each group as advanced.
func (s *CompetitionService) tallyRound1Logic(ctx context.Context, db bun.IDB, competitionID uuid.UUID, box *outbox) (results.OperationResult[*TransitionResult, error], error) {
	c, err := s.lockCompetition(ctx, db, competitionID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	if _, err := competitiondomain.CheckTransition(competitiondomain.EdgeFinishRound1Tally, c.Status); err != nil {
		return failureOrError[*TransitionResult](fmt.Errorf("%w: %w", ErrInvalidStateTransition, err))
	}

	subs, err := s.repo.GetSubmissions(ctx, db, c.ID)
	if err != nil {
		return failureOrError[*TransitionResult](fmt.Errorf("failed to load submissions: %w", err))
	}
	byID := make(map[uuid.UUID]*competitiondb.Submission, len(subs))
	for _, sub := range subs {
		byID[sub.ID] = sub
	}

	disqualified, err := s.disqualifyNonVoters(ctx, db, c.ID, byID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}

	advanced, err := s.tallyGroups(ctx, db, c.ID, byID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}

	t, err := s.applyTransition(ctx, db, c, competitiondomain.EdgeFinishRound1Tally, box)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	box.add(competitionevents.Round1TalliedV1, competitionevents.Round1TalliedPayload{
		CompetitionID: c.ID,
		Disqualified:  disqualified,
		Advanced:      advanced,
	})

	return results.SuccessResult[*TransitionResult, error](&TransitionResult{
		CompetitionID: c.ID,
		From:          t.From,
		To:            t.To,
		Disqualified:  disqualified,
		Advanced:      advanced,
	}), nil
}

func (s *CompetitionService) disqualifyNonVoters(ctx context.Context, db bun.IDB, competitionID uuid.UUID, byID map[uuid.UUID]*competitiondb.Submission) ([]uuid.UUID, error) {
	assignments, err := s.repo.GetRound1Assignments(ctx, db, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	disqualified := []uuid.UUID{}
	for _, a := range assignments {
		if a.HasVoted {
			continue
		}
		sub, ok := byID[a.SubmissionID]
		if !ok || sub.IsDisqualified {
			continue
		}
		sub.IsDisqualified = true
		sub.DisqualificationReason = disqualifiedForNotVoting
		sub.IsEligibleForRound2Voting = false
		sub.AdvancedToRound2 = false
		if err := s.repo.UpdateSubmission(ctx, db, sub); err != nil {
			return nil, fmt.Errorf("failed to disqualify submission %s: %w", sub.ID, err)
		}
		disqualified = append(disqualified, sub.ID)
	}
	return disqualified, nil
}

// tallyGroups scores each group and persists the results. Disqualified submissions
// neither score nor advance.
func (s *CompetitionService) tallyGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID, byID map[uuid.UUID]*competitiondb.Submission) ([]uuid.UUID, error) {
	groups, err := s.repo.GetSubmissionGroups(ctx, db, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	votes, err := s.repo.GetVotes(ctx, db, competitionID, competitiondb.Round1)
	if err != nil {
		return nil, fmt.Errorf("failed to load round 1 votes: %w", err)
	}
	outcomes := make([]competitiondomain.RankedOutcome, len(votes))
	for i, v := range votes {
		outcomes[i] = v.Outcome()
	}

	byGroup := make(map[int][]*competitiondb.SubmissionGroup)
	var order []int
	for _, g := range groups {
		if _, ok := byGroup[g.GroupNumber]; !ok {
			order = append(order, g.GroupNumber)
		}
		byGroup[g.GroupNumber] = append(byGroup[g.GroupNumber], g)
	}

	advanced := []uuid.UUID{}
	for _, number := range order {
		rows := byGroup[number]
		var members []uuid.UUID
		rowBySub := make(map[uuid.UUID]*competitiondb.SubmissionGroup, len(rows))
		for _, row := range rows {
			if sub, ok := byID[row.SubmissionID]; ok && !sub.IsDisqualified {
				members = append(members, row.SubmissionID)
				rowBySub[row.SubmissionID] = row
			}
		}

		tallies := competitiondomain.TallyGroup(members, outcomes)
		for _, tally := range tallies {
			row := rowBySub[tally.SubmissionID]
			row.TotalPoints = tally.TotalPoints
			row.FirstPlaceVotes = tally.FirstPlaceVotes
			row.SecondPlaceVotes = tally.SecondPlaceVotes
			row.ThirdPlaceVotes = tally.ThirdPlaceVotes
			row.RankInGroup = nil
			if tally.Rank > 0 {
				rank := tally.Rank
				row.RankInGroup = &rank
			}
			if err := s.repo.UpdateSubmissionGroup(ctx, db, row); err != nil {
				return nil, fmt.Errorf("failed to save group tally: %w", err)
			}
		}

		winners := competitiondomain.SelectAdvancing(tallies, s.opts.AdvancePerGroup)
		won := make(map[uuid.UUID]bool, len(winners))
		for _, id := range winners {
			won[id] = true
		}
		for _, tally := range tallies {
			sub := byID[tally.SubmissionID]
			points := tally.TotalPoints
			sub.Round1Score = &points
			sub.AdvancedToRound2 = won[sub.ID]
			sub.IsEligibleForRound2Voting = won[sub.ID]
			if err := s.repo.UpdateSubmission(ctx, db, sub); err != nil {
				return nil, fmt.Errorf("failed to save round 1 result: %w", err)
			}
		}
		advanced = append(advanced, winners...)
	}
	return advanced, nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
