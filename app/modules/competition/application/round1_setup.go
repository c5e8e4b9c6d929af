package competitionservice

import (
	"context"
	"errors"
	"fmt"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CloseSubmissions closes the submission window, forms the round 1 groups and opens
// round 1 voting. Each step commits on its own; if grouping fails the competition
// stays in VotingRound1Setup for the setup job to retry.
func (s *CompetitionService) CloseSubmissions(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "CloseSubmissions", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return s.chain(ctx, box,
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.transitionLogic(ctx, db, competitionID, competitiondomain.EdgeCloseSubmissions, box)
			},
			func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
				return s.setupRound1Logic(ctx, db, competitionID, box)
			},
		)
	}))
}

// SetupRound1 forms groups for a competition waiting in VotingRound1Setup and opens
// round 1. Existing groups are reused.
func (s *CompetitionService) SetupRound1(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "SetupRound1", competitionID.String(), func(ctx context.Context) (results.OperationResult[*TransitionResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransitionResult, error], error) {
			return s.setupRound1Logic(ctx, db, competitionID, box)
		})
	}))
}

func (s *CompetitionService) setupRound1Logic(ctx context.Context, db bun.IDB, competitionID uuid.UUID, box *outbox) (results.OperationResult[*TransitionResult, error], error) {
	c, err := s.lockCompetition(ctx, db, competitionID)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	if _, err := competitiondomain.CheckTransition(competitiondomain.EdgeOpenRound1, c.Status); err != nil {
		return failureOrError[*TransitionResult](fmt.Errorf("%w: %w", ErrInvalidStateTransition, err))
	}

	groups, voters, err := s.ensureGroups(ctx, db, c)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}

	now := s.now()
	if c.Round1VotingEndDate.IsZero() || c.Round1VotingEndDate.Before(c.SubmissionDeadline) {
		c.Round1VotingEndDate = laterOf(now, c.SubmissionDeadline).Add(s.opts.Round1Voting)
		if err := s.repo.UpdateCompetition(ctx, db, c); err != nil {
			return failureOrError[*TransitionResult](fmt.Errorf("failed to set round 1 end date: %w", err))
		}
	}

	t, err := s.applyTransition(ctx, db, c, competitiondomain.EdgeOpenRound1, box)
	if err != nil {
		return failureOrError[*TransitionResult](err)
	}
	box.add(competitionevents.Round1OpenedV1, competitionevents.Round1OpenedPayload{
		CompetitionID: c.ID,
		Groups:        groups,
		Voters:        voters,
		VotingEndsAt:  c.Round1VotingEndDate,
	})

	return results.SuccessResult[*TransitionResult, error](&TransitionResult{
		CompetitionID: c.ID,
		From:          t.From,
		To:            t.To,
		Groups:        groups,
		Voters:        voters,
	}), nil
}

// ensureGroups creates the round 1 groups and assignments unless they already exist.
// It returns the number of groups and voters.
func (s *CompetitionService) ensureGroups(ctx context.Context, db bun.IDB, c *competitiondb.Competition) (int, int, error) {
	exists, err := s.repo.HasGroups(ctx, db, c.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to check groups: %w", err)
	}
	if exists {
		groups, err := s.repo.GetSubmissionGroups(ctx, db, c.ID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load groups: %w", err)
		}
		assignments, err := s.repo.GetRound1Assignments(ctx, db, c.ID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load assignments: %w", err)
		}
		s.logger.InfoContext(ctx, "Round 1 groups already exist, reusing them")
		return countGroups(groups), len(assignments), nil
	}

	eligible, err := s.repo.GetEligibleRound1Submissions(ctx, db, c.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load eligible submissions: %w", err)
	}
	entries := make([]competitiondomain.Entry, len(eligible))
	for i, sub := range eligible {
		entries[i] = competitiondomain.Entry{
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			SubmittedAt:  sub.SubmittedAt,
		}
	}

	plan, err := competitiondomain.PlanGroups(entries, s.opts.GroupSize, s.opts.MinSubmissions, competitiondomain.SeedFromID(c.ID))
	if err != nil {
		if errors.Is(err, competitiondomain.ErrTooFewSubmissions) {
			return 0, 0, fmt.Errorf("%w: %w", ErrInsufficientData, err)
		}
		return 0, 0, err
	}

	rows := make([]*competitiondb.SubmissionGroup, len(plan.Members))
	for i, m := range plan.Members {
		rows[i] = &competitiondb.SubmissionGroup{
			ID:            uuid.New(),
			CompetitionID: c.ID,
			SubmissionID:  m.SubmissionID,
			GroupNumber:   m.GroupNumber,
		}
	}
	if err := s.repo.CreateSubmissionGroups(ctx, db, rows); err != nil {
		return 0, 0, fmt.Errorf("failed to create groups: %w", err)
	}

	assignments := make([]*competitiondb.Round1Assignment, len(plan.Assignments))
	for i, a := range plan.Assignments {
		assignments[i] = &competitiondb.Round1Assignment{
			ID:                  uuid.New(),
			CompetitionID:       c.ID,
			VoterID:             a.VoterID,
			SubmissionID:        a.SubmissionID,
			VoterGroupNumber:    a.VoterGroupNumber,
			AssignedGroupNumber: a.AssignedGroupNumber,
		}
	}
	if err := s.repo.CreateRound1Assignments(ctx, db, assignments); err != nil {
		return 0, 0, fmt.Errorf("failed to create assignments: %w", err)
	}

	return plan.GroupCount, len(assignments), nil
}

func countGroups(groups []*competitiondb.SubmissionGroup) int {
	seen := make(map[int]struct{})
	for _, g := range groups {
		seen[g.GroupNumber] = struct{}{}
	}
	return len(seen)
}

// groupMembers converts stored group rows into the domain's member list.
func groupMembers(groups []*competitiondb.SubmissionGroup, subs map[uuid.UUID]*competitiondb.Submission) []competitiondomain.GroupMember {
	members := make([]competitiondomain.GroupMember, 0, len(groups))
	for _, g := range groups {
		m := competitiondomain.GroupMember{SubmissionID: g.SubmissionID, GroupNumber: g.GroupNumber}
		if sub, ok := subs[g.SubmissionID]; ok {
			m.UserID = sub.UserID
		}
		members = append(members, m)
	}
	return members
}
