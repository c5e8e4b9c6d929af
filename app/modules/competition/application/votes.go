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

// SubmitVotes records a voter's ranking for the open round.
func (s *CompetitionService) SubmitVotes(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "SubmitVotes", req.CompetitionID.String(), func(ctx context.Context) (results.OperationResult[*VoteResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*VoteResult, error], error) {
			return s.submitVotesLogic(ctx, db, req)
		})
	}))
}

func (s *CompetitionService) submitVotesLogic(ctx context.Context, db bun.IDB, req VoteRequest) (results.OperationResult[*VoteResult, error], error) {
	c, err := s.getCompetition(ctx, db, req.CompetitionID)
	if err != nil {
		return failureOrError[*VoteResult](err)
	}
	if err := requireOpenRound(c, req.Round); err != nil {
		return failureOrError[*VoteResult](err)
	}

	voted, err := s.repo.HasVotes(ctx, db, c.ID, req.VoterID, req.Round)
	if err != nil {
		return failureOrError[*VoteResult](fmt.Errorf("failed to check existing votes: %w", err))
	}
	if voted {
		return failureOrError[*VoteResult](ErrAlreadyVoted)
	}

	targets, assignment, err := s.voterTargets(ctx, db, c.ID, req.VoterID, req.Round)
	if err != nil {
		return failureOrError[*VoteResult](err)
	}
	if assignment != nil && assignment.HasVoted {
		return failureOrError[*VoteResult](ErrAlreadyVoted)
	}

	ballot, err := competitiondomain.BuildBallot(req.VoterID, req.Ranking, targets)
	if err != nil {
		return failureOrError[*VoteResult](err)
	}
	if err := s.recordBallot(ctx, db, c.ID, req.Round, competitiondb.VoteSourceDirect, ballot, assignment); err != nil {
		return failureOrError[*VoteResult](err)
	}

	return results.SuccessResult[*VoteResult, error](&VoteResult{
		CompetitionID: c.ID,
		VoterID:       req.VoterID,
		Round:         req.Round,
		Votes:         len(ballot),
	}), nil
}

// requireOpenRound checks that round is currently accepting votes.
func requireOpenRound(c *competitiondb.Competition, round int) error {
	switch round {
	case competitiondb.Round1:
		if c.Status == competitiondomain.StatusVotingRound1Open {
			return nil
		}
	case competitiondb.Round2:
		if c.Status == competitiondomain.StatusVotingRound2Open {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown round %d", ErrInvalidStatus, round)
	}
	return fmt.Errorf("%w: round %d is not open, competition is %s", ErrInvalidStatus, round, c.Status)
}

// voterTargets returns the submissions a voter ranks in a round. Round 1 voters rank
// their assigned group; round 2 voters rank every finalist but their own. Round 2 has
// no electorate check: any authenticated user may vote or judge the final.
func (s *CompetitionService) voterTargets(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID, round int) ([]uuid.UUID, *competitiondb.Round1Assignment, error) {
	if round == competitiondb.Round1 {
		a, err := s.repo.GetRound1Assignment(ctx, db, competitionID, voterID)
		if err != nil {
			if errors.Is(err, competitiondb.ErrNotFound) {
				return nil, nil, ErrAssignmentNotFound
			}
			return nil, nil, fmt.Errorf("failed to load assignment: %w", err)
		}
		groups, err := s.repo.GetSubmissionGroups(ctx, db, competitionID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load groups: %w", err)
		}
		members := groupMembers(groups, nil)
		return competitiondomain.GroupTargets(members, a.AssignedGroupNumber, a.SubmissionID), a, nil
	}

	advanced, err := s.repo.GetAdvancedSubmissions(ctx, db, competitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load finalists: %w", err)
	}
	targets := make([]uuid.UUID, 0, len(advanced))
	for _, sub := range advanced {
		if sub.UserID != voterID {
			targets = append(targets, sub.ID)
		}
	}
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("%w: no finalists to rank", ErrInvalidBallot)
	}
	return targets, nil, nil
}

// recordBallot stores ranked outcomes as votes and closes out the voter's round 1
// assignment.
func (s *CompetitionService) recordBallot(ctx context.Context, db bun.IDB, competitionID uuid.UUID, round int, source competitiondb.VoteSource, ballot []competitiondomain.RankedOutcome, assignment *competitiondb.Round1Assignment) error {
	votes := make([]*competitiondb.SubmissionVote, len(ballot))
	for i, o := range ballot {
		votes[i] = competitiondb.VoteFromOutcome(competitionID, round, source, o)
	}
	if err := s.repo.CreateVotes(ctx, db, votes); err != nil {
		return fmt.Errorf("failed to save votes: %w", err)
	}
	if assignment == nil {
		return nil
	}
	if err := s.repo.MarkAssignmentVoted(ctx, db, assignment.ID, s.now()); err != nil {
		if errors.Is(err, competitiondb.ErrNoRowsAffected) {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("failed to mark assignment voted: %w", err)
	}
	return nil
}
