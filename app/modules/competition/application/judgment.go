package competitionservice

import (
	"context"
	"errors"
	"fmt"
	"math"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubmitJudgment saves a judge's rubric evaluation. Completing a judgment converts
// the judge's set into votes once every target has a completed judgment.
func (s *CompetitionService) SubmitJudgment(ctx context.Context, req JudgmentRequest) (*JudgmentResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "SubmitJudgment", req.SubmissionID.String(), func(ctx context.Context) (results.OperationResult[*JudgmentResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*JudgmentResult, error], error) {
			return s.submitJudgmentLogic(ctx, db, req, box)
		})
	}))
}

func (s *CompetitionService) submitJudgmentLogic(ctx context.Context, db bun.IDB, req JudgmentRequest, box *outbox) (results.OperationResult[*JudgmentResult, error], error) {
	c, err := s.getCompetition(ctx, db, req.CompetitionID)
	if err != nil {
		return failureOrError[*JudgmentResult](err)
	}
	if err := requireOpenRound(c, req.Round); err != nil {
		return failureOrError[*JudgmentResult](err)
	}

	sub, err := s.repo.GetSubmission(ctx, db, req.SubmissionID)
	if err != nil {
		if errors.Is(err, competitiondb.ErrNotFound) {
			return failureOrError[*JudgmentResult](ErrSubmissionNotFound)
		}
		return failureOrError[*JudgmentResult](fmt.Errorf("failed to load submission: %w", err))
	}
	if sub.CompetitionID != c.ID {
		return failureOrError[*JudgmentResult](ErrSubmissionNotFound)
	}
	if sub.UserID == req.JudgeID {
		return failureOrError[*JudgmentResult](fmt.Errorf("%w: judges cannot judge their own submission", ErrInvalidJudgment))
	}

	targets, _, err := s.voterTargets(ctx, db, c.ID, req.JudgeID, req.Round)
	if err != nil {
		return failureOrError[*JudgmentResult](err)
	}
	if !containsID(targets, sub.ID) {
		return failureOrError[*JudgmentResult](fmt.Errorf("%w: submission is not one of the judge's targets", ErrInvalidJudgment))
	}

	existing, err := s.repo.GetJudgment(ctx, db, sub.ID, req.JudgeID, req.Round)
	if err != nil && !errors.Is(err, competitiondb.ErrNotFound) {
		return failureOrError[*JudgmentResult](fmt.Errorf("failed to load judgment: %w", err))
	}
	if existing != nil && existing.IsCompleted {
		return failureOrError[*JudgmentResult](ErrJudgmentAlreadyCompleted)
	}

	req.Criteria = withDefaultWeights(req.Criteria)
	score, err := judgmentScore(req)
	if err != nil {
		return failureOrError[*JudgmentResult](err)
	}

	j := &competitiondb.SubmissionJudgment{
		CompetitionID: c.ID,
		SubmissionID:  sub.ID,
		JudgeID:       req.JudgeID,
		Round:         req.Round,
		OverallScore:  score,
		Feedback:      req.Feedback,
		IsCompleted:   req.Complete,
	}
	if existing != nil {
		j.ID = existing.ID
	}
	if req.Complete {
		now := s.now()
		j.CompletedAt = &now
	}
	for _, cr := range req.Criteria {
		j.CriteriaScores = append(j.CriteriaScores, &competitiondb.CriteriaScore{
			Name:   cr.Name,
			Score:  cr.Score,
			Weight: cr.Weight,
		})
	}
	if err := s.repo.SaveJudgment(ctx, db, j); err != nil {
		if errors.Is(err, competitiondb.ErrJudgmentCompleted) {
			return failureOrError[*JudgmentResult](ErrJudgmentAlreadyCompleted)
		}
		return failureOrError[*JudgmentResult](fmt.Errorf("failed to save judgment: %w", err))
	}

	out := &JudgmentResult{
		JudgmentID:   j.ID,
		OverallScore: score,
		Completed:    j.IsCompleted,
	}
	if req.Complete {
		conversion, err := s.convertLogic(ctx, db, c, req.JudgeID, req.Round, box)
		switch {
		case errors.Is(err, ErrAlreadyConverted):
			conversion = alreadyConverted(c.ID, req.JudgeID, req.Round)
		case err != nil:
			return failureOrError[*JudgmentResult](err)
		}
		out.Conversion = conversion
	}
	return results.SuccessResult[*JudgmentResult, error](out), nil
}

// judgmentScore derives the overall score from the criteria when present, otherwise
// from the explicit overall score.
func judgmentScore(req JudgmentRequest) (float64, error) {
	if len(req.Criteria) > 0 {
		return competitiondomain.WeightedScore(req.Criteria)
	}
	if req.OverallScore == nil {
		return 0, fmt.Errorf("%w: criteria or an overall score is required", ErrInvalidJudgment)
	}
	score := *req.OverallScore
	if math.IsNaN(score) || score < competitiondomain.MinCriterionScore || score > competitiondomain.MaxCriterionScore {
		return 0, fmt.Errorf("%w: overall score %.2f outside [%.0f, %.0f]", ErrInvalidJudgment, score,
			competitiondomain.MinCriterionScore, competitiondomain.MaxCriterionScore)
	}
	return score, nil
}

// ConvertJudgments turns a judge's completed judgments for a round into ranked votes.
// It reports pending while judgments are missing and already_complete once the
// judge has votes for the round.
func (s *CompetitionService) ConvertJudgments(ctx context.Context, competitionID, judgeID uuid.UUID, round int) (*ConversionResult, error) {
	box := &outbox{}
	return unwrap(withTelemetry(s, ctx, "ConvertJudgments", judgeID.String(), func(ctx context.Context) (results.OperationResult[*ConversionResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ConversionResult, error], error) {
			c, err := s.getCompetition(ctx, db, competitionID)
			if err != nil {
				return failureOrError[*ConversionResult](err)
			}
			if err := requireOpenRound(c, round); err != nil {
				return failureOrError[*ConversionResult](err)
			}
			conversion, err := s.convertLogic(ctx, db, c, judgeID, round, box)
			if errors.Is(err, ErrAlreadyConverted) {
				return results.SuccessResult[*ConversionResult, error](alreadyConverted(c.ID, judgeID, round)), nil
			}
			if err != nil {
				return failureOrError[*ConversionResult](err)
			}
			return results.SuccessResult[*ConversionResult, error](conversion), nil
		})
	}))
}

// convertLogic returns ErrAlreadyConverted when the judge already has votes for the round.
func (s *CompetitionService) convertLogic(ctx context.Context, db bun.IDB, c *competitiondb.Competition, judgeID uuid.UUID, round int, box *outbox) (*ConversionResult, error) {
	voted, err := s.repo.HasVotes(ctx, db, c.ID, judgeID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing votes: %w", err)
	}
	if voted {
		return nil, ErrAlreadyConverted
	}

	targets, assignment, err := s.voterTargets(ctx, db, c.ID, judgeID, round)
	if err != nil {
		return nil, err
	}
	if assignment != nil && assignment.HasVoted {
		return nil, ErrAlreadyConverted
	}

	completed, err := s.repo.GetCompletedJudgments(ctx, db, c.ID, judgeID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load judgments: %w", err)
	}
	scores := make(map[uuid.UUID]float64, len(completed))
	for _, j := range completed {
		scores[j.SubmissionID] = j.OverallScore
	}

	judged := make([]competitiondomain.JudgedSubmission, 0, len(targets))
	for _, id := range targets {
		if score, ok := scores[id]; ok {
			judged = append(judged, competitiondomain.JudgedSubmission{SubmissionID: id, OverallScore: score})
		}
	}
	if remaining := len(targets) - len(judged); remaining > 0 {
		return &ConversionResult{
			CompetitionID: c.ID,
			JudgeID:       judgeID,
			Round:         round,
			Status:        ConversionPending,
			Remaining:     remaining,
		}, nil
	}

	ballot := competitiondomain.RankJudgments(judgeID, judged)
	if err := s.recordBallot(ctx, db, c.ID, round, competitiondb.VoteSourceJudgment, ballot, assignment); err != nil {
		return nil, err
	}
	box.add(competitionevents.JudgmentConvertedV1, competitionevents.JudgmentConvertedPayload{
		CompetitionID: c.ID,
		JudgeID:       judgeID,
		Round:         round,
		Votes:         len(ballot),
	})

	return &ConversionResult{
		CompetitionID: c.ID,
		JudgeID:       judgeID,
		Round:         round,
		Status:        ConversionConverted,
		Votes:         len(ballot),
	}, nil
}

func alreadyConverted(competitionID, judgeID uuid.UUID, round int) *ConversionResult {
	return &ConversionResult{
		CompetitionID: competitionID,
		JudgeID:       judgeID,
		Round:         round,
		Status:        ConversionAlreadyComplete,
	}
}

// withDefaultWeights treats an omitted weight as 1.
func withDefaultWeights(criteria []competitiondomain.CriterionScore) []competitiondomain.CriterionScore {
	out := make([]competitiondomain.CriterionScore, len(criteria))
	for i, c := range criteria {
		if c.Weight == 0 {
			c.Weight = 1
		}
		out[i] = c
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
