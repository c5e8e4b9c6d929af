package competitiondomain

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
)

// Criterion score bounds.
const (
	MinCriterionScore = 0.0
	MaxCriterionScore = 10.0
)

// ErrInvalidCriteria is returned for malformed rubric scores.
var ErrInvalidCriteria = errors.New("invalid criteria scores")

// CriterionScore is a judge's mark on one rubric criterion.
type CriterionScore struct {
	Name   string
	Score  float64
	Weight float64
}

// ValidateCriteria checks names, bounds and weights.
func ValidateCriteria(criteria []CriterionScore) error {
	seen := make(map[string]struct{}, len(criteria))
	for _, c := range criteria {
		if c.Name == "" {
			return fmt.Errorf("%w: criterion name is required", ErrInvalidCriteria)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: criterion %q scored twice", ErrInvalidCriteria, c.Name)
		}
		seen[c.Name] = struct{}{}
		if math.IsNaN(c.Score) || c.Score < MinCriterionScore || c.Score > MaxCriterionScore {
			return fmt.Errorf("%w: %q score %.2f outside [%.0f, %.0f]", ErrInvalidCriteria, c.Name, c.Score, MinCriterionScore, MaxCriterionScore)
		}
		if math.IsNaN(c.Weight) || c.Weight <= 0 {
			return fmt.Errorf("%w: %q weight must be positive", ErrInvalidCriteria, c.Name)
		}
	}
	return nil
}

// WeightedScore is the weight-averaged criteria score, rounded to two decimals.
func WeightedScore(criteria []CriterionScore) (float64, error) {
	if len(criteria) == 0 {
		return 0, fmt.Errorf("%w: no criteria", ErrInvalidCriteria)
	}
	if err := ValidateCriteria(criteria); err != nil {
		return 0, err
	}
	var sum, weights float64
	for _, c := range criteria {
		sum += c.Score * c.Weight
		weights += c.Weight
	}
	return math.Round(sum/weights*100) / 100, nil
}

// JudgedSubmission is a completed judgment reduced to what ranking needs.
type JudgedSubmission struct {
	SubmissionID uuid.UUID
	OverallScore float64
}

// RankJudgments converts one judge's completed judgments into ranked outcomes:
// highest overall score first, ties broken by submission ID, podium places scored 3/2/1.
func RankJudgments(judge uuid.UUID, judged []JudgedSubmission) []RankedOutcome {
	ordered := slices.Clone(judged)
	slices.SortFunc(ordered, func(a, b JudgedSubmission) int {
		if c := cmp.Compare(b.OverallScore, a.OverallScore); c != 0 {
			return c
		}
		return cmp.Compare(a.SubmissionID.String(), b.SubmissionID.String())
	})

	outcomes := make([]RankedOutcome, len(ordered))
	for i, j := range ordered {
		outcomes[i] = RankedOutcome{VoterID: judge, SubmissionID: j.SubmissionID}
		if i < BallotSize {
			rank := i + 1
			outcomes[i].Rank = &rank
			outcomes[i].Points = PointsForRank(rank)
		}
	}
	return outcomes
}
