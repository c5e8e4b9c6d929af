package competitiondomain

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ErrInvalidBallot is returned when a ranking does not cover the voter's targets correctly.
var ErrInvalidBallot = errors.New("invalid ballot")

// BallotSize is the number of ranked places on a full ballot.
const BallotSize = 3

// RankedOutcome is one voter's verdict on one submission. Direct ballots and converted
// judgments both produce it, and tallying only ever reads this form.
type RankedOutcome struct {
	VoterID      uuid.UUID
	SubmissionID uuid.UUID
	Rank         *int
	Points       int
}

// PointsForRank maps a ballot place to points: 3, 2, 1 for the podium and 0 otherwise.
func PointsForRank(rank int) int {
	switch rank {
	case 1:
		return 3
	case 2:
		return 2
	case 3:
		return 1
	default:
		return 0
	}
}

// RequiredRanks is how many places a voter must fill given their number of targets.
func RequiredRanks(targets int) int {
	return min(BallotSize, targets)
}

// BuildBallot turns an ordered ranking into one outcome per target. The ranking must
// name RequiredRanks(len(targets)) distinct targets; targets left out get no rank and
// zero points.
func BuildBallot(voter uuid.UUID, ranking, targets []uuid.UUID) ([]RankedOutcome, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: nothing to rank", ErrInvalidBallot)
	}
	want := RequiredRanks(len(targets))
	if len(ranking) != want {
		return nil, fmt.Errorf("%w: expected %d ranked submissions, got %d", ErrInvalidBallot, want, len(ranking))
	}

	rankOf := make(map[uuid.UUID]int, len(ranking))
	for i, id := range ranking {
		if !slices.Contains(targets, id) {
			return nil, fmt.Errorf("%w: submission %s is not on this ballot", ErrInvalidBallot, id)
		}
		if _, dup := rankOf[id]; dup {
			return nil, fmt.Errorf("%w: submission %s ranked twice", ErrInvalidBallot, id)
		}
		rankOf[id] = i + 1
	}

	outcomes := make([]RankedOutcome, 0, len(targets))
	for _, id := range targets {
		o := RankedOutcome{VoterID: voter, SubmissionID: id}
		if r, ok := rankOf[id]; ok {
			o.Rank = &r
			o.Points = PointsForRank(r)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// SubmissionTally is the round 1 result of one submission within its group.
// Rank is zero when the group received no votes.
type SubmissionTally struct {
	SubmissionID     uuid.UUID
	TotalPoints      int
	FirstPlaceVotes  int
	SecondPlaceVotes int
	ThirdPlaceVotes  int
	Rank             int
}

// CompareTallies orders tallies best first: points, then first, second and third place
// counts, then submission ID so the order is total.
func CompareTallies(a, b SubmissionTally) int {
	if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
		return c
	}
	if c := cmp.Compare(b.FirstPlaceVotes, a.FirstPlaceVotes); c != 0 {
		return c
	}
	if c := cmp.Compare(b.SecondPlaceVotes, a.SecondPlaceVotes); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ThirdPlaceVotes, a.ThirdPlaceVotes); c != 0 {
		return c
	}
	return cmp.Compare(a.SubmissionID.String(), b.SubmissionID.String())
}

// TallyGroup totals the votes cast for a group's members and ranks them.
// Votes for submissions outside members are ignored.
func TallyGroup(members []uuid.UUID, votes []RankedOutcome) []SubmissionTally {
	byID := make(map[uuid.UUID]*SubmissionTally, len(members))
	tallies := make([]SubmissionTally, len(members))
	for i, id := range members {
		tallies[i].SubmissionID = id
		byID[id] = &tallies[i]
	}

	counted := 0
	for _, v := range votes {
		t, ok := byID[v.SubmissionID]
		if !ok {
			continue
		}
		counted++
		t.TotalPoints += v.Points
		if v.Rank == nil {
			continue
		}
		switch *v.Rank {
		case 1:
			t.FirstPlaceVotes++
		case 2:
			t.SecondPlaceVotes++
		case 3:
			t.ThirdPlaceVotes++
		}
	}

	slices.SortFunc(tallies, CompareTallies)
	if counted == 0 {
		return tallies
	}
	for i := range tallies {
		tallies[i].Rank = i + 1
	}
	return tallies
}

// SelectAdvancing returns the submissions ranked within the top k of a tallied group.
func SelectAdvancing(tallies []SubmissionTally, k int) []uuid.UUID {
	var out []uuid.UUID
	for _, t := range tallies {
		if t.Rank > 0 && t.Rank <= k {
			out = append(out, t.SubmissionID)
		}
	}
	return out
}
