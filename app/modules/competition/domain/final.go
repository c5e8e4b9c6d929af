package competitiondomain

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// FinalStanding is an advanced submission's round 2 result.
type FinalStanding struct {
	SubmissionID uuid.UUID
	Score        int
	Rank         int
}

// Round2Result is the outcome of the final vote. Winner is nil when the top score is
// shared; Tied then lists the submissions sharing it.
type Round2Result struct {
	Standings []FinalStanding
	Winner    *uuid.UUID
	Tied      []uuid.UUID
}

// IsTie reports whether the final vote needs a manual decision.
func (r Round2Result) IsTie() bool {
	return r.Winner == nil && len(r.Tied) > 1
}

// DecideRound2 totals round 2 votes over the advanced submissions as one pool.
// Ranks use standard competition ranking (1, 1, 3).
func DecideRound2(advanced []uuid.UUID, votes []RankedOutcome) Round2Result {
	if len(advanced) == 0 {
		return Round2Result{}
	}
	scores := make(map[uuid.UUID]int, len(advanced))
	for _, id := range advanced {
		scores[id] = 0
	}
	for _, v := range votes {
		if _, ok := scores[v.SubmissionID]; ok {
			scores[v.SubmissionID] += v.Points
		}
	}

	standings := make([]FinalStanding, 0, len(advanced))
	for _, id := range advanced {
		standings = append(standings, FinalStanding{SubmissionID: id, Score: scores[id]})
	}
	slices.SortFunc(standings, func(a, b FinalStanding) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.SubmissionID.String(), b.SubmissionID.String())
	})
	assignRanks(standings, func(a, b FinalStanding) bool { return a.Score == b.Score })

	var top []uuid.UUID
	for _, s := range standings {
		if s.Rank == 1 {
			top = append(top, s.SubmissionID)
		}
	}

	result := Round2Result{Standings: standings}
	if len(top) == 1 {
		result.Winner = &top[0]
		return result
	}
	result.Tied = top
	return result
}

// ResolveTie settles a tied final vote from the content owner's picks (submission ID to
// pick rank). The winner is the tied submission with the best pick; nil means no tied
// submission was picked. Remaining standings are ordered by score, then pick, then ID.
func ResolveTie(result Round2Result, picks map[uuid.UUID]int) (Round2Result, bool) {
	if !result.IsTie() {
		return result, result.Winner != nil
	}

	var winner *uuid.UUID
	best := 0
	for _, id := range result.Tied {
		r, ok := picks[id]
		if !ok {
			continue
		}
		if winner == nil || r < best || (r == best && id.String() < winner.String()) {
			w := id
			winner, best = &w, r
		}
	}
	if winner == nil {
		return result, false
	}

	pickOf := func(id uuid.UUID) int {
		if r, ok := picks[id]; ok {
			return r
		}
		return BallotSize + 1
	}
	standings := slices.Clone(result.Standings)
	slices.SortFunc(standings, func(a, b FinalStanding) int {
		aw, bw := a.SubmissionID == *winner, b.SubmissionID == *winner
		switch {
		case aw && !bw:
			return -1
		case bw && !aw:
			return 1
		}
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(pickOf(a.SubmissionID), pickOf(b.SubmissionID)); c != 0 {
			return c
		}
		return cmp.Compare(a.SubmissionID.String(), b.SubmissionID.String())
	})
	assignRanks(standings, func(a, b FinalStanding) bool {
		if a.SubmissionID == *winner || b.SubmissionID == *winner {
			return false
		}
		return a.Score == b.Score && pickOf(a.SubmissionID) == pickOf(b.SubmissionID)
	})

	return Round2Result{Standings: standings, Winner: winner}, true
}

// assignRanks gives sorted standings competition ranks; same reports a shared place.
func assignRanks(standings []FinalStanding, same func(a, b FinalStanding) bool) {
	for i := range standings {
		if i > 0 && same(standings[i-1], standings[i]) {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
}
