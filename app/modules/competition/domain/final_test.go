package competitiondomain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestDecideRound2_CleanWinner(t *testing.T) {
	advanced := []uuid.UUID{testID(1), testID(2), testID(3), testID(4)}
	votes := []RankedOutcome{
		vote(testID(10), testID(2), 1), vote(testID(10), testID(1), 2), vote(testID(10), testID(3), 3),
		vote(testID(11), testID(2), 1), vote(testID(11), testID(3), 2), vote(testID(11), testID(1), 3),
		vote(testID(12), testID(4), 1), vote(testID(12), testID(2), 2), vote(testID(12), testID(1), 3),
	}

	result := DecideRound2(advanced, votes)
	if result.IsTie() || result.Winner == nil || *result.Winner != testID(2) {
		t.Fatalf("expected submission 2 to win, got %+v", result)
	}

	// 2: 3+3+2 = 8, 1: 2+1+1 = 4, 3: 1+2 = 3, 4: 3.
	want := []FinalStanding{
		{SubmissionID: testID(2), Score: 8, Rank: 1},
		{SubmissionID: testID(1), Score: 4, Rank: 2},
		{SubmissionID: testID(3), Score: 3, Rank: 3},
		{SubmissionID: testID(4), Score: 3, Rank: 3},
	}
	if diff := cmp.Diff(want, result.Standings); diff != "" {
		t.Fatalf("standings mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideRound2_TieRoutesToManual(t *testing.T) {
	advanced := []uuid.UUID{testID(1), testID(2), testID(3)}
	votes := []RankedOutcome{
		vote(testID(10), testID(1), 1), vote(testID(10), testID(2), 2), vote(testID(10), testID(3), 3),
		vote(testID(11), testID(2), 1), vote(testID(11), testID(1), 2), vote(testID(11), testID(3), 3),
	}

	result := DecideRound2(advanced, votes)
	if !result.IsTie() {
		t.Fatalf("expected tie, got %+v", result)
	}
	if result.Winner != nil {
		t.Fatalf("no winner may be set on a tie")
	}
	if diff := cmp.Diff([]uuid.UUID{testID(1), testID(2)}, result.Tied); diff != "" {
		t.Fatalf("tied mismatch:\n%s", diff)
	}
	if result.Standings[0].Rank != 1 || result.Standings[1].Rank != 1 || result.Standings[2].Rank != 3 {
		t.Fatalf("unexpected ranks %+v", result.Standings)
	}
}

func TestDecideRound2_NoVotesIsTie(t *testing.T) {
	result := DecideRound2([]uuid.UUID{testID(1), testID(2)}, nil)
	if !result.IsTie() {
		t.Fatalf("an unvoted final with two entries is a tie")
	}

	single := DecideRound2([]uuid.UUID{testID(1)}, nil)
	if single.Winner == nil || *single.Winner != testID(1) {
		t.Fatalf("a lone finalist wins")
	}

	if empty := DecideRound2(nil, nil); empty.Winner != nil || empty.IsTie() {
		t.Fatalf("empty final must have no outcome")
	}
}

func TestResolveTie(t *testing.T) {
	tied := Round2Result{
		Standings: []FinalStanding{
			{SubmissionID: testID(1), Score: 5, Rank: 1},
			{SubmissionID: testID(2), Score: 5, Rank: 1},
			{SubmissionID: testID(3), Score: 2, Rank: 3},
		},
		Tied: []uuid.UUID{testID(1), testID(2)},
	}

	resolved, ok := ResolveTie(tied, map[uuid.UUID]int{testID(2): 1, testID(1): 2})
	if !ok {
		t.Fatal("expected the tie to resolve")
	}
	if *resolved.Winner != testID(2) || resolved.IsTie() {
		t.Fatalf("expected submission 2 to win, got %+v", resolved)
	}
	want := []FinalStanding{
		{SubmissionID: testID(2), Score: 5, Rank: 1},
		{SubmissionID: testID(1), Score: 5, Rank: 2},
		{SubmissionID: testID(3), Score: 2, Rank: 3},
	}
	if diff := cmp.Diff(want, resolved.Standings); diff != "" {
		t.Fatalf("standings mismatch (-want +got):\n%s", diff)
	}

	// Picks that ignore the tied submissions leave the tie open.
	if _, ok := ResolveTie(tied, map[uuid.UUID]int{testID(3): 1}); ok {
		t.Fatal("a pick outside the tie must not resolve it")
	}
}
