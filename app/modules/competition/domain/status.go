package competitiondomain

import (
	"fmt"
	"slices"
)

// Status is the lifecycle state of a competition.
type Status string

const (
	StatusUpcoming                      Status = "Upcoming"
	StatusOpenForSubmissions            Status = "OpenForSubmissions"
	StatusVotingRound1Setup             Status = "VotingRound1Setup"
	StatusVotingRound1Open              Status = "VotingRound1Open"
	StatusVotingRound1Tallying          Status = "VotingRound1Tallying"
	StatusVotingRound2Setup             Status = "VotingRound2Setup"
	StatusVotingRound2Open              Status = "VotingRound2Open"
	StatusVotingRound2Tallying          Status = "VotingRound2Tallying"
	StatusCompleted                     Status = "Completed"
	StatusRequiresManualWinnerSelection Status = "RequiresManualWinnerSelection"
)

var allStatuses = []Status{
	StatusUpcoming,
	StatusOpenForSubmissions,
	StatusVotingRound1Setup,
	StatusVotingRound1Open,
	StatusVotingRound1Tallying,
	StatusVotingRound2Setup,
	StatusVotingRound2Open,
	StatusVotingRound2Tallying,
	StatusCompleted,
	StatusRequiresManualWinnerSelection,
}

// AllStatuses returns every defined status in lifecycle order.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus returns the Status named by s, or an error if s is not a defined status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !slices.Contains(allStatuses, st) {
		return "", fmt.Errorf("unknown competition status %q", s)
	}
	return st, nil
}

// IsTerminal reports whether the scheduler never moves a competition out of st.
func (st Status) IsTerminal() bool {
	return st == StatusCompleted || st == StatusRequiresManualWinnerSelection
}

func (st Status) String() string { return string(st) }

// Edge names a legal transition.
type Edge string

const (
	EdgeOpenSubmissions        Edge = "open_submissions"
	EdgeCloseSubmissions       Edge = "close_submissions"
	EdgeOpenRound1             Edge = "open_round1"
	EdgeCloseRound1            Edge = "close_round1"
	EdgeFinishRound1Tally      Edge = "finish_round1_tally"
	EdgeOpenRound2             Edge = "open_round2"
	EdgeCloseRound2            Edge = "close_round2"
	EdgeComplete               Edge = "complete"
	EdgeRequireManualSelection Edge = "require_manual_selection"
	EdgeResolveManualSelection Edge = "resolve_manual_selection"
)

// Transition is one row of the transition table.
type Transition struct {
	Edge Edge
	From Status
	To   Status
	// Manual edges are never taken by the scheduler.
	Manual bool
}

var transitions = []Transition{
	{Edge: EdgeOpenSubmissions, From: StatusUpcoming, To: StatusOpenForSubmissions},
	{Edge: EdgeCloseSubmissions, From: StatusOpenForSubmissions, To: StatusVotingRound1Setup},
	{Edge: EdgeOpenRound1, From: StatusVotingRound1Setup, To: StatusVotingRound1Open},
	{Edge: EdgeCloseRound1, From: StatusVotingRound1Open, To: StatusVotingRound1Tallying},
	{Edge: EdgeFinishRound1Tally, From: StatusVotingRound1Tallying, To: StatusVotingRound2Setup},
	{Edge: EdgeOpenRound2, From: StatusVotingRound2Setup, To: StatusVotingRound2Open},
	{Edge: EdgeCloseRound2, From: StatusVotingRound2Open, To: StatusVotingRound2Tallying},
	{Edge: EdgeComplete, From: StatusVotingRound2Tallying, To: StatusCompleted},
	{Edge: EdgeRequireManualSelection, From: StatusVotingRound2Tallying, To: StatusRequiresManualWinnerSelection},
	{Edge: EdgeResolveManualSelection, From: StatusRequiresManualWinnerSelection, To: StatusCompleted, Manual: true},
}

// Transitions returns the full transition table.
func Transitions() []Transition {
	return slices.Clone(transitions)
}

// TransitionFor looks up an edge.
func TransitionFor(edge Edge) (Transition, bool) {
	for _, t := range transitions {
		if t.Edge == edge {
			return t, true
		}
	}
	return Transition{}, false
}

// CanTransition reports whether the table has an edge from -> to.
func CanTransition(from, to Status) bool {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Exits returns the edges leaving st.
func Exits(st Status) []Transition {
	var out []Transition
	for _, t := range transitions {
		if t.From == st {
			out = append(out, t)
		}
	}
	return out
}

// TransitionError is returned when a competition is not in the status an edge requires.
type TransitionError struct {
	Edge     Edge
	Expected Status
	Actual   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot apply %s: competition is %s, expected %s", e.Edge, e.Actual, e.Expected)
}

// CheckTransition validates that edge may be applied to a competition currently in current.
func CheckTransition(edge Edge, current Status) (Transition, error) {
	t, ok := TransitionFor(edge)
	if !ok {
		return Transition{}, fmt.Errorf("unknown transition %q", edge)
	}
	if current != t.From {
		return t, &TransitionError{Edge: edge, Expected: t.From, Actual: current}
	}
	return t, nil
}
