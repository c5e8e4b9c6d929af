package competitiondomain

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrTooFewSubmissions is returned when a competition cannot be split into voting groups.
var ErrTooFewSubmissions = errors.New("not enough eligible submissions to form voting groups")

// Entry is a submission taking part in round 1 grouping.
type Entry struct {
	SubmissionID uuid.UUID
	UserID       uuid.UUID
	SubmittedAt  time.Time
}

// GroupMember places a submission in a numbered group. Group numbers start at 1.
type GroupMember struct {
	SubmissionID uuid.UUID
	UserID       uuid.UUID
	GroupNumber  int
}

// VoterAssignment tells a submitter which group they judge in round 1.
type VoterAssignment struct {
	VoterID             uuid.UUID
	SubmissionID        uuid.UUID
	VoterGroupNumber    int
	AssignedGroupNumber int
}

// GroupingPlan is the full round 1 layout for a competition.
type GroupingPlan struct {
	GroupCount  int
	Members     []GroupMember
	Assignments []VoterAssignment
}

// GroupSizes splits n submissions into ceil(n/target) groups whose sizes differ by at most one.
// Larger groups come first.
func GroupSizes(n, target int) []int {
	if n <= 0 || target <= 0 {
		return nil
	}
	groups := (n + target - 1) / target
	base, extra := n/groups, n%groups
	sizes := make([]int, groups)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// SeedFromID derives a shuffle seed from a competition ID so a competition always
// gets the same layout.
func SeedFromID(id uuid.UUID) [2]uint64 {
	return [2]uint64{binary.BigEndian.Uint64(id[:8]), binary.BigEndian.Uint64(id[8:])}
}

// PlanGroups partitions entries into balanced groups and assigns every submitter a
// group to judge.
//
// Entries are ordered by submission time (then ID) and shuffled with a PRNG seeded from
// seed, then sliced into groups. With the voters laid out in group order, the voter at
// position i judges the group holding position (i + largest group size) mod n. That
// rotation is a bijection, so every group is judged by exactly as many voters as it has
// members, and for three or more groups no voter lands on their own group. Two groups
// judge each other; a single group judges itself.
func PlanGroups(entries []Entry, targetSize, minSubmissions int, seed [2]uint64) (GroupingPlan, error) {
	if targetSize < 2 {
		return GroupingPlan{}, fmt.Errorf("group size must be at least 2, got %d", targetSize)
	}
	if len(entries) < minSubmissions || len(entries) < 2 {
		return GroupingPlan{}, fmt.Errorf("%w: have %d, need %d", ErrTooFewSubmissions, len(entries), max(minSubmissions, 2))
	}

	ordered := slices.Clone(entries)
	slices.SortFunc(ordered, func(a, b Entry) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.SubmissionID.String(), b.SubmissionID.String())
	})
	rng := rand.New(rand.NewPCG(seed[0], seed[1]))
	rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })

	n := len(ordered)
	sizes := GroupSizes(n, targetSize)
	groupAt := make([]int, n)
	members := make([]GroupMember, 0, n)
	pos := 0
	for g, size := range sizes {
		for range size {
			groupAt[pos] = g + 1
			members = append(members, GroupMember{
				SubmissionID: ordered[pos].SubmissionID,
				UserID:       ordered[pos].UserID,
				GroupNumber:  g + 1,
			})
			pos++
		}
	}

	shift := sizes[0]
	assignments := make([]VoterAssignment, n)
	for i, m := range members {
		var target int
		switch len(sizes) {
		case 1:
			target = 1
		case 2:
			target = 3 - m.GroupNumber
		default:
			target = groupAt[(i+shift)%n]
		}
		assignments[i] = VoterAssignment{
			VoterID:             m.UserID,
			SubmissionID:        m.SubmissionID,
			VoterGroupNumber:    m.GroupNumber,
			AssignedGroupNumber: target,
		}
	}

	return GroupingPlan{
		GroupCount:  len(sizes),
		Members:     members,
		Assignments: assignments,
	}, nil
}

// GroupTargets returns the submissions a voter must rank: the members of the assigned
// group except the voter's own submission.
func GroupTargets(members []GroupMember, assignedGroup int, ownSubmission uuid.UUID) []uuid.UUID {
	var targets []uuid.UUID
	for _, m := range members {
		if m.GroupNumber == assignedGroup && m.SubmissionID != ownSubmission {
			targets = append(targets, m.SubmissionID)
		}
	}
	return targets
}
