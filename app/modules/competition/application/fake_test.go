package competitionservice

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Competition Repo
// ------------------------

// FakeCompetitionRepo keeps rows in memory. Any *Func field overrides the matching
// method for error injection.
type FakeCompetitionRepo struct {
	mu    sync.Mutex
	trace []string

	competitions map[uuid.UUID]*competitiondb.Competition
	submissions  map[uuid.UUID]*competitiondb.Submission
	groups       []*competitiondb.SubmissionGroup
	assignments  []*competitiondb.Round1Assignment
	votes        []*competitiondb.SubmissionVote
	judgments    []*competitiondb.SubmissionJudgment
	picks        map[uuid.UUID][]*competitiondb.SongCreatorPick

	LockCompetitionFunc         func(ctx context.Context, db bun.IDB, id uuid.UUID) (*competitiondb.Competition, error)
	UpdateCompetitionStatusFunc func(ctx context.Context, db bun.IDB, id uuid.UUID, from, to competitiondomain.Status) error
	CreateVotesFunc             func(ctx context.Context, db bun.IDB, votes []*competitiondb.SubmissionVote) error
	GetSubmissionGroupsFunc     func(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.SubmissionGroup, error)
	GetJudgmentFunc             func(ctx context.Context, db bun.IDB, submissionID, judgeID uuid.UUID, round int) (*competitiondb.SubmissionJudgment, error)
}

func NewFakeCompetitionRepo() *FakeCompetitionRepo {
	return &FakeCompetitionRepo{
		trace:        []string{},
		competitions: map[uuid.UUID]*competitiondb.Competition{},
		submissions:  map[uuid.UUID]*competitiondb.Submission{},
		picks:        map[uuid.UUID][]*competitiondb.SongCreatorPick{},
	}
}

func (f *FakeCompetitionRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func sortSubmissions(subs []*competitiondb.Submission) {
	slices.SortFunc(subs, func(a, b *competitiondb.Submission) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func clone[T any](v *T) *T {
	out := *v
	return &out
}

// --- Competitions ---

func (f *FakeCompetitionRepo) CreateCompetition(ctx context.Context, db bun.IDB, c *competitiondb.Competition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCompetition")
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.competitions[c.ID] = clone(c)
	return nil
}

func (f *FakeCompetitionRepo) GetCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*competitiondb.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCompetition")
	c, ok := f.competitions[id]
	if !ok {
		return nil, competitiondb.ErrNotFound
	}
	return clone(c), nil
}

func (f *FakeCompetitionRepo) LockCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*competitiondb.Competition, error) {
	if f.LockCompetitionFunc != nil {
		return f.LockCompetitionFunc(ctx, db, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LockCompetition")
	c, ok := f.competitions[id]
	if !ok {
		return nil, competitiondb.ErrNotFound
	}
	return clone(c), nil
}

func (f *FakeCompetitionRepo) GetCompetitionsByStatus(ctx context.Context, db bun.IDB, status competitiondomain.Status, page, pageSize int) ([]*competitiondb.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCompetitionsByStatus")
	var all []*competitiondb.Competition
	for _, c := range f.competitions {
		if c.Status == status {
			all = append(all, clone(c))
		}
	}
	slices.SortFunc(all, func(a, b *competitiondb.Competition) int {
		return a.StartDate.Compare(b.StartDate)
	})
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	return all[start:min(start+pageSize, len(all))], nil
}

func (f *FakeCompetitionRepo) GetCompetitionsStartingBetween(ctx context.Context, db bun.IDB, from, to time.Time) ([]*competitiondb.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCompetitionsStartingBetween")
	var out []*competitiondb.Competition
	for _, c := range f.competitions {
		if !c.StartDate.Before(from) && c.StartDate.Before(to) {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (f *FakeCompetitionRepo) UpdateCompetition(ctx context.Context, db bun.IDB, c *competitiondb.Competition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateCompetition")
	cur, ok := f.competitions[c.ID]
	if !ok {
		return competitiondb.ErrNoRowsAffected
	}
	next := clone(c)
	next.Status = cur.Status
	f.competitions[c.ID] = next
	return nil
}

func (f *FakeCompetitionRepo) UpdateCompetitionStatus(ctx context.Context, db bun.IDB, id uuid.UUID, from, to competitiondomain.Status) error {
	if f.UpdateCompetitionStatusFunc != nil {
		return f.UpdateCompetitionStatusFunc(ctx, db, id, from, to)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateCompetitionStatus:" + string(to))
	c, ok := f.competitions[id]
	if !ok {
		return competitiondb.ErrNotFound
	}
	if c.Status != from {
		return competitiondb.ErrStatusMismatch
	}
	c.Status = to
	return nil
}

// --- Submissions ---

func (f *FakeCompetitionRepo) CreateSubmission(ctx context.Context, db bun.IDB, s *competitiondb.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSubmission")
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.submissions[s.ID] = clone(s)
	return nil
}

func (f *FakeCompetitionRepo) GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*competitiondb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSubmission")
	s, ok := f.submissions[id]
	if !ok {
		return nil, competitiondb.ErrNotFound
	}
	return clone(s), nil
}

func (f *FakeCompetitionRepo) listSubmissions(competitionID uuid.UUID, keep func(*competitiondb.Submission) bool) []*competitiondb.Submission {
	var out []*competitiondb.Submission
	for _, s := range f.submissions {
		if s.CompetitionID == competitionID && (keep == nil || keep(s)) {
			out = append(out, clone(s))
		}
	}
	sortSubmissions(out)
	return out
}

func (f *FakeCompetitionRepo) GetSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSubmissions")
	return f.listSubmissions(competitionID, nil), nil
}

func (f *FakeCompetitionRepo) GetEligibleRound1Submissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetEligibleRound1Submissions")
	return f.listSubmissions(competitionID, func(s *competitiondb.Submission) bool {
		return s.IsEligibleForRound1Voting && !s.IsDisqualified
	}), nil
}

func (f *FakeCompetitionRepo) GetAdvancedSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetAdvancedSubmissions")
	return f.listSubmissions(competitionID, func(s *competitiondb.Submission) bool {
		return s.AdvancedToRound2 && !s.IsDisqualified
	}), nil
}

func (f *FakeCompetitionRepo) GetSubmissionCount(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSubmissionCount")
	return len(f.listSubmissions(competitionID, nil)), nil
}

func (f *FakeCompetitionRepo) GetSubmissionByUser(ctx context.Context, db bun.IDB, competitionID, userID uuid.UUID) (*competitiondb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSubmissionByUser")
	for _, s := range f.submissions {
		if s.CompetitionID == competitionID && s.UserID == userID {
			return clone(s), nil
		}
	}
	return nil, competitiondb.ErrNotFound
}

func (f *FakeCompetitionRepo) UpdateSubmission(ctx context.Context, db bun.IDB, s *competitiondb.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateSubmission")
	if _, ok := f.submissions[s.ID]; !ok {
		return competitiondb.ErrNoRowsAffected
	}
	f.submissions[s.ID] = clone(s)
	return nil
}

// --- Groups and assignments ---

func (f *FakeCompetitionRepo) HasGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HasGroups")
	for _, g := range f.groups {
		if g.CompetitionID == competitionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeCompetitionRepo) CreateSubmissionGroups(ctx context.Context, db bun.IDB, groups []*competitiondb.SubmissionGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSubmissionGroups")
	for _, g := range groups {
		f.groups = append(f.groups, clone(g))
	}
	return nil
}

func (f *FakeCompetitionRepo) GetSubmissionGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.SubmissionGroup, error) {
	if f.GetSubmissionGroupsFunc != nil {
		return f.GetSubmissionGroupsFunc(ctx, db, competitionID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSubmissionGroups")
	var out []*competitiondb.SubmissionGroup
	for _, g := range f.groups {
		if g.CompetitionID == competitionID {
			out = append(out, clone(g))
		}
	}
	return out, nil
}

func (f *FakeCompetitionRepo) UpdateSubmissionGroup(ctx context.Context, db bun.IDB, g *competitiondb.SubmissionGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateSubmissionGroup")
	for i, cur := range f.groups {
		if cur.ID == g.ID {
			f.groups[i] = clone(g)
			return nil
		}
	}
	return competitiondb.ErrNoRowsAffected
}

func (f *FakeCompetitionRepo) CreateRound1Assignments(ctx context.Context, db bun.IDB, assignments []*competitiondb.Round1Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateRound1Assignments")
	for _, a := range assignments {
		f.assignments = append(f.assignments, clone(a))
	}
	return nil
}

func (f *FakeCompetitionRepo) GetRound1Assignment(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID) (*competitiondb.Round1Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRound1Assignment")
	for _, a := range f.assignments {
		if a.CompetitionID == competitionID && a.VoterID == voterID {
			return clone(a), nil
		}
	}
	return nil, competitiondb.ErrNotFound
}

func (f *FakeCompetitionRepo) GetRound1Assignments(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.Round1Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRound1Assignments")
	var out []*competitiondb.Round1Assignment
	for _, a := range f.assignments {
		if a.CompetitionID == competitionID {
			out = append(out, clone(a))
		}
	}
	return out, nil
}

func (f *FakeCompetitionRepo) MarkAssignmentVoted(ctx context.Context, db bun.IDB, assignmentID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MarkAssignmentVoted")
	for _, a := range f.assignments {
		if a.ID == assignmentID && !a.HasVoted {
			a.HasVoted = true
			a.VotingCompletedDate = &at
			return nil
		}
	}
	return competitiondb.ErrNoRowsAffected
}

// --- Votes ---

func (f *FakeCompetitionRepo) CreateVotes(ctx context.Context, db bun.IDB, votes []*competitiondb.SubmissionVote) error {
	if f.CreateVotesFunc != nil {
		return f.CreateVotesFunc(ctx, db, votes)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateVotes")
	for _, v := range votes {
		f.votes = append(f.votes, clone(v))
	}
	return nil
}

func (f *FakeCompetitionRepo) HasVotes(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID, round int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HasVotes")
	for _, v := range f.votes {
		if v.CompetitionID == competitionID && v.VoterID == voterID && v.Round == round {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeCompetitionRepo) GetVotes(ctx context.Context, db bun.IDB, competitionID uuid.UUID, round int) ([]*competitiondb.SubmissionVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetVotes")
	var out []*competitiondb.SubmissionVote
	for _, v := range f.votes {
		if v.CompetitionID == competitionID && v.Round == round {
			out = append(out, clone(v))
		}
	}
	return out, nil
}

// --- Judgments ---

func (f *FakeCompetitionRepo) GetJudgment(ctx context.Context, db bun.IDB, submissionID, judgeID uuid.UUID, round int) (*competitiondb.SubmissionJudgment, error) {
	if f.GetJudgmentFunc != nil {
		return f.GetJudgmentFunc(ctx, db, submissionID, judgeID, round)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetJudgment")
	for _, j := range f.judgments {
		if j.SubmissionID == submissionID && j.JudgeID == judgeID && j.Round == round {
			return clone(j), nil
		}
	}
	return nil, competitiondb.ErrNotFound
}

func (f *FakeCompetitionRepo) SaveJudgment(ctx context.Context, db bun.IDB, j *competitiondb.SubmissionJudgment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SaveJudgment")
	for i, cur := range f.judgments {
		if cur.SubmissionID == j.SubmissionID && cur.JudgeID == j.JudgeID && cur.Round == j.Round {
			if cur.IsCompleted {
				return competitiondb.ErrJudgmentCompleted
			}
			j.ID = cur.ID
			f.judgments[i] = clone(j)
			return nil
		}
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	f.judgments = append(f.judgments, clone(j))
	return nil
}

func (f *FakeCompetitionRepo) GetCompletedJudgments(ctx context.Context, db bun.IDB, competitionID, judgeID uuid.UUID, round int) ([]*competitiondb.SubmissionJudgment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCompletedJudgments")
	var out []*competitiondb.SubmissionJudgment
	for _, j := range f.judgments {
		if j.CompetitionID == competitionID && j.JudgeID == judgeID && j.Round == round && j.IsCompleted {
			out = append(out, clone(j))
		}
	}
	return out, nil
}

// --- Song creator picks ---

func (f *FakeCompetitionRepo) GetSongCreatorPicks(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*competitiondb.SongCreatorPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSongCreatorPicks")
	return f.picks[competitionID], nil
}

func (f *FakeCompetitionRepo) ReplaceSongCreatorPicks(ctx context.Context, db bun.IDB, competitionID uuid.UUID, picks []*competitiondb.SongCreatorPick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ReplaceSongCreatorPicks")
	f.picks[competitionID] = picks
	return nil
}

// --- Accessors for assertions ---

func (f *FakeCompetitionRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeCompetitionRepo) Competition(id uuid.UUID) *competitiondb.Competition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.competitions[id])
}

func (f *FakeCompetitionRepo) Submission(id uuid.UUID) *competitiondb.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.submissions[id])
}

func (f *FakeCompetitionRepo) Votes(round int) []*competitiondb.SubmissionVote {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*competitiondb.SubmissionVote
	for _, v := range f.votes {
		if v.Round == round {
			out = append(out, clone(v))
		}
	}
	return out
}

// Ensure the fake actually satisfies the interface
var _ competitiondb.Repository = (*FakeCompetitionRepo)(nil)

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{published: map[string][]*message.Message{}}
}

func (p *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *FakePublisher) Close() error { return nil }

func (p *FakePublisher) Count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published[topic])
}

func (p *FakePublisher) Messages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.published[topic]...)
}

var _ message.Publisher = (*FakePublisher)(nil)

// ------------------------
// Fake Clock
// ------------------------

type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
