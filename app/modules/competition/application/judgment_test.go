package competitionservice

import (
	"context"
	"math"
	"testing"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func score(v float64) *float64 { return &v }

func TestJudgmentFlow_Round2(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.competition(t, competitiondomain.StatusVotingRound2Open)
	finals := h.finalists(t, c, 3)
	judge := uuid.New()

	judgment := func(sub uuid.UUID, overall *float64, criteria []competitiondomain.CriterionScore, complete bool) (*JudgmentResult, error) {
		return h.svc.SubmitJudgment(ctx, JudgmentRequest{
			CompetitionID: c.ID,
			SubmissionID:  sub,
			JudgeID:       judge,
			Round:         2,
			OverallScore:  overall,
			Criteria:      criteria,
			Complete:      complete,
		})
	}

	// A draft can be revised.
	res, err := judgment(finals[0].ID, nil, []competitiondomain.CriterionScore{
		{Name: "mix", Score: 6, Weight: 1},
		{Name: "melody", Score: 8, Weight: 3},
	}, false)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, res.OverallScore, 0.001)
	assert.False(t, res.Completed)
	assert.Nil(t, res.Conversion)

	res, err = judgment(finals[0].ID, score(9), nil, true)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	require.NotNil(t, res.Conversion)
	assert.Equal(t, ConversionPending, res.Conversion.Status)
	assert.Equal(t, 2, res.Conversion.Remaining)

	_, err = judgment(finals[0].ID, score(1), nil, true)
	require.ErrorIs(t, err, ErrJudgmentAlreadyCompleted)

	res, err = judgment(finals[1].ID, score(5), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Conversion.Remaining)
	assert.Empty(t, h.repo.Votes(2), "no votes until every finalist is judged")

	res, err = judgment(finals[2].ID, score(7), nil, true)
	require.NoError(t, err)
	require.NotNil(t, res.Conversion)
	assert.Equal(t, ConversionConverted, res.Conversion.Status)
	assert.Equal(t, 3, res.Conversion.Votes)

	points := map[uuid.UUID]int{}
	for _, v := range h.repo.Votes(2) {
		assert.Equal(t, competitiondb.VoteSourceJudgment, v.Source)
		points[v.SubmissionID] = v.Points
	}
	assert.Equal(t, map[uuid.UUID]int{finals[0].ID: 3, finals[2].ID: 2, finals[1].ID: 1}, points)
	assert.Equal(t, 1, h.pub.Count(competitionevents.JudgmentConvertedV1))

	again, err := h.svc.ConvertJudgments(ctx, c.ID, judge, 2)
	require.NoError(t, err)
	assert.Equal(t, ConversionAlreadyComplete, again.Status)
	assert.Len(t, h.repo.Votes(2), 3)

	_, err = h.svc.SubmitVotes(ctx, VoteRequest{CompetitionID: c.ID, VoterID: judge, Round: 2, Ranking: ids(finals)})
	assert.ErrorIs(t, err, ErrAlreadyVoted, "judgment votes and direct votes share the once-per-round rule")
}

func TestJudgmentFlow_Round1(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.competition(t, competitiondomain.StatusOpenForSubmissions)
	subs := h.submissions(t, c, 9, nil)

	_, err := h.svc.CloseSubmissions(ctx, c.ID)
	require.NoError(t, err)

	judgeSub := subs[0]
	judge := judgeSub.UserID
	targets := h.round1Targets(t, c, judge)
	require.Len(t, targets, 3)

	a, err := h.repo.GetRound1Assignment(ctx, nil, c.ID, judge)
	require.NoError(t, err)
	groups, err := h.repo.GetSubmissionGroups(ctx, nil, c.ID)
	require.NoError(t, err)
	groupOf := map[uuid.UUID]int{}
	for _, g := range groups {
		groupOf[g.SubmissionID] = g.GroupNumber
	}
	for _, id := range targets {
		assert.Equal(t, a.AssignedGroupNumber, groupOf[id], "targets come from the assigned group")
	}

	// Scores descend with target order, so the ranking follows it.
	var res *JudgmentResult
	for i, id := range targets {
		res, err = h.svc.SubmitJudgment(ctx, JudgmentRequest{
			CompetitionID: c.ID,
			SubmissionID:  id,
			JudgeID:       judge,
			Round:         1,
			OverallScore:  score(float64(9 - i)),
			Complete:      true,
		})
		require.NoError(t, err)
	}
	require.NotNil(t, res.Conversion)
	assert.Equal(t, ConversionConverted, res.Conversion.Status)
	assert.Equal(t, 3, res.Conversion.Votes)

	points := map[uuid.UUID]int{}
	for _, v := range h.repo.Votes(1) {
		assert.Equal(t, judge, v.VoterID)
		assert.Equal(t, competitiondb.VoteSourceJudgment, v.Source)
		points[v.SubmissionID] = v.Points
	}
	assert.Equal(t, map[uuid.UUID]int{targets[0]: 3, targets[1]: 2, targets[2]: 1}, points)

	a, err = h.repo.GetRound1Assignment(ctx, nil, c.ID, judge)
	require.NoError(t, err)
	assert.True(t, a.HasVoted)
	assert.NotNil(t, a.VotingCompletedDate)

	_, err = h.svc.SubmitVotes(ctx, VoteRequest{CompetitionID: c.ID, VoterID: judge, Round: 1, Ranking: ballot(targets)})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	for _, s := range subs[1:] {
		_, err := h.svc.SubmitVotes(ctx, VoteRequest{CompetitionID: c.ID, VoterID: s.UserID, Round: 1, Ranking: ballot(h.round1Targets(t, c, s.UserID))})
		require.NoError(t, err)
	}

	h.clock.Advance(7 * day)
	tr, err := h.svc.CloseRound1Voting(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, tr.Disqualified, "a judge whose judgments converted counts as having voted")
	assert.False(t, h.repo.Submission(judgeSub.ID).IsDisqualified)
}

func TestSubmitJudgment_CompletedRowIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.competition(t, competitiondomain.StatusVotingRound2Open)
	finals := h.finalists(t, c, 3)
	judge := uuid.New()

	_, err := h.svc.SubmitJudgment(ctx, JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: judge, Round: 2, OverallScore: score(8), Complete: true})
	require.NoError(t, err)

	// A concurrent writer read the row before it was completed.
	h.repo.GetJudgmentFunc = func(context.Context, bun.IDB, uuid.UUID, uuid.UUID, int) (*competitiondb.SubmissionJudgment, error) {
		return nil, competitiondb.ErrNotFound
	}
	_, err = h.svc.SubmitJudgment(ctx, JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: judge, Round: 2, OverallScore: score(2), Complete: true})
	require.ErrorIs(t, err, ErrJudgmentAlreadyCompleted)
	h.repo.GetJudgmentFunc = nil

	stored, err := h.repo.GetJudgment(ctx, nil, finals[0].ID, judge, 2)
	require.NoError(t, err)
	assert.InDelta(t, 8, stored.OverallScore, 0.001)
}

func TestConvertLogic_AlreadyConvertedSentinel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.competition(t, competitiondomain.StatusVotingRound2Open)
	finals := h.finalists(t, c, 2)
	judge := uuid.New()

	_, err := h.svc.SubmitVotes(ctx, VoteRequest{CompetitionID: c.ID, VoterID: judge, Round: 2, Ranking: ids(finals)})
	require.NoError(t, err)

	_, err = h.svc.convertLogic(ctx, nil, h.repo.Competition(c.ID), judge, 2, &outbox{})
	assert.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestSubmitJudgment_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  competitiondomain.Status
		req     func(c *competitiondb.Competition, finals []*competitiondb.Submission, other *competitiondb.Submission) JudgmentRequest
		wantErr error
	}{
		{
			name:   "own submission",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, finals []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: finals[0].UserID, Round: 2, OverallScore: score(5)}
			},
			wantErr: ErrInvalidJudgment,
		},
		{
			name:   "submission not a finalist",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, _ []*competitiondb.Submission, other *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: other.ID, JudgeID: uuid.New(), Round: 2, OverallScore: score(5)}
			},
			wantErr: ErrInvalidJudgment,
		},
		{
			name:   "no score at all",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, finals []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: uuid.New(), Round: 2}
			},
			wantErr: ErrInvalidJudgment,
		},
		{
			name:   "overall score out of range",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, finals []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: uuid.New(), Round: 2, OverallScore: score(11)}
			},
			wantErr: ErrInvalidJudgment,
		},
		{
			name:   "overall score not a number",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, finals []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: uuid.New(), Round: 2, OverallScore: score(math.NaN()), Complete: true}
			},
			wantErr: ErrInvalidJudgment,
		},
		{
			name:   "criterion out of range",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, finals []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: uuid.New(), Round: 2,
					Criteria: []competitiondomain.CriterionScore{{Name: "mix", Score: -1}}}
			},
			wantErr: competitiondomain.ErrInvalidCriteria,
		},
		{
			name:   "unknown submission",
			status: competitiondomain.StatusVotingRound2Open,
			req: func(c *competitiondb.Competition, _ []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: uuid.New(), JudgeID: uuid.New(), Round: 2, OverallScore: score(5)}
			},
			wantErr: ErrSubmissionNotFound,
		},
		{
			name:   "round closed",
			status: competitiondomain.StatusCompleted,
			req: func(c *competitiondb.Competition, finals []*competitiondb.Submission, _ *competitiondb.Submission) JudgmentRequest {
				return JudgmentRequest{CompetitionID: c.ID, SubmissionID: finals[0].ID, JudgeID: uuid.New(), Round: 2, OverallScore: score(5)}
			},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.competition(t, tt.status)
			finals := h.finalists(t, c, 3)
			other := h.submissions(t, c, 1, nil)[0]

			res, err := h.svc.SubmitJudgment(ctx, tt.req(c, finals, other))
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsDomainError(err))
			assert.Nil(t, res)
		})
	}
}
