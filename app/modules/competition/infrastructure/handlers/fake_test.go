package competitionhandlers

import (
	"context"
	"sync"
	"time"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
)

// ------------------------
// Fake Competition Service
// ------------------------

type FakeCompetitionService struct {
	mu    sync.Mutex
	trace []string

	OpenSubmissionsFunc          func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	CloseSubmissionsFunc         func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	SetupRound1Func              func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	CloseRound1VotingFunc        func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	TallyRound1Func              func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	SetupRound2Func              func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	CloseRound2VotingFunc        func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	TallyRound2Func              func(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error)
	CreateMonthlyCompetitionFunc func(ctx context.Context, now time.Time) (*competitionservice.CreationResult, error)
	SubmitVotesFunc              func(ctx context.Context, req competitionservice.VoteRequest) (*competitionservice.VoteResult, error)
	SubmitJudgmentFunc           func(ctx context.Context, req competitionservice.JudgmentRequest) (*competitionservice.JudgmentResult, error)
	ConvertJudgmentsFunc         func(ctx context.Context, competitionID, judgeID uuid.UUID, round int) (*competitionservice.ConversionResult, error)
	RecordSongCreatorPicksFunc   func(ctx context.Context, req competitionservice.PicksRequest) (*competitionservice.PicksResult, error)
	GetCompetitionFunc           func(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error)
	ListCompetitionsByStatusFunc func(ctx context.Context, status string, page, pageSize int) ([]*competitiondb.Competition, error)
	UpdateCompetitionStatusFunc  func(ctx context.Context, competitionID uuid.UUID, status string) (*competitionservice.StatusUpdateResult, error)
}

func NewFakeCompetitionService() *FakeCompetitionService {
	return &FakeCompetitionService{trace: []string{}}
}

func (f *FakeCompetitionService) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeCompetitionService) OpenSubmissions(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("OpenSubmissions")
	if f.OpenSubmissionsFunc != nil {
		return f.OpenSubmissionsFunc(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) CloseSubmissions(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("CloseSubmissions")
	if f.CloseSubmissionsFunc != nil {
		return f.CloseSubmissionsFunc(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) SetupRound1(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("SetupRound1")
	if f.SetupRound1Func != nil {
		return f.SetupRound1Func(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) CloseRound1Voting(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("CloseRound1Voting")
	if f.CloseRound1VotingFunc != nil {
		return f.CloseRound1VotingFunc(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) TallyRound1(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("TallyRound1")
	if f.TallyRound1Func != nil {
		return f.TallyRound1Func(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) SetupRound2(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("SetupRound2")
	if f.SetupRound2Func != nil {
		return f.SetupRound2Func(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) CloseRound2Voting(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("CloseRound2Voting")
	if f.CloseRound2VotingFunc != nil {
		return f.CloseRound2VotingFunc(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) TallyRound2(ctx context.Context, competitionID uuid.UUID) (*competitionservice.TransitionResult, error) {
	f.record("TallyRound2")
	if f.TallyRound2Func != nil {
		return f.TallyRound2Func(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) CreateMonthlyCompetition(ctx context.Context, now time.Time) (*competitionservice.CreationResult, error) {
	f.record("CreateMonthlyCompetition")
	if f.CreateMonthlyCompetitionFunc != nil {
		return f.CreateMonthlyCompetitionFunc(ctx, now)
	}
	return nil, nil
}

func (f *FakeCompetitionService) SubmitVotes(ctx context.Context, req competitionservice.VoteRequest) (*competitionservice.VoteResult, error) {
	f.record("SubmitVotes")
	if f.SubmitVotesFunc != nil {
		return f.SubmitVotesFunc(ctx, req)
	}
	return nil, nil
}

func (f *FakeCompetitionService) SubmitJudgment(ctx context.Context, req competitionservice.JudgmentRequest) (*competitionservice.JudgmentResult, error) {
	f.record("SubmitJudgment")
	if f.SubmitJudgmentFunc != nil {
		return f.SubmitJudgmentFunc(ctx, req)
	}
	return nil, nil
}

func (f *FakeCompetitionService) ConvertJudgments(ctx context.Context, competitionID, judgeID uuid.UUID, round int) (*competitionservice.ConversionResult, error) {
	f.record("ConvertJudgments")
	if f.ConvertJudgmentsFunc != nil {
		return f.ConvertJudgmentsFunc(ctx, competitionID, judgeID, round)
	}
	return nil, nil
}

func (f *FakeCompetitionService) RecordSongCreatorPicks(ctx context.Context, req competitionservice.PicksRequest) (*competitionservice.PicksResult, error) {
	f.record("RecordSongCreatorPicks")
	if f.RecordSongCreatorPicksFunc != nil {
		return f.RecordSongCreatorPicksFunc(ctx, req)
	}
	return nil, nil
}

func (f *FakeCompetitionService) GetCompetition(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error) {
	f.record("GetCompetition")
	if f.GetCompetitionFunc != nil {
		return f.GetCompetitionFunc(ctx, competitionID)
	}
	return nil, nil
}

func (f *FakeCompetitionService) ListCompetitionsByStatus(ctx context.Context, status string, page, pageSize int) ([]*competitiondb.Competition, error) {
	f.record("ListCompetitionsByStatus")
	if f.ListCompetitionsByStatusFunc != nil {
		return f.ListCompetitionsByStatusFunc(ctx, status, page, pageSize)
	}
	return nil, nil
}

func (f *FakeCompetitionService) UpdateCompetitionStatus(ctx context.Context, competitionID uuid.UUID, status string) (*competitionservice.StatusUpdateResult, error) {
	f.record("UpdateCompetitionStatus")
	if f.UpdateCompetitionStatusFunc != nil {
		return f.UpdateCompetitionStatusFunc(ctx, competitionID, status)
	}
	return nil, nil
}

// --- Accessors for assertions ---

func (f *FakeCompetitionService) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ competitionservice.Service = (*FakeCompetitionService)(nil)
