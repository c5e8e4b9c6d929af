package competitionservice

import (
	"context"
	"time"

	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
)

// Service is the competition lifecycle API used by the scheduler and HTTP handlers.
type Service interface {
	// --- Lifecycle ---

	OpenSubmissions(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	// CloseSubmissions closes submissions, builds the round 1 groups and opens round 1.
	CloseSubmissions(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	SetupRound1(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	// CloseRound1Voting closes round 1, tallies it and opens round 2.
	CloseRound1Voting(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	TallyRound1(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	SetupRound2(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	// CloseRound2Voting closes round 2 and decides the winner.
	CloseRound2Voting(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	TallyRound2(ctx context.Context, competitionID uuid.UUID) (*TransitionResult, error)
	CreateMonthlyCompetition(ctx context.Context, now time.Time) (*CreationResult, error)

	// --- Voting ---

	SubmitVotes(ctx context.Context, req VoteRequest) (*VoteResult, error)
	SubmitJudgment(ctx context.Context, req JudgmentRequest) (*JudgmentResult, error)
	ConvertJudgments(ctx context.Context, competitionID, judgeID uuid.UUID, round int) (*ConversionResult, error)
	RecordSongCreatorPicks(ctx context.Context, req PicksRequest) (*PicksResult, error)

	// --- Administration ---

	GetCompetition(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error)
	ListCompetitionsByStatus(ctx context.Context, status string, page, pageSize int) ([]*competitiondb.Competition, error)
	UpdateCompetitionStatus(ctx context.Context, competitionID uuid.UUID, status string) (*StatusUpdateResult, error)
}

var _ Service = (*CompetitionService)(nil)
