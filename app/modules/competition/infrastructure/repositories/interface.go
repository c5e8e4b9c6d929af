package competitiondb

import (
	"context"
	"time"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for competition persistence.
// Every method takes the bun.IDB to run against; nil means the repository's own connection.
//
// Error semantics:
//   - ErrNotFound: record does not exist
//   - ErrNoRowsAffected: UPDATE matched no rows
//   - ErrStatusMismatch: compare-and-swap status write lost
//   - Other errors: infrastructure failures
type Repository interface {
	// --- Competitions ---

	CreateCompetition(ctx context.Context, db bun.IDB, c *Competition) error
	GetCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*Competition, error)

	// LockCompetition reads a competition with a row lock. Only meaningful inside a transaction.
	LockCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*Competition, error)

	// GetCompetitionsByStatus pages through competitions in a status. Pages start at 1.
	GetCompetitionsByStatus(ctx context.Context, db bun.IDB, status competitiondomain.Status, page, pageSize int) ([]*Competition, error)
	GetCompetitionsStartingBetween(ctx context.Context, db bun.IDB, from, to time.Time) ([]*Competition, error)

	// UpdateCompetition writes every column except status, which only moves through
	// UpdateCompetitionStatus.
	UpdateCompetition(ctx context.Context, db bun.IDB, c *Competition) error

	// UpdateCompetitionStatus sets status to `to` only if it currently equals `from`.
	UpdateCompetitionStatus(ctx context.Context, db bun.IDB, id uuid.UUID, from, to competitiondomain.Status) error

	// --- Submissions ---

	CreateSubmission(ctx context.Context, db bun.IDB, s *Submission) error
	GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*Submission, error)
	GetSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Submission, error)

	// GetEligibleRound1Submissions returns submissions that are eligible and not disqualified.
	GetEligibleRound1Submissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Submission, error)

	// GetAdvancedSubmissions returns round 2 finalists that are not disqualified.
	GetAdvancedSubmissions(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Submission, error)
	GetSubmissionCount(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (int, error)
	GetSubmissionByUser(ctx context.Context, db bun.IDB, competitionID, userID uuid.UUID) (*Submission, error)
	UpdateSubmission(ctx context.Context, db bun.IDB, s *Submission) error

	// --- Round 1 groups and assignments ---

	HasGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID) (bool, error)
	CreateSubmissionGroups(ctx context.Context, db bun.IDB, groups []*SubmissionGroup) error
	GetSubmissionGroups(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*SubmissionGroup, error)
	UpdateSubmissionGroup(ctx context.Context, db bun.IDB, g *SubmissionGroup) error
	CreateRound1Assignments(ctx context.Context, db bun.IDB, assignments []*Round1Assignment) error
	GetRound1Assignment(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID) (*Round1Assignment, error)
	GetRound1Assignments(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*Round1Assignment, error)

	// MarkAssignmentVoted flips has_voted once. Returns ErrNoRowsAffected if it was already set.
	MarkAssignmentVoted(ctx context.Context, db bun.IDB, assignmentID uuid.UUID, at time.Time) error

	// --- Votes ---

	CreateVotes(ctx context.Context, db bun.IDB, votes []*SubmissionVote) error
	HasVotes(ctx context.Context, db bun.IDB, competitionID, voterID uuid.UUID, round int) (bool, error)
	GetVotes(ctx context.Context, db bun.IDB, competitionID uuid.UUID, round int) ([]*SubmissionVote, error)

	// --- Judgments ---

	GetJudgment(ctx context.Context, db bun.IDB, submissionID, judgeID uuid.UUID, round int) (*SubmissionJudgment, error)

	// SaveJudgment upserts a judgment by (submission, judge, round) and replaces its criteria.
	SaveJudgment(ctx context.Context, db bun.IDB, j *SubmissionJudgment) error
	GetCompletedJudgments(ctx context.Context, db bun.IDB, competitionID, judgeID uuid.UUID, round int) ([]*SubmissionJudgment, error)

	// --- Song creator picks ---

	GetSongCreatorPicks(ctx context.Context, db bun.IDB, competitionID uuid.UUID) ([]*SongCreatorPick, error)
	ReplaceSongCreatorPicks(ctx context.Context, db bun.IDB, competitionID uuid.UUID, picks []*SongCreatorPick) error
}
