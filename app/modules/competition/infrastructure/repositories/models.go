package competitiondb

import (
	"time"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Voting rounds.
const (
	Round1 = 1
	Round2 = 2
)

// VoteSource records which input path produced a vote.
type VoteSource string

const (
	VoteSourceDirect   VoteSource = "direct"
	VoteSourceJudgment VoteSource = "judgment"
)

// Competition is a single monthly (or ad hoc) competition.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:c"`

	ID                  uuid.UUID                `bun:"id,pk,type:uuid"`
	Title               string                   `bun:"title,notnull"`
	Description         string                   `bun:"description,nullzero"`
	Status              competitiondomain.Status `bun:"status,notnull"`
	StartDate           time.Time                `bun:"start_date,notnull"`
	SubmissionDeadline  time.Time                `bun:"submission_deadline,notnull"`
	Round1VotingEndDate time.Time                `bun:"round1_voting_end_date,nullzero"`
	Round2VotingEndDate time.Time                `bun:"round2_voting_end_date,nullzero"`
	CompletedDate       *time.Time               `bun:"completed_date"`
	WinnerSubmissionID  *uuid.UUID               `bun:"winner_submission_id,type:uuid"`
	SongCreatorID       *uuid.UUID               `bun:"song_creator_id,type:uuid"`
	IsAutoCreated       bool                     `bun:"is_auto_created,notnull,default:false"`
	CreatedAt           time.Time                `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time                `bun:",nullzero,notnull,default:current_timestamp"`
}

// Submission is one user's entry in a competition.
type Submission struct {
	bun.BaseModel `bun:"table:competition_submissions,alias:s"`

	ID                        uuid.UUID `bun:"id,pk,type:uuid"`
	CompetitionID             uuid.UUID `bun:"competition_id,notnull,type:uuid,unique:competition_submissions_competition_user"`
	UserID                    uuid.UUID `bun:"user_id,notnull,type:uuid,unique:competition_submissions_competition_user"`
	Title                     string    `bun:"title,notnull"`
	AudioURL                  string    `bun:"audio_url,notnull"`
	SubmittedAt               time.Time `bun:"submitted_at,notnull"`
	IsEligibleForRound1Voting bool      `bun:"is_eligible_for_round1_voting,notnull,default:true"`
	IsEligibleForRound2Voting bool      `bun:"is_eligible_for_round2_voting,notnull,default:false"`
	AdvancedToRound2          bool      `bun:"advanced_to_round2,notnull,default:false"`
	IsDisqualified            bool      `bun:"is_disqualified,notnull,default:false"`
	DisqualificationReason    string    `bun:"disqualification_reason,nullzero"`
	IsWinner                  bool      `bun:"is_winner,notnull,default:false"`
	Round1Score               *int      `bun:"round1_score"`
	Round2Score               *int      `bun:"round2_score"`
	FinalScore                *int      `bun:"final_score"`
	FinalRank                 *int      `bun:"final_rank"`
	CreatedAt                 time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt                 time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// SubmissionGroup places a submission in a round 1 voting group and stores its tally.
type SubmissionGroup struct {
	bun.BaseModel `bun:"table:submission_groups,alias:sg"`

	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	CompetitionID    uuid.UUID `bun:"competition_id,notnull,type:uuid,unique:submission_groups_competition_submission"`
	SubmissionID     uuid.UUID `bun:"submission_id,notnull,type:uuid,unique:submission_groups_competition_submission"`
	GroupNumber      int       `bun:"group_number,notnull"`
	TotalPoints      int       `bun:"total_points,notnull,default:0"`
	FirstPlaceVotes  int       `bun:"first_place_votes,notnull,default:0"`
	SecondPlaceVotes int       `bun:"second_place_votes,notnull,default:0"`
	ThirdPlaceVotes  int       `bun:"third_place_votes,notnull,default:0"`
	RankInGroup      *int      `bun:"rank_in_group"`
	CreatedAt        time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// Round1Assignment tells a voter which group to judge.
type Round1Assignment struct {
	bun.BaseModel `bun:"table:round1_assignments,alias:ra"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid"`
	CompetitionID       uuid.UUID  `bun:"competition_id,notnull,type:uuid,unique:round1_assignments_competition_voter"`
	VoterID             uuid.UUID  `bun:"voter_id,notnull,type:uuid,unique:round1_assignments_competition_voter"`
	SubmissionID        uuid.UUID  `bun:"submission_id,notnull,type:uuid"`
	VoterGroupNumber    int        `bun:"voter_group_number,notnull"`
	AssignedGroupNumber int        `bun:"assigned_group_number,notnull"`
	HasVoted            bool       `bun:"has_voted,notnull,default:false"`
	VotingCompletedDate *time.Time `bun:"voting_completed_date"`
	CreatedAt           time.Time  `bun:",nullzero,notnull,default:current_timestamp"`
}

// SubmissionVote is one voter's verdict on one submission in one round.
type SubmissionVote struct {
	bun.BaseModel `bun:"table:submission_votes,alias:sv"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	CompetitionID uuid.UUID  `bun:"competition_id,notnull,type:uuid"`
	VoterID       uuid.UUID  `bun:"voter_id,notnull,type:uuid,unique:submission_votes_voter_submission_round"`
	SubmissionID  uuid.UUID  `bun:"submission_id,notnull,type:uuid,unique:submission_votes_voter_submission_round"`
	Round         int        `bun:"round,notnull,unique:submission_votes_voter_submission_round"`
	Rank          *int       `bun:"rank"`
	Points        int        `bun:"points,notnull,default:0"`
	Source        VoteSource `bun:"source,notnull"`
	CreatedAt     time.Time  `bun:",nullzero,notnull,default:current_timestamp"`
}

// SubmissionJudgment is a judge's rubric evaluation of a submission.
type SubmissionJudgment struct {
	bun.BaseModel `bun:"table:submission_judgments,alias:sj"`

	ID             uuid.UUID        `bun:"id,pk,type:uuid"`
	CompetitionID  uuid.UUID        `bun:"competition_id,notnull,type:uuid"`
	SubmissionID   uuid.UUID        `bun:"submission_id,notnull,type:uuid,unique:submission_judgments_submission_judge_round"`
	JudgeID        uuid.UUID        `bun:"judge_id,notnull,type:uuid,unique:submission_judgments_submission_judge_round"`
	Round          int              `bun:"round,notnull,unique:submission_judgments_submission_judge_round"`
	OverallScore   float64          `bun:"overall_score,notnull"`
	Feedback       string           `bun:"feedback,nullzero"`
	IsCompleted    bool             `bun:"is_completed,notnull,default:false"`
	CompletedAt    *time.Time       `bun:"completed_at"`
	CriteriaScores []*CriteriaScore `bun:"rel:has-many,join:id=judgment_id"`
	CreatedAt      time.Time        `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time        `bun:",nullzero,notnull,default:current_timestamp"`
}

// CriteriaScore is one rubric line of a judgment.
type CriteriaScore struct {
	bun.BaseModel `bun:"table:criteria_scores,alias:cs"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	JudgmentID uuid.UUID `bun:"judgment_id,notnull,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Score      float64   `bun:"score,notnull"`
	Weight     float64   `bun:"weight,notnull,default:1"`
}

// SongCreatorPick is the content owner's ranking of a finalist.
type SongCreatorPick struct {
	bun.BaseModel `bun:"table:song_creator_picks,alias:scp"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	CompetitionID uuid.UUID `bun:"competition_id,notnull,type:uuid,unique:song_creator_picks_competition_rank"`
	SubmissionID  uuid.UUID `bun:"submission_id,notnull,type:uuid"`
	Rank          int       `bun:"rank,notnull,unique:song_creator_picks_competition_rank"`
	PickedBy      uuid.UUID `bun:"picked_by,notnull,type:uuid"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// Outcome converts a stored vote into the form tallying reads.
func (v *SubmissionVote) Outcome() competitiondomain.RankedOutcome {
	return competitiondomain.RankedOutcome{
		VoterID:      v.VoterID,
		SubmissionID: v.SubmissionID,
		Rank:         v.Rank,
		Points:       v.Points,
	}
}

// VoteFromOutcome builds a vote row from a ranked outcome.
func VoteFromOutcome(competitionID uuid.UUID, round int, source VoteSource, o competitiondomain.RankedOutcome) *SubmissionVote {
	return &SubmissionVote{
		ID:            uuid.New(),
		CompetitionID: competitionID,
		VoterID:       o.VoterID,
		SubmissionID:  o.SubmissionID,
		Round:         round,
		Rank:          o.Rank,
		Points:        o.Points,
		Source:        source,
	}
}
