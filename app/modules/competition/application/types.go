package competitionservice

import (
	"time"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
)

// TransitionResult describes where a lifecycle operation left a competition.
type TransitionResult struct {
	CompetitionID uuid.UUID                `json:"competition_id"`
	From          competitiondomain.Status `json:"from"`
	To            competitiondomain.Status `json:"to"`

	Groups       int         `json:"groups,omitempty"`
	Voters       int         `json:"voters,omitempty"`
	Disqualified []uuid.UUID `json:"disqualified,omitempty"`
	Advanced     []uuid.UUID `json:"advanced,omitempty"`
	Winner       *uuid.UUID  `json:"winner_submission_id,omitempty"`
	Tied         []uuid.UUID `json:"tied_submission_ids,omitempty"`
}

// VoteRequest is a voter's ordered ranking for one round. Ranking[0] is first place.
type VoteRequest struct {
	CompetitionID uuid.UUID   `json:"competition_id"`
	VoterID       uuid.UUID   `json:"voter_id"`
	Round         int         `json:"round"`
	Ranking       []uuid.UUID `json:"ranking"`
}

// VoteResult reports the votes recorded for a ballot.
type VoteResult struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	VoterID       uuid.UUID `json:"voter_id"`
	Round         int       `json:"round"`
	Votes         int       `json:"votes"`
}

// JudgmentRequest is a judge's rubric evaluation of one submission.
// Either Criteria or OverallScore must be set; criteria win when both are.
type JudgmentRequest struct {
	CompetitionID uuid.UUID                          `json:"competition_id"`
	SubmissionID  uuid.UUID                          `json:"submission_id"`
	JudgeID       uuid.UUID                          `json:"judge_id"`
	Round         int                                `json:"round"`
	OverallScore  *float64                           `json:"overall_score,omitempty"`
	Criteria      []competitiondomain.CriterionScore `json:"criteria,omitempty"`
	Feedback      string                             `json:"feedback,omitempty"`
	Complete      bool                               `json:"complete"`
}

// JudgmentResult reports a saved judgment and, when it completed the judge's set,
// the resulting conversion.
type JudgmentResult struct {
	JudgmentID   uuid.UUID         `json:"judgment_id"`
	OverallScore float64           `json:"overall_score"`
	Completed    bool              `json:"completed"`
	Conversion   *ConversionResult `json:"conversion,omitempty"`
}

// ConversionStatus is the outcome of converting a judge's judgments into votes.
type ConversionStatus string

const (
	ConversionConverted       ConversionStatus = "converted"
	ConversionPending         ConversionStatus = "pending"
	ConversionAlreadyComplete ConversionStatus = "already_complete"
)

// ConversionResult reports a conversion attempt.
type ConversionResult struct {
	CompetitionID uuid.UUID        `json:"competition_id"`
	JudgeID       uuid.UUID        `json:"judge_id"`
	Round         int              `json:"round"`
	Status        ConversionStatus `json:"status"`
	Votes         int              `json:"votes,omitempty"`
	Remaining     int              `json:"remaining,omitempty"`
}

// Pick is one ranked choice of the song creator.
type Pick struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Rank         int       `json:"rank"`
}

// PicksRequest records the song creator's ranking of the finalists.
// Admins may record picks on the creator's behalf.
type PicksRequest struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	PickedBy      uuid.UUID `json:"picked_by"`
	Admin         bool      `json:"-"`
	Picks         []Pick    `json:"picks"`
}

// PicksResult reports saved picks and whether they settled a tied final.
type PicksResult struct {
	CompetitionID uuid.UUID  `json:"competition_id"`
	Saved         int        `json:"saved"`
	Resolved      bool       `json:"resolved"`
	Winner        *uuid.UUID `json:"winner_submission_id,omitempty"`
}

// StatusUpdateResult reports a manual status override.
type StatusUpdateResult struct {
	CompetitionID uuid.UUID                `json:"competition_id"`
	OldStatus     competitiondomain.Status `json:"old_status"`
	NewStatus     competitiondomain.Status `json:"new_status"`
	Success       bool                     `json:"success"`
	Message       string                   `json:"message,omitempty"`
}

// CreationResult reports a monthly auto-creation attempt.
type CreationResult struct {
	Competition *competitiondb.Competition `json:"competition"`
	Created     bool                       `json:"created"`
}

// Options are the competition rules the service applies.
type Options struct {
	MinSubmissions  int
	GroupSize       int
	AdvancePerGroup int
	Round1Voting    time.Duration
	Round2Voting    time.Duration
	// MonthlySubmissionWindow is a natural-language offset such as "in 3 weeks",
	// parsed relative to the first day of the month.
	MonthlySubmissionWindow string
}

// DefaultOptions returns the rules used when none are configured.
func DefaultOptions() Options {
	return Options{
		MinSubmissions:          3,
		GroupSize:               5,
		AdvancePerGroup:         1,
		Round1Voting:            7 * 24 * time.Hour,
		Round2Voting:            7 * 24 * time.Hour,
		MonthlySubmissionWindow: "in 3 weeks",
	}
}
