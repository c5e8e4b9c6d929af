package competitionevents

import (
	"time"

	"github.com/google/uuid"
)

// Stream settings for the JetStream bus.
const (
	CompetitionStreamName = "competition"
	CompetitionSubjects   = "competition.>"
)

// Competition lifecycle topics.
const (
	CompetitionCreatedV1      = "competition.created.v1"
	StatusChangedV1           = "competition.status.changed.v1"
	Round1OpenedV1            = "competition.round1.opened.v1"
	Round1TalliedV1           = "competition.round1.tallied.v1"
	JudgmentConvertedV1       = "competition.judgment.converted.v1"
	WinnerSelectedV1          = "competition.winner.selected.v1"
	ManualSelectionRequiredV1 = "competition.manual_selection.required.v1"
)

// AllTopics lists every topic the audit consumer subscribes to.
func AllTopics() []string {
	return []string{
		CompetitionCreatedV1,
		StatusChangedV1,
		Round1OpenedV1,
		Round1TalliedV1,
		JudgmentConvertedV1,
		WinnerSelectedV1,
		ManualSelectionRequiredV1,
	}
}

// CompetitionCreatedPayload is published when a competition is created automatically.
type CompetitionCreatedPayload struct {
	CompetitionID      uuid.UUID `json:"competition_id"`
	Title              string    `json:"title"`
	StartDate          time.Time `json:"start_date"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
}

// StatusChangedPayload is published after every committed status write.
type StatusChangedPayload struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Manual        bool      `json:"manual,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

// Round1OpenedPayload describes the voting groups of a competition.
type Round1OpenedPayload struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	Groups        int       `json:"groups"`
	Voters        int       `json:"voters"`
	VotingEndsAt  time.Time `json:"voting_ends_at"`
}

// Round1TalliedPayload summarises the round 1 tally.
type Round1TalliedPayload struct {
	CompetitionID uuid.UUID   `json:"competition_id"`
	Disqualified  []uuid.UUID `json:"disqualified"`
	Advanced      []uuid.UUID `json:"advanced"`
}

// JudgmentConvertedPayload is published when a judge's scores become votes.
type JudgmentConvertedPayload struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	JudgeID       uuid.UUID `json:"judge_id"`
	Round         int       `json:"round"`
	Votes         int       `json:"votes"`
}

// WinnerSelectedPayload is published when a competition completes with a winner.
type WinnerSelectedPayload struct {
	CompetitionID      uuid.UUID `json:"competition_id"`
	WinnerSubmissionID uuid.UUID `json:"winner_submission_id"`
	FinalScore         int       `json:"final_score"`
	ByManualSelection  bool      `json:"by_manual_selection,omitempty"`
}

// ManualSelectionRequiredPayload is published when round 2 ends in a tie.
type ManualSelectionRequiredPayload struct {
	CompetitionID uuid.UUID   `json:"competition_id"`
	TiedIDs       []uuid.UUID `json:"tied_submission_ids"`
	TopScore      int         `json:"top_score"`
}
