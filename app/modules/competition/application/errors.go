package competitionservice

import (
	"errors"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
)

// Domain failures. These come back as the error of a public operation; anything else
// is an infrastructure error.
var (
	ErrCompetitionNotFound      = errors.New("competition not found")
	ErrSubmissionNotFound       = errors.New("submission not found")
	ErrAssignmentNotFound       = errors.New("no round 1 assignment for voter")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrInsufficientData         = errors.New("insufficient data")
	ErrJudgmentAlreadyCompleted = errors.New("judgment already completed")
	ErrAlreadyVoted             = errors.New("voter has already voted in this round")
	ErrAlreadyConverted         = errors.New("judgments already converted to votes")
	ErrInvalidStatus            = errors.New("invalid competition status")
	ErrInvalidJudgment          = errors.New("invalid judgment")
	ErrInvalidPick              = errors.New("invalid song creator pick")
	ErrNotAuthorized            = errors.New("not authorized")

	// ErrInvalidBallot is raised when a ranking does not fit the voter's targets.
	ErrInvalidBallot = competitiondomain.ErrInvalidBallot
)

var domainErrors = []error{
	ErrCompetitionNotFound,
	ErrSubmissionNotFound,
	ErrAssignmentNotFound,
	ErrInvalidStateTransition,
	ErrInsufficientData,
	ErrJudgmentAlreadyCompleted,
	ErrAlreadyVoted,
	ErrAlreadyConverted,
	ErrInvalidStatus,
	ErrInvalidJudgment,
	ErrInvalidPick,
	ErrNotAuthorized,
	ErrInvalidBallot,
	competitiondomain.ErrInvalidCriteria,
	competitiondomain.ErrInvalidSchedule,
}

// IsDomainError reports whether err is a business-rule failure rather than an
// infrastructure problem.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
