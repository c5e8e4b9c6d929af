package competitionhandlers

import (
	"encoding/json"
	"errors"
	"net/http"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
)

// Error codes returned in API error bodies.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
)

// APIError is the JSON error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// statusFailureResponse is the error body of a failed manual status update. It keeps
// the attempted change next to the error.
type statusFailureResponse struct {
	*APIError
	*competitionservice.StatusUpdateResult
}

func badRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// apiErrorFor maps a service error to a response. Infrastructure errors get a generic
// message.
func apiErrorFor(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, competitionservice.ErrCompetitionNotFound),
		errors.Is(err, competitionservice.ErrSubmissionNotFound),
		errors.Is(err, competitionservice.ErrAssignmentNotFound):
		return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, competitionservice.ErrInvalidStateTransition),
		errors.Is(err, competitionservice.ErrJudgmentAlreadyCompleted),
		errors.Is(err, competitionservice.ErrAlreadyVoted),
		errors.Is(err, competitionservice.ErrAlreadyConverted):
		return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: err.Error()}
	case errors.Is(err, competitionservice.ErrInsufficientData):
		return &APIError{Status: http.StatusUnprocessableEntity, Code: ErrCodeInsufficientData, Message: err.Error()}
	case errors.Is(err, competitionservice.ErrNotAuthorized):
		return &APIError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: err.Error()}
	case errors.Is(err, competitionservice.ErrInvalidStatus),
		errors.Is(err, competitionservice.ErrInvalidBallot),
		errors.Is(err, competitionservice.ErrInvalidJudgment),
		errors.Is(err, competitionservice.ErrInvalidPick),
		errors.Is(err, competitiondomain.ErrInvalidCriteria),
		errors.Is(err, competitiondomain.ErrInvalidSchedule):
		return badRequest(err.Error())
	}
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "internal server error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := apiErrorFor(err)
	writeJSON(w, apiErr.Status, apiErr)
}
