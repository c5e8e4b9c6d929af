package competitiondb

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoRowsAffected is returned when an UPDATE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrStatusMismatch is returned when a compare-and-swap status write loses:
	// the competition is no longer in the expected status.
	ErrStatusMismatch = errors.New("competition status does not match expected status")

	// ErrJudgmentCompleted is returned when a save targets a judgment that is already completed.
	ErrJudgmentCompleted = errors.New("judgment is already completed")
)
