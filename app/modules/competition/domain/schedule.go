package competitiondomain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule is returned when a competition's dates are out of order.
var ErrInvalidSchedule = errors.New("invalid competition schedule")

// ValidateSchedule checks start <= deadline <= round 1 end <= round 2 end. Zero
// round end dates are allowed; they are filled in when the round opens.
func ValidateSchedule(start, deadline, round1End, round2End time.Time) error {
	if start.IsZero() || deadline.IsZero() {
		return fmt.Errorf("%w: start date and submission deadline are required", ErrInvalidSchedule)
	}
	if deadline.Before(start) {
		return fmt.Errorf("%w: submission deadline precedes start date", ErrInvalidSchedule)
	}
	if !round1End.IsZero() && round1End.Before(deadline) {
		return fmt.Errorf("%w: round 1 ends before submissions close", ErrInvalidSchedule)
	}
	if !round2End.IsZero() {
		floor := deadline
		if !round1End.IsZero() {
			floor = round1End
		}
		if round2End.Before(floor) {
			return fmt.Errorf("%w: round 2 ends before round 1", ErrInvalidSchedule)
		}
	}
	return nil
}
