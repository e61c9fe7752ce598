package availability

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidDuration = errors.New("invalid duration")

	ErrBookingConflict = errors.New("booking conflict")
	ErrBlockedConflict = errors.New("blocked conflict")
)

type Reason string

const (
	ReasonBookingConflict Reason = "booking_conflict"
	ReasonBlockedConflict Reason = "blocked_conflict"
)

// ConflictError describes why a candidate was rejected and which occupied span it hit.
type ConflictError struct {
	Reason    Reason
	Candidate Interval
	Conflict  Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s overlaps %s", e.Reason, e.Candidate, e.Conflict)
}

func (e *ConflictError) Is(target error) bool {
	switch target {
	case ErrBookingConflict:
		return e.Reason == ReasonBookingConflict
	case ErrBlockedConflict:
		return e.Reason == ReasonBlockedConflict
	}
	return false
}
