package booking

import "errors"

var (
	ErrNotFound             = errors.New("appointment not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrOutsideBusinessHours = errors.New("requested time is outside business hours")
	ErrInPast               = errors.New("requested time is in the past")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidRequest       = errors.New("invalid booking request")
)
