package model

import (
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID              string
	ServiceID       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Notes           string
	Date            time.Time
	StartMinute     availability.Minute
	DurationMinutes int
	Status          string
	PaymentIntentID string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
}

func (a Appointment) Span() availability.Interval {
	return availability.Interval{Start: a.StartMinute, End: a.StartMinute.Add(a.DurationMinutes)}
}

// Occupies reports whether the appointment still holds its time on the calendar.
func (a Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}

// CanTransition reports whether a status change from -> to is allowed.
// Cancelled and completed are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
