package model

import "time"

// Service is a bookable catalog entry; its duration drives booking validation.
type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	PriceCents      int64
	Currency        string
	Description     string
	IsActive        bool
	CreatedAt       time.Time
}
