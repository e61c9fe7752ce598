package model

import (
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
)

type BusinessHours struct {
	Weekday     time.Weekday
	IsOpen      bool
	OpenMinute  availability.Minute
	CloseMinute availability.Minute
}

func (h BusinessHours) Interval() availability.Interval {
	return availability.Interval{Start: h.OpenMinute, End: h.CloseMinute}
}

type BlockedInterval struct {
	ID          string
	Date        time.Time
	StartMinute availability.Minute
	EndMinute   availability.Minute
	Reason      string
	CreatedAt   time.Time
}

func (b BlockedInterval) Interval() availability.Interval {
	return availability.Interval{Start: b.StartMinute, End: b.EndMinute}
}
