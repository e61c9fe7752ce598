package availability

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	MinutesPerDay = 24 * 60
)

// Minute is a time of day expressed as minutes since midnight.
type Minute int

func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Add returns m shifted by n minutes. The result may exceed MinutesPerDay.
func (m Minute) Add(n int) Minute {
	return m + Minute(n)
}

// On returns the instant m on the given calendar date in loc.
func (m Minute) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(m)/60, int(m)%60, 0, 0, loc)
}

// ParseClock parses "HH:MM" into a Minute within [00:00, 24:00).
func ParseClock(raw string) (Minute, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return Minute(t.Hour()*60 + t.Minute()), nil
}

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC so that
// Weekday() is stable regardless of the server's local zone.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

// DateOf truncates t to its calendar date in loc, returned as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// MinuteOf returns the time of day of t in loc.
func MinuteOf(t time.Time, loc *time.Location) Minute {
	local := t.In(loc)
	return Minute(local.Hour()*60 + local.Minute())
}
