package availability

import (
	"context"
	"errors"
	"time"
)

type fakeBooking struct {
	Date      string
	Start     string
	Duration  int
	Cancelled bool
}

type fakeBlock struct {
	Date  string
	Start string
	End   string
}

// fakeStore answers all three sources from in-memory rows.
type fakeStore struct {
	hours    map[time.Weekday]Interval
	bookings []fakeBooking
	blocks   []fakeBlock
	err      error
}

func (s *fakeStore) ActiveHoursForWeekday(_ context.Context, weekday time.Weekday) (Interval, bool, error) {
	if s.err != nil {
		return Interval{}, false, s.err
	}
	iv, ok := s.hours[weekday]
	return iv, ok, nil
}

func (s *fakeStore) OccupiedBookingsForDate(_ context.Context, date time.Time) ([]Occupied, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Occupied
	for _, b := range s.bookings {
		if b.Cancelled || b.Date != date.Format(DateLayout) {
			continue
		}
		out = append(out, Occupied{Start: mustClock(b.Start), DurationMinutes: b.Duration})
	}
	return out, nil
}

func (s *fakeStore) BlockedIntervalsForDate(_ context.Context, date time.Time) ([]Interval, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Interval
	for _, b := range s.blocks {
		if b.Date != date.Format(DateLayout) {
			continue
		}
		out = append(out, Interval{Start: mustClock(b.Start), End: mustClock(b.End)})
	}
	return out, nil
}

var errStoreDown = errors.New("store unreachable")

func mustClock(s string) Minute {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

func mustDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func span(start, end string) Interval {
	return Interval{Start: mustClock(start), End: mustClock(end)}
}

// 2026-03-02 is a Monday.
const monday = "2026-03-02"

func weekdayHours(open, close string) map[time.Weekday]Interval {
	return map[time.Weekday]Interval{time.Monday: span(open, close)}
}
