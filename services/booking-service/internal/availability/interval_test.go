package availability

import (
	"errors"
	"testing"
	"time"
)

func TestOverlaps_HalfOpen(t *testing.T) {
	booking := span("10:00", "11:00")

	if !Overlaps(span("10:30", "11:00"), booking) {
		t.Fatal("expected [10:30,11:00) to overlap [10:00,11:00)")
	}
	if !Overlaps(span("09:30", "10:30"), booking) {
		t.Fatal("expected [09:30,10:30) to overlap [10:00,11:00)")
	}
	if Overlaps(span("09:00", "10:00"), booking) {
		t.Fatal("adjacent [09:00,10:00) must not overlap [10:00,11:00)")
	}
	if Overlaps(span("11:00", "11:30"), booking) {
		t.Fatal("adjacent [11:00,11:30) must not overlap [10:00,11:00)")
	}
	if !Overlaps(span("09:00", "12:00"), booking) {
		t.Fatal("enclosing interval must overlap")
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	a := span("09:15", "09:45")
	b := span("09:30", "10:00")
	if Overlaps(a, b) != Overlaps(b, a) {
		t.Fatal("overlap predicate must be symmetric")
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("17:30")
	if err != nil {
		t.Fatalf("ParseClock failed: %v", err)
	}
	if m != 17*60+30 {
		t.Fatalf("expected 1050, got %d", m)
	}
	if m.String() != "17:30" {
		t.Fatalf("expected 17:30, got %s", m.String())
	}
	if _, err := ParseClock("25:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	if _, err := ParseClock("9am"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(monday)
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", d.Weekday())
	}
	for _, raw := range []string{"", "2026-02-30", "03/02/2026", "2026-3-2"} {
		if _, err := ParseDate(raw); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate for %q, got %v", raw, err)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	instant := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	if got := DateOf(instant, loc).Format(DateLayout); got != monday {
		t.Fatalf("expected %s, got %s", monday, got)
	}
	if got := MinuteOf(instant, loc); got != 6*60 {
		t.Fatalf("expected 06:00, got %s", got)
	}
}
