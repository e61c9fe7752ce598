package availability

import (
	"context"
	"errors"
	"testing"
)

func newTestEngine(s *fakeStore, requireFit bool) *Engine {
	return NewEngine(s, s, s, Config{GranularityMinutes: 30, RequireFit: requireFit})
}

func TestAvailableSlots_ClosedDayIsEmpty(t *testing.T) {
	s := &fakeStore{hours: weekdayHours("09:00", "18:00")}
	e := newTestEngine(s, true)

	// 2026-03-01 is a Sunday with no hours row.
	slots, err := e.AvailableSlots(context.Background(), mustDate("2026-03-01"))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a closed day, got %v", slots)
	}
}

func TestAvailableSlots_FullOpenDay(t *testing.T) {
	s := &fakeStore{hours: weekdayHours("09:00", "18:00")}
	e := newTestEngine(s, true)

	slots, err := e.AvailableSlots(context.Background(), mustDate(monday))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if slots[0].String() != "09:00" || slots[17].String() != "17:30" {
		t.Fatalf("expected 09:00..17:30, got %s..%s", slots[0], slots[17])
	}
	for i := 1; i < len(slots); i++ {
		if slots[i]-slots[i-1] != 30 {
			t.Fatalf("slots not on a 30 minute grid at %d: %v", i, slots)
		}
	}
}

func TestAvailableSlots_BlockedIntervalBoundary(t *testing.T) {
	s := &fakeStore{
		hours:  weekdayHours("09:00", "18:00"),
		blocks: []fakeBlock{{Date: monday, Start: "12:00", End: "13:00"}},
	}
	e := newTestEngine(s, true)

	slots, err := e.AvailableSlots(context.Background(), mustDate(monday))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	got := map[string]bool{}
	for _, m := range slots {
		got[m.String()] = true
	}
	if !got["11:30"] {
		t.Fatal("11:30 ends exactly when the block starts and must be offered")
	}
	if got["12:00"] || got["12:30"] {
		t.Fatal("12:00 and 12:30 fall inside the block")
	}
	if !got["13:00"] {
		t.Fatal("13:00 starts exactly when the block ends and must be offered")
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
}

func TestAvailableSlots_BookingsExcludeOverlappingSteps(t *testing.T) {
	s := &fakeStore{
		hours: weekdayHours("09:00", "12:00"),
		bookings: []fakeBooking{
			{Date: monday, Start: "09:45", Duration: 60},
			{Date: monday, Start: "11:00", Duration: 30, Cancelled: true},
			{Date: "2026-03-09", Start: "09:00", Duration: 180},
		},
	}
	e := newTestEngine(s, true)

	slots, err := e.AvailableSlots(context.Background(), mustDate(monday))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	want := []string{"09:00", "11:00", "11:30"}
	if len(slots) != len(want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
	for i, w := range want {
		if slots[i].String() != w {
			t.Fatalf("slot %d: expected %s, got %s", i, w, slots[i])
		}
	}
}

func TestAvailableSlots_TrailingPartialStep(t *testing.T) {
	s := &fakeStore{hours: weekdayHours("09:00", "10:45")}

	fit, err := newTestEngine(s, true).AvailableSlots(context.Background(), mustDate(monday))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(fit) != 3 || fit[2].String() != "10:00" {
		t.Fatalf("expected last fitting slot 10:00, got %v", fit)
	}

	loose, err := newTestEngine(s, false).AvailableSlots(context.Background(), mustDate(monday))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(loose) != 4 || loose[3].String() != "10:30" {
		t.Fatalf("expected 10:30 offered when it only starts before close, got %v", loose)
	}
}

func TestAvailableSlots_StoreErrorPropagates(t *testing.T) {
	s := &fakeStore{hours: weekdayHours("09:00", "18:00"), err: errStoreDown}
	_, err := newTestEngine(s, true).AvailableSlots(context.Background(), mustDate(monday))
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestValidateCandidate_BookingConflicts(t *testing.T) {
	s := &fakeStore{
		hours:    weekdayHours("09:00", "18:00"),
		bookings: []fakeBooking{{Date: monday, Start: "10:00", Duration: 60}},
	}
	e := newTestEngine(s, true)
	ctx := context.Background()
	date := mustDate(monday)

	v, err := e.ValidateCandidate(ctx, date, mustClock("10:30"), 30)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	if v.Accepted || v.Reason != ReasonBookingConflict {
		t.Fatalf("expected booking_conflict, got %+v", v)
	}
	if v.Conflict != span("10:00", "11:00") {
		t.Fatalf("expected conflict span [10:00,11:00), got %s", v.Conflict)
	}

	v, err = e.ValidateCandidate(ctx, date, mustClock("09:00"), 60)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	if !v.Accepted {
		t.Fatalf("expected [09:00,10:00) to be accepted, got %+v", v)
	}

	v, err = e.ValidateCandidate(ctx, date, mustClock("09:30"), 60)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	if v.Accepted || v.Reason != ReasonBookingConflict {
		t.Fatalf("expected [09:30,10:30) to be rejected, got %+v", v)
	}
	if !errors.Is(v.Err(span("09:30", "10:30")), ErrBookingConflict) {
		t.Fatal("expected verdict error to match ErrBookingConflict")
	}
}

func TestValidateCandidate_CancelledBookingIgnored(t *testing.T) {
	s := &fakeStore{
		hours:    weekdayHours("09:00", "18:00"),
		bookings: []fakeBooking{{Date: monday, Start: "10:00", Duration: 60, Cancelled: true}},
	}
	v, err := newTestEngine(s, true).ValidateCandidate(context.Background(), mustDate(monday), mustClock("10:00"), 60)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	if !v.Accepted {
		t.Fatalf("cancelled booking must not conflict, got %+v", v)
	}
}

func TestValidateCandidate_BlockedConflict(t *testing.T) {
	s := &fakeStore{
		hours:  weekdayHours("09:00", "18:00"),
		blocks: []fakeBlock{{Date: monday, Start: "12:00", End: "13:00"}},
	}
	v, err := newTestEngine(s, true).ValidateCandidate(context.Background(), mustDate(monday), mustClock("11:30"), 60)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	if v.Accepted || v.Reason != ReasonBlockedConflict {
		t.Fatalf("expected blocked_conflict, got %+v", v)
	}
	if !errors.Is(v.Err(span("11:30", "12:30")), ErrBlockedConflict) {
		t.Fatal("expected verdict error to match ErrBlockedConflict")
	}
}

func TestValidateCandidate_BookingReasonWinsOverBlock(t *testing.T) {
	s := &fakeStore{
		bookings: []fakeBooking{{Date: monday, Start: "12:00", Duration: 30}},
		blocks:   []fakeBlock{{Date: monday, Start: "12:00", End: "13:00"}},
	}
	v, err := newTestEngine(s, true).ValidateCandidate(context.Background(), mustDate(monday), mustClock("12:00"), 60)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	if v.Reason != ReasonBookingConflict {
		t.Fatalf("expected booking_conflict, got %s", v.Reason)
	}
}

func TestValidateCandidate_Deterministic(t *testing.T) {
	s := &fakeStore{
		hours:    weekdayHours("09:00", "18:00"),
		bookings: []fakeBooking{{Date: monday, Start: "10:00", Duration: 60}},
	}
	e := newTestEngine(s, true)
	first, err := e.ValidateCandidate(context.Background(), mustDate(monday), mustClock("10:15"), 45)
	if err != nil {
		t.Fatalf("ValidateCandidate failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.ValidateCandidate(context.Background(), mustDate(monday), mustClock("10:15"), 45)
		if err != nil {
			t.Fatalf("ValidateCandidate failed: %v", err)
		}
		if again != first {
			t.Fatalf("verdict changed between calls: %+v vs %+v", first, again)
		}
	}
}

func TestValidateCandidate_InvalidInput(t *testing.T) {
	e := newTestEngine(&fakeStore{}, true)
	if _, err := e.ValidateCandidate(context.Background(), mustDate(monday), MinutesPerDay, 30); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	if _, err := e.ValidateCandidate(context.Background(), mustDate(monday), mustClock("10:00"), 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestSlotsRoundTripThroughValidation(t *testing.T) {
	s := &fakeStore{
		hours: weekdayHours("09:00", "18:00"),
		bookings: []fakeBooking{
			{Date: monday, Start: "09:30", Duration: 45},
			{Date: monday, Start: "14:10", Duration: 20},
		},
		blocks: []fakeBlock{{Date: monday, Start: "12:00", End: "13:00"}},
	}
	e := newTestEngine(s, true)
	ctx := context.Background()
	date := mustDate(monday)

	slots, err := e.AvailableSlots(ctx, date)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected some slots")
	}
	for _, slot := range slots {
		for _, d := range []int{15, 30} {
			v, err := e.ValidateCandidate(ctx, date, slot, d)
			if err != nil {
				t.Fatalf("ValidateCandidate failed: %v", err)
			}
			if !v.Accepted {
				t.Fatalf("offered slot %s (%d min) rejected: %+v", slot, d, v)
			}
		}
	}
}
