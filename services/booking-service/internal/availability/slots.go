package availability

// DefaultGranularityMinutes is the display grid step for offered slots.
const DefaultGranularityMinutes = 30

// GenerateSlots walks [open.Start, open.End) in steps of granularity and returns the
// start of every step whose span [t, t+granularity) overlaps nothing in busy.
//
// With requireFit the last step must end at or before open.End; without it a step is
// offered as long as it starts before open.End.
func GenerateSlots(open Interval, granularity int, requireFit bool, busy []Interval) []Minute {
	if granularity <= 0 || !open.Valid() {
		return nil
	}

	var slots []Minute
	for t := open.Start; t < open.End; t = t.Add(granularity) {
		span := Interval{Start: t, End: t.Add(granularity)}
		if requireFit && span.End > open.End {
			break
		}
		if _, hit := overlapsAny(span, busy); hit {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

// Verdict is the outcome of validating a booking candidate.
type Verdict struct {
	Accepted bool
	Reason   Reason
	// Conflict is the occupied span that caused a rejection.
	Conflict Interval
}

func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Err returns nil for an accepted verdict and a *ConflictError otherwise.
func (v Verdict) Err(candidate Interval) error {
	if v.Accepted {
		return nil
	}
	return &ConflictError{Reason: v.Reason, Candidate: candidate, Conflict: v.Conflict}
}

// CheckCandidate tests candidate against bookings first, then blocks, so the reason
// names the first kind of occupied time that collides.
func CheckCandidate(candidate Interval, bookings, blocks []Interval) Verdict {
	if hit, ok := overlapsAny(candidate, bookings); ok {
		return Verdict{Reason: ReasonBookingConflict, Conflict: hit}
	}
	if hit, ok := overlapsAny(candidate, blocks); ok {
		return Verdict{Reason: ReasonBlockedConflict, Conflict: hit}
	}
	return Accept()
}
