package availability

// Interval is a half-open span [Start, End) within a single day.
type Interval struct {
	Start Minute
	End   Minute
}

func (i Interval) Valid() bool {
	return i.Start < i.End
}

func (i Interval) Minutes() int {
	return int(i.End - i.Start)
}

// Contains reports whether other lies entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return i.Start <= other.Start && other.End <= i.End
}

func (i Interval) String() string {
	return "[" + i.Start.String() + "," + i.End.String() + ")"
}

// Overlaps is the single overlap predicate used for both slot generation and
// booking validation: [a.Start,a.End) overlaps [b.Start,b.End) iff
// a.Start < b.End && b.Start < a.End. Adjacent intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func overlapsAny(candidate Interval, busy []Interval) (Interval, bool) {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return b, true
		}
	}
	return Interval{}, false
}

// Occupied is the part of a booking the engine cares about.
type Occupied struct {
	Start           Minute
	DurationMinutes int
}

func (o Occupied) Span() Interval {
	return Interval{Start: o.Start, End: o.Start.Add(o.DurationMinutes)}
}

func spans(bookings []Occupied) []Interval {
	out := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.DurationMinutes <= 0 {
			continue
		}
		out = append(out, b.Span())
	}
	return out
}
