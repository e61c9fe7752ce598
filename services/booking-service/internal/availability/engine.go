package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type HoursSource interface {
	// ActiveHoursForWeekday returns ok=false when the business is closed that day.
	ActiveHoursForWeekday(ctx context.Context, weekday time.Weekday) (Interval, bool, error)
}

type BookingSource interface {
	// OccupiedBookingsForDate returns non-cancelled bookings only.
	OccupiedBookingsForDate(ctx context.Context, date time.Time) ([]Occupied, error)
}

type BlockSource interface {
	BlockedIntervalsForDate(ctx context.Context, date time.Time) ([]Interval, error)
}

type Config struct {
	GranularityMinutes int
	// RequireFit drops a trailing slot whose span would run past closing time.
	RequireFit bool
}

// Engine computes offerable slots and validates booking candidates for a
// single-provider calendar. It only reads from its sources.
type Engine struct {
	hours       HoursSource
	bookings    BookingSource
	blocks      BlockSource
	granularity int
	requireFit  bool
	tracer      trace.Tracer
}

func NewEngine(hours HoursSource, bookings BookingSource, blocks BlockSource, cfg Config) *Engine {
	if cfg.GranularityMinutes <= 0 {
		cfg.GranularityMinutes = DefaultGranularityMinutes
	}
	return &Engine{
		hours:       hours,
		bookings:    bookings,
		blocks:      blocks,
		granularity: cfg.GranularityMinutes,
		requireFit:  cfg.RequireFit,
		tracer:      otel.Tracer("availability"),
	}
}

func (e *Engine) Granularity() int {
	return e.granularity
}

// BusinessHours returns the open interval for date, ok=false when closed.
func (e *Engine) BusinessHours(ctx context.Context, date time.Time) (Interval, bool, error) {
	open, ok, err := e.hours.ActiveHoursForWeekday(ctx, date.Weekday())
	if err != nil {
		return Interval{}, false, fmt.Errorf("load business hours: %w", err)
	}
	if !ok || !open.Valid() {
		return Interval{}, false, nil
	}
	return open, true, nil
}

// AvailableSlots returns the chronologically ordered slot starts for date. A closed
// day yields an empty result, not an error.
func (e *Engine) AvailableSlots(ctx context.Context, date time.Time) ([]Minute, error) {
	ctx, span := e.tracer.Start(ctx, "availability.slots",
		trace.WithAttributes(attribute.String("booking.date", date.Format(DateLayout))),
	)
	defer span.End()

	open, ok, err := e.BusinessHours(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	busy, err := e.occupied(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	slots := GenerateSlots(open, e.granularity, e.requireFit, busy)
	span.SetAttributes(attribute.Int("availability.slots", len(slots)))
	return slots, nil
}

// ValidateCandidate checks [start, start+durationMinutes) against the bookings and
// blocked intervals stored for date. Business hours are not consulted here.
func (e *Engine) ValidateCandidate(ctx context.Context, date time.Time, start Minute, durationMinutes int) (Verdict, error) {
	if start < 0 || start >= MinutesPerDay {
		return Verdict{}, fmt.Errorf("%w: start %d out of range", ErrInvalidTime, start)
	}
	if durationMinutes <= 0 {
		return Verdict{}, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}

	ctx, span := e.tracer.Start(ctx, "availability.validate",
		trace.WithAttributes(
			attribute.String("booking.date", date.Format(DateLayout)),
			attribute.String("booking.start", start.String()),
			attribute.Int("booking.duration_minutes", durationMinutes),
		),
	)
	defer span.End()

	bookings, err := e.bookings.OccupiedBookingsForDate(ctx, date)
	if err != nil {
		span.RecordError(err)
		return Verdict{}, fmt.Errorf("load bookings: %w", err)
	}
	blocks, err := e.blocks.BlockedIntervalsForDate(ctx, date)
	if err != nil {
		span.RecordError(err)
		return Verdict{}, fmt.Errorf("load blocked intervals: %w", err)
	}

	candidate := Interval{Start: start, End: start.Add(durationMinutes)}
	verdict := CheckCandidate(candidate, spans(bookings), blocks)
	if !verdict.Accepted {
		span.SetAttributes(attribute.String("availability.reject_reason", string(verdict.Reason)))
	}
	return verdict, nil
}

func (e *Engine) occupied(ctx context.Context, date time.Time) ([]Interval, error) {
	bookings, err := e.bookings.OccupiedBookingsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	blocks, err := e.blocks.BlockedIntervalsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load blocked intervals: %w", err)
	}
	busy := spans(bookings)
	return append(busy, blocks...), nil
}
