package booking

import (
	"context"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/glowstudio/studio/services/booking-service/internal/outbox"
)

// Idempotency outcomes. A rejected request stores its conflict reason instead.
const OutcomeBooked = "booked"

type IdempotencyRecord struct {
	Key           string
	AppointmentID string
	Outcome       string
}

// Tx is the view of storage available while a date is locked. Its booking and
// block reads observe the same transaction that the insert will commit in.
type Tx interface {
	availability.BookingSource
	availability.BlockSource

	// LockIdempotencyKey returns exists=true when the key was already finalized.
	LockIdempotencyKey(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, rec IdempotencyRecord) error

	// InsertAppointment returns a *availability.ConflictError when the write
	// races another booking for the same start.
	InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status, reason string) (model.Appointment, error)
	InsertEvent(ctx context.Context, evt outbox.Event) error
}

type Store interface {
	availability.HoursSource
	availability.BookingSource
	availability.BlockSource

	GetService(ctx context.Context, id string) (model.Service, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	SetPaymentIntent(ctx context.Context, appointmentID, intentID string) error

	// InDateLock runs fn in one transaction holding an exclusive lock for date.
	// fn's error rolls the transaction back.
	InDateLock(ctx context.Context, date time.Time, fn func(ctx context.Context, tx Tx) error) error
}

// SlotCache stores computed slot lists per date. A miss returns a stamp naming
// the cache state observed before computing; Set under a stamp that an
// Invalidate has since superseded must not become visible to readers.
type SlotCache interface {
	Get(ctx context.Context, date time.Time) (slots []availability.Minute, stamp string, ok bool)
	Set(ctx context.Context, date time.Time, stamp string, slots []availability.Minute)
	Invalidate(ctx context.Context, date time.Time)
}
