package storage

import (
	"context"
	"errors"
	"time"

	"github.com/glowstudio/studio/libs/db"
	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingRepository reads and writes appointments through q, which is either the
// pool or a transaction.
type BookingRepository struct {
	q db.Querier
}

func NewBookingRepository(q db.Querier) *BookingRepository {
	return &BookingRepository{q: q}
}

const appointmentColumns = `
	id::text, service_id::text, customer_name, customer_email, customer_phone, notes,
	booking_date, start_minute, duration_minutes, status, COALESCE(payment_intent_id, ''),
	cancelled_at, COALESCE(cancellation_reason, ''), created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		appt        model.Appointment
		start       int
		cancelledAt *time.Time
	)
	err := row.Scan(
		&appt.ID,
		&appt.ServiceID,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.CustomerPhone,
		&appt.Notes,
		&appt.Date,
		&start,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.PaymentIntentID,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.StartMinute = availability.Minute(start)
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// OccupiedBookingsForDate returns the spans of every non-cancelled appointment on date.
func (r *BookingRepository) OccupiedBookingsForDate(ctx context.Context, date time.Time) ([]availability.Occupied, error) {
	rows, err := r.q.Query(ctx, `
		SELECT start_minute, duration_minutes
		FROM appointments
		WHERE booking_date = $1 AND status <> 'cancelled'
		ORDER BY start_minute ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Occupied
	for rows.Next() {
		var start, duration int
		if err := rows.Scan(&start, &duration); err != nil {
			return nil, err
		}
		out = append(out, availability.Occupied{Start: availability.Minute(start), DurationMinutes: duration})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments
			(service_id, customer_name, customer_email, customer_phone, notes,
			 booking_date, start_minute, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+appointmentColumns,
		appt.ServiceID, appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone, appt.Notes,
		appt.Date, int(appt.StartMinute), appt.DurationMinutes, appt.Status)
	created, err := scanAppointment(row)
	if err != nil {
		if IsConflict(err) {
			return model.Appointment{}, &availability.ConflictError{
				Reason:    availability.ReasonBookingConflict,
				Candidate: appt.Span(),
			}
		}
		return model.Appointment{}, err
	}
	return created, nil
}

func (r *BookingRepository) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, booking.ErrNotFound
	}
	appt, err := scanAppointment(r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if IsNotFound(err) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (r *BookingRepository) GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, booking.ErrNotFound
	}
	appt, err := scanAppointment(r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if IsNotFound(err) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (r *BookingRepository) UpdateAppointmentStatus(ctx context.Context, id, status, reason string) (model.Appointment, error) {
	appt, err := scanAppointment(r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			cancelled_at = CASE WHEN $2 = 'cancelled' THEN now() ELSE cancelled_at END,
			cancellation_reason = CASE WHEN $2 = 'cancelled' THEN NULLIF($3, '') ELSE cancellation_reason END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, status, reason))
	if IsNotFound(err) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (r *BookingRepository) SetPaymentIntent(ctx context.Context, appointmentID, intentID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE appointments
		SET payment_intent_id = $2, updated_at = now()
		WHERE id = $1
	`, appointmentID, intentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// ListByDate returns every appointment on date, cancelled ones included.
func (r *BookingRepository) ListByDate(ctx context.Context, date time.Time) ([]model.Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE booking_date = $1
		ORDER BY start_minute ASC, created_at ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// LockIdempotencyKey claims key for this transaction. exists is true only when an
// earlier transaction already finalized it.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, key string) (booking.IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, key)
	if err == nil {
		return rec, rec.Outcome != "", nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return booking.IdempotencyRecord{}, false, err
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key)
	if err != nil {
		return booking.IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, key)
	if err != nil {
		return booking.IdempotencyRecord{}, false, err
	}
	return rec, rec.Outcome != "", nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, rec booking.IdempotencyRecord) error {
	_, err := r.q.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = NULLIF($2, '')::uuid,
			outcome = $3,
			updated_at = now()
		WHERE idempotency_key = $1
	`, rec.Key, rec.AppointmentID, rec.Outcome)
	return err
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, key string) (booking.IdempotencyRecord, error) {
	var rec booking.IdempotencyRecord
	err := r.q.QueryRow(ctx, `
		SELECT idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(outcome, '')
		FROM booking_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&rec.Key, &rec.AppointmentID, &rec.Outcome)
	return rec, err
}
