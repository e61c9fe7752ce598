package storage

import (
	"context"
	"errors"
	"time"

	"github.com/glowstudio/studio/libs/db"
	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/google/uuid"
)

var ErrBlockNotFound = errors.New("blocked interval not found")

type ScheduleRepository struct {
	q db.Querier
}

func NewScheduleRepository(q db.Querier) *ScheduleRepository {
	return &ScheduleRepository{q: q}
}

func (r *ScheduleRepository) ActiveHoursForWeekday(ctx context.Context, weekday time.Weekday) (availability.Interval, bool, error) {
	var open, shut int
	err := r.q.QueryRow(ctx, `
		SELECT open_minute, close_minute
		FROM business_hours
		WHERE weekday = $1 AND is_open
	`, int(weekday)).Scan(&open, &shut)
	if IsNotFound(err) {
		return availability.Interval{}, false, nil
	}
	if err != nil {
		return availability.Interval{}, false, err
	}
	return availability.Interval{Start: availability.Minute(open), End: availability.Minute(shut)}, true, nil
}

func (r *ScheduleRepository) ListBusinessHours(ctx context.Context) ([]model.BusinessHours, error) {
	rows, err := r.q.Query(ctx, `
		SELECT weekday, is_open, open_minute, close_minute
		FROM business_hours
		ORDER BY weekday ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BusinessHours
	for rows.Next() {
		var (
			h                   model.BusinessHours
			weekday, open, shut int
		)
		if err := rows.Scan(&weekday, &h.IsOpen, &open, &shut); err != nil {
			return nil, err
		}
		h.Weekday = time.Weekday(weekday)
		h.OpenMinute = availability.Minute(open)
		h.CloseMinute = availability.Minute(shut)
		out = append(out, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ScheduleRepository) UpsertBusinessHours(ctx context.Context, h model.BusinessHours) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO business_hours (weekday, is_open, open_minute, close_minute)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (weekday) DO UPDATE
		SET is_open = EXCLUDED.is_open,
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			updated_at = now()
	`, int(h.Weekday), h.IsOpen, int(h.OpenMinute), int(h.CloseMinute))
	return err
}

func (r *ScheduleRepository) BlockedIntervalsForDate(ctx context.Context, date time.Time) ([]availability.Interval, error) {
	blocks, err := r.ListBlockedIntervals(ctx, date)
	if err != nil {
		return nil, err
	}
	out := make([]availability.Interval, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Interval())
	}
	return out, nil
}

func (r *ScheduleRepository) ListBlockedIntervals(ctx context.Context, date time.Time) ([]model.BlockedInterval, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, block_date, start_minute, end_minute, COALESCE(reason, ''), created_at
		FROM blocked_intervals
		WHERE block_date = $1
		ORDER BY start_minute ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlockedInterval
	for rows.Next() {
		var (
			b          model.BlockedInterval
			start, end int
		)
		if err := rows.Scan(&b.ID, &b.Date, &start, &end, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.StartMinute = availability.Minute(start)
		b.EndMinute = availability.Minute(end)
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ScheduleRepository) CreateBlockedInterval(ctx context.Context, b model.BlockedInterval) (model.BlockedInterval, error) {
	b.ID = uuid.NewString()
	err := r.q.QueryRow(ctx, `
		INSERT INTO blocked_intervals (id, block_date, start_minute, end_minute, reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at
	`, b.ID, b.Date, int(b.StartMinute), int(b.EndMinute), b.Reason).Scan(&b.CreatedAt)
	if err != nil {
		return model.BlockedInterval{}, err
	}
	return b, nil
}

// DeleteBlockedInterval removes the block and returns the date it was on.
func (r *ScheduleRepository) DeleteBlockedInterval(ctx context.Context, id string) (time.Time, error) {
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, ErrBlockNotFound
	}
	var date time.Time
	err := r.q.QueryRow(ctx, `
		DELETE FROM blocked_intervals
		WHERE id = $1
		RETURNING block_date
	`, id).Scan(&date)
	if IsNotFound(err) {
		return time.Time{}, ErrBlockNotFound
	}
	return date, err
}
