package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glowstudio/studio/libs/db"
	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/glowstudio/studio/services/booking-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

// Store is the pool-backed implementation of booking.Store, plus the admin
// writes that change the schedule.
type Store struct {
	*ScheduleRepository
	*CatalogRepository
	*BookingRepository

	pool   *db.Pool
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{
		ScheduleRepository: NewScheduleRepository(pool),
		CatalogRepository:  NewCatalogRepository(pool),
		BookingRepository:  NewBookingRepository(pool),
		pool:               pool,
		outbox:             outboxRepo,
	}
}

// DateLockKey is the advisory lock key that serializes writers for one date.
func DateLockKey(date time.Time) string {
	return "booking:" + date.Format(availability.DateLayout)
}

// InDateLock runs fn in a transaction that first takes a transaction-scoped
// advisory lock on the date, so check-then-insert cannot interleave with another
// writer for the same date.
func (s *Store) InDateLock(ctx context.Context, date time.Time, fn func(ctx context.Context, tx booking.Tx) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDate(ctx, tx, date); err != nil {
			return err
		}
		return fn(ctx, newTxView(tx, s.outbox))
	})
}

func lockDate(ctx context.Context, tx pgx.Tx, date time.Time) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, DateLockKey(date)); err != nil {
		return fmt.Errorf("lock date: %w", err)
	}
	return nil
}

// txView binds the repositories to one transaction.
type txView struct {
	*ScheduleRepository
	*BookingRepository

	tx     pgx.Tx
	outbox *outbox.Repository
}

func newTxView(tx pgx.Tx, outboxRepo *outbox.Repository) *txView {
	return &txView{
		ScheduleRepository: NewScheduleRepository(tx),
		BookingRepository:  NewBookingRepository(tx),
		tx:                 tx,
		outbox:             outboxRepo,
	}
}

func (v *txView) InsertEvent(ctx context.Context, evt outbox.Event) error {
	return v.outbox.Insert(ctx, v.tx, evt)
}

var _ booking.Store = (*Store)(nil)
var _ booking.Tx = (*txView)(nil)

type scheduleChange struct {
	Kind    string `json:"kind"`
	Date    string `json:"date,omitempty"`
	Weekday *int   `json:"weekday,omitempty"`
	ID      string `json:"id,omitempty"`
}

// SaveBusinessHours upserts one weekday and announces the change.
func (s *Store) SaveBusinessHours(ctx context.Context, h model.BusinessHours) error {
	weekday := int(h.Weekday)
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := NewScheduleRepository(tx).UpsertBusinessHours(ctx, h); err != nil {
			return err
		}
		return s.scheduleChanged(ctx, tx, "business_hours", scheduleChange{Kind: "business_hours", Weekday: &weekday})
	})
}

// AddBlockedInterval stores b under the date lock so it cannot slip in between a
// booking's check and insert.
func (s *Store) AddBlockedInterval(ctx context.Context, b model.BlockedInterval) (model.BlockedInterval, error) {
	var created model.BlockedInterval
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockDate(ctx, tx, b.Date); err != nil {
			return err
		}
		var err error
		created, err = NewScheduleRepository(tx).CreateBlockedInterval(ctx, b)
		if err != nil {
			return err
		}
		return s.scheduleChanged(ctx, tx, created.ID, scheduleChange{
			Kind: "blocked_interval_added",
			Date: created.Date.Format(availability.DateLayout),
			ID:   created.ID,
		})
	})
	return created, err
}

// RemoveBlockedInterval deletes a block and returns the date it freed. The date
// is only known from the deleted row, so the date lock is taken afterwards; the
// delete stays invisible to bookers until commit either way.
func (s *Store) RemoveBlockedInterval(ctx context.Context, id string) (time.Time, error) {
	var date time.Time
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		date, err = s.removeBlock(ctx, tx, id)
		return err
	})
	return date, err
}

func (s *Store) removeBlock(ctx context.Context, tx pgx.Tx, id string) (time.Time, error) {
	date, err := NewScheduleRepository(tx).DeleteBlockedInterval(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if err := lockDate(ctx, tx, date); err != nil {
		return time.Time{}, err
	}
	return date, s.scheduleChanged(ctx, tx, id, scheduleChange{
		Kind: "blocked_interval_removed",
		Date: date.Format(availability.DateLayout),
		ID:   id,
	})
}

func (s *Store) scheduleChanged(ctx context.Context, tx pgx.Tx, aggregateID string, change scheduleChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "schedule",
		AggregateID:   aggregateID,
		EventType:     outbox.EventScheduleChanged,
		Payload:       payload,
	})
}
