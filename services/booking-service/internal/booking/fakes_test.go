package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/glowstudio/studio/services/booking-service/internal/outbox"
	"github.com/glowstudio/studio/services/booking-service/internal/payments"
)

// memStore is an in-memory Store. InDateLock serializes all callers and restores
// a snapshot when fn fails.
type memStore struct {
	mu sync.Mutex

	hours        map[time.Weekday]availability.Interval
	services     map[string]model.Service
	appointments []model.Appointment
	blocks       []model.BlockedInterval
	idem         map[string]IdempotencyRecord
	events       []outbox.Event
	intents      map[string]string
	seq          int
}

func newMemStore() *memStore {
	return &memStore{
		hours: map[time.Weekday]availability.Interval{
			time.Monday: {Start: 9 * 60, End: 18 * 60},
		},
		services: map[string]model.Service{
			"facial":  {ID: "facial", Name: "Signature Facial", DurationMinutes: 60, PriceCents: 12000, Currency: "usd", IsActive: true},
			"peel":    {ID: "peel", Name: "Express Peel", DurationMinutes: 30, PriceCents: 6000, Currency: "usd", IsActive: true},
			"retired": {ID: "retired", Name: "Old Treatment", DurationMinutes: 30, IsActive: false},
		},
		idem:    map[string]IdempotencyRecord{},
		intents: map[string]string{},
	}
}

func (s *memStore) ActiveHoursForWeekday(_ context.Context, weekday time.Weekday) (availability.Interval, bool, error) {
	iv, ok := s.hours[weekday]
	return iv, ok, nil
}

func (s *memStore) OccupiedBookingsForDate(_ context.Context, date time.Time) ([]availability.Occupied, error) {
	var out []availability.Occupied
	for _, a := range s.appointments {
		if a.Occupies() && a.Date.Equal(date) {
			out = append(out, availability.Occupied{Start: a.StartMinute, DurationMinutes: a.DurationMinutes})
		}
	}
	return out, nil
}

func (s *memStore) BlockedIntervalsForDate(_ context.Context, date time.Time) ([]availability.Interval, error) {
	var out []availability.Interval
	for _, b := range s.blocks {
		if b.Date.Equal(date) {
			out = append(out, b.Interval())
		}
	}
	return out, nil
}

func (s *memStore) GetService(_ context.Context, id string) (model.Service, error) {
	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, ErrServiceNotFound
	}
	return svc, nil
}

func (s *memStore) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	for _, a := range s.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, ErrNotFound
}

func (s *memStore) SetPaymentIntent(_ context.Context, appointmentID, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[appointmentID] = intentID
	for i := range s.appointments {
		if s.appointments[i].ID == appointmentID {
			s.appointments[i].PaymentIntentID = intentID
		}
	}
	return nil
}

func (s *memStore) InDateLock(ctx context.Context, _ time.Time, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts := append([]model.Appointment(nil), s.appointments...)
	events := append([]outbox.Event(nil), s.events...)
	idem := make(map[string]IdempotencyRecord, len(s.idem))
	for k, v := range s.idem {
		idem[k] = v
	}

	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.appointments, s.events, s.idem = appts, events, idem
		return err
	}
	return nil
}

func (s *memStore) eventTypes() []string {
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type memTx struct {
	s *memStore
}

func (t *memTx) OccupiedBookingsForDate(ctx context.Context, date time.Time) ([]availability.Occupied, error) {
	return t.s.OccupiedBookingsForDate(ctx, date)
}

func (t *memTx) BlockedIntervalsForDate(ctx context.Context, date time.Time) ([]availability.Interval, error) {
	return t.s.BlockedIntervalsForDate(ctx, date)
}

func (t *memTx) LockIdempotencyKey(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := t.s.idem[key]
	return rec, ok, nil
}

func (t *memTx) FinalizeIdempotency(_ context.Context, rec IdempotencyRecord) error {
	t.s.idem[rec.Key] = rec
	return nil
}

func (t *memTx) InsertAppointment(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	for _, a := range t.s.appointments {
		if a.Occupies() && a.Date.Equal(appt.Date) && a.StartMinute == appt.StartMinute {
			return model.Appointment{}, &availability.ConflictError{Reason: availability.ReasonBookingConflict, Candidate: appt.Span(), Conflict: a.Span()}
		}
	}
	t.s.seq++
	appt.ID = fmt.Sprintf("appt-%d", t.s.seq)
	appt.CreatedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t.s.appointments = append(t.s.appointments, appt)
	return appt, nil
}

func (t *memTx) GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	return t.s.GetAppointment(ctx, id)
}

func (t *memTx) UpdateAppointmentStatus(_ context.Context, id, status, reason string) (model.Appointment, error) {
	for i := range t.s.appointments {
		if t.s.appointments[i].ID == id {
			t.s.appointments[i].Status = status
			if status == model.StatusCancelled {
				at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
				t.s.appointments[i].CancelledAt = &at
				t.s.appointments[i].CancelReason = reason
			}
			return t.s.appointments[i], nil
		}
	}
	return model.Appointment{}, ErrNotFound
}

func (t *memTx) InsertEvent(_ context.Context, evt outbox.Event) error {
	t.s.events = append(t.s.events, evt)
	return nil
}

// memCache versions each date the way slotcache.Cache does: Invalidate bumps
// the version and entries are keyed by it.
type memCache struct {
	mu          sync.Mutex
	slots       map[string][]availability.Minute
	versions    map[string]int
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{slots: map[string][]availability.Minute{}, versions: map[string]int{}}
}

func (c *memCache) stamp(date time.Time) string {
	day := date.Format(availability.DateLayout)
	return fmt.Sprintf("%s:%d", day, c.versions[day])
}

func (c *memCache) Get(_ context.Context, date time.Time) ([]availability.Minute, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stamp := c.stamp(date)
	s, ok := c.slots[stamp]
	return s, stamp, ok
}

func (c *memCache) Set(_ context.Context, _ time.Time, stamp string, slots []availability.Minute) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[stamp] = slots
}

func (c *memCache) Invalidate(_ context.Context, date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	day := date.Format(availability.DateLayout)
	c.versions[day]++
	c.invalidated = append(c.invalidated, day)
}

// racingStore runs onOccupied once, right after the pool-side occupancy read,
// to land a write between computing slots and caching them.
type racingStore struct {
	*memStore
	onOccupied func()
}

func (s *racingStore) OccupiedBookingsForDate(ctx context.Context, date time.Time) ([]availability.Occupied, error) {
	out, err := s.memStore.OccupiedBookingsForDate(ctx, date)
	if hook := s.onOccupied; hook != nil {
		s.onOccupied = nil
		hook()
	}
	return out, err
}

type fakeGateway struct {
	calls []payments.DepositRequest
	err   error
}

func (g *fakeGateway) CreateDeposit(_ context.Context, req payments.DepositRequest) (payments.Deposit, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return payments.Deposit{}, g.err
	}
	return payments.Deposit{IntentID: "pi_" + req.AppointmentID, ClientSecret: "secret_" + req.AppointmentID}, nil
}

// 2026-03-02 is a Monday; "now" is the Sunday before.
var (
	monday   = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	tuesday  = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func clock(s string) availability.Minute {
	m, err := availability.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}
