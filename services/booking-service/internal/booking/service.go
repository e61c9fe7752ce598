package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/glowstudio/studio/services/booking-service/internal/payments"
)

type Config struct {
	Availability availability.Config
	// Location is the business time zone used for "now" and reminder instants.
	Location             *time.Location
	EnforceBusinessHours bool
	ReminderOffsets      []time.Duration
	DepositPercent       int
	Now                  func() time.Time
}

type Service struct {
	store    Store
	cache    SlotCache
	payments payments.Gateway
	logger   *slog.Logger
	engine   *availability.Engine

	cfg Config
	loc *time.Location
	now func() time.Time
}

func NewService(store Store, cache SlotCache, gateway payments.Gateway, logger *slog.Logger, cfg Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if gateway == nil {
		gateway = payments.Noop{}
	}
	return &Service{
		store:    store,
		cache:    cache,
		payments: gateway,
		logger:   logger,
		engine:   availability.NewEngine(store, store, store, cfg.Availability),
		cfg:      cfg,
		loc:      loc,
		now:      now,
	}
}

// Request is a customer's booking attempt for one catalog service.
type Request struct {
	ServiceID      string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Notes          string
	Date           time.Time
	Start          availability.Minute
	IdempotencyKey string
}

type Result struct {
	Appointment model.Appointment
	// Replayed is set when the idempotency key matched an earlier booking.
	Replayed            bool
	PaymentClientSecret string
}

// AvailableSlots returns the offerable starts for date, served from the slot
// cache when present. The stamp is taken before computing so a booking that
// commits mid-computation leaves the result unreachable.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time) ([]availability.Minute, error) {
	var stamp string
	if s.cache != nil {
		slots, st, ok := s.cache.Get(ctx, date)
		if ok {
			return slots, nil
		}
		stamp = st
	}
	slots, err := s.engine.AvailableSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && stamp != "" {
		s.cache.Set(ctx, date, stamp, slots)
	}
	return slots, nil
}

// Check validates a candidate for serviceID without writing anything. It returns
// the candidate span, or the error Book would return.
func (s *Service) Check(ctx context.Context, date time.Time, start availability.Minute, serviceID string) (availability.Interval, model.Service, error) {
	svc, candidate, err := s.admit(ctx, serviceID, date, start)
	if err != nil {
		return candidate, svc, err
	}
	verdict, err := s.engine.ValidateCandidate(ctx, date, start, svc.DurationMinutes)
	if err != nil {
		return candidate, svc, err
	}
	return candidate, svc, verdict.Err(candidate)
}

// Book validates and persists a booking. Validation and insert run under the
// per-date lock so two concurrent requests for overlapping spans cannot both
// succeed.
func (s *Service) Book(ctx context.Context, req Request) (Result, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.CustomerName == "" || strings.TrimSpace(req.ServiceID) == "" {
		return Result{}, fmt.Errorf("%w: service_id and customer_name required", ErrInvalidRequest)
	}
	if req.CustomerEmail == "" && req.CustomerPhone == "" {
		return Result{}, fmt.Errorf("%w: customer_email or customer_phone required", ErrInvalidRequest)
	}

	svc, candidate, err := s.admit(ctx, req.ServiceID, req.Date, req.Start)
	if err != nil {
		return Result{}, err
	}

	deposit := payments.DepositCents(svc.PriceCents, s.cfg.DepositPercent)
	status := model.StatusConfirmed
	if deposit > 0 {
		status = model.StatusPending
	}

	var (
		result   Result
		rejected error
	)
	err = s.store.InDateLock(ctx, req.Date, func(ctx context.Context, tx Tx) error {
		if req.IdempotencyKey != "" {
			rec, exists, err := tx.LockIdempotencyKey(ctx, req.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("lock idempotency key: %w", err)
			}
			if exists {
				replayed, err := s.replay(ctx, tx, rec)
				if err != nil {
					return err
				}
				if replayed != nil {
					result = Result{Appointment: *replayed, Replayed: true}
					return nil
				}
				rejected = replayError(rec.Outcome, candidate)
				return nil
			}
		}

		engine := availability.NewEngine(s.store, tx, tx, s.cfg.Availability)
		verdict, err := engine.ValidateCandidate(ctx, req.Date, req.Start, svc.DurationMinutes)
		if err != nil {
			return err
		}
		if !verdict.Accepted {
			rejected = verdict.Err(candidate)
			// Record the rejection so a retry with the same key gets the same answer.
			if req.IdempotencyKey != "" {
				return tx.FinalizeIdempotency(ctx, IdempotencyRecord{Key: req.IdempotencyKey, Outcome: string(verdict.Reason)})
			}
			return nil
		}

		appt, err := tx.InsertAppointment(ctx, model.Appointment{
			ServiceID:       svc.ID,
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			Notes:           strings.TrimSpace(req.Notes),
			Date:            req.Date,
			StartMinute:     req.Start,
			DurationMinutes: svc.DurationMinutes,
			Status:          status,
		})
		if err != nil {
			return err
		}

		if err := s.emitBooked(ctx, tx, appt, svc); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			if err := tx.FinalizeIdempotency(ctx, IdempotencyRecord{Key: req.IdempotencyKey, AppointmentID: appt.ID, Outcome: OutcomeBooked}); err != nil {
				return fmt.Errorf("finalize idempotency key: %w", err)
			}
		}
		result = Result{Appointment: appt}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if rejected != nil {
		return Result{}, rejected
	}
	if result.Replayed {
		return result, nil
	}

	s.invalidate(ctx, req.Date)
	if deposit > 0 {
		s.requestDeposit(ctx, &result, svc, deposit)
	}
	return result, nil
}

// UpdateStatus moves an appointment along pending -> confirmed -> completed, or
// to cancelled from either open state.
func (s *Service) UpdateStatus(ctx context.Context, id, status, reason string) (model.Appointment, error) {
	if !model.ValidStatus(status) {
		return model.Appointment{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	var updated model.Appointment
	err = s.store.InDateLock(ctx, current.Date, func(ctx context.Context, tx Tx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !model.CanTransition(appt.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, status)
		}
		updated, err = tx.UpdateAppointmentStatus(ctx, id, status, strings.TrimSpace(reason))
		if err != nil {
			return err
		}
		return s.emitStatus(ctx, tx, updated)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if status == model.StatusCancelled {
		s.invalidate(ctx, updated.Date)
	}
	return updated, nil
}

// SettleDeposit resolves a pending appointment once its deposit intent reaches a
// final state: paid confirms it, unpaid cancels it and frees the time. Appointments
// that already left pending are returned unchanged with changed=false.
func (s *Service) SettleDeposit(ctx context.Context, appointmentID, intentID string, paid bool) (appt model.Appointment, changed bool, err error) {
	appt, err = s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, false, err
	}
	if appt.PaymentIntentID != "" && intentID != appt.PaymentIntentID {
		return model.Appointment{}, false, fmt.Errorf("%w: payment intent %s does not belong to appointment %s", ErrInvalidRequest, intentID, appointmentID)
	}
	if appt.Status != model.StatusPending {
		return appt, false, nil
	}

	status, reason := model.StatusConfirmed, ""
	if !paid {
		status, reason = model.StatusCancelled, "deposit not completed"
	}
	appt, err = s.UpdateStatus(ctx, appointmentID, status, reason)
	if errors.Is(err, ErrInvalidTransition) {
		// Settled concurrently; report the current state.
		appt, err = s.store.GetAppointment(ctx, appointmentID)
		return appt, false, err
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

// admit applies the caller policy that sits outside the engine: the service must
// exist and be active, the start must not be in the past, and, when enforced, the
// whole span must fit inside business hours.
func (s *Service) admit(ctx context.Context, serviceID string, date time.Time, start availability.Minute) (model.Service, availability.Interval, error) {
	if start < 0 || start >= availability.MinutesPerDay {
		return model.Service{}, availability.Interval{}, fmt.Errorf("%w: start %d out of range", availability.ErrInvalidTime, start)
	}
	svc, err := s.store.GetService(ctx, strings.TrimSpace(serviceID))
	if err != nil {
		return model.Service{}, availability.Interval{}, err
	}
	if !svc.IsActive {
		return model.Service{}, availability.Interval{}, ErrServiceNotFound
	}
	if svc.DurationMinutes <= 0 {
		return svc, availability.Interval{}, fmt.Errorf("%w: service %s has %d minutes", availability.ErrInvalidDuration, svc.ID, svc.DurationMinutes)
	}
	candidate := availability.Interval{Start: start, End: start.Add(svc.DurationMinutes)}

	if start.On(date, s.loc).Before(s.now()) {
		return svc, candidate, ErrInPast
	}
	if s.cfg.EnforceBusinessHours {
		open, ok, err := s.engine.BusinessHours(ctx, date)
		if err != nil {
			return svc, candidate, err
		}
		if !ok || !open.Contains(candidate) {
			return svc, candidate, ErrOutsideBusinessHours
		}
	}
	return svc, candidate, nil
}

func (s *Service) replay(ctx context.Context, tx Tx, rec IdempotencyRecord) (*model.Appointment, error) {
	if rec.AppointmentID == "" {
		return nil, nil
	}
	appt, err := tx.GetAppointmentForUpdate(ctx, rec.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("load idempotent appointment: %w", err)
	}
	return &appt, nil
}

func replayError(outcome string, candidate availability.Interval) error {
	switch availability.Reason(outcome) {
	case availability.ReasonBookingConflict, availability.ReasonBlockedConflict:
		return &availability.ConflictError{Reason: availability.Reason(outcome), Candidate: candidate}
	}
	return fmt.Errorf("%w: idempotency key already used", ErrInvalidRequest)
}

func (s *Service) requestDeposit(ctx context.Context, result *Result, svc model.Service, amount int64) {
	appt := result.Appointment
	dep, err := s.payments.CreateDeposit(ctx, payments.DepositRequest{
		AppointmentID: appt.ID,
		AmountCents:   amount,
		Currency:      svc.Currency,
		CustomerEmail: appt.CustomerEmail,
		Description:   "Deposit for " + svc.Name,
	})
	if err != nil {
		if !errors.Is(err, payments.ErrDisabled) {
			s.logger.Warn("deposit creation failed; appointment left pending", "err", err, "appointment_id", appt.ID)
		}
		return
	}
	if err := s.store.SetPaymentIntent(ctx, appt.ID, dep.IntentID); err != nil {
		s.logger.Error("failed to record payment intent", "err", err, "appointment_id", appt.ID)
	}
	result.Appointment.PaymentIntentID = dep.IntentID
	result.PaymentClientSecret = dep.ClientSecret
}

func (s *Service) invalidate(ctx context.Context, date time.Time) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, date)
	}
}
