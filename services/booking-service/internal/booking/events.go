package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/glowstudio/studio/services/booking-service/internal/outbox"
)

const aggregateAppointment = "appointment"

type appointmentPayload struct {
	AppointmentID   string `json:"appointment_id"`
	ServiceID       string `json:"service_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	StartsAt        string `json:"starts_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	CustomerPhone   string `json:"customer_phone,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
}

type reminderPayload struct {
	AppointmentID string            `json:"appointment_id"`
	Channel       string            `json:"channel"`
	Recipient     string            `json:"recipient"`
	RemindAt      string            `json:"remind_at"`
	TemplateData  map[string]string `json:"template_data"`
}

func (s *Service) payloadFor(appt model.Appointment) appointmentPayload {
	span := appt.Span()
	return appointmentPayload{
		AppointmentID:   appt.ID,
		ServiceID:       appt.ServiceID,
		Date:            appt.Date.Format(availability.DateLayout),
		StartTime:       span.Start.String(),
		EndTime:         span.End.String(),
		StartsAt:        appt.StartMinute.On(appt.Date, s.loc).Format(time.RFC3339),
		DurationMinutes: appt.DurationMinutes,
		Status:          appt.Status,
		CustomerEmail:   appt.CustomerEmail,
		CustomerPhone:   appt.CustomerPhone,
		CancelReason:    appt.CancelReason,
	}
}

func (s *Service) emitBooked(ctx context.Context, tx Tx, appt model.Appointment, svc model.Service) error {
	if err := insertJSON(ctx, tx, appt.ID, outbox.EventAppointmentBooked, s.payloadFor(appt)); err != nil {
		return err
	}

	startsAt := appt.StartMinute.On(appt.Date, s.loc)
	now := s.now()
	for _, offset := range s.cfg.ReminderOffsets {
		remindAt := startsAt.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		for _, ch := range [...]struct{ channel, recipient string }{
			{"email", appt.CustomerEmail},
			{"sms", appt.CustomerPhone},
		} {
			channel, recipient := ch.channel, ch.recipient
			if recipient == "" {
				continue
			}
			payload := reminderPayload{
				AppointmentID: appt.ID,
				Channel:       channel,
				Recipient:     recipient,
				RemindAt:      remindAt.UTC().Format(time.RFC3339),
				TemplateData: map[string]string{
					"customer_name": appt.CustomerName,
					"service_name":  svc.Name,
					"starts_at":     startsAt.Format(time.RFC3339),
				},
			}
			if err := insertJSON(ctx, tx, appt.ID, outbox.EventReminderRequested, payload); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) emitStatus(ctx context.Context, tx Tx, appt model.Appointment) error {
	eventType := outbox.StatusEventType(appt.Status)
	if eventType == "" {
		return nil
	}
	return insertJSON(ctx, tx, appt.ID, eventType, s.payloadFor(appt))
}

func insertJSON(ctx context.Context, tx Tx, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("build %s payload: %w", eventType, err)
	}
	if err := tx.InsertEvent(ctx, outbox.Event{
		AggregateType: aggregateAppointment,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}
