package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowstudio/studio/libs/httpx"
	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
)

type BookingService interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]availability.Minute, error)
	Check(ctx context.Context, date time.Time, start availability.Minute, serviceID string) (availability.Interval, model.Service, error)
	Book(ctx context.Context, req booking.Request) (booking.Result, error)
	UpdateStatus(ctx context.Context, id, status, reason string) (model.Appointment, error)
}

type AppointmentReader interface {
	ListByDate(ctx context.Context, date time.Time) ([]model.Appointment, error)
}

type BookingHandler struct {
	svc         BookingService
	appts       AppointmentReader
	granularity int
	logger      *slog.Logger
}

func NewBookingHandler(svc BookingService, appts AppointmentReader, granularity int, logger *slog.Logger) *BookingHandler {
	if granularity <= 0 {
		granularity = availability.DefaultGranularityMinutes
	}
	return &BookingHandler{svc: svc, appts: appts, granularity: granularity, logger: logger}
}

type createBookingRequest struct {
	ServiceID     string `json:"service_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Notes         string `json:"notes"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
}

type createBookingResponse struct {
	Appointment         appointmentItem `json:"appointment"`
	PaymentClientSecret string          `json:"payment_client_secret,omitempty"`
}

type updateStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

type appointmentItem struct {
	AppointmentID   string `json:"appointment_id"`
	ServiceID       string `json:"service_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	CustomerPhone   string `json:"customer_phone,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	Date               string     `json:"date"`
	GranularityMinutes int        `json:"granularity_minutes"`
	Slots              []slotItem `json:"slots"`
}

type checkResponse struct {
	Available       bool   `json:"available"`
	Reason          string `json:"reason,omitempty"`
	ServiceID       string `json:"service_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	span := a.Span()
	item := appointmentItem{
		AppointmentID:   a.ID,
		ServiceID:       a.ServiceID,
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		Notes:           a.Notes,
		Date:            a.Date.Format(availability.DateLayout),
		StartTime:       span.Start.String(),
		EndTime:         span.End.String(),
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
		PaymentIntentID: a.PaymentIntentID,
		CancelReason:    a.CancelReason,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	date, err := availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), date)
	if err != nil {
		h.logger.Error("slot computation failed", "err", err, "date", date.Format(availability.DateLayout))
		writeError(w, http.StatusServiceUnavailable, "availability unavailable", "")
		return
	}

	resp := slotsResponse{
		Date:               date.Format(availability.DateLayout),
		GranularityMinutes: h.granularity,
		Slots:              make([]slotItem, 0, len(slots)),
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotItem{
			StartTime: s.String(),
			EndTime:   s.Add(h.granularity).String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Check validates a candidate without booking it. Rejections are reported as
// available=false with the same reason Create would return.
func (h *BookingHandler) Check(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if serviceID == "" {
		writeError(w, http.StatusBadRequest, "service_id required", "invalid_request")
		return
	}
	date, err := availability.ParseDate(q.Get("date"))
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	start, err := availability.ParseClock(q.Get("start_time"))
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	span, svc, err := h.svc.Check(r.Context(), date, start, serviceID)
	resp := checkResponse{
		Available: err == nil,
		ServiceID: serviceID,
		Date:      date.Format(availability.DateLayout),
		StartTime: start.String(),
	}
	if span.Valid() {
		resp.EndTime = span.End.String()
		resp.DurationMinutes = svc.DurationMinutes
	}
	if err != nil {
		code, reason := errorStatus(err)
		if code != http.StatusConflict && code != http.StatusUnprocessableEntity {
			if code == http.StatusInternalServerError {
				h.logger.Error("availability check failed", "err", err)
			}
			writeDomainError(w, err, "availability check failed")
			return
		}
		resp.Reason = reason
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	start, err := availability.ParseClock(req.StartTime)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	res, err := h.svc.Book(r.Context(), booking.Request{
		ServiceID:      strings.TrimSpace(req.ServiceID),
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Notes:          req.Notes,
		Date:           date,
		Start:          start,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		if code, _ := errorStatus(err); code == http.StatusInternalServerError {
			h.logger.Error("booking failed", "err", err)
		}
		writeDomainError(w, err, "failed to create appointment")
		return
	}

	code := http.StatusCreated
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		code = http.StatusOK
	}
	writeJSON(w, code, createBookingResponse{
		Appointment:         toAppointmentItem(res.Appointment),
		PaymentClientSecret: res.PaymentClientSecret,
	})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	date, err := availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	appts, err := h.appts.ListByDate(r.Context(), date)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments", "")
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.AppointmentID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "appointment_id and status required", "invalid_request")
		return
	}

	appt, err := h.svc.UpdateStatus(r.Context(), req.AppointmentID, req.Status, req.Reason)
	if err != nil {
		if code, _ := errorStatus(err); code == http.StatusInternalServerError {
			h.logger.Error("status update failed", "err", err, "appointment_id", req.AppointmentID)
		}
		writeDomainError(w, err, "failed to update appointment")
		return
	}
	actor := ""
	if claims, ok := httpx.ClaimsFromContext(r.Context()); ok {
		actor = claims.Sub
	}
	h.logger.Info("appointment status changed", "appointment_id", appt.ID, "status", appt.Status, "actor", actor)
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}
