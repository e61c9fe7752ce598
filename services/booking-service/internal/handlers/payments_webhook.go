package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

type DepositSettler interface {
	SettleDeposit(ctx context.Context, appointmentID, intentID string, paid bool) (model.Appointment, bool, error)
}

type PaymentWebhookHandler struct {
	settler   DepositSettler
	secret    string
	tolerance time.Duration
	logger    *slog.Logger
}

func NewPaymentWebhookHandler(settler DepositSettler, secret string, tolerance time.Duration, logger *slog.Logger) *PaymentWebhookHandler {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &PaymentWebhookHandler{settler: settler, secret: strings.TrimSpace(secret), tolerance: tolerance, logger: logger}
}

// Stripe handles deposit PaymentIntent events. The signature is the only auth.
func (h *PaymentWebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if h.secret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	evt, err := webhook.ConstructEventWithOptions(body, sigHeader, h.secret, webhook.ConstructEventOptions{
		Tolerance:                h.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var paid bool
	switch string(evt.Type) {
	case "payment_intent.succeeded":
		paid = true
	case "payment_intent.canceled":
		paid = false
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
		h.logger.Error("stripe: invalid payment intent payload", "err", err, "provider_event_id", evt.ID)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	appointmentID := strings.TrimSpace(intent.Metadata["appointment_id"])
	if appointmentID == "" {
		h.logger.Warn("stripe: payment intent without appointment_id", "provider_event_id", evt.ID, "intent_id", intent.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	appt, changed, err := h.settler.SettleDeposit(r.Context(), appointmentID, intent.ID, paid)
	if err != nil {
		code, _ := errorStatus(err)
		if code == http.StatusInternalServerError {
			// Non-2xx makes Stripe redeliver.
			h.logger.Error("stripe: settle deposit failed", "err", err, "appointment_id", appointmentID)
			http.Error(w, "failed to settle deposit", http.StatusInternalServerError)
			return
		}
		h.logger.Warn("stripe: deposit event rejected", "err", err, "appointment_id", appointmentID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
		return
	}

	h.logger.Info("deposit settled",
		"provider_event_id", evt.ID,
		"event_type", string(evt.Type),
		"appointment_id", appt.ID,
		"status", appt.Status,
		"changed", changed,
	)
	status := "applied"
	if !changed {
		status = "duplicate"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "appointment_status": appt.Status})
}
