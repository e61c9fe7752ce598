package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL       = flag.String("base-url", getenv("BASE_URL", "http://localhost:8083"), "booking service base url")
		evtType       = flag.String("type", getenv("STRIPE_EVENT_TYPE", "payment_intent.succeeded"), "payment_intent.succeeded or payment_intent.canceled")
		appointmentID = flag.String("appointment-id", getenv("APPOINTMENT_ID", ""), "appointment_id metadata")
		intentID      = flag.String("intent-id", getenv("PAYMENT_INTENT_ID", ""), "payment intent id recorded on the appointment")
		secret        = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*appointmentID) == "" {
		fatal("APPOINTMENT_ID is required")
	}

	now := time.Now().UTC()
	if *intentID == "" {
		*intentID = fmt.Sprintf("pi_test_%d", now.UnixNano())
	}

	payload, err := buildEventJSON(fmt.Sprintf("evt_test_%d", now.UnixNano()), *evtType, now, *intentID, *appointmentID)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
}

func buildEventJSON(eventID, eventType string, t time.Time, intentID, appointmentID string) ([]byte, error) {
	status := ""
	switch eventType {
	case "payment_intent.succeeded":
		status = "succeeded"
	case "payment_intent.canceled":
		status = "canceled"
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":     intentID,
				"object": "payment_intent",
				"status": status,
				"metadata": map[string]any{
					"appointment_id": appointmentID,
				},
			},
		},
	})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
