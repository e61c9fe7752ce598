package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/storage"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, reason string) {
	writeJSON(w, code, errorResponse{Error: msg, Reason: reason})
}

// errorStatus maps domain errors to an HTTP status and a machine-readable reason.
func errorStatus(err error) (int, string) {
	var conflict *availability.ConflictError
	switch {
	case errors.As(err, &conflict):
		return http.StatusConflict, string(conflict.Reason)
	case errors.Is(err, availability.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, availability.ErrInvalidTime):
		return http.StatusBadRequest, "invalid_time"
	case errors.Is(err, availability.ErrInvalidDuration):
		return http.StatusBadRequest, "invalid_duration"
	case errors.Is(err, booking.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, booking.ErrOutsideBusinessHours):
		return http.StatusUnprocessableEntity, "outside_business_hours"
	case errors.Is(err, booking.ErrInPast):
		return http.StatusUnprocessableEntity, "in_past"
	case errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, booking.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found"
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrBlockNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, ""
}

// writeDomainError writes err with its mapped status. Unmapped errors are logged
// by the caller and reported without internal detail.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	code, reason := errorStatus(err)
	if code == http.StatusInternalServerError {
		writeError(w, code, fallback, "")
		return
	}
	writeError(w, code, err.Error(), reason)
}

func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

// parseBoundary parses an "HH:MM" clock and also accepts "24:00" as end of day.
func parseBoundary(raw string) (availability.Minute, error) {
	if strings.TrimSpace(raw) == "24:00" {
		return availability.MinutesPerDay, nil
	}
	return availability.ParseClock(raw)
}
