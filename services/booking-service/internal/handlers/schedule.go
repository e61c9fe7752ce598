package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
)

type ScheduleStore interface {
	ListBusinessHours(ctx context.Context) ([]model.BusinessHours, error)
	SaveBusinessHours(ctx context.Context, h model.BusinessHours) error
	ListBlockedIntervals(ctx context.Context, date time.Time) ([]model.BlockedInterval, error)
	AddBlockedInterval(ctx context.Context, b model.BlockedInterval) (model.BlockedInterval, error)
	RemoveBlockedInterval(ctx context.Context, id string) (time.Time, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, date time.Time)
	InvalidateAll(ctx context.Context)
}

type ScheduleHandler struct {
	store  ScheduleStore
	cache  CacheInvalidator
	logger *slog.Logger
}

func NewScheduleHandler(store ScheduleStore, cache CacheInvalidator, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{store: store, cache: cache, logger: logger}
}

type businessHoursItem struct {
	Weekday   int    `json:"weekday"`
	Day       string `json:"day"`
	IsOpen    bool   `json:"is_open"`
	OpenTime  string `json:"open_time,omitempty"`
	CloseTime string `json:"close_time,omitempty"`
}

type businessHoursRequest struct {
	Weekday   *int   `json:"weekday"`
	IsOpen    bool   `json:"is_open"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

type blockedIntervalItem struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

type blockedIntervalRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

func clockOrEndOfDay(m availability.Minute) string {
	if m == availability.MinutesPerDay {
		return "24:00"
	}
	return m.String()
}

func (h *ScheduleHandler) BusinessHours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBusinessHours(w, r)
	case http.MethodPut, http.MethodPost:
		h.saveBusinessHours(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// listBusinessHours returns all seven weekdays; days without a row are closed.
func (h *ScheduleHandler) listBusinessHours(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListBusinessHours(r.Context())
	if err != nil {
		h.logger.Error("list business hours failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list business hours", "")
		return
	}
	byDay := make(map[time.Weekday]model.BusinessHours, len(rows))
	for _, row := range rows {
		byDay[row.Weekday] = row
	}

	items := make([]businessHoursItem, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		item := businessHoursItem{Weekday: int(d), Day: d.String()}
		if row, ok := byDay[d]; ok && row.IsOpen {
			item.IsOpen = true
			item.OpenTime = row.OpenMinute.String()
			item.CloseTime = clockOrEndOfDay(row.CloseMinute)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) saveBusinessHours(w http.ResponseWriter, r *http.Request) {
	var req businessHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Weekday == nil || *req.Weekday < 0 || *req.Weekday > 6 {
		writeError(w, http.StatusBadRequest, "weekday must be 0 (Sunday) to 6 (Saturday)", "invalid_request")
		return
	}

	hours := model.BusinessHours{Weekday: time.Weekday(*req.Weekday), IsOpen: req.IsOpen}
	if req.IsOpen {
		open, err := availability.ParseClock(req.OpenTime)
		if err != nil {
			writeDomainError(w, err, "")
			return
		}
		shut, err := parseBoundary(req.CloseTime)
		if err != nil {
			writeDomainError(w, err, "")
			return
		}
		if open >= shut {
			writeError(w, http.StatusBadRequest, "open_time must be before close_time", "invalid_time")
			return
		}
		hours.OpenMinute, hours.CloseMinute = open, shut
	}

	if err := h.store.SaveBusinessHours(r.Context(), hours); err != nil {
		h.logger.Error("save business hours failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save business hours", "")
		return
	}
	if h.cache != nil {
		h.cache.InvalidateAll(r.Context())
	}

	item := businessHoursItem{Weekday: int(hours.Weekday), Day: hours.Weekday.String(), IsOpen: hours.IsOpen}
	if hours.IsOpen {
		item.OpenTime = hours.OpenMinute.String()
		item.CloseTime = clockOrEndOfDay(hours.CloseMinute)
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ScheduleHandler) BlockedIntervals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBlocked(w, r)
	case http.MethodPost:
		h.createBlocked(w, r)
	case http.MethodDelete:
		h.deleteBlocked(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func toBlockedItem(b model.BlockedInterval) blockedIntervalItem {
	return blockedIntervalItem{
		ID:        b.ID,
		Date:      b.Date.Format(availability.DateLayout),
		StartTime: b.StartMinute.String(),
		EndTime:   clockOrEndOfDay(b.EndMinute),
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ScheduleHandler) listBlocked(w http.ResponseWriter, r *http.Request) {
	date, err := availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	blocks, err := h.store.ListBlockedIntervals(r.Context(), date)
	if err != nil {
		h.logger.Error("list blocked intervals failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list blocked intervals", "")
		return
	}
	items := make([]blockedIntervalItem, 0, len(blocks))
	for _, b := range blocks {
		items = append(items, toBlockedItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) createBlocked(w http.ResponseWriter, r *http.Request) {
	var req blockedIntervalRequest
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
	end, err := parseBoundary(req.EndTime)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if start >= end {
		writeError(w, http.StatusBadRequest, "start_time must be before end_time", "invalid_time")
		return
	}

	created, err := h.store.AddBlockedInterval(r.Context(), model.BlockedInterval{
		Date:        date,
		StartMinute: start,
		EndMinute:   end,
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		h.logger.Error("create blocked interval failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create blocked interval", "")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(r.Context(), date)
	}
	writeJSON(w, http.StatusCreated, toBlockedItem(created))
}

func (h *ScheduleHandler) deleteBlocked(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required", "invalid_request")
		return
	}
	date, err := h.store.RemoveBlockedInterval(r.Context(), id)
	if err != nil {
		if code, _ := errorStatus(err); code == http.StatusInternalServerError {
			h.logger.Error("delete blocked interval failed", "err", err)
		}
		writeDomainError(w, err, "failed to delete blocked interval")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(r.Context(), date)
	}
	w.WriteHeader(http.StatusNoContent)
}
