package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowstudio/studio/services/booking-service/internal/model"
)

type CatalogStore interface {
	ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error)
	CreateService(ctx context.Context, s model.Service) (model.Service, error)
	DeactivateService(ctx context.Context, id string) error
}

type CatalogHandler struct {
	store  CatalogStore
	logger *slog.Logger
}

func NewCatalogHandler(store CatalogStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger}
}

type serviceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Description     string `json:"description,omitempty"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Description     string `json:"description"`
}

func toServiceItem(s model.Service) serviceItem {
	return serviceItem{
		ID:              s.ID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		PriceCents:      s.PriceCents,
		Currency:        s.Currency,
		Description:     s.Description,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Public lists the active catalog.
func (h *CatalogHandler) Public(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	h.list(w, r, true)
}

func (h *CatalogHandler) Admin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, false)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.deactivate(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	services, err := h.store.ListServices(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list services failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list services", "")
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, toServiceItem(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required", "invalid_request")
		return
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > 8*60 {
		writeError(w, http.StatusBadRequest, "duration_minutes must be between 1 and 480", "invalid_duration")
		return
	}
	if req.PriceCents < 0 {
		writeError(w, http.StatusBadRequest, "price_cents must not be negative", "invalid_request")
		return
	}

	created, err := h.store.CreateService(r.Context(), model.Service{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        strings.TrimSpace(req.Currency),
		Description:     strings.TrimSpace(req.Description),
	})
	if err != nil {
		h.logger.Error("create service failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create service", "")
		return
	}
	writeJSON(w, http.StatusCreated, toServiceItem(created))
}

func (h *CatalogHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required", "invalid_request")
		return
	}
	if err := h.store.DeactivateService(r.Context(), id); err != nil {
		if code, _ := errorStatus(err); code == http.StatusInternalServerError {
			h.logger.Error("deactivate service failed", "err", err)
		}
		writeDomainError(w, err, "failed to deactivate service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
