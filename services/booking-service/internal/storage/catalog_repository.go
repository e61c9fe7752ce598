package storage

import (
	"context"
	"strings"

	"github.com/glowstudio/studio/libs/db"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/model"
	"github.com/google/uuid"
)

type CatalogRepository struct {
	q db.Querier
}

func NewCatalogRepository(q db.Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

func (r *CatalogRepository) CreateService(ctx context.Context, s model.Service) (model.Service, error) {
	s.ID = uuid.NewString()
	s.IsActive = true
	if strings.TrimSpace(s.Currency) == "" {
		s.Currency = "usd"
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO services (id, name, duration_minutes, price_cents, currency, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.Name, s.DurationMinutes, s.PriceCents, strings.ToLower(s.Currency), s.Description).Scan(&s.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Service{}, booking.ErrServiceNotFound
	}
	var s model.Service
	err := r.q.QueryRow(ctx, `
		SELECT id::text, name, duration_minutes, price_cents, currency, description, is_active, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Currency, &s.Description, &s.IsActive, &s.CreatedAt)
	if IsNotFound(err) {
		return model.Service{}, booking.ErrServiceNotFound
	}
	return s, err
}

func (r *CatalogRepository) ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, name, duration_minutes, price_cents, currency, description, is_active, created_at
		FROM services
		WHERE is_active OR NOT $1
		ORDER BY name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Currency, &s.Description, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// DeactivateService hides a service from the public catalog. Existing
// appointments keep their reference.
func (r *CatalogRepository) DeactivateService(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return booking.ErrServiceNotFound
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE services
		SET is_active = false, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrServiceNotFound
	}
	return nil
}
