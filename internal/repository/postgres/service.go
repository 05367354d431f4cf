package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
)

func (r *serviceDefinitionRepository) Get(ctx context.Context, id uuid.UUID) (*model.ServiceDefinition, error) {
	query := `
		SELECT id, business_id, name, duration_minutes, price, currency, is_active, updated_at
		FROM service_definitions
		WHERE id = $1
	`
	var svc model.ServiceDefinition
	err := r.db.GetContext(ctx, &svc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service definition: %w", err)
	}
	return &svc, nil
}

// Upsert applies last-write-wins semantics: events may arrive out of order, so
// an older update never overwrites a newer row.
func (r *serviceDefinitionRepository) Upsert(ctx context.Context, svc *model.ServiceDefinition) error {
	query := `
		INSERT INTO service_definitions (
			id, business_id, name, duration_minutes, price, currency, is_active, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			business_id = EXCLUDED.business_id,
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		WHERE service_definitions.updated_at <= EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.BusinessID,
		svc.Name,
		svc.DurationMinutes,
		svc.Price,
		svc.Currency,
		svc.IsActive,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert service definition: %w", err)
	}
	return nil
}
