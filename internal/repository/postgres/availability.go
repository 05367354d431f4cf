package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
)

func (r *availabilityRuleRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules (
			id, business_id, day_of_week, start_time, end_time,
			buffer_minutes, deleted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.BusinessID,
		rule.DayOfWeek,
		rule.StartTime,
		rule.EndTime,
		rule.BufferMinutes,
		rule.Deleted,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}
	return nil
}

func (r *availabilityRuleRepository) Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error) {
	query := `
		SELECT id, business_id, day_of_week, start_time, end_time,
			   buffer_minutes, deleted, created_at, updated_at
		FROM availability_rules
		WHERE id = $1 AND NOT deleted
	`
	var rule model.AvailabilityRule
	err := r.db.GetContext(ctx, &rule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability rule: %w", err)
	}
	return &rule, nil
}

func (r *availabilityRuleRepository) ListForDay(ctx context.Context, businessID uuid.UUID, day model.DayOfWeek) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT id, business_id, day_of_week, start_time, end_time,
			   buffer_minutes, deleted, created_at, updated_at
		FROM availability_rules
		WHERE business_id = $1 AND day_of_week = $2 AND NOT deleted
		ORDER BY start_time ASC, created_at ASC
	`
	var rules []*model.AvailabilityRule
	err := r.db.SelectContext(ctx, &rules, query, businessID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	return rules, nil
}

func (r *availabilityRuleRepository) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT id, business_id, day_of_week, start_time, end_time,
			   buffer_minutes, deleted, created_at, updated_at
		FROM availability_rules
		WHERE business_id = $1 AND NOT deleted
		ORDER BY day_of_week ASC, start_time ASC
	`
	var rules []*model.AvailabilityRule
	err := r.db.SelectContext(ctx, &rules, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	return rules, nil
}

func (r *availabilityRuleRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE availability_rules
		SET deleted = TRUE, updated_at = $2
		WHERE id = $1 AND NOT deleted
	`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete availability rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
