package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
)

const claimingStatuses = `('CONFIRMED', 'PENDING_PAYMENT')`

// CreateIfFree serializes concurrent inserts for the same business with a
// transaction-scoped advisory lock, then re-runs the overlap check inside the
// transaction before inserting. Two concurrent requests for overlapping
// intervals therefore cannot both pass the check.
func (r *bookingRepository) CreateIfFree(ctx context.Context, booking *model.Booking) (err error) {
	defer func(start time.Time) { r.observe("create_if_free", start, err) }(time.Now())

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`,
			booking.BusinessID,
		); err != nil {
			return fmt.Errorf("failed to acquire booking lock: %w", err)
		}

		var hasConflict bool
		err := tx.GetContext(ctx, &hasConflict, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE business_id = $1
				AND status IN `+claimingStatuses+`
				AND start_time < $3
				AND end_time > $2
			)
		`, booking.BusinessID, booking.StartTime, booking.EndTime)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return repository.ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (
				id, business_id, service_id, customer_id,
				start_time, end_time, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			booking.ID,
			booking.BusinessID,
			booking.ServiceID,
			booking.CustomerID,
			booking.StartTime,
			booking.EndTime,
			booking.Status,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `
		SELECT id, business_id, service_id, customer_id,
			   start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`
	var booking model.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
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

func (r *bookingRepository) ListClaiming(ctx context.Context, businessID uuid.UUID, from, to time.Time) (_ []*model.Booking, err error) {
	defer func(start time.Time) { r.observe("list_claiming", start, err) }(time.Now())

	query := `
		SELECT id, business_id, service_id, customer_id,
			   start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE business_id = $1
		AND status IN ` + claimingStatuses + `
		AND start_time < $3
		AND end_time > $2
		ORDER BY start_time ASC
	`
	var bookings []*model.Booking
	err = r.db.SelectContext(ctx, &bookings, query, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) HasConflict(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE business_id = $1
			AND status IN ` + claimingStatuses + `
			AND start_time < $3
			AND end_time > $2
		)
	`
	var hasConflict bool
	err := r.db.GetContext(ctx, &hasConflict, query, businessID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters, page *model.Pagination) ([]*model.Booking, int, error) {
	where := ""
	var arg interface{}
	switch {
	case filters.CustomerID != nil:
		where = "customer_id = $1"
		arg = *filters.CustomerID
	case filters.BusinessID != nil:
		where = "business_id = $1"
		arg = *filters.BusinessID
	default:
		return nil, 0, fmt.Errorf("booking list requires a customer or business filter")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bookings WHERE `+where, arg); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := `
		SELECT id, business_id, service_id, customer_id,
			   start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE ` + where + `
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, arg, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}
