package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
)

// Sentinel errors returned by all repository implementations. Services
// reclassify them into the API error taxonomy at the handler boundary.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("overlapping booking exists")
)

// All repository interfaces in one file
type (
	// ServiceDefinitionRepository stores the local mirror of services owned by
	// the business-management system.
	ServiceDefinitionRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.ServiceDefinition, error)
		Upsert(ctx context.Context, svc *model.ServiceDefinition) error
	}

	AvailabilityRuleRepository interface {
		Create(ctx context.Context, rule *model.AvailabilityRule) error
		Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error)
		ListForDay(ctx context.Context, businessID uuid.UUID, day model.DayOfWeek) ([]*model.AvailabilityRule, error)
		ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error)
		MarkDeleted(ctx context.Context, id uuid.UUID) error
	}

	BookingRepository interface {
		// CreateIfFree inserts the booking unless a claiming booking for the
		// same business overlaps [booking.StartTime, booking.EndTime). The
		// conflict check and insert run in one transaction under an advisory
		// lock keyed on the business, so concurrent calls for overlapping
		// intervals serialize and at most one succeeds.
		CreateIfFree(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
		// ListClaiming returns claiming bookings for the business whose
		// interval intersects [from, to).
		ListClaiming(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.Booking, error)
		HasConflict(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error)
		List(ctx context.Context, filters *model.BookingFilters, page *model.Pagination) ([]*model.Booking, int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMessage string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
