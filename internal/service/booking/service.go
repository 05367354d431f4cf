package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
	"github.com/slotwise/scheduling-api/internal/service/catalog"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/logger"
	"github.com/slotwise/scheduling-api/pkg/messaging"
	"github.com/slotwise/scheduling-api/pkg/metrics"
)

type Service struct {
	repo      repository.BookingRepository
	catalog   *catalog.Service
	publisher messaging.Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	repo repository.BookingRepository,
	catalogSvc *catalog.Service,
	publisher messaging.Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalogSvc,
		publisher: publisher,
		logger:    log,
		metrics:   m,
	}
}

// CreateBooking claims a slot for a customer. The conflict check and insert
// run atomically in the store, so the at-most-one-claim invariant holds under
// concurrent requests. On success a booking.requested event is emitted, best
// effort.
func (s *Service) CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	svc, err := s.catalog.ResolveBookable(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking := &model.Booking{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		StartTime:  req.StartTime,
		EndTime:    req.StartTime.Add(svc.Duration()),
		Status:     model.BookingStatusPendingPayment,
	}

	if err := s.repo.CreateIfFree(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.BookingConflicts.Inc()
			return nil, apperrors.Conflict("time slot is no longer available")
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create booking: %w", err))
	}

	s.metrics.BookingsCreated.Inc()
	s.emit(ctx, messaging.SubjectBookingRequested, booking)
	return booking, nil
}

// HasConflict is the conflict detector contract: does any claiming booking
// for the business overlap [start, end)? The check spans the whole business
// timeline, not a single service.
func (s *Service) HasConflict(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error) {
	conflict, err := s.repo.HasConflict(ctx, businessID, start, end)
	if err != nil {
		return false, apperrors.Internal(fmt.Errorf("failed to check conflicts: %w", err))
	}
	return conflict, nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("booking", err)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to get booking: %w", err))
	}
	return booking, nil
}

// UpdateBookingStatus applies a lifecycle transition. Transitions out of a
// terminal state are rejected.
func (s *Service) UpdateBookingStatus(ctx context.Context, id uuid.UUID, newStatus model.BookingStatus) (*model.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(booking.Status, newStatus); err != nil {
		return nil, err
	}

	oldStatus := booking.Status
	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to update booking status: %w", err))
	}

	booking.Status = newStatus
	booking.UpdatedAt = time.Now().UTC()
	s.metrics.StatusTransitions.WithLabelValues(string(oldStatus), string(newStatus)).Inc()

	switch newStatus {
	case model.BookingStatusConfirmed:
		s.emit(ctx, messaging.SubjectBookingConfirmed, booking)
		s.emit(ctx, messaging.SubjectSlotReserved, booking)
	case model.BookingStatusCancelled:
		s.emit(ctx, messaging.SubjectBookingCancelled, booking)
	case model.BookingStatusCompleted:
		s.emit(ctx, messaging.SubjectBookingCompleted, booking)
	}

	return booking, nil
}

// ListBookingsForCustomer returns the customer's bookings, newest start first.
func (s *Service) ListBookingsForCustomer(ctx context.Context, customerID uuid.UUID, page *model.Pagination) ([]*model.Booking, int, error) {
	return s.list(ctx, &model.BookingFilters{CustomerID: &customerID}, page)
}

// ListBookingsForBusiness returns the business's bookings, newest start first.
func (s *Service) ListBookingsForBusiness(ctx context.Context, businessID uuid.UUID, page *model.Pagination) ([]*model.Booking, int, error) {
	return s.list(ctx, &model.BookingFilters{BusinessID: &businessID}, page)
}

func (s *Service) list(ctx context.Context, filters *model.BookingFilters, page *model.Pagination) ([]*model.Booking, int, error) {
	page.Normalize()
	bookings, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to list bookings: %w", err))
	}
	return bookings, total, nil
}

// emit publishes a lifecycle event. Failures are logged and swallowed: the
// state change has already committed and delivery is at most once.
func (s *Service) emit(ctx context.Context, subject string, booking *model.Booking) {
	if err := s.publisher.Publish(ctx, subject, model.NewBookingEvent(booking)); err != nil {
		s.logger.Error(err, "failed to publish booking event",
			"subject", subject,
			"booking_id", booking.ID.String())
	}
}
