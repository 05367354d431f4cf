package booking

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
	"github.com/slotwise/scheduling-api/internal/service/catalog"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/logger"
	"github.com/slotwise/scheduling-api/pkg/messaging"
	"github.com/slotwise/scheduling-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "booking")

type fakeServiceRepo struct {
	services map[uuid.UUID]*model.ServiceDefinition
}

func (f *fakeServiceRepo) Get(_ context.Context, id uuid.UUID) (*model.ServiceDefinition, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return svc, nil
}

func (f *fakeServiceRepo) Upsert(_ context.Context, svc *model.ServiceDefinition) error {
	f.services[svc.ID] = svc
	return nil
}

// memBookingRepo mirrors the store's atomic check-then-insert: the overlap
// check and append run under one lock, so concurrent CreateIfFree calls
// serialize the way the advisory lock serializes them in Postgres.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings []*model.Booking
}

func (m *memBookingRepo) CreateIfFree(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.BusinessID == b.BusinessID && existing.Status.Claims() &&
			existing.StartTime.Before(b.EndTime) && existing.EndTime.After(b.StartTime) {
			return repository.ErrConflict
		}
	}
	m.bookings = append(m.bookings, b)
	return nil
}

func (m *memBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memBookingRepo) ListClaiming(_ context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.BusinessID == businessID && b.Status.Claims() &&
			b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookingRepo) HasConflict(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error) {
	busy, err := m.ListClaiming(ctx, businessID, start, end)
	if err != nil {
		return false, err
	}
	return len(busy) > 0, nil
}

func (m *memBookingRepo) List(_ context.Context, filters *model.BookingFilters, page *model.Pagination) ([]*model.Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*model.Booking
	for _, b := range m.bookings {
		if filters.CustomerID != nil && b.CustomerID != *filters.CustomerID {
			continue
		}
		if filters.BusinessID != nil && b.BusinessID != *filters.BusinessID {
			continue
		}
		matched = append(matched, b)
	}
	total := len(matched)
	offset := page.Offset()
	if offset > total {
		offset = total
	}
	end := offset + page.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	subjects []string
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

type fixture struct {
	svc       *Service
	repo      *memBookingRepo
	services  *fakeServiceRepo
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &memBookingRepo{}
	services := &fakeServiceRepo{services: make(map[uuid.UUID]*model.ServiceDefinition)}
	publisher := &fakePublisher{}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	svc := NewService(repo, catalog.NewService(services), publisher, log, testMetrics)
	return &fixture{svc: svc, repo: repo, services: services, publisher: publisher}
}

func (f *fixture) addService(businessID uuid.UUID, durationMinutes int, active bool) *model.ServiceDefinition {
	svc := &model.ServiceDefinition{
		ID:              uuid.New(),
		BusinessID:      businessID,
		Name:            "Consultation",
		DurationMinutes: durationMinutes,
		IsActive:        active,
		UpdatedAt:       time.Now().UTC(),
	}
	f.services.services[svc.ID] = svc
	return svc
}

func slotAt(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
}

func TestCreateBooking(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)
	customerID := uuid.New()

	created, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: customerID,
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, model.BookingStatusPendingPayment, created.Status)
	assert.Equal(t, slotAt(11), created.EndTime, "end time derives from the service duration")
	assert.Equal(t, []string{messaging.SubjectBookingRequested}, fx.publisher.published())
}

func TestCreateBooking_Conflict(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	_, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	// A second claim overlapping by half an hour must lose.
	_, err = fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10).Add(30 * time.Minute),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	assert.Len(t, fx.repo.bookings, 1, "losing claim writes nothing")
	assert.Equal(t, []string{messaging.SubjectBookingRequested}, fx.publisher.published(), "losing claim emits nothing")
}

func TestCreateBooking_BackToBack(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	for _, hour := range []int{10, 11} {
		_, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
			BusinessID: businessID,
			ServiceID:  svc.ID,
			CustomerID: uuid.New(),
			StartTime:  slotAt(hour),
		})
		require.NoError(t, err, "booking ending at %d:00 does not conflict with one starting there", hour)
	}
}

func TestCreateBooking_ConflictSpansServices(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svcA := fx.addService(businessID, 60, true)
	svcB := fx.addService(businessID, 30, true)

	_, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svcA.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	// Different service, same business, overlapping time: still a conflict.
	_, err = fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svcB.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10).Add(15 * time.Minute),
	})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestCreateBooking_Preconditions(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	active := fx.addService(businessID, 60, true)
	inactive := fx.addService(businessID, 60, false)

	_, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID, ServiceID: uuid.New(), CustomerID: uuid.New(), StartTime: slotAt(10),
	})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err), "unknown service")

	_, err = fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: uuid.New(), ServiceID: active.ID, CustomerID: uuid.New(), StartTime: slotAt(10),
	})
	assert.Equal(t, apperrors.CodeMismatch, apperrors.CodeOf(err), "foreign business")

	_, err = fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID, ServiceID: inactive.ID, CustomerID: uuid.New(), StartTime: slotAt(10),
	})
	assert.Equal(t, apperrors.CodeInactive, apperrors.CodeOf(err), "inactive service")

	assert.Empty(t, fx.repo.bookings)
}

func TestCreateBooking_ConcurrentClaims(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	const claimants = 20
	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
				BusinessID: businessID,
				ServiceID:  svc.ID,
				CustomerID: uuid.New(),
				StartTime:  slotAt(10),
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
		}
	}
	assert.Equal(t, 1, wins, "exactly one claim wins the slot")
	assert.Len(t, fx.repo.bookings, 1)
}

func TestCreateBooking_PublishFailureSwallowed(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)
	fx.publisher.err = context.DeadlineExceeded

	created, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err, "the booking is committed even when the event is lost")
	assert.NotNil(t, created)
}

func TestUpdateBookingStatus_Lifecycle(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	created, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	confirmed, err := fx.svc.UpdateBookingStatus(context.Background(), created.ID, model.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

	completed, err := fx.svc.UpdateBookingStatus(context.Background(), created.ID, model.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, completed.Status)

	assert.Equal(t, []string{
		messaging.SubjectBookingRequested,
		messaging.SubjectBookingConfirmed,
		messaging.SubjectSlotReserved,
		messaging.SubjectBookingCompleted,
	}, fx.publisher.published())
}

func TestUpdateBookingStatus_TerminalRejected(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	created, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	_, err = fx.svc.UpdateBookingStatus(context.Background(), created.ID, model.BookingStatusCancelled)
	require.NoError(t, err)

	_, err = fx.svc.UpdateBookingStatus(context.Background(), created.ID, model.BookingStatusConfirmed)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIllegalTransition, apperrors.CodeOf(err))

	stored, err := fx.svc.GetBooking(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, stored.Status, "rejected transition leaves state untouched")
}

func TestUpdateBookingStatus_NotFound(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.UpdateBookingStatus(context.Background(), uuid.New(), model.BookingStatusConfirmed)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	first, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	_, err = fx.svc.UpdateBookingStatus(context.Background(), first.ID, model.BookingStatusCancelled)
	require.NoError(t, err)

	second, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err, "a cancelled booking releases its claim")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestHasConflict(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	_, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  slotAt(10),
	})
	require.NoError(t, err)

	conflict, err := fx.svc.HasConflict(context.Background(), businessID, slotAt(10).Add(30*time.Minute), slotAt(11).Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = fx.svc.HasConflict(context.Background(), businessID, slotAt(11), slotAt(12))
	require.NoError(t, err)
	assert.False(t, conflict, "back-to-back interval is free")

	conflict, err = fx.svc.HasConflict(context.Background(), uuid.New(), slotAt(10), slotAt(11))
	require.NoError(t, err)
	assert.False(t, conflict, "conflicts are scoped per business")
}

func TestListBookings(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)
	customerID := uuid.New()

	for _, hour := range []int{9, 11, 13} {
		_, err := fx.svc.CreateBooking(context.Background(), &model.CreateBookingRequest{
			BusinessID: businessID,
			ServiceID:  svc.ID,
			CustomerID: customerID,
			StartTime:  slotAt(hour),
		})
		require.NoError(t, err)
	}

	page := &model.Pagination{Page: 1, Limit: 2}
	items, total, err := fx.svc.ListBookingsForCustomer(context.Background(), customerID, page)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 2)

	items, total, err = fx.svc.ListBookingsForBusiness(context.Background(), businessID, &model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)

	_, total, err = fx.svc.ListBookingsForCustomer(context.Background(), uuid.New(), &model.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
