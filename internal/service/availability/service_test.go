package availability

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
	"github.com/slotwise/scheduling-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "availability")

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

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]*model.AvailabilityRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*model.AvailabilityRule)}
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *model.AvailabilityRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeRuleRepo) Get(_ context.Context, id uuid.UUID) (*model.AvailabilityRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.Deleted {
		return nil, repository.ErrNotFound
	}
	return rule, nil
}

func (f *fakeRuleRepo) ListForDay(_ context.Context, businessID uuid.UUID, day model.DayOfWeek) ([]*model.AvailabilityRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AvailabilityRule
	for _, r := range f.rules {
		if r.BusinessID == businessID && r.DayOfWeek == day && !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) ListForBusiness(_ context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AvailabilityRule
	for _, r := range f.rules {
		if r.BusinessID == businessID && !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) MarkDeleted(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.Deleted {
		return repository.ErrNotFound
	}
	rule.Deleted = true
	return nil
}

type fakeBookingRepo struct {
	bookings []*model.Booking
}

func (f *fakeBookingRepo) CreateIfFree(_ context.Context, b *model.Booking) error {
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.BookingStatus) error {
	for _, b := range f.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBookingRepo) ListClaiming(_ context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.BusinessID == businessID && b.Status.Claims() &&
			b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) HasConflict(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error) {
	busy, err := f.ListClaiming(ctx, businessID, start, end)
	if err != nil {
		return false, err
	}
	return len(busy) > 0, nil
}

func (f *fakeBookingRepo) List(_ context.Context, filters *model.BookingFilters, page *model.Pagination) ([]*model.Booking, int, error) {
	var out []*model.Booking
	for _, b := range f.bookings {
		if filters.CustomerID != nil && b.CustomerID != *filters.CustomerID {
			continue
		}
		if filters.BusinessID != nil && b.BusinessID != *filters.BusinessID {
			continue
		}
		out = append(out, b)
	}
	return out, len(out), nil
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	subjects []string
	payloads []interface{}
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

type fixture struct {
	svc       *Service
	rules     *fakeRuleRepo
	bookings  *fakeBookingRepo
	services  *fakeServiceRepo
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := newFakeRuleRepo()
	bookings := &fakeBookingRepo{}
	services := &fakeServiceRepo{services: make(map[uuid.UUID]*model.ServiceDefinition)}
	publisher := &fakePublisher{}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	svc := NewService(rules, bookings, catalog.NewService(services), publisher, time.UTC, log, testMetrics)
	return &fixture{svc: svc, rules: rules, bookings: bookings, services: services, publisher: publisher}
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

func TestCreateRule(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()

	rule, err := fx.svc.CreateRule(context.Background(), &model.CreateAvailabilityRuleRequest{
		BusinessID:    businessID,
		DayOfWeek:     model.Monday,
		StartTime:     "09:00",
		EndTime:       "17:00",
		BufferMinutes: 15,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rule.ID)
	assert.False(t, rule.Deleted)
	assert.Equal(t, []string{"availability.rule.updated"}, fx.publisher.published())
}

func TestCreateRule_Validation(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()

	tests := []struct {
		name string
		req  model.CreateAvailabilityRuleRequest
	}{
		{"invalid day", model.CreateAvailabilityRuleRequest{BusinessID: businessID, DayOfWeek: "FUNDAY", StartTime: "09:00", EndTime: "17:00"}},
		{"bad start clock", model.CreateAvailabilityRuleRequest{BusinessID: businessID, DayOfWeek: model.Monday, StartTime: "9:00", EndTime: "17:00"}},
		{"bad end clock", model.CreateAvailabilityRuleRequest{BusinessID: businessID, DayOfWeek: model.Monday, StartTime: "09:00", EndTime: "25:00"}},
		{"start after end", model.CreateAvailabilityRuleRequest{BusinessID: businessID, DayOfWeek: model.Monday, StartTime: "17:00", EndTime: "09:00"}},
		{"start equals end", model.CreateAvailabilityRuleRequest{BusinessID: businessID, DayOfWeek: model.Monday, StartTime: "09:00", EndTime: "09:00"}},
		{"negative buffer", model.CreateAvailabilityRuleRequest{BusinessID: businessID, DayOfWeek: model.Monday, StartTime: "09:00", EndTime: "17:00", BufferMinutes: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.CreateRule(context.Background(), &tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		})
	}
	assert.Empty(t, fx.publisher.published(), "no events for rejected rules")
}

func TestDeleteRule(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()

	rule, err := fx.svc.CreateRule(context.Background(), &model.CreateAvailabilityRuleRequest{
		BusinessID: businessID,
		DayOfWeek:  model.Monday,
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteRule(context.Background(), rule.ID))

	// Soft delete: the row stays, flagged, and drops out of listings.
	assert.True(t, fx.rules.rules[rule.ID].Deleted)
	listed, err := fx.svc.ListRules(context.Background(), businessID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	subjects := fx.publisher.published()
	assert.Equal(t, []string{"availability.rule.updated", "availability.rule.updated"}, subjects)
}

func TestDeleteRule_NotFound(t *testing.T) {
	fx := newFixture(t)
	err := fx.svc.DeleteRule(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestGetAvailableSlots(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	// Monday 2026-03-02.
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := fx.svc.CreateRule(context.Background(), &model.CreateAvailabilityRuleRequest{
		BusinessID: businessID,
		DayOfWeek:  model.Monday,
		StartTime:  "09:00",
		EndTime:    "12:00",
	})
	require.NoError(t, err)

	// An existing confirmed booking at 10:00 knocks out the middle candidate.
	fx.bookings.bookings = append(fx.bookings.bookings, &model.Booking{
		Base:       model.Base{ID: uuid.New()},
		BusinessID: businessID,
		ServiceID:  svc.ID,
		CustomerID: uuid.New(),
		StartTime:  date.Add(10 * time.Hour),
		EndTime:    date.Add(11 * time.Hour),
		Status:     model.BookingStatusConfirmed,
	})

	slots, err := fx.svc.GetAvailableSlots(context.Background(), businessID, svc.ID, date)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, date.Add(9*time.Hour), slots[0].StartTime)
	assert.Equal(t, date.Add(11*time.Hour), slots[1].StartTime)
}

func TestGetAvailableSlots_CancelledBookingFreesSlot(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := fx.svc.CreateRule(context.Background(), &model.CreateAvailabilityRuleRequest{
		BusinessID: businessID,
		DayOfWeek:  model.Monday,
		StartTime:  "09:00",
		EndTime:    "11:00",
	})
	require.NoError(t, err)

	fx.bookings.bookings = append(fx.bookings.bookings, &model.Booking{
		Base:       model.Base{ID: uuid.New()},
		BusinessID: businessID,
		ServiceID:  svc.ID,
		StartTime:  date.Add(9 * time.Hour),
		EndTime:    date.Add(10 * time.Hour),
		Status:     model.BookingStatusCancelled,
	})

	slots, err := fx.svc.GetAvailableSlots(context.Background(), businessID, svc.ID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 2, "cancelled bookings do not claim slots")
}

func TestGetAvailableSlots_MergesRulesSorted(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for _, window := range [][2]string{{"14:00", "16:00"}, {"09:00", "11:00"}} {
		_, err := fx.svc.CreateRule(context.Background(), &model.CreateAvailabilityRuleRequest{
			BusinessID: businessID,
			DayOfWeek:  model.Monday,
			StartTime:  window[0],
			EndTime:    window[1],
		})
		require.NoError(t, err)
	}

	slots, err := fx.svc.GetAvailableSlots(context.Background(), businessID, svc.ID, date)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].StartTime.After(slots[i-1].StartTime))
	}
	assert.Equal(t, date.Add(9*time.Hour), slots[0].StartTime)
	assert.Equal(t, date.Add(15*time.Hour), slots[3].StartTime)
}

func TestGetAvailableSlots_NoRules(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	svc := fx.addService(businessID, 60, true)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots, err := fx.svc.GetAvailableSlots(context.Background(), businessID, svc.ID, date)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestGetAvailableSlots_Preconditions(t *testing.T) {
	fx := newFixture(t)
	businessID := uuid.New()
	active := fx.addService(businessID, 60, true)
	inactive := fx.addService(businessID, 60, false)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := fx.svc.GetAvailableSlots(context.Background(), businessID, uuid.New(), date)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err), "unknown service")

	_, err = fx.svc.GetAvailableSlots(context.Background(), uuid.New(), active.ID, date)
	assert.Equal(t, apperrors.CodeMismatch, apperrors.CodeOf(err), "foreign business")

	_, err = fx.svc.GetAvailableSlots(context.Background(), businessID, inactive.ID, date)
	assert.Equal(t, apperrors.CodeInactive, apperrors.CodeOf(err), "inactive service")
}

func TestGetAvailableSlots_PublishFailureDoesNotFailCreate(t *testing.T) {
	fx := newFixture(t)
	fx.publisher.err = context.DeadlineExceeded

	_, err := fx.svc.CreateRule(context.Background(), &model.CreateAvailabilityRuleRequest{
		BusinessID: uuid.New(),
		DayOfWeek:  model.Monday,
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	assert.NoError(t, err, "publish failures are logged, not surfaced")
}
