package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
	"github.com/slotwise/scheduling-api/internal/service/catalog"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
	"github.com/slotwise/scheduling-api/pkg/logger"
	"github.com/slotwise/scheduling-api/pkg/messaging"
	"github.com/slotwise/scheduling-api/pkg/metrics"
)

type Service struct {
	rules     repository.AvailabilityRuleRepository
	bookings  repository.BookingRepository
	catalog   *catalog.Service
	publisher messaging.Publisher
	location  *time.Location
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	rules repository.AvailabilityRuleRepository,
	bookings repository.BookingRepository,
	catalogSvc *catalog.Service,
	publisher messaging.Publisher,
	location *time.Location,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		rules:     rules,
		bookings:  bookings,
		catalog:   catalogSvc,
		publisher: publisher,
		location:  location,
		logger:    log,
		metrics:   m,
	}
}

// Location returns the IANA location all slot computations use.
func (s *Service) Location() *time.Location {
	return s.location
}

// CreateRule validates and persists a weekly recurring rule. Multiple rules
// may exist for the same business and day (split shifts); they are never
// merged.
func (s *Service) CreateRule(ctx context.Context, req *model.CreateAvailabilityRuleRequest) (*model.AvailabilityRule, error) {
	if !req.DayOfWeek.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid day of week %q", req.DayOfWeek), nil)
	}
	if _, err := model.ParseClock(req.StartTime); err != nil {
		return nil, apperrors.Validation("invalid start time", err)
	}
	if _, err := model.ParseClock(req.EndTime); err != nil {
		return nil, apperrors.Validation("invalid end time", err)
	}
	if req.StartTime >= req.EndTime {
		return nil, apperrors.Validation("start time must be before end time", nil)
	}
	if req.BufferMinutes < 0 {
		return nil, apperrors.Validation("buffer minutes must not be negative", nil)
	}

	now := time.Now().UTC()
	rule := &model.AvailabilityRule{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BusinessID:    req.BusinessID,
		DayOfWeek:     req.DayOfWeek,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		BufferMinutes: req.BufferMinutes,
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create rule: %w", err))
	}

	s.emitRuleUpdated(ctx, rule)
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error) {
	rules, err := s.rules.ListForBusiness(ctx, businessID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list rules: %w", err))
	}
	return rules, nil
}

// DeleteRule soft-deletes a rule. The row stays behind for audit; only the
// deleted flag flips.
func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	rule, err := s.rules.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("availability rule", err)
	}
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to get rule: %w", err))
	}

	if err := s.rules.MarkDeleted(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("availability rule", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to delete rule: %w", err))
	}

	s.emitRuleUpdated(ctx, rule)
	return nil
}

// GetAvailableSlots returns the bookable slots for a service on a calendar
// date. A day without rules yields an empty list, not an error.
func (s *Service) GetAvailableSlots(ctx context.Context, businessID, serviceID uuid.UUID, date time.Time) ([]model.Slot, error) {
	timer := prometheus.NewTimer(s.metrics.SlotQueryLatency)
	defer timer.ObserveDuration()

	svc, err := s.catalog.ResolveBookable(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}

	day := model.DayOfWeekFor(date.In(s.location).Weekday())
	rules, err := s.rules.ListForDay(ctx, businessID, day)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to fetch rules: %w", err))
	}
	if len(rules) == 0 {
		return []model.Slot{}, nil
	}

	dayStart := model.At(date.In(s.location), 0, s.location)
	busy, err := s.bookings.ListClaiming(ctx, businessID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to fetch bookings: %w", err))
	}

	slots := []model.Slot{}
	for _, rule := range rules {
		ruleSlots, err := SlotsForRule(rule, dayStart, svc.Duration(), busy, s.location)
		if err != nil {
			// A stored rule that no longer parses is data corruption, not a
			// caller mistake.
			return nil, apperrors.Internal(err)
		}
		slots = append(slots, ruleSlots...)
	}

	sortSlots(slots)
	return slots, nil
}

func (s *Service) emitRuleUpdated(ctx context.Context, rule *model.AvailabilityRule) {
	err := s.publisher.Publish(ctx, messaging.SubjectRuleUpdated, model.RuleEvent{
		RuleID:     rule.ID,
		BusinessID: rule.BusinessID,
		DayOfWeek:  rule.DayOfWeek,
		StartTime:  rule.StartTime,
		EndTime:    rule.EndTime,
	})
	if err != nil {
		s.logger.Error(err, "failed to publish rule event", "rule_id", rule.ID.String())
	}
}
