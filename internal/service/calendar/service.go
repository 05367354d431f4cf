package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
	"github.com/slotwise/scheduling-api/internal/service/availability"
	"github.com/slotwise/scheduling-api/internal/service/catalog"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
)

const maxRangeDays = 92

// Service aggregates per-day slot counts for a business. The reference
// duration comes from an explicit service, so businesses offering services of
// different lengths get an unambiguous answer per service.
type Service struct {
	rules    repository.AvailabilityRuleRepository
	bookings repository.BookingRepository
	catalog  *catalog.Service
	location *time.Location
}

func NewService(
	rules repository.AvailabilityRuleRepository,
	bookings repository.BookingRepository,
	catalogSvc *catalog.Service,
	location *time.Location,
) *Service {
	return &Service{
		rules:    rules,
		bookings: bookings,
		catalog:  catalogSvc,
		location: location,
	}
}

// GetBusinessCalendar returns one summary per day in [startDate, endDate],
// counting theoretical slots of the reference service's duration against the
// business's claiming bookings. Days without rules report all-zero counts.
func (s *Service) GetBusinessCalendar(ctx context.Context, businessID, serviceID uuid.UUID, startDate, endDate time.Time) ([]model.CalendarDay, error) {
	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.BusinessID != businessID {
		return nil, apperrors.Mismatch("service does not belong to this business")
	}

	start := model.At(startDate.In(s.location), 0, s.location)
	end := model.At(endDate.In(s.location), 0, s.location)
	if end.Before(start) {
		return nil, apperrors.Validation("end date is before start date", nil)
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return nil, apperrors.Validation(fmt.Sprintf("date range exceeds %d days", maxRangeDays), nil)
	}

	busy, err := s.bookings.ListClaiming(ctx, businessID, start, end.Add(24*time.Hour))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to fetch bookings: %w", err))
	}

	// Cache rules per day token; a multi-week range reuses the same seven
	// rule sets.
	rulesByDay := make(map[model.DayOfWeek][]*model.AvailabilityRule, 7)

	var days []model.CalendarDay
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		token := model.DayOfWeekFor(day.Weekday())
		rules, ok := rulesByDay[token]
		if !ok {
			rules, err = s.rules.ListForDay(ctx, businessID, token)
			if err != nil {
				return nil, apperrors.Internal(fmt.Errorf("failed to fetch rules: %w", err))
			}
			rulesByDay[token] = rules
		}

		summary := model.CalendarDay{Date: day.Format("2006-01-02")}
		for _, rule := range rules {
			total, slots, err := availability.TheoreticalSlotCount(rule, day, svc.Duration(), s.location)
			if err != nil {
				return nil, apperrors.Internal(err)
			}
			summary.TotalSlots += total
			for _, slot := range slots {
				if slotBooked(slot, busy) {
					summary.BookedSlots++
				}
			}
		}
		summary.AvailableSlots = summary.TotalSlots - summary.BookedSlots
		days = append(days, summary)
	}

	return days, nil
}

func slotBooked(slot model.Slot, busy []*model.Booking) bool {
	for _, b := range busy {
		if availability.Overlaps(slot.StartTime, slot.EndTime, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}
