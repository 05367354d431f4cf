package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/slotwise/scheduling-api/internal/model"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func overlapsAny(start, end time.Time, busy []*model.Booking) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

// SlotsForRule walks the rule's window on date with a cursor stepped by
// duration plus the rule's buffer, emitting every candidate that fits the
// window and overlaps none of the busy intervals. A window shorter than
// duration yields no slots.
func SlotsForRule(rule *model.AvailabilityRule, date time.Time, duration time.Duration, busy []*model.Booking, loc *time.Location) ([]model.Slot, error) {
	startMin, err := model.ParseClock(rule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("rule %s has invalid start time: %w", rule.ID, err)
	}
	endMin, err := model.ParseClock(rule.EndTime)
	if err != nil {
		return nil, fmt.Errorf("rule %s has invalid end time: %w", rule.ID, err)
	}

	cursor := model.At(date, startMin, loc)
	periodEnd := model.At(date, endMin, loc)
	step := duration + time.Duration(rule.BufferMinutes)*time.Minute

	var slots []model.Slot
	for !cursor.Add(duration).After(periodEnd) {
		candidate := model.Slot{StartTime: cursor, EndTime: cursor.Add(duration)}
		if !overlapsAny(candidate.StartTime, candidate.EndTime, busy) {
			slots = append(slots, candidate)
		}
		cursor = cursor.Add(step)
	}
	return slots, nil
}

// TheoreticalSlotCount counts the candidates SlotsForRule would walk,
// ignoring busy intervals.
func TheoreticalSlotCount(rule *model.AvailabilityRule, date time.Time, duration time.Duration, loc *time.Location) (int, []model.Slot, error) {
	all, err := SlotsForRule(rule, date, duration, nil, loc)
	if err != nil {
		return 0, nil, err
	}
	return len(all), all, nil
}

func sortSlots(slots []model.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}
