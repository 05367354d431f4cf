package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayOfWeek is one of the seven canonical day tokens.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdayTokens = map[time.Weekday]DayOfWeek{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// DayOfWeekFor maps a time.Weekday to its canonical token.
func DayOfWeekFor(w time.Weekday) DayOfWeek {
	return weekdayTokens[w]
}

// Valid reports whether d is one of the seven canonical tokens.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// AvailabilityRule is a recurring weekly open-hours window for a business.
// StartTime and EndTime are wall-clock "HH:MM" strings; lexicographic
// comparison is sufficient for ordering them.
type AvailabilityRule struct {
	Base
	BusinessID    uuid.UUID `db:"business_id" json:"business_id"`
	DayOfWeek     DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	BufferMinutes int       `db:"buffer_minutes" json:"buffer_minutes"`
	Deleted       bool      `db:"deleted" json:"deleted"`
}

// Slot is a concrete, dated [Start, End) interval of service-duration length.
type Slot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ParseClock parses an "HH:MM" wall-clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hh, &mm); err != nil || len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return hh*60 + mm, nil
}

// At anchors a minutes-since-midnight offset onto a calendar date in loc.
func At(date time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, minutes, 0, 0, loc)
}

// CreateAvailabilityRuleRequest is the POST /availability/rules body. The
// dayofweek and clock binding rules are registered in pkg/validator.
type CreateAvailabilityRuleRequest struct {
	BusinessID    uuid.UUID `json:"businessId" binding:"required"`
	DayOfWeek     DayOfWeek `json:"dayOfWeek" binding:"required,dayofweek"`
	StartTime     string    `json:"startTime" binding:"required,clock"`
	EndTime       string    `json:"endTime" binding:"required,clock"`
	BufferMinutes int       `json:"bufferMinutes" binding:"gte=0"`
}

// RuleEvent is the payload of availability.rule.updated events.
type RuleEvent struct {
	RuleID     uuid.UUID `json:"ruleId"`
	BusinessID uuid.UUID `json:"businessId"`
	DayOfWeek  DayOfWeek `json:"dayOfWeek"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
}
