package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceDefinition is a read-mostly mirror of a service owned by the
// business-management system, replicated locally via service.created and
// service.updated events with last-write-wins upsert semantics.
type ServiceDefinition struct {
	ID              uuid.UUID `db:"id" json:"id"`
	BusinessID      uuid.UUID `db:"business_id" json:"business_id"`
	Name            string    `db:"name" json:"name"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Price           float64   `db:"price" json:"price"`
	Currency        string    `db:"currency" json:"currency"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Duration returns the service duration as a time.Duration.
func (s *ServiceDefinition) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// ServiceEvent is the payload of upstream service.created / service.updated
// events.
type ServiceEvent struct {
	ID              uuid.UUID `json:"id"`
	BusinessID      uuid.UUID `json:"business_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	IsActive        bool      `json:"is_active"`
	UpdatedAt       time.Time `json:"updated_at"`
}
