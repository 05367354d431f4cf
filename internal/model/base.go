package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models. IDs are generated explicitly at
// construction time, never by storage-layer hooks.
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps page/limit into their allowed ranges.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// Offset returns the row offset for the current page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
