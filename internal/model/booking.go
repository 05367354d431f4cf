package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPendingPayment, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// Claims reports whether a booking in status s holds its time slot. Only
// claiming bookings participate in conflict detection.
func (s BookingStatus) Claims() bool {
	return s == BookingStatusConfirmed || s == BookingStatusPendingPayment
}

// Booking is a customer's claim on a specific slot. EndTime is fixed at
// creation to StartTime plus the service duration and never changes.
// Bookings are never physically deleted; cancellation is a status change.
type Booking struct {
	Base
	BusinessID uuid.UUID     `db:"business_id" json:"business_id"`
	ServiceID  uuid.UUID     `db:"service_id" json:"service_id"`
	CustomerID uuid.UUID     `db:"customer_id" json:"customer_id"`
	StartTime  time.Time     `db:"start_time" json:"start_time"`
	EndTime    time.Time     `db:"end_time" json:"end_time"`
	Status     BookingStatus `db:"status" json:"status"`
}

// CreateBookingRequest is the POST /bookings body.
type CreateBookingRequest struct {
	BusinessID uuid.UUID `json:"businessId" binding:"required"`
	ServiceID  uuid.UUID `json:"serviceId" binding:"required"`
	CustomerID uuid.UUID `json:"customerId" binding:"required"`
	StartTime  time.Time `json:"startTime" binding:"required"`
}

// UpdateBookingStatusRequest is the PUT /bookings/:id/status body.
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

// BookingFilters narrows booking list queries. Exactly one of CustomerID or
// BusinessID is set.
type BookingFilters struct {
	CustomerID *uuid.UUID
	BusinessID *uuid.UUID
}

// BookingEvent is the payload shared by all booking lifecycle events.
type BookingEvent struct {
	BookingID  uuid.UUID     `json:"bookingId"`
	BusinessID uuid.UUID     `json:"businessId"`
	ServiceID  uuid.UUID     `json:"serviceId"`
	CustomerID uuid.UUID     `json:"customerId"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    time.Time     `json:"endTime"`
	Status     BookingStatus `json:"status"`
}

// NewBookingEvent builds the event payload for b.
func NewBookingEvent(b *Booking) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID,
		BusinessID: b.BusinessID,
		ServiceID:  b.ServiceID,
		CustomerID: b.CustomerID,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     b.Status,
	}
}
