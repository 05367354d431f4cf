package messaging

import (
	"context"
)

// Domain event subjects. Downstream consumers (notification service, the
// WebSocket fan-out gateway) subscribe to these; the fan-out gateway routes by
// the businessId field in the payload.
const (
	SubjectBookingRequested = "booking.requested"
	SubjectBookingConfirmed = "booking.confirmed"
	SubjectBookingCancelled = "booking.cancelled"
	SubjectBookingCompleted = "booking.completed"
	SubjectSlotReserved     = "slot.reserved"
	SubjectRuleUpdated      = "availability.rule.updated"

	// Upstream subjects delivered by the business-management system.
	SubjectServiceCreated = "service.created"
	SubjectServiceUpdated = "service.updated"
)

// Publisher is the narrow capability injected into services that emit domain
// events. Implementations are fire-and-forget from the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// Broker defines the interface for message brokers
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
	Close() error
}
