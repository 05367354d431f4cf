package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
	"github.com/slotwise/scheduling-api/pkg/messaging"
	"github.com/slotwise/scheduling-api/pkg/metrics"
)

// BrokerPublisher publishes straight to the message broker. Delivery is best
// effort: callers treat a failed publish as non-fatal.
type BrokerPublisher struct {
	broker  messaging.Publisher
	metrics *metrics.Metrics
}

func NewBrokerPublisher(broker messaging.Publisher, m *metrics.Metrics) *BrokerPublisher {
	return &BrokerPublisher{broker: broker, metrics: m}
}

func (p *BrokerPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if err := p.broker.Publish(ctx, subject, payload); err != nil {
		p.metrics.EventPublishFailures.WithLabelValues(subject).Inc()
		return err
	}
	p.metrics.EventsPublished.WithLabelValues(subject).Inc()
	return nil
}

// OutboxPublisher stages events in the outbox table inside the request path;
// the relay worker delivers them to the broker asynchronously.
type OutboxPublisher struct {
	repo repository.OutboxRepository
}

func NewOutboxPublisher(repo repository.OutboxRepository) *OutboxPublisher {
	return &OutboxPublisher{repo: repo}
}

func (p *OutboxPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()
	return p.repo.Create(ctx, &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: subject,
		Payload:   data,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
