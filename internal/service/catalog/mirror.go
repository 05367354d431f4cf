package catalog

import (
	"context"
	"encoding/json"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/pkg/logger"
	"github.com/slotwise/scheduling-api/pkg/messaging"
)

// Mirror consumes upstream service.created / service.updated events and
// applies them to the local ServiceDefinition store.
type Mirror struct {
	svc    *Service
	broker messaging.Broker
	logger *logger.Logger
}

func NewMirror(svc *Service, broker messaging.Broker, log *logger.Logger) *Mirror {
	return &Mirror{svc: svc, broker: broker, logger: log}
}

// Run subscribes to both upstream subjects and applies events until ctx is
// cancelled. Malformed or rejected events are logged and skipped; replication
// is last-write-wins so a skipped event is corrected by the next update.
func (m *Mirror) Run(ctx context.Context) error {
	created, err := m.broker.Subscribe(ctx, messaging.SubjectServiceCreated)
	if err != nil {
		return err
	}
	updated, err := m.broker.Subscribe(ctx, messaging.SubjectServiceUpdated)
	if err != nil {
		return err
	}

	m.logger.Info("service mirror started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-created:
			if !ok {
				return nil
			}
			m.apply(ctx, messaging.SubjectServiceCreated, msg)
		case msg, ok := <-updated:
			if !ok {
				return nil
			}
			m.apply(ctx, messaging.SubjectServiceUpdated, msg)
		}
	}
}

func (m *Mirror) apply(ctx context.Context, subject string, msg []byte) {
	var evt model.ServiceEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		m.logger.Error(err, "malformed service event", "subject", subject)
		return
	}
	if err := m.svc.Upsert(ctx, &evt); err != nil {
		m.logger.Error(err, "failed to mirror service event", "subject", subject, "service_id", evt.ID.String())
		return
	}
	m.logger.Debug("mirrored service event", "subject", subject, "service_id", evt.ID.String())
}
