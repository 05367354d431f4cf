package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slotwise/scheduling-api/internal/repository"
	"github.com/slotwise/scheduling-api/pkg/metrics"
)

type serviceDefinitionRepository struct {
	db *sqlx.DB
}

type availabilityRuleRepository struct {
	db *sqlx.DB
}

type bookingRepository struct {
	BaseRepository
	metrics *metrics.Metrics
}

func NewServiceDefinitionRepository(db *sqlx.DB) repository.ServiceDefinitionRepository {
	return &serviceDefinitionRepository{db: db}
}

func NewAvailabilityRuleRepository(db *sqlx.DB) repository.AvailabilityRuleRepository {
	return &availabilityRuleRepository{db: db}
}

func NewBookingRepository(db *sqlx.DB, m *metrics.Metrics) repository.BookingRepository {
	return &bookingRepository{BaseRepository: NewBaseRepository(db), metrics: m}
}

// observe records one timed database operation on the booking hot path.
func (r *bookingRepository) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.DatabaseOperations.WithLabelValues(op, status).Inc()
	r.metrics.DatabaseLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
