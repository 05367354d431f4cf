package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/slotwise/scheduling-api/internal/model"
	"github.com/slotwise/scheduling-api/internal/repository"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service fronts the read-mostly ServiceDefinition mirror with an in-process
// cache. Mirror writes come from upstream events only.
type Service struct {
	repo  repository.ServiceDefinitionRepository
	cache *cache.Cache
}

func NewService(repo repository.ServiceDefinitionRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

// GetService returns the mirrored definition for id.
func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*model.ServiceDefinition, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.ServiceDefinition), nil
	}

	svc, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("service", err)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to get service: %w", err))
	}

	s.cache.Set(id.String(), svc, cache.DefaultExpiration)
	return svc, nil
}

// ResolveBookable runs the precondition ladder shared by slot generation and
// booking creation: the service must exist, belong to businessID, and be
// active. The checks fail in that order, each with its own error kind.
func (s *Service) ResolveBookable(ctx context.Context, businessID, serviceID uuid.UUID) (*model.ServiceDefinition, error) {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.BusinessID != businessID {
		return nil, apperrors.Mismatch("service does not belong to this business")
	}
	if !svc.IsActive {
		return nil, apperrors.Inactive("service")
	}
	return svc, nil
}

// Upsert mirrors an upstream service.created / service.updated event.
func (s *Service) Upsert(ctx context.Context, evt *model.ServiceEvent) error {
	if evt.ID == uuid.Nil || evt.BusinessID == uuid.Nil {
		return apperrors.Validation("service event missing id or business id", nil)
	}
	if evt.DurationMinutes <= 0 {
		return apperrors.Validation("service duration must be positive", nil)
	}

	svc := &model.ServiceDefinition{
		ID:              evt.ID,
		BusinessID:      evt.BusinessID,
		Name:            evt.Name,
		DurationMinutes: evt.DurationMinutes,
		Price:           evt.Price,
		Currency:        evt.Currency,
		IsActive:        evt.IsActive,
		UpdatedAt:       evt.UpdatedAt,
	}
	if svc.UpdatedAt.IsZero() {
		svc.UpdatedAt = time.Now().UTC()
	}

	if err := s.repo.Upsert(ctx, svc); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to upsert service: %w", err))
	}

	s.cache.Delete(svc.ID.String())
	return nil
}
