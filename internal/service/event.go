package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/internal/store"
	"github.com/flockly/event-platform/pkg/logger"
	"github.com/flockly/event-platform/pkg/metrics"
)

// EventService handles event CRUD for managers and the public listing.
type EventService struct {
	store  store.EventStore
	logger *logger.Logger
}

// NewEventService creates a new event service.
func NewEventService(st store.EventStore, log *logger.Logger) *EventService {
	return &EventService{store: st, logger: log}
}

// Create creates an event owned by the manager.
func (s *EventService) Create(ctx context.Context, req *model.CreateEventRequest, managerID string) (*model.Event, error) {
	if req.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "eventName is required")
	}
	if req.Capacity < 0 {
		return nil, apperr.New(apperr.KindValidation, "capacity must not be negative")
	}

	now := time.Now().UTC()
	e := &model.Event{
		ID:          uuid.Must(uuid.NewV7()).String(),
		ManagerID:   managerID,
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	metrics.EventsTotal.Inc()
	return e, nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// List returns all events, newest first.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// ListByManager returns a manager's events, newest first.
func (s *EventService) ListByManager(ctx context.Context, managerID string) ([]model.Event, error) {
	return s.store.ListEventsByManager(ctx, managerID)
}

// Update applies the non-nil fields of req to an event owned by managerID.
// The registered count is never touched here; only admission moves it.
func (s *EventService) Update(ctx context.Context, id, managerID string, req *model.UpdateEventRequest) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.ManagerID != managerID {
		return nil, apperr.New(apperr.KindNotFound, "event not found or unauthorized")
	}

	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.StartsAt != nil {
		e.StartsAt = *req.StartsAt
	}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			return nil, apperr.New(apperr.KindValidation, "capacity must not be negative")
		}
		e.Capacity = *req.Capacity
	}
	e.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an event owned by managerID.
func (s *EventService) Delete(ctx context.Context, id, managerID string) error {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if e.ManagerID != managerID {
		return apperr.New(apperr.KindNotFound, "event not found or unauthorized")
	}
	return s.store.DeleteEvent(ctx, id)
}
