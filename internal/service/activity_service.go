package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityService appends activity records and announces them on the bus
type ActivityService struct {
	store interfaces.ActivityStore
	bus   *eventbus.Bus

	// keeps store order and publish order identical
	mu sync.Mutex
}

// NewActivityService creates a new activity service
func NewActivityService(store interfaces.ActivityStore, bus *eventbus.Bus) *ActivityService {
	return &ActivityService{store: store, bus: bus}
}

// Record appends an activity record and publishes activity_logged
func (s *ActivityService) Record(ctx context.Context, workerID *int64, action, description string) (*model.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.AppendActivity(ctx, &model.ActivityRecord{
		WorkerID:    workerID,
		Action:      action,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append activity: %w", err)
	}
	s.bus.Publish(constants.EventActivityLogged, record)
	return record, nil
}

// Create records an activity submitted by a client
func (s *ActivityService) Create(ctx context.Context, req *model.CreateActivityRequest) (*model.ActivityRecord, error) {
	if strings.TrimSpace(req.Action) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: action and description are required", ErrInvalidInput)
	}
	return s.Record(ctx, req.WorkerID, req.Action, req.Description)
}

// Latest returns the newest records, newest first
func (s *ActivityService) Latest(ctx context.Context, limit int) ([]*model.ActivityRecord, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	records, err := s.store.ListActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return records, nil
}
