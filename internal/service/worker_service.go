package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/logger"
)

// WorkerService Worker service
type WorkerService struct {
	store    interfaces.WorkerStore
	activity *ActivityService
	bus      *eventbus.Bus
}

// NewWorkerService creates a new Worker service
func NewWorkerService(store interfaces.WorkerStore, activity *ActivityService, bus *eventbus.Bus) *WorkerService {
	return &WorkerService{
		store:    store,
		activity: activity,
		bus:      bus,
	}
}

// ListWorkers lists all workers
func (s *WorkerService) ListWorkers(ctx context.Context) ([]*model.Worker, error) {
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

// GetWorker gets a worker by id
func (s *WorkerService) GetWorker(ctx context.Context, id int64) (*model.Worker, error) {
	worker, err := s.store.GetWorker(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker == nil {
		return nil, ErrNotFound
	}
	return worker, nil
}

// CreateWorker validates and registers a new worker
func (s *WorkerService) CreateWorker(ctx context.Context, req *model.CreateWorkerRequest) (*model.Worker, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidWorker)
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidWorker, req.Kind)
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidWorker, req.Status)
	}

	worker, err := s.store.CreateWorker(ctx, req.ToWorker())
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	s.record(ctx, &worker.ID, constants.ActionWorkerCreated,
		fmt.Sprintf("New %s worker %q created", worker.Kind, worker.Name))
	s.bus.Publish(constants.EventWorkerCreated, worker)

	logger.InfoCtx(ctx, "worker created, id: %d, name: %s, kind: %s", worker.ID, worker.Name, worker.Kind)
	return worker, nil
}

// UpdateWorker applies a partial update
func (s *WorkerService) UpdateWorker(ctx context.Context, id int64, patch model.WorkerPatch) (*model.Worker, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidWorker, *patch.Status)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidWorker)
	}
	if patch.IsEmpty() {
		return s.GetWorker(ctx, id)
	}

	worker, err := s.store.UpdateWorker(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update worker: %w", err)
	}
	if worker == nil {
		return nil, ErrNotFound
	}

	s.record(ctx, &worker.ID, constants.ActionWorkerUpdated,
		fmt.Sprintf("Worker %q updated (%s)", worker.Name, worker.Status))
	s.bus.Publish(constants.EventWorkerUpdated, worker)
	return worker, nil
}

// DeleteWorker removes a worker; tasks referencing it keep their worker id
func (s *WorkerService) DeleteWorker(ctx context.Context, id int64) error {
	worker, err := s.store.GetWorker(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get worker: %w", err)
	}
	if worker == nil {
		return ErrNotFound
	}

	if err := s.store.DeleteWorker(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete worker: %w", err)
	}

	s.record(ctx, nil, constants.ActionWorkerDeleted, fmt.Sprintf("Worker %q was deleted", worker.Name))
	s.bus.Publish(constants.EventWorkerDeleted, worker)

	logger.InfoCtx(ctx, "worker deleted, id: %d, name: %s", worker.ID, worker.Name)
	return nil
}

// SeedDefaults installs the default roster when no worker exists
func (s *WorkerService) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := s.store.ListWorkers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list workers: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, w := range DefaultRoster() {
		if _, err := s.store.CreateWorker(ctx, w); err != nil {
			return 0, fmt.Errorf("failed to seed worker %s: %w", w.Name, err)
		}
	}
	logger.InfoCtx(ctx, "seeded default roster, workers: %d", len(DefaultRoster()))
	return len(DefaultRoster()), nil
}

// record writes an activity record; failures are logged, not returned
func (s *WorkerService) record(ctx context.Context, workerID *int64, action, description string) {
	if _, err := s.activity.Record(ctx, workerID, action, description); err != nil {
		logger.WarnCtx(ctx, "failed to record %s activity: %v", action, err)
	}
}
