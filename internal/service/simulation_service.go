package service

import (
	"context"
	"fmt"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/logger"
	"labswarm/pkg/narrative"
)

// SimulationService background drift of worker progress and system metrics
type SimulationService struct {
	store    interfaces.WorkerStore
	bus      *eventbus.Bus
	activity *ActivityService
	metrics  *MetricsService
	rnd      narrative.Random
}

// NewSimulationService creates a new simulation service
func NewSimulationService(store interfaces.WorkerStore, bus *eventbus.Bus, activity *ActivityService, metrics *MetricsService, rnd narrative.Random) *SimulationService {
	return &SimulationService{
		store:    store,
		bus:      bus,
		activity: activity,
		metrics:  metrics,
		rnd:      rnd,
	}
}

// Tick nudges one random active worker and walks the system metrics
func (s *SimulationService) Tick(ctx context.Context) error {
	if err := s.nudgeWorker(ctx); err != nil {
		return err
	}
	if _, err := s.metrics.Walk(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SimulationService) nudgeWorker(ctx context.Context) error {
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workers: %w", err)
	}

	active := make([]*model.Worker, 0, len(workers))
	for _, w := range workers {
		if w.Status == model.WorkerStatusActive && w.Progress < 100 {
			active = append(active, w)
		}
	}
	if len(active) == 0 {
		return nil
	}

	// a phase may have changed the worker since it was listed
	picked := active[s.rnd.Intn(len(active))]
	updated, err := s.store.AdvanceWorkerProgress(ctx, picked.ID, model.WorkerStatusActive, narrative.Between(s.rnd, 1, 10))
	if err != nil {
		return fmt.Errorf("failed to advance worker: %w", err)
	}
	if updated == nil {
		return nil
	}
	s.bus.Publish(constants.EventWorkerUpdated, updated)

	if updated.Progress >= 100 {
		label := "work cycle"
		if updated.CurrentTaskLabel != nil {
			label = *updated.CurrentTaskLabel
		}
		if _, err := s.activity.Record(ctx, &updated.ID, constants.ActionWorkCycleCompleted, "Completed "+label); err != nil {
			logger.WarnCtx(ctx, "failed to record work cycle, worker_id: %d, error: %v", updated.ID, err)
		}
	}
	return nil
}
