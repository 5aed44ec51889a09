package service

import (
	"context"
	"fmt"
	"math"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/narrative"
)

// MetricsService simulated system metrics
type MetricsService struct {
	store interfaces.MetricsStore
	bus   *eventbus.Bus
	rnd   narrative.Random
}

// NewMetricsService creates a new metrics service
func NewMetricsService(store interfaces.MetricsStore, bus *eventbus.Bus, rnd narrative.Random) *MetricsService {
	return &MetricsService{store: store, bus: bus, rnd: rnd}
}

// Latest returns the newest snapshot, or nil if none was recorded
func (s *MetricsService) Latest(ctx context.Context) (*model.SystemMetrics, error) {
	metrics, err := s.store.LatestMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	return metrics, nil
}

// Record stores a snapshot and publishes metrics_updated
func (s *MetricsService) Record(ctx context.Context, req *model.RecordMetricsRequest) (*model.SystemMetrics, error) {
	if req.StorageTotal < 0 || req.StorageUsed < 0 || req.StorageUsed > req.StorageTotal {
		return nil, fmt.Errorf("%w: storage used must be within [0, storageTotal]", ErrInvalidInput)
	}
	return s.record(ctx, &model.SystemMetrics{
		CPUUsage:     clamp(req.CPUUsage, 0, 100),
		MemoryUsage:  clamp(req.MemoryUsage, 0, 100),
		NetworkIO:    clamp(req.NetworkIO, 0, 100),
		StorageUsed:  req.StorageUsed,
		StorageTotal: req.StorageTotal,
	})
}

// SeedDefaults records the initial snapshot when none exists
func (s *MetricsService) SeedDefaults(ctx context.Context) error {
	latest, err := s.Latest(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		return nil
	}
	if _, err := s.store.RecordMetrics(ctx, InitialMetrics()); err != nil {
		return fmt.Errorf("failed to seed metrics: %w", err)
	}
	return nil
}

// Walk records a random step from the latest snapshot
func (s *MetricsService) Walk(ctx context.Context) (*model.SystemMetrics, error) {
	latest, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		latest = InitialMetrics()
	}

	return s.record(ctx, &model.SystemMetrics{
		CPUUsage:     clamp(s.step(latest.CPUUsage, 10), 10, 90),
		MemoryUsage:  clamp(s.step(latest.MemoryUsage, 5), 20, 95),
		NetworkIO:    clamp(s.step(latest.NetworkIO, 20), 0, 100),
		StorageUsed:  latest.StorageUsed,
		StorageTotal: latest.StorageTotal,
	})
}

// step moves v by a uniform offset in [-width/2, width/2], rounded
func (s *MetricsService) step(v, width int) int {
	return int(math.Round(float64(v) + (s.rnd.Float64()-0.5)*float64(width)))
}

func (s *MetricsService) record(ctx context.Context, metrics *model.SystemMetrics) (*model.SystemMetrics, error) {
	saved, err := s.store.RecordMetrics(ctx, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to record metrics: %w", err)
	}
	s.bus.Publish(constants.EventMetricsUpdated, saved)
	return saved, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
