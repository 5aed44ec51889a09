package queue

import (
	"fmt"

	"labswarm/pkg/config"
	"labswarm/pkg/interfaces"
	"labswarm/pkg/queue/asynq"
	"labswarm/pkg/queue/memory"
)

// CreatePhaseQueue creates the phase queue selected by providers.queue
func CreatePhaseQueue(cfg *config.Config) (interfaces.PhaseQueue, error) {
	switch cfg.Providers.Queue {
	case "memory", "":
		return memory.NewQueue(memory.WithRetry(cfg.Queue.MaxRetry, cfg.Queue.RetryDelay)), nil
	case "asynq":
		return asynq.NewManager(cfg)
	default:
		return nil, fmt.Errorf("unsupported queue provider type: %s", cfg.Providers.Queue)
	}
}
