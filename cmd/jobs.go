package main

import (
	"context"
	"time"

	"labswarm/internal/jobs"
	"labswarm/internal/service"
	"labswarm/pkg/lock"
	"labswarm/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const simulationLockKey = "labswarm:simulation-lock"

func (app *Application) initJobs() error {
	manager := jobs.NewManager(app.ctx)

	if app.config.Simulation.Enabled {
		var locker lock.Locker
		if app.config.Simulation.DistributedLock {
			// a nil client downgrades the lock to single-instance mode
			var redisClient *redis.Client
			if app.redisClient != nil {
				redisClient = app.redisClient.GetClient()
			}
			interval := app.config.Simulation.TickInterval
			locker = lock.NewRedisLock(redisClient, simulationLockKey,
				lock.WithTTL(2*interval),
				lock.WithMaxHold(interval))
		}
		manager.Register(newSimulationJob(app.config.Simulation.TickInterval, app.simulationService, locker))
	} else {
		logger.InfoCtx(app.ctx, "Simulation disabled")
	}

	app.jobsManager = manager
	return nil
}

// simulationJob drifts worker progress and system metrics on every tick.
type simulationJob struct {
	interval        time.Duration
	simulation      *service.SimulationService
	distributedLock lock.Locker
}

func newSimulationJob(interval time.Duration, svc *service.SimulationService, locker lock.Locker) jobs.Job {
	return &simulationJob{
		interval:        interval,
		simulation:      svc,
		distributedLock: locker,
	}
}

func (j *simulationJob) Name() string {
	return "simulation-tick"
}

func (j *simulationJob) Interval() time.Duration {
	return j.interval
}

func (j *simulationJob) Run(ctx context.Context) error {
	// Only one replica ticks per interval
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running the simulation tick, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	return j.simulation.Tick(ctx)
}
