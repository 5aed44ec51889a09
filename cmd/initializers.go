package main

import (
	"fmt"
	"net/http"
	"time"

	"labswarm/app/handler"
	"labswarm/app/router"
	"labswarm/internal/service"
	"labswarm/pkg/config"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/logger"
	"labswarm/pkg/narrative"
	"labswarm/pkg/queue"
	"labswarm/pkg/store"
	redisstore "labswarm/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.InfoCtx(app.ctx, "Logging system has been closed")
		_ = logger.Sync()
	})
	return nil
}

// initStore initializes the persistence store selected by providers.store
func (app *Application) initStore() error {
	s, err := store.CreateStore(app.ctx, app.config)
	if err != nil {
		return err
	}

	app.store = s
	app.registerCleanup(func() {
		if err := s.Close(); err != nil {
			logger.WarnCtx(app.ctx, "Store close error: %v", err)
		}
		logger.InfoCtx(app.ctx, "Store (%s) has been closed", app.config.Providers.Store)
	})
	return nil
}

// initRedis connects to Redis when the simulation lock needs it.
// An unreachable Redis downgrades the lock to single-instance mode.
func (app *Application) initRedis() error {
	if !app.config.Simulation.DistributedLock {
		logger.InfoCtx(app.ctx, "Distributed lock disabled, skipping Redis")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		logger.WarnCtx(app.ctx, "Redis unavailable, simulation runs in single-instance mode: %v", err)
		return nil
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})
	return nil
}

// initEventBus initializes the event bus
func (app *Application) initEventBus() error {
	app.bus = eventbus.New(app.config.Events.SubscriberBuffer, app.config.Events.HistorySize)
	app.registerCleanup(func() {
		app.bus.Close()
		logger.InfoCtx(app.ctx, "Event bus has been closed, dropped events: %d", app.bus.Dropped())
	})
	return nil
}

// initPhaseQueue initializes the phase queue selected by providers.queue
func (app *Application) initPhaseQueue() error {
	q, err := queue.CreatePhaseQueue(app.config)
	if err != nil {
		return err
	}

	app.phaseQueue = q
	app.registerCleanup(func() {
		q.Stop()
		logger.InfoCtx(app.ctx, "Phase queue (%s) has been stopped", app.config.Providers.Queue)
	})
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	app.rnd = narrative.NewRandom(0)
	o := app.config.Orchestrator

	app.activityService = service.NewActivityService(app.store, app.bus)
	app.workerService = service.NewWorkerService(app.store, app.activityService, app.bus)
	app.metricsService = service.NewMetricsService(app.store, app.bus, app.rnd)
	app.researchService = service.NewResearchService(app.store)
	app.chatService = service.NewChatService(app.store, app.bus)

	app.scheduler = service.NewScheduler(
		app.store,
		app.phaseQueue,
		app.bus,
		app.activityService,
		narrative.NewTemplateFormatter(app.rnd),
		service.NewReportSynthesizer(app.rnd),
		app.rnd,
		service.PhaseDelays{
			Start:    o.StartDelay,
			Progress: o.ProgressDelay,
			Complete: o.CompleteDelay,
		},
	)
	app.queryService = service.NewQueryService(app.store, app.scheduler, app.activityService, app.bus, o.DefaultUserID)
	app.simulationService = service.NewSimulationService(app.store, app.bus, app.activityService, app.metricsService, app.rnd)
	return nil
}

// initSeed installs the default roster and first metrics snapshot on an empty store
func (app *Application) initSeed() error {
	if !app.config.Orchestrator.SeedWorkers {
		logger.InfoCtx(app.ctx, "Worker seeding disabled")
		return nil
	}

	n, err := app.workerService.SeedDefaults(app.ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		logger.InfoCtx(app.ctx, "Worker registry already populated, seeding skipped")
	}
	return app.metricsService.SeedDefaults(app.ctx)
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.workerHandler = handler.NewWorkerHandler(app.workerService)
	app.queryHandler = handler.NewQueryHandler(app.queryService)
	app.recordHandler = handler.NewRecordHandler(app.activityService, app.researchService, app.metricsService, app.chatService)
	app.eventHandler = handler.NewEventHandler(app.bus, app.workerService, app.metricsService, app.activityService)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	gin.SetMode(app.config.Server.Mode)
	app.ginEngine = gin.New()

	r := router.NewRouter(app.workerHandler, app.queryHandler, app.recordHandler, app.eventHandler)
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}
