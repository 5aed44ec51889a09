package router

import (
	"labswarm/app/handler"
	"labswarm/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	workerHandler *handler.WorkerHandler
	queryHandler  *handler.QueryHandler
	recordHandler *handler.RecordHandler
	eventHandler  *handler.EventHandler
}

// NewRouter creates a new Router
func NewRouter(workerHandler *handler.WorkerHandler, queryHandler *handler.QueryHandler, recordHandler *handler.RecordHandler, eventHandler *handler.EventHandler) *Router {
	return &Router{
		workerHandler: workerHandler,
		queryHandler:  queryHandler,
		recordHandler: recordHandler,
		eventHandler:  eventHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	api := engine.Group("/api")
	{
		// Worker registry
		workers := api.Group("/workers")
		{
			workers.GET("", r.workerHandler.ListWorkers)
			workers.POST("", r.workerHandler.CreateWorker)
			workers.GET("/:id", r.workerHandler.GetWorker)
			workers.PATCH("/:id", r.workerHandler.UpdateWorker)
			workers.DELETE("/:id", r.workerHandler.DeleteWorker)
		}

		// Query pipeline
		queries := api.Group("/queries")
		{
			queries.POST("", r.queryHandler.SubmitQuery)
			queries.GET("", r.queryHandler.ListQueries)
			queries.GET("/active", r.queryHandler.ListActiveQueries)
			queries.GET("/:id", r.queryHandler.GetQuery)
			queries.POST("/:id/cancel", r.queryHandler.CancelQuery)
		}
		api.GET("/tasks/:id", r.queryHandler.GetTask)

		api.GET("/activity-log", r.recordHandler.ListActivity)
		api.POST("/activity-log", r.recordHandler.CreateActivity)
		api.GET("/research-data", r.recordHandler.ListResearch)
		api.GET("/system-metrics", r.recordHandler.GetMetrics)
		api.POST("/system-metrics", r.recordHandler.RecordMetrics)
		api.GET("/chat-messages", r.recordHandler.ListChat)
		api.POST("/chat-messages", r.recordHandler.PostChat)

		// Poll surface
		api.GET("/events", r.eventHandler.Poll)
	}

	// Push surface
	engine.GET("/ws", r.eventHandler.Stream)

	// Health check
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
