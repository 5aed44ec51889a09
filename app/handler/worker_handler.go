package handler

import (
	"net/http"

	"labswarm/internal/model"
	"labswarm/internal/service"
	"labswarm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WorkerHandler Worker handler
type WorkerHandler struct {
	workerService *service.WorkerService
}

// NewWorkerHandler creates a new Worker handler
func NewWorkerHandler(workerService *service.WorkerService) *WorkerHandler {
	return &WorkerHandler{workerService: workerService}
}

// ListWorkers lists all workers
// @Summary List workers
// @Tags workers
// @Produce json
// @Success 200 {array} model.Worker
// @Router /api/workers [get]
func (h *WorkerHandler) ListWorkers(c *gin.Context) {
	workers, err := h.workerService.ListWorkers(c.Request.Context())
	if err != nil {
		respondError(c, err, "list workers")
		return
	}
	c.JSON(http.StatusOK, workers)
}

// GetWorker gets a worker by id
// @Summary Get worker
// @Tags workers
// @Produce json
// @Param id path int true "Worker ID"
// @Success 200 {object} model.Worker
// @Router /api/workers/{id} [get]
func (h *WorkerHandler) GetWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	worker, err := h.workerService.GetWorker(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get worker")
		return
	}
	c.JSON(http.StatusOK, worker)
}

// CreateWorker registers a worker
// @Summary Create worker
// @Tags workers
// @Accept json
// @Produce json
// @Param request body model.CreateWorkerRequest true "Worker"
// @Success 201 {object} model.Worker
// @Router /api/workers [post]
func (h *WorkerHandler) CreateWorker(c *gin.Context) {
	var req model.CreateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnCtx(c.Request.Context(), "invalid worker request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker data"})
		return
	}

	worker, err := h.workerService.CreateWorker(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "create worker")
		return
	}
	c.JSON(http.StatusCreated, worker)
}

// UpdateWorker applies a partial update
// @Summary Update worker
// @Tags workers
// @Accept json
// @Produce json
// @Param id path int true "Worker ID"
// @Param request body model.WorkerPatch true "Fields to change"
// @Success 200 {object} model.Worker
// @Router /api/workers/{id} [patch]
func (h *WorkerHandler) UpdateWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var patch model.WorkerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker data"})
		return
	}

	worker, err := h.workerService.UpdateWorker(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err, "update worker")
		return
	}
	c.JSON(http.StatusOK, worker)
}

// DeleteWorker removes a worker
// @Summary Delete worker
// @Tags workers
// @Param id path int true "Worker ID"
// @Success 204
// @Router /api/workers/{id} [delete]
func (h *WorkerHandler) DeleteWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.workerService.DeleteWorker(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete worker")
		return
	}
	c.Status(http.StatusNoContent)
}
