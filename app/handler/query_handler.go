package handler

import (
	"net/http"

	"labswarm/internal/model"
	"labswarm/internal/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler handles query operations
type QueryHandler struct {
	queryService *service.QueryService
}

// NewQueryHandler creates query handler
func NewQueryHandler(queryService *service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// SubmitQuery submits a research query
// @Summary Submit query
// @Description Classifies the query, assigns workers and returns the processing snapshot
// @Tags queries
// @Accept json
// @Produce json
// @Param request body model.SubmitQueryRequest true "Query"
// @Success 200 {object} model.Query
// @Router /api/queries [post]
func (h *QueryHandler) SubmitQuery(c *gin.Context) {
	var req model.SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	query, err := h.queryService.SubmitQuery(c.Request.Context(), req.Content, req.UserID)
	if err != nil {
		respondError(c, err, "submit query")
		return
	}
	c.JSON(http.StatusOK, query)
}

// ListQueries lists queries newest first
// @Summary List queries
// @Tags queries
// @Produce json
// @Success 200 {array} model.Query
// @Router /api/queries [get]
func (h *QueryHandler) ListQueries(c *gin.Context) {
	queries, err := h.queryService.ListQueries(c.Request.Context())
	if err != nil {
		respondError(c, err, "list queries")
		return
	}
	c.JSON(http.StatusOK, queries)
}

// ListActiveQueries lists queries still processing
// @Summary List active queries
// @Tags queries
// @Produce json
// @Success 200 {array} model.Query
// @Router /api/queries/active [get]
func (h *QueryHandler) ListActiveQueries(c *gin.Context) {
	queries, err := h.queryService.ListActiveQueries(c.Request.Context())
	if err != nil {
		respondError(c, err, "list active queries")
		return
	}
	c.JSON(http.StatusOK, queries)
}

// GetQuery gets a query with its tasks
// @Summary Get query
// @Tags queries
// @Produce json
// @Param id path int true "Query ID"
// @Success 200 {object} model.QueryWithTasks
// @Router /api/queries/{id} [get]
func (h *QueryHandler) GetQuery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	query, err := h.queryService.GetQuery(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get query")
		return
	}
	c.JSON(http.StatusOK, query)
}

// CancelQuery cancels a processing query
// @Summary Cancel query
// @Tags queries
// @Produce json
// @Param id path int true "Query ID"
// @Success 200 {object} model.Query
// @Router /api/queries/{id}/cancel [post]
func (h *QueryHandler) CancelQuery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	query, err := h.queryService.CancelQuery(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "cancel query")
		return
	}
	c.JSON(http.StatusOK, query)
}

// GetTask gets a single task
// @Summary Get task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} model.Task
// @Router /api/tasks/{id} [get]
func (h *QueryHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := h.queryService.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get task")
		return
	}
	c.JSON(http.StatusOK, task)
}
