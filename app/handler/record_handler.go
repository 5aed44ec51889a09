package handler

import (
	"net/http"

	"labswarm/internal/model"
	"labswarm/internal/service"

	"github.com/gin-gonic/gin"
)

// RecordHandler activity log, research data, system metrics and chat
type RecordHandler struct {
	activityService *service.ActivityService
	researchService *service.ResearchService
	metricsService  *service.MetricsService
	chatService     *service.ChatService
}

// NewRecordHandler creates record handler
func NewRecordHandler(
	activityService *service.ActivityService,
	researchService *service.ResearchService,
	metricsService *service.MetricsService,
	chatService *service.ChatService,
) *RecordHandler {
	return &RecordHandler{
		activityService: activityService,
		researchService: researchService,
		metricsService:  metricsService,
		chatService:     chatService,
	}
}

// ListActivity returns the latest activity records, newest first
// @Summary List activity log
// @Tags activity
// @Produce json
// @Param limit query int false "Max records" default(50)
// @Success 200 {array} model.ActivityRecord
// @Router /api/activity-log [get]
func (h *RecordHandler) ListActivity(c *gin.Context) {
	records, err := h.activityService.Latest(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err, "list activity")
		return
	}
	c.JSON(http.StatusOK, records)
}

// CreateActivity appends an activity record
// @Summary Create activity record
// @Tags activity
// @Accept json
// @Produce json
// @Param request body model.CreateActivityRequest true "Activity"
// @Success 201 {object} model.ActivityRecord
// @Router /api/activity-log [post]
func (h *RecordHandler) CreateActivity(c *gin.Context) {
	var req model.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity data"})
		return
	}
	record, err := h.activityService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "create activity")
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListResearch returns filed research records, newest first
// @Summary List research data
// @Tags research
// @Produce json
// @Success 200 {array} model.ResearchRecord
// @Router /api/research-data [get]
func (h *RecordHandler) ListResearch(c *gin.Context) {
	records, err := h.researchService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list research data")
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetMetrics returns the latest system metrics snapshot
// @Summary Get system metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} model.SystemMetrics
// @Router /api/system-metrics [get]
func (h *RecordHandler) GetMetrics(c *gin.Context) {
	metrics, err := h.metricsService.Latest(c.Request.Context())
	if err != nil {
		respondError(c, err, "get system metrics")
		return
	}
	if metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics recorded"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// RecordMetrics stores a system metrics snapshot
// @Summary Record system metrics
// @Tags metrics
// @Accept json
// @Produce json
// @Param request body model.RecordMetricsRequest true "Metrics"
// @Success 201 {object} model.SystemMetrics
// @Router /api/system-metrics [post]
func (h *RecordHandler) RecordMetrics(c *gin.Context) {
	var req model.RecordMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metrics data"})
		return
	}
	metrics, err := h.metricsService.Record(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "record system metrics")
		return
	}
	c.JSON(http.StatusCreated, metrics)
}

// ListChat returns the latest chat messages, oldest first
// @Summary List chat messages
// @Tags chat
// @Produce json
// @Param limit query int false "Max messages" default(50)
// @Success 200 {array} model.ChatMessage
// @Router /api/chat-messages [get]
func (h *RecordHandler) ListChat(c *gin.Context) {
	messages, err := h.chatService.List(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err, "list chat messages")
		return
	}
	c.JSON(http.StatusOK, messages)
}

// PostChat appends a chat message
// @Summary Post chat message
// @Tags chat
// @Accept json
// @Produce json
// @Param request body model.CreateChatMessageRequest true "Message"
// @Success 201 {object} model.ChatMessage
// @Router /api/chat-messages [post]
func (h *RecordHandler) PostChat(c *gin.Context) {
	var req model.CreateChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message data"})
		return
	}
	message, err := h.chatService.Post(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "post chat message")
		return
	}
	c.JSON(http.StatusCreated, message)
}
