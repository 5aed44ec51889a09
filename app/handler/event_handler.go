package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"labswarm/internal/model"
	"labswarm/internal/service"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultPollLimit = 100
	writeWait        = 10 * time.Second
)

// Inbound websocket message types
const (
	messageWorkerUpdate  = "worker_update"
	messageSystemMetrics = "system_metrics"
	messageActivityLog   = "activity_log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // observers are served from any origin
	},
}

// EventHandler poll and push surfaces of the event bus
type EventHandler struct {
	bus             *eventbus.Bus
	workerService   *service.WorkerService
	metricsService  *service.MetricsService
	activityService *service.ActivityService
}

// NewEventHandler creates event handler
func NewEventHandler(
	bus *eventbus.Bus,
	workerService *service.WorkerService,
	metricsService *service.MetricsService,
	activityService *service.ActivityService,
) *EventHandler {
	return &EventHandler{
		bus:             bus,
		workerService:   workerService,
		metricsService:  metricsService,
		activityService: activityService,
	}
}

// outboundMessage event as written to observers
type outboundMessage struct {
	Type      string      `json:"type"`
	Seq       uint64      `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func toOutbound(e eventbus.Event) outboundMessage {
	return outboundMessage{
		Type:      e.Type.String(),
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		Data:      e.Data,
	}
}

// inboundMessage message sent by an observer
type inboundMessage struct {
	Type     string                       `json:"type"`
	WorkerID int64                        `json:"workerId"`
	Updates  *model.WorkerPatch           `json:"updates"`
	Metrics  *model.RecordMetricsRequest  `json:"metrics"`
	Log      *model.CreateActivityRequest `json:"log"`
}

// Poll returns events published after the since cursor
// @Summary Poll events
// @Tags events
// @Produce json
// @Param since query int false "Last seen sequence number"
// @Param limit query int false "Max events" default(100)
// @Success 200 {object} map[string]interface{}
// @Router /api/events [get]
func (h *EventHandler) Poll(c *gin.Context) {
	var cursor uint64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		cursor = v
	}

	events, next := h.bus.Since(cursor, queryInt(c, "limit", defaultPollLimit))
	out := make([]outboundMessage, 0, len(events))
	for _, e := range events {
		out = append(out, toOutbound(e))
	}
	c.JSON(http.StatusOK, gin.H{"events": out, "cursor": next})
}

// Stream upgrades to a websocket that receives every event and accepts observer updates
// @Summary Event stream
// @Tags events
// @Router /ws [get]
func (h *EventHandler) Stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	clientID := uuid.NewString()
	ctx := logger.WithTraceID(context.Background(), clientID)
	logger.InfoCtx(ctx, "observer connected, remote: %s", c.Request.RemoteAddr)

	var writeMu sync.Mutex
	unsubscribe := h.bus.Subscribe(eventbus.AllEvents, func(e eventbus.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(toOutbound(e)); err != nil {
			logger.DebugCtx(ctx, "failed to push event seq=%d: %v", e.Seq, err)
		}
	})
	defer unsubscribe()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnCtx(ctx, "observer read failed: %v", err)
			}
			break
		}
		h.handleInbound(ctx, payload)
	}
	logger.InfoCtx(ctx, "observer disconnected")
}

// handleInbound applies an observer message; results reach observers through the bus
func (h *EventHandler) handleInbound(ctx context.Context, payload []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.WarnCtx(ctx, "invalid observer message: %v", err)
		return
	}

	var err error
	switch msg.Type {
	case messageWorkerUpdate:
		if msg.WorkerID == 0 || msg.Updates == nil {
			return
		}
		_, err = h.workerService.UpdateWorker(ctx, msg.WorkerID, *msg.Updates)
	case messageSystemMetrics:
		if msg.Metrics == nil {
			return
		}
		_, err = h.metricsService.Record(ctx, msg.Metrics)
	case messageActivityLog:
		if msg.Log == nil {
			return
		}
		_, err = h.activityService.Create(ctx, msg.Log)
	default:
		logger.DebugCtx(ctx, "ignoring observer message type %q", msg.Type)
		return
	}
	if err != nil {
		logger.WarnCtx(ctx, "failed to apply %s message: %v", msg.Type, err)
	}
}
