package handler

import (
	"errors"
	"net/http"
	"strconv"

	"labswarm/internal/service"
	"labswarm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to a status code and a gin.H body
func respondError(c *gin.Context, err error, action string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrInvalidWorker),
		errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrQueryFinished):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), "failed to %s: %v", action, err)
	} else {
		logger.DebugCtx(c.Request.Context(), "failed to %s: %v", action, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseID reads a positive int64 path parameter
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
