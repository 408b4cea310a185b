package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler running checks on readiness
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Live godoc
// @Summary      Liveness check
// @Description  Answers as long as the process serves requests
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary      Readiness check
// @Description  Runs the database and Redis checks
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.Response{data=map[string]string}
// @Failure      503 {object} dto.Response{data=map[string]string,error=dto.ErrorInfo}
// @Router       /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "Service not ready", getRequestID(c))
		resp.Data = status
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	h.Success(c, status)
}
