package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/repository"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports whether backing stores are reachable.
type HealthHandler struct {
	checks map[string]repository.Pinger
}

func NewHealthHandler(checks map[string]repository.Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	data := gin.H{"checks": checks}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.ErrorEnvelope{
			Status:     "error",
			Message:    "Service unavailable",
			StatusCode: http.StatusServiceUnavailable,
			Data:       data,
		})
		return
	}
	response.Success(c, http.StatusOK, "ok", data)
}
