package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/persistence"
)

// HealthStatus is the response shape for /health and /ready.
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler reports liveness/readiness of the solve service's
// dependencies: Postgres (optional -- the core solves without it) and
// Redis (critical -- the result cache backs repeated requests).
type HealthHandler struct {
	db    *persistence.DB
	redis *redis.Client
}

// NewHealthHandler wires a HealthHandler's dependencies.
func NewHealthHandler(db *persistence.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// GetHealth reports liveness.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthStatus{Status: "ok", Service: "fpl-optimizer", Timestamp: time.Now(), Checks: map[string]string{}})
}

// GetReady reports readiness: an unreachable Redis makes the service not
// ready (503), an unreachable database only marks it degraded.
func (h *HealthHandler) GetReady(c *gin.Context) {
	status := HealthStatus{Status: "ready", Service: "fpl-optimizer", Timestamp: time.Now(), Checks: map[string]string{}}

	if h.db != nil {
		if err := h.db.Health(c.Request.Context()); err != nil {
			status.Status = "degraded"
			status.Checks["database"] = "failed: " + err.Error()
		} else {
			status.Checks["database"] = "ok"
		}
	} else {
		status.Checks["database"] = "not_configured"
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			status.Status = "unhealthy"
			status.Checks["redis"] = "failed: " + err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	} else {
		status.Checks["redis"] = "not_configured"
	}

	code := http.StatusOK
	switch status.Status {
	case "unhealthy":
		code = http.StatusServiceUnavailable
	case "degraded":
		code = http.StatusPartialContent
	}
	c.JSON(code, status)
}
