package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/cache"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/sensitivity"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/wsprogress"
)

// SensitivityHandler exposes the Monte-Carlo simulation mode over HTTP.
type SensitivityHandler struct {
	cache  *cache.SolutionCache
	wsHub  *wsprogress.Hub
	logger *logrus.Logger
}

// NewSensitivityHandler wires a SensitivityHandler's dependencies.
func NewSensitivityHandler(cache *cache.SolutionCache, wsHub *wsprogress.Hub, logger *logrus.Logger) *SensitivityHandler {
	return &SensitivityHandler{cache: cache, wsHub: wsHub, logger: logger}
}

// Run handles POST /api/v1/sensitivity: perturbs the player pool over
// Draws independent runs and returns the aggregated Summary, streaming
// per-draw progress over the run's websocket channel.
func (h *SensitivityHandler) Run(c *gin.Context) {
	var req SensitivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST", Details: map[string]string{"validation_error": err.Error()}})
		return
	}

	cfg, err := resolveConfig(req.SolveRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid config overlay", Code: "INVALID_CONFIG", Details: map[string]string{"error": err.Error()}})
		return
	}
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "config validation failed", Code: "INVALID_CONFIG", Details: map[string]string{"error": err.Error()}})
		return
	}

	players, err := toDomainPlayers(req.Players)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid player data", Code: "INVALID_PLAYERS", Details: map[string]string{"error": err.Error()}})
		return
	}
	squad, err := toDomainSquad(req.Squad)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid squad data", Code: "INVALID_SQUAD", Details: map[string]string{"error": err.Error()}})
		return
	}

	fingerprint := cfg.Fingerprint()
	if h.cache != nil {
		if cached, err := h.cache.GetSensitivity(c.Request.Context(), fingerprint); err != nil {
			h.logger.WithError(err).Warn("sensitivity: cache lookup failed, continuing uncached")
		} else if cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	runID := uuid.NewString()
	var progress func(done, total int)
	if h.wsHub != nil {
		progress = func(done, total int) {
			h.wsHub.Publish(wsprogress.Event{RunID: runID, Stage: "sensitivity", Done: done, Total: total})
		}
	}

	summary, err := sensitivity.Run(c.Request.Context(), players, squad, cfg, req.Gameweeks, sensitivity.Options{
		Draws:          req.Draws,
		StdDevFraction: req.StdDevFraction,
		Workers:        req.Workers,
		Seed:           req.Seed,
		ProgressFunc:   progress,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "sensitivity run failed", Code: "SENSITIVITY_ERROR", Details: map[string]string{"error": err.Error()}})
		return
	}

	if h.wsHub != nil {
		h.wsHub.Publish(wsprogress.Event{RunID: runID, Stage: "done"})
	}
	if h.cache != nil {
		if err := h.cache.SetSensitivity(c.Request.Context(), fingerprint, summary, time.Hour); err != nil {
			h.logger.WithError(err).Warn("sensitivity: failed to cache summary")
		}
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "summary": summary})
}
