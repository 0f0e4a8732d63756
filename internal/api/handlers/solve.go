package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/apperrors"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/cache"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/engine"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/filter"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/wsprogress"
)

// SolveHandler exposes the core solve operation over HTTP.
type SolveHandler struct {
	cache  *cache.SolutionCache
	wsHub  *wsprogress.Hub
	logger *logrus.Logger
}

// NewSolveHandler wires a SolveHandler's dependencies.
func NewSolveHandler(cache *cache.SolutionCache, wsHub *wsprogress.Hub, logger *logrus.Logger) *SolveHandler {
	return &SolveHandler{cache: cache, wsHub: wsHub, logger: logger}
}

// Solve handles POST /api/v1/solve: filters the player pool, builds and
// solves the MILP for the requested horizon, and returns the resulting
// Solution, serving from cache when an identical config has already run.
func (h *SolveHandler) Solve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST", Details: map[string]string{"validation_error": err.Error()}})
		return
	}

	cfg, err := resolveConfig(req)
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
		if cached, err := h.cache.GetSolution(c.Request.Context(), fingerprint); err != nil {
			h.logger.WithError(err).Warn("solve: cache lookup failed, continuing uncached")
		} else if cached != nil {
			h.logger.WithField("config_fingerprint", fingerprint).Info("solve: serving cached solution")
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	filtered := filter.Apply(players, filter.Options{
		Owned:            ownedIDs(squad),
		Locked:           cfg.Locked,
		Keep:             cfg.Keep,
		Banned:           cfg.Banned,
		KeepTopEVPercent: cfg.KeepTopEVPercent,
		XMinLB:           cfg.XMinLB,
		EVPerPriceCutoff: cfg.EVPerPriceCutoff,
		Gameweeks:        req.Gameweeks,
	})

	runID := uuid.NewString()
	if h.wsHub != nil {
		h.wsHub.Publish(wsprogress.Event{RunID: runID, Stage: "solving", Message: "building and solving the model"})
	}

	start := time.Now()
	sol, err := engine.Solve(c.Request.Context(), filtered.Players, squad, cfg, req.Gameweeks)
	if err != nil {
		if h.wsHub != nil {
			h.wsHub.Publish(wsprogress.Event{RunID: runID, Stage: "error", Message: err.Error()})
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "solve failed", Code: solveErrorCode(err), Details: map[string]string{"error": err.Error()}})
		return
	}
	sol.RunID = runID

	if h.wsHub != nil {
		h.wsHub.Publish(wsprogress.Event{RunID: runID, Stage: "done", Message: "solve complete"})
	}

	if h.cache != nil {
		if err := h.cache.SetSolution(c.Request.Context(), fingerprint, &sol, time.Hour); err != nil {
			h.logger.WithError(err).Warn("solve: failed to cache solution")
		}
	}

	h.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"gameweeks": len(req.Gameweeks),
		"elapsed":  time.Since(start),
		"diagnostics": filtered.Diagnostics,
	}).Info("solve: completed")

	c.JSON(http.StatusOK, sol)
}

func ownedIDs(squad domain.SquadState) []int {
	out := make([]int, 0, len(squad.Players))
	for _, p := range squad.Players {
		if p.PlayerID != 0 {
			out = append(out, p.PlayerID)
		}
	}
	return out
}

func solveErrorCode(err error) string {
	switch err.(type) {
	case *apperrors.ModelError:
		return "MODEL_ERROR"
	case *apperrors.SolverError:
		return "SOLVER_ERROR"
	case *apperrors.ConfigError:
		return "INVALID_CONFIG"
	default:
		return "SOLVE_ERROR"
	}
}
