package model

import (
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/apperrors"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

// Built is the output of Build: a solver-ready Problem plus everything the
// extractor needs to turn a primal vector back into domain.GameweekPlans.
type Built struct {
	Problem   *solver.Problem
	Indexing  *Indexing
	Variables *Variables
}

// Build declares every variable and constraint in §4.4 and composes the
// objective, for the filtered player set, the initial squad state, and the
// resolved gameweek horizon. It returns a ModelError if the initial squad
// fails its own structural invariants (§7: "inconsistent initial squad,
// quota violation").
func Build(players []domain.Player, squad domain.SquadState, cfg config.Config, gameweeks []int) (*Built, error) {
	playerByID := make(map[int]domain.Player, len(players))
	for _, p := range players {
		playerByID[p.ID] = p
	}
	if err := squad.Validate(playerByID); err != nil {
		return nil, &apperrors.ModelError{
			Entity:            "initial_squad",
			Reason:            err.Error(),
			ConfigFingerprint: cfg.Fingerprint(),
			Wrapped:           err,
		}
	}

	idx := NewIndexing(players, gameweeks)
	st := resolveInitialState(squad)

	prob := solver.NewProblem(true)
	v := declareVariables(prob, idx, idx.NP)

	chipsUsedAlready := chipUsageCounts(squad)
	buildConstraints(prob, idx, v, st, cfg, chipsUsedAlready)
	buildObjective(prob, idx, v, cfg)

	return &Built{Problem: prob, Indexing: idx, Variables: v}, nil
}
