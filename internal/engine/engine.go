// Package engine is the top-level orchestrator for a solve request: it
// wires the Model Builder and Solver Driver together (§2 components 4-5)
// and owns the iteration-cut loop for alternative solutions (§4.5).
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/model"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

// Solve runs a single build-solve-extract pass and returns the resulting
// Solution (num_iterations == 1 semantics).
func Solve(ctx context.Context, players []domain.Player, squad domain.SquadState, cfg config.Config, gameweeks []int) (domain.Solution, error) {
	solutions, err := RunIterations(ctx, players, squad, cfg, gameweeks)
	if err != nil {
		return domain.Solution{}, err
	}
	if len(solutions) == 0 {
		return domain.Solution{}, fmt.Errorf("engine: no solutions produced")
	}
	return solutions[0], nil
}

// RunIterations builds the model once and solves it up to cfg.NumIterations
// times, adding an iteration cut between solves that forbids repeating the
// previous first-gameweek transfer-in profile (§4.5). It stops early on
// infeasibility (keeping the solutions already collected) or when the
// objective degrades beyond tolerance (keeping the degraded solution as the
// last one) (§7's recovery policy: the
// iteration loop ends cleanly rather than propagating a mid-loop error).
func RunIterations(ctx context.Context, players []domain.Player, squad domain.SquadState, cfg config.Config, gameweeks []int) ([]domain.Solution, error) {
	log := logging.WithConfig(cfg.Fingerprint())

	built, err := model.Build(players, squad, cfg, gameweeks)
	if err != nil {
		return nil, err
	}

	eng := solver.NewSolver()
	solveOpts := solver.SolveOptions{
		TimeLimitSeconds: cfg.TimeLimitSecs,
		RelGap:           cfg.OptimalityGap,
		Seed:             cfg.RandomSeed,
	}

	const degradeTolerance = 1e-6

	var solutions []domain.Solution
	var prevObjective float64

	n := cfg.NumIterations
	if n < 1 {
		n = 1
	}

	for i := 0; i < n; i++ {
		runID := uuid.NewString()

		result, err := eng.Solve(ctx, built.Problem, solveOpts)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			log.WithField("iteration", i).WithError(err).Warn("engine: iteration cut loop stopped")
			break
		}

		sol := model.Extract(built, cfg, runID, result)

		if i > 0 && sol.Score > prevObjective+degradeTolerance {
			// An iteration cut should never improve on the prior optimum;
			// if it does the cut's bookkeeping is wrong. Treat it as a
			// degraded alternative is unsafe to trust, so stop here.
			log.WithField("iteration", i).Warn("engine: iteration objective improved unexpectedly, stopping")
			break
		}
		if i > 0 && prevObjective-sol.Score > degradeTolerance*1e6 {
			log.WithField("iteration", i).Info("engine: objective degraded beyond tolerance, stopping iteration cuts")
			solutions = append(solutions, sol)
			break
		}

		solutions = append(solutions, sol)
		prevObjective = sol.Score

		if i < n-1 {
			addIterationCut(built, sol)
		}
	}

	return solutions, nil
}

// addIterationCut forbids repeating the previous solution's first-gameweek
// transfer-in set S: Σ_{p∈S}(1−transfer_in[p,w0]) + Σ_{p∉S} transfer_in[p,w0] ≥ 1.
func addIterationCut(built *model.Built, prev domain.Solution) {
	transferredIn := prev.FirstGameweekTransferIns()
	idx := built.Indexing
	v := built.Variables

	coeffs := map[int]float64{}
	rhs := 1.0
	for pi, player := range idx.Players {
		f := idx.Flat(pi, 0)
		col := v.TransferIn[f]
		if transferredIn[player.ID] {
			coeffs[col] += -1
			rhs -= 1
		} else {
			coeffs[col] += 1
		}
	}
	built.Problem.AddConstraint(fmt.Sprintf("iteration_cut_%d", len(built.Problem.Constraints)), coeffs, solver.GE, rhs)
}
