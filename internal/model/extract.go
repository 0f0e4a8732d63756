package model

import (
	"math"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

func isOne(primal []float64, col int) bool {
	return primal[col] > 0.5
}

func statusFromSolver(s solver.Status) domain.SolverStatus {
	switch s {
	case solver.StatusOptimal:
		return domain.StatusOptimal
	case solver.StatusTimeoutWithIncumbent:
		return domain.StatusTimeoutWithIncumbent
	case solver.StatusInfeasible:
		return domain.StatusInfeasible
	default:
		return domain.StatusNoSolution
	}
}

// Extract reads the solver's primal vector and materialises one
// domain.GameweekPlan per gameweek in the horizon, per §4.5: identifying
// the 15 squad members (or the Free Hit squad when active), the starters,
// captain/vice, ordered bench, in/out pairs, active chip, hit count, ITB,
// and FTs. Binary values are already rounded to tolerance 1e-6 by the
// solver driver before reaching here.
func Extract(b *Built, cfg config.Config, runID string, result solver.Result) domain.Solution {
	idx := b.Indexing
	v := b.Variables
	primal := result.Primal

	plans := make([]domain.GameweekPlan, 0, idx.NW)

	for wi, gw := range idx.Gameweeks {
		useWC := isOne(primal, v.UseWC[wi])
		useBB := isOne(primal, v.UseBB[wi])
		useFH := isOne(primal, v.UseFH[wi])

		var plan domain.GameweekPlan
		plan.Gameweek = gw
		plan.BankTenths = int(math.Round(primal[v.ITB[wi]]))
		plan.ITBValue = float64(plan.BankTenths) / 10.0
		plan.FreeTransfers = int(math.Round(primal[v.FTs[wi]]))
		plan.Hits = int(math.Round(primal[v.PenalisedTransfers[wi]]))

		switch {
		case useWC:
			plan.ChipUsed = domain.ChipWildcard
		case useFH:
			plan.ChipUsed = domain.ChipFreeHit
		case useBB:
			plan.ChipUsed = domain.ChipBenchBoost
		}

		pickCount := 0
		transfersMade := 0
		gwXP := 0.0

		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)

			squadCol := v.Squad[f]
			if useFH {
				squadCol = v.SquadFH[f]
			}
			if !isOne(primal, squadCol) {
				continue
			}
			if pickCount >= 15 {
				continue
			}

			inLineup := isOne(primal, v.Lineup[f])
			isCaptain := isOne(primal, v.Captain[f])
			isVice := isOne(primal, v.ViceCaptain[f])
			isTC := isOne(primal, v.UseTC[f])
			transferIn := isOne(primal, v.TransferIn[f])
			transferOut := isOne(primal, v.TransferOut[f])
			if transferIn {
				transfersMade++
			}

			benchSlot := -1
			for o := 0; o < BenchSlots; o++ {
				if isOne(primal, v.Bench[idx.flatSlot(pi, wi, o)]) {
					benchSlot = o
					break
				}
			}

			multiplier := 0
			switch {
			case isCaptain && isTC:
				multiplier = 3
			case isCaptain:
				multiplier = 2
			case inLineup:
				multiplier = 1
			}

			plan.Picks[pickCount] = domain.PlayerPick{
				PlayerID:      player.ID,
				Position:      player.Position,
				InLineup:      inLineup,
				BenchSlot:     benchSlot,
				IsCaptain:     isCaptain,
				IsViceCaptain: isVice,
				Multiplier:    multiplier,
				TransferIn:    transferIn,
				TransferOut:   transferOut,
			}
			pickCount++

			xp := player.ProjectionFor(gw).ExpectedPoints
			switch {
			case inLineup && isCaptain:
				weight := 1.0 + 1.0
				if isTC {
					weight = 1.0 + 2.0
				}
				gwXP += xp * weight
			case inLineup && isVice:
				gwXP += xp * (1.0 + cfg.VCapWeight)
			case inLineup:
				gwXP += xp
			case benchSlot >= 0:
				gwXP += xp * cfg.BenchWeights[benchSlot]
			}

			if useFH {
				plan.FreeHitSquad = append(plan.FreeHitSquad, player.ID)
			}
		}

		plan.TransfersMade = transfersMade
		plan.ExpectedPoints = gwXP

		plans = append(plans, plan)
	}

	return domain.Solution{
		RunID:                 runID,
		Score:                 result.ObjectiveValue,
		ConfigFingerprint:     cfg.Fingerprint(),
		Plans:                 plans,
		Status:                statusFromSolver(result.Status),
		OptimalityGapAchieved: result.OptimalityGap,
	}
}
