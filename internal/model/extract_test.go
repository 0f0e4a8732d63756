package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

// buildFixture declares a tiny 3-player, 1-gameweek model and returns the
// Built plus a helper to set primal values by (variable slice, index).
func buildFixture(t *testing.T) (*Built, *domain.Player) {
	t.Helper()
	players := []domain.Player{
		{ID: 1, Position: domain.GK, TeamID: 1, PriceTenths: 40,
			Projections: map[int]domain.Projection{1: {ExpectedPoints: 2}}},
		{ID: 2, Position: domain.DEF, TeamID: 2, PriceTenths: 50,
			Projections: map[int]domain.Projection{1: {ExpectedPoints: 6}}},
		{ID: 3, Position: domain.DEF, TeamID: 3, PriceTenths: 45,
			Projections: map[int]domain.Projection{1: {ExpectedPoints: 3}}},
	}
	idx := NewIndexing(players, []int{1})
	prob := solver.NewProblem(true)
	v := declareVariables(prob, idx, idx.NP)
	return &Built{Problem: prob, Indexing: idx, Variables: v}, &players[1]
}

func TestExtract_IdentifiesCaptainAndLineupMultiplier(t *testing.T) {
	built, captainPlayer := buildFixture(t)
	idx, v := built.Indexing, built.Variables

	primal := make([]float64, built.Problem.NumVars())
	// Player 2 (index 1) is the captain, in lineup, in squad.
	capPI := idx.PlayerIndex[captainPlayer.ID]
	f := idx.Flat(capPI, 0)
	primal[v.Squad[f]] = 1
	primal[v.Lineup[f]] = 1
	primal[v.Captain[f]] = 1
	primal[v.FTs[0]] = 1

	cfg := config.Defaults()
	result := solver.Result{Status: solver.StatusOptimal, Primal: primal, ObjectiveValue: 12}

	sol := Extract(built, cfg, "run-1", result)
	require.Len(t, sol.Plans, 1)
	plan := sol.Plans[0]
	assert.Equal(t, captainPlayer.ID, plan.Captain())

	for _, pick := range plan.Picks {
		if pick.PlayerID == captainPlayer.ID {
			assert.True(t, pick.InLineup)
			assert.True(t, pick.IsCaptain)
			assert.Equal(t, 2, pick.Multiplier)
			assert.Equal(t, -1, pick.BenchSlot)
		}
	}
}

func TestExtract_TripleCaptainMultiplierIsThree(t *testing.T) {
	built, captainPlayer := buildFixture(t)
	idx, v := built.Indexing, built.Variables

	primal := make([]float64, built.Problem.NumVars())
	capPI := idx.PlayerIndex[captainPlayer.ID]
	f := idx.Flat(capPI, 0)
	primal[v.Squad[f]] = 1
	primal[v.Lineup[f]] = 1
	primal[v.Captain[f]] = 1
	primal[v.UseTC[f]] = 1

	cfg := config.Defaults()
	result := solver.Result{Status: solver.StatusOptimal, Primal: primal}
	sol := Extract(built, cfg, "run-1", result)

	for _, pick := range sol.Plans[0].Picks {
		if pick.PlayerID == captainPlayer.ID {
			assert.Equal(t, 3, pick.Multiplier)
		}
	}
}

func TestExtract_BenchSlotReadsFirstMatchingSlot(t *testing.T) {
	built, captainPlayer := buildFixture(t)
	idx, v := built.Indexing, built.Variables

	primal := make([]float64, built.Problem.NumVars())
	pi := idx.PlayerIndex[captainPlayer.ID]
	f := idx.Flat(pi, 0)
	primal[v.Squad[f]] = 1
	primal[v.Bench[idx.flatSlot(pi, 0, 2)]] = 1

	cfg := config.Defaults()
	result := solver.Result{Status: solver.StatusOptimal, Primal: primal}
	sol := Extract(built, cfg, "run-1", result)

	for _, pick := range sol.Plans[0].Picks {
		if pick.PlayerID == captainPlayer.ID {
			assert.False(t, pick.InLineup)
			assert.Equal(t, 2, pick.BenchSlot)
		}
	}
}

func TestExtract_FreeHitWeekReadsSquadFHInsteadOfSquad(t *testing.T) {
	built, captainPlayer := buildFixture(t)
	idx, v := built.Indexing, built.Variables

	primal := make([]float64, built.Problem.NumVars())
	primal[v.UseFH[0]] = 1
	pi := idx.PlayerIndex[captainPlayer.ID]
	f := idx.Flat(pi, 0)
	// Not in the regular Squad, only in SquadFH: should still surface.
	primal[v.SquadFH[f]] = 1
	primal[v.Lineup[f]] = 1

	cfg := config.Defaults()
	result := solver.Result{Status: solver.StatusOptimal, Primal: primal}
	sol := Extract(built, cfg, "run-1", result)

	plan := sol.Plans[0]
	assert.Equal(t, domain.ChipFreeHit, plan.ChipUsed)
	assert.Contains(t, plan.FreeHitSquad, captainPlayer.ID)

	found := false
	for _, pick := range plan.Picks {
		if pick.PlayerID == captainPlayer.ID {
			found = true
		}
	}
	assert.True(t, found, "player held only via SquadFH should still be extracted during a Free Hit week")
}

func TestStatusFromSolver_MapsEveryCase(t *testing.T) {
	assert.Equal(t, domain.StatusOptimal, statusFromSolver(solver.StatusOptimal))
	assert.Equal(t, domain.StatusTimeoutWithIncumbent, statusFromSolver(solver.StatusTimeoutWithIncumbent))
	assert.Equal(t, domain.StatusInfeasible, statusFromSolver(solver.StatusInfeasible))
	assert.Equal(t, domain.StatusNoSolution, statusFromSolver(solver.StatusNoSolution))
}
