package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
)

// standoutSquad returns a valid 15-player squad (2 GK, 5 DEF, 5 MID, 3 FWD,
// one player per team) where a single midfielder projects far more points
// than anyone else, so the optimal lineup/captain choice is unambiguous.
func standoutSquad(standoutID int) []domain.Player {
	layout := []domain.Position{
		domain.GK, domain.GK,
		domain.DEF, domain.DEF, domain.DEF, domain.DEF, domain.DEF,
		domain.MID, domain.MID, domain.MID, domain.MID, domain.MID,
		domain.FWD, domain.FWD, domain.FWD,
	}
	players := make([]domain.Player, len(layout))
	for i, pos := range layout {
		id := i + 1
		xp := 1.0
		if id == standoutID {
			xp = 10.0
		}
		players[i] = domain.Player{
			ID:          id,
			Position:    pos,
			TeamID:      id, // one player per team: team cap never binds
			PriceTenths: 50,
			Projections: map[int]domain.Projection{
				1: {ExpectedPoints: xp, ExpectedMinutes: 90},
			},
		}
	}
	return players
}

func ownSquad(players []domain.Player) domain.SquadState {
	var squad domain.SquadState
	squad.FreeTransfers = 1
	for i, p := range players {
		squad.Players[i] = domain.OwnedPlayer{PlayerID: p.ID, PurchasePrice: p.PriceTenths, SellingPrice: p.PriceTenths}
	}
	return squad
}

func TestSolve_SingleGameweekFreeSelectionCaptainsTheStandout(t *testing.T) {
	const standoutID = 8 // a midfielder
	players := standoutSquad(standoutID)
	squad := ownSquad(players)

	cfg := config.Defaults()
	cfg.Horizon = 1

	sol, err := Solve(context.Background(), players, squad, cfg, []int{1})
	require.NoError(t, err)
	require.Len(t, sol.Plans, 1)

	plan := sol.Plans[0]
	assert.Equal(t, standoutID, plan.Captain())

	standoutInLineup := false
	for _, pick := range plan.Picks {
		if pick.PlayerID == standoutID {
			standoutInLineup = pick.InLineup
			assert.Equal(t, 2, pick.Multiplier)
		}
	}
	assert.True(t, standoutInLineup)
	assert.Greater(t, plan.ExpectedPoints, 15.0)
}

func TestSolve_ForcedTripleCaptainAppliesTripleMultiplier(t *testing.T) {
	const standoutID = 8
	players := standoutSquad(standoutID)
	squad := ownSquad(players)

	cfg := config.Defaults()
	cfg.Horizon = 1
	cfg.ChipLimits.TripleCaptain = 1
	cfg.UseTC = []int{1}

	sol, err := Solve(context.Background(), players, squad, cfg, []int{1})
	require.NoError(t, err)

	plan := sol.Plans[0]
	assert.Equal(t, standoutID, plan.Captain())
	for _, pick := range plan.Picks {
		if pick.PlayerID == standoutID {
			assert.Equal(t, 3, pick.Multiplier)
		}
	}
}

func TestRunIterations_AddsIterationCutBetweenSolves(t *testing.T) {
	const standoutID = 8
	players := standoutSquad(standoutID)
	squad := ownSquad(players)

	cfg := config.Defaults()
	cfg.Horizon = 1
	cfg.NumIterations = 2

	solutions, err := RunIterations(context.Background(), players, squad, cfg, []int{1})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(solutions), 1)
	// The first solve is always returned; the second is dropped when the
	// cut leaves the model infeasible, as it does here: the pool holds no
	// unowned player to transfer in, so only the first solve's
	// correctness is asserted unconditionally.
	assert.Equal(t, standoutID, solutions[0].Plans[0].Captain())
}

// transferSwapSquad returns a 16-player pool: a valid 15-player owned squad
// plus one unowned candidate (id 16, same position/price as the squad's
// weakest midfielder) available to transfer in. weakXP is the weekly
// projection of the swap-out candidate (squad player id 8); otherXP is the
// flat weekly projection every other squad player gets (kept well above
// candidateXP so the solver never prefers swapping them instead);
// candidateXP is player 16's weekly projection.
func transferSwapSquad(gameweeks []int, weakXP, otherXP, candidateXP float64) ([]domain.Player, domain.SquadState) {
	layout := []domain.Position{
		domain.GK, domain.GK,
		domain.DEF, domain.DEF, domain.DEF, domain.DEF, domain.DEF,
		domain.MID, domain.MID, domain.MID, domain.MID, domain.MID,
		domain.FWD, domain.FWD, domain.FWD,
	}
	const weakID = 8 // the first MID in layout (index 7, id 8)

	players := make([]domain.Player, 0, len(layout)+1)
	for i, pos := range layout {
		id := i + 1
		xp := otherXP
		if id == weakID {
			xp = weakXP
		}
		proj := map[int]domain.Projection{}
		for _, gw := range gameweeks {
			proj[gw] = domain.Projection{ExpectedPoints: xp, ExpectedMinutes: 90}
		}
		players = append(players, domain.Player{
			ID:          id,
			Position:    pos,
			TeamID:      id,
			PriceTenths: 50,
			Projections: proj,
		})
	}

	candProj := map[int]domain.Projection{}
	for _, gw := range gameweeks {
		candProj[gw] = domain.Projection{ExpectedPoints: candidateXP, ExpectedMinutes: 90}
	}
	players = append(players, domain.Player{
		ID:          len(layout) + 1,
		Position:    domain.MID,
		TeamID:      len(layout) + 1,
		PriceTenths: 50,
		Projections: candProj,
	})

	squad := ownSquad(players[:len(layout)])
	return players, squad
}

func TestSolve_SingleFreeTransferPositiveSwapIsMade(t *testing.T) {
	gameweeks := []int{1, 2}
	// Weakest MID projects 1.5/week (3 over the horizon); the candidate
	// projects 4/week (8 over the horizon) -- the literal scenario 3
	// figures. The swap's decayed gain comfortably clears the banked
	// free-transfer value forgone by spending the only available FT.
	players, squad := transferSwapSquad(gameweeks, 1.5, 6.0, 4.0)
	squad.FreeTransfers = 1

	cfg := config.Defaults()
	cfg.Horizon = 2

	sol, err := Solve(context.Background(), players, squad, cfg, gameweeks)
	require.NoError(t, err)
	require.Len(t, sol.Plans, 2)

	w0 := sol.Plans[0]
	assert.Equal(t, 1, w0.TransfersMade)
	assert.Equal(t, 0, w0.Hits)

	var sawIn, sawOut bool
	for _, pick := range w0.Picks {
		if pick.PlayerID == 16 && pick.TransferIn {
			sawIn = true
		}
		if pick.PlayerID == 8 && pick.TransferOut {
			sawOut = true
		}
	}
	assert.True(t, sawIn, "candidate player should be transferred in at w0")
	assert.True(t, sawOut, "the weak midfielder should be transferred out at w0")
}

func TestSolve_MarginalSwapIsDeclinedInFavourOfBankingTheTransfer(t *testing.T) {
	gameweeks := []int{1, 2}
	// The candidate's edge over the incumbent (0.8/week, 1.6 over the
	// horizon) is too small to outweigh the free-transfer value given up
	// by spending it rather than letting fts accumulate toward w1 -- the
	// §4.4 ft_value_list terms price that forgone state explicitly, so
	// declining is the strictly better objective even though the swap
	// alone looks like a (small) net positive.
	players, squad := transferSwapSquad(gameweeks, 1.5, 6.0, 2.3)
	squad.FreeTransfers = 1

	cfg := config.Defaults()
	cfg.Horizon = 2
	cfg.NoTransferLastGWs = 0 // leave w0 open to transfers

	sol, err := Solve(context.Background(), players, squad, cfg, gameweeks)
	require.NoError(t, err)
	require.Len(t, sol.Plans, 2)

	w0 := sol.Plans[0]
	assert.Equal(t, 0, w0.TransfersMade)
	assert.Equal(t, 0, w0.Hits)
}

func benchBoostSquad(gameweeks, boostWeeks []int) ([]domain.Player, domain.SquadState) {
	layout := []domain.Position{
		domain.GK, domain.GK,
		domain.DEF, domain.DEF, domain.DEF, domain.DEF, domain.DEF,
		domain.MID, domain.MID, domain.MID, domain.MID, domain.MID,
		domain.FWD, domain.FWD, domain.FWD,
	}
	boosted := map[int]bool{}
	for _, gw := range boostWeeks {
		boosted[gw] = true
	}

	players := make([]domain.Player, len(layout))
	for i, pos := range layout {
		id := i + 1
		// The first four players (both goalkeepers and the first two
		// defenders) are the permanent benchwarmers: zero everywhere
		// except the boosted week, where they project 5; Bench Boost puts
		// all 15 squad members in the scored lineup that week.
		isBenchwarmer := i < 4
		proj := map[int]domain.Projection{}
		for _, gw := range gameweeks {
			xp := 8.0
			if isBenchwarmer {
				xp = 0.0
				if boosted[gw] {
					xp = 5.0
				}
			}
			proj[gw] = domain.Projection{ExpectedPoints: xp, ExpectedMinutes: 90}
		}
		players[i] = domain.Player{
			ID:          id,
			Position:    pos,
			TeamID:      id,
			PriceTenths: 50,
			Projections: proj,
		}
	}
	squad := ownSquad(players)
	return players, squad
}

func TestSolve_BenchBoostForcedOnBestWeekScoresTheFullSquad(t *testing.T) {
	gameweeks := []int{1, 2, 3}
	boostGW := 2
	players, squad := benchBoostSquad(gameweeks, []int{boostGW})

	cfg := config.Defaults()
	cfg.Horizon = 3
	cfg.ChipLimits.BenchBoost = 1
	cfg.UseBB = []int{boostGW}

	sol, err := Solve(context.Background(), players, squad, cfg, gameweeks)
	require.NoError(t, err)
	require.Len(t, sol.Plans, 3)

	var boosted domain.GameweekPlan
	for _, plan := range sol.Plans {
		if plan.Gameweek == boostGW {
			boosted = plan
		}
	}
	assert.Equal(t, domain.ChipBenchBoost, boosted.ChipUsed)
	for _, pick := range boosted.Picks {
		assert.True(t, pick.InLineup, "player %d should be in the scored lineup during bench boost", pick.PlayerID)
	}
}

func TestRunIterations_SecondIterationDiffersFromFirstAndScoresNoHigher(t *testing.T) {
	gameweeks := []int{1, 2}
	layout := []domain.Position{
		domain.GK, domain.GK,
		domain.DEF, domain.DEF, domain.DEF, domain.DEF, domain.DEF,
		domain.MID, domain.MID, domain.MID, domain.MID, domain.MID,
		domain.FWD, domain.FWD, domain.FWD,
	}
	const weakID = 8

	players := make([]domain.Player, 0, len(layout)+2)
	for i, pos := range layout {
		id := i + 1
		xp := 6.0
		if id == weakID {
			xp = 1.0
		}
		proj := map[int]domain.Projection{}
		for _, gw := range gameweeks {
			proj[gw] = domain.Projection{ExpectedPoints: xp, ExpectedMinutes: 90}
		}
		players = append(players, domain.Player{ID: id, Position: pos, TeamID: id, PriceTenths: 50, Projections: proj})
	}
	// Two unowned candidates, both upgrades on the weak midfielder:
	// player 16 (5/week) and player 17 (3/week). Both project below the
	// 6-point squad players, so either would only strengthen the bench:
	// the first solve banks its free transfer rather than buying at w0,
	// and the iteration cut then forces the second solve to bring a
	// player in at w0, scoring lower.
	for i, xp := range []float64{5.0, 3.0} {
		id := len(layout) + 1 + i
		proj := map[int]domain.Projection{}
		for _, gw := range gameweeks {
			proj[gw] = domain.Projection{ExpectedPoints: xp, ExpectedMinutes: 90}
		}
		players = append(players, domain.Player{ID: id, Position: domain.MID, TeamID: id, PriceTenths: 50, Projections: proj})
	}

	squad := ownSquad(players[:len(layout)])
	squad.FreeTransfers = 1

	cfg := config.Defaults()
	cfg.Horizon = 2
	cfg.NumIterations = 2
	cfg.NoTransferLastGWs = 0 // leave w0 open to transfers

	solutions, err := RunIterations(context.Background(), players, squad, cfg, gameweeks)
	require.NoError(t, err)
	require.Len(t, solutions, 2)

	firstIn := solutions[0].FirstGameweekTransferIns()
	secondIn := solutions[1].FirstGameweekTransferIns()
	assert.NotEqual(t, firstIn, secondIn, "the iteration cut should force a different w0 transfer-in set")
	assert.LessOrEqual(t, solutions[1].Score, solutions[0].Score+1e-6)
}

func TestSolve_InfeasibleInitialSquadReturnsError(t *testing.T) {
	players := standoutSquad(8)
	squad := ownSquad(players)
	squad.Players[0].PlayerID = 999 // references a player outside the pool

	cfg := config.Defaults()
	cfg.Horizon = 1

	_, err := Solve(context.Background(), players, squad, cfg, []int{1})
	require.Error(t, err)
}
