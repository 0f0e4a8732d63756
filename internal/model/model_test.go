package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

func TestDecayWeight_IsOneAtOrigin(t *testing.T) {
	assert.Equal(t, 1.0, decayWeight(0.9, 0))
}

func TestDecayWeight_DecaysGeometrically(t *testing.T) {
	assert.InDelta(t, 0.9, decayWeight(0.9, 1), 1e-9)
	assert.InDelta(t, 0.81, decayWeight(0.9, 2), 1e-9)
}

func TestDecayWeight_TreatsNonPositiveBaseAsOne(t *testing.T) {
	assert.Equal(t, 1.0, decayWeight(0, 3))
}

func TestChipUsageCounts_TalliesByChip(t *testing.T) {
	squad := domain.SquadState{
		ChipsUsed: []domain.UsedChip{
			{Chip: domain.ChipWildcard, Gameweek: 3},
			{Chip: domain.ChipBenchBoost, Gameweek: 10},
			{Chip: domain.ChipBenchBoost, Gameweek: 20},
		},
	}
	counts := chipUsageCounts(squad)
	assert.Equal(t, 1, counts[domain.ChipWildcard])
	assert.Equal(t, 2, counts[domain.ChipBenchBoost])
	assert.Equal(t, 0, counts[domain.ChipFreeHit])
}

func TestNewIndexing_BuildsLookupTables(t *testing.T) {
	players := []domain.Player{{ID: 101}, {ID: 202}}
	gws := []int{5, 6, 7}
	idx := NewIndexing(players, gws)

	assert.Equal(t, 2, idx.NP)
	assert.Equal(t, 3, idx.NW)
	assert.Equal(t, 0, idx.PlayerIndex[101])
	assert.Equal(t, 1, idx.PlayerIndex[202])
	assert.Equal(t, 0, idx.GameweekIndex[5])
	assert.Equal(t, 2, idx.GameweekIndex[7])
	assert.Equal(t, 5, idx.FirstGameweek())
}

func TestIndexing_FlatIsInjective(t *testing.T) {
	players := []domain.Player{{ID: 1}, {ID: 2}, {ID: 3}}
	gws := []int{1, 2}
	idx := NewIndexing(players, gws)

	seen := map[int]bool{}
	for pi := range players {
		for wi := range gws {
			f := idx.Flat(pi, wi)
			assert.False(t, seen[f], "flat offset collision at pi=%d wi=%d", pi, wi)
			seen[f] = true
		}
	}
}

func TestDeclareVariables_EveryColumnHasAUniqueIndex(t *testing.T) {
	players := make([]domain.Player, 5)
	for i := range players {
		players[i] = domain.Player{ID: i + 1, Position: domain.MID, TeamID: 1}
	}
	idx := NewIndexing(players, []int{1, 2})
	prob := solver.NewProblem(true)

	v := declareVariables(prob, idx, idx.NP)

	seen := map[int]bool{}
	checkUnique := func(cols []int) {
		for _, c := range cols {
			require.False(t, seen[c], "duplicate column index %d", c)
			seen[c] = true
		}
	}
	checkUnique(v.Squad)
	checkUnique(v.SquadFH)
	checkUnique(v.Lineup)
	checkUnique(v.Captain)
	checkUnique(v.ViceCaptain)
	checkUnique(v.TransferIn)
	checkUnique(v.TransferOut)
	checkUnique(v.UseTC)
	checkUnique(v.Bench)
	checkUnique(v.UseWC)
	checkUnique(v.UseBB)
	checkUnique(v.UseFH)
	checkUnique(v.ITB)
	checkUnique(v.FTs)
	checkUnique(v.PenalisedTransfers)
	checkUnique(v.IsFTState)
	checkUnique(v.FTOverflow)
	checkUnique(v.FTCapped)

	assert.Equal(t, idx.NP*idx.NW, len(v.Squad))
	assert.Equal(t, idx.NP*idx.NW*BenchSlots, len(v.Bench))
	assert.Equal(t, idx.NW*len(FTStates), len(v.IsFTState))
	assert.Equal(t, prob.NumVars(), len(seen))
}

func TestBuild_RejectsInitialSquadWithQuotaViolation(t *testing.T) {
	players := makeBalancedSquadPlayers(1)
	squad := domain.SquadState{FreeTransfers: 1}
	// Picks 15 players starting at index 2 of the balanced layout: 2 GK, 8
	// DEF, 5 MID, 0 FWD -- violates the 2/5/5/3 quota on purpose.
	for i := 0; i < 15; i++ {
		squad.Players[i] = domain.OwnedPlayer{PlayerID: players[2+i].ID, PurchasePrice: 40, SellingPrice: 40}
	}
	cfg := config.Defaults()
	cfg.Horizon = 1

	_, err := Build(players, squad, cfg, []int{1})
	require.Error(t, err)
}

func TestBuild_AcceptsValidInitialSquad(t *testing.T) {
	players := makeBalancedSquadPlayers(1)
	squad := validInitialSquad(players)
	cfg := config.Defaults()
	cfg.Horizon = 1

	built, err := Build(players, squad, cfg, []int{1})
	require.NoError(t, err)
	assert.NotNil(t, built.Problem)
	assert.Greater(t, built.Problem.NumVars(), 0)
	assert.Greater(t, len(built.Problem.Constraints), 0)
}

// makeBalancedSquadPlayers returns enough players, spread across enough
// teams, to satisfy the 2 GK / 5 DEF / 5 MID / 3 FWD quota with room to
// spare for transfers: 4 GK, 8 DEF, 8 MID, 4 FWD, across 8 teams (<=3
// players per team), each projecting a flat 4.0 expected points in gw.
func makeBalancedSquadPlayers(gw int) []domain.Player {
	layout := []domain.Position{domain.GK, domain.GK, domain.GK, domain.GK}
	for i := 0; i < 8; i++ {
		layout = append(layout, domain.DEF)
	}
	for i := 0; i < 8; i++ {
		layout = append(layout, domain.MID)
	}
	for i := 0; i < 4; i++ {
		layout = append(layout, domain.FWD)
	}

	players := make([]domain.Player, len(layout))
	for i, pos := range layout {
		players[i] = domain.Player{
			ID:          i + 1,
			Position:    pos,
			TeamID:      (i % 8) + 1,
			PriceTenths: 50,
			Projections: map[int]domain.Projection{
				gw: {ExpectedPoints: 4.0, ExpectedMinutes: 90},
			},
		}
	}
	return players
}

// validInitialSquad picks a quota-respecting 15 from makeBalancedSquadPlayers'
// layout: 2 GK, 5 DEF, 5 MID, 3 FWD, each team appearing at most 3 times.
func validInitialSquad(players []domain.Player) domain.SquadState {
	var squad domain.SquadState
	squad.FreeTransfers = 1
	squad.BankTenths = 0

	byPos := map[domain.Position][]domain.Player{}
	for _, p := range players {
		byPos[p.Position] = append(byPos[p.Position], p)
	}
	quota := map[domain.Position]int{domain.GK: 2, domain.DEF: 5, domain.MID: 5, domain.FWD: 3}

	i := 0
	for pos, n := range quota {
		for k := 0; k < n; k++ {
			p := byPos[pos][k]
			squad.Players[i] = domain.OwnedPlayer{PlayerID: p.ID, PurchasePrice: p.PriceTenths, SellingPrice: p.PriceTenths}
			i++
		}
	}
	return squad
}
