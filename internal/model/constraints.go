package model

import (
	"fmt"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

// bigM is the big-M used in the hits and FT-transition constraints. §9
// prefers a tight bound (15) over the fully general |P| where correctness
// allows; both families here only ever need to dominate a single week's
// transfer count, so 15 is safe (no FPL squad holds more than 15
// players to transfer out in one week).
const bigM = 15.0

// initialState is the subset of SquadState the constraint builder needs,
// pre-resolved against the filtered player set.
type initialState struct {
	squadFlag map[int]bool    // player id -> in initial squad
	buyPrice  map[int]int     // player id -> purchase/buy price (tenths)
	sellPrice map[int]int     // player id -> sell price if transferred out now (tenths)
	bank      int
	fts       int
}

func resolveInitialState(squad domain.SquadState) initialState {
	st := initialState{
		squadFlag: map[int]bool{},
		buyPrice:  map[int]int{},
		sellPrice: map[int]int{},
		bank:      squad.BankTenths,
		fts:       squad.FreeTransfers,
	}
	for _, op := range squad.Players {
		st.squadFlag[op.PlayerID] = true
		st.buyPrice[op.PlayerID] = op.PurchasePrice
		st.sellPrice[op.PlayerID] = op.SellingPrice
	}
	return st
}

func sellPriceFor(st initialState, p domain.Player) float64 {
	if st.squadFlag[p.ID] {
		return float64(st.sellPrice[p.ID])
	}
	return float64(p.PriceTenths)
}

func buyPriceFor(p domain.Player) float64 {
	return float64(p.PriceTenths)
}

// buildConstraints emits every family from §4.4's constraint table.
func buildConstraints(p *solver.Problem, idx *Indexing, v *Variables, st initialState, cfg config.Config, chipsUsedAlready map[domain.Chip]int) {
	addSquadSize(p, idx, v)
	addPositionQuota(p, idx, v)
	addTeamCap(p, idx, v)
	addLineupSize(p, idx, v)
	addFormationBounds(p, idx, v)
	addCaptainVC(p, idx, v)
	addBenchSlots(p, idx, v)
	addRoleDisjointness(p, idx, v)
	addTCOnCaptain(p, idx, v)
	addSingleChip(p, idx, v)
	addChipHorizonCaps(p, idx, v, cfg, chipsUsedAlready)
	addSquadEvolution(p, idx, v, st)
	addInOutExclusion(p, idx, v)
	addFreeHitFreezesTransfers(p, idx, v)
	addBudget(p, idx, v, st)
	addFHSquad(p, idx, v, st)
	addHits(p, idx, v)
	addFTTransitions(p, idx, v, st)
	addBannedLocked(p, idx, v, cfg)
	addNoTransferTail(p, idx, v, cfg)
	addBookedTransfers(p, idx, v, cfg)
	addHitLimits(p, idx, v, cfg)
}

func addSquadSize(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		coeffs := map[int]float64{}
		for pi := range idx.Players {
			coeffs[v.Squad[idx.flat(pi, wi)]] = 1
		}
		p.AddConstraint(fmt.Sprintf("squad_size_%d", gw), coeffs, solver.EQ, 15)
	}
}

func addPositionQuota(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		byPos := map[domain.Position]map[int]float64{}
		for pi, player := range idx.Players {
			m, ok := byPos[player.Position]
			if !ok {
				m = map[int]float64{}
				byPos[player.Position] = m
			}
			m[v.Squad[idx.flat(pi, wi)]] = 1
		}
		for pos, quota := range domain.PositionQuota {
			coeffs := byPos[pos]
			p.AddConstraint(fmt.Sprintf("pos_quota_%s_%d", pos, gw), coeffs, solver.EQ, float64(quota))
		}
	}
}

func addTeamCap(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		byTeam := map[int]map[int]float64{}
		byTeamFH := map[int]map[int]float64{}
		for pi, player := range idx.Players {
			m, ok := byTeam[player.TeamID]
			if !ok {
				m = map[int]float64{}
				byTeam[player.TeamID] = m
			}
			m[v.Squad[idx.flat(pi, wi)]] = 1

			mfh, ok := byTeamFH[player.TeamID]
			if !ok {
				mfh = map[int]float64{}
				byTeamFH[player.TeamID] = mfh
			}
			mfh[v.SquadFH[idx.flat(pi, wi)]] = 1
		}
		for team, coeffs := range byTeam {
			p.AddConstraint(fmt.Sprintf("team_cap_%d_%d", team, gw), coeffs, solver.LE, 3)
		}
		// FH team cap scaled by use_fh[w]: Σ squad_fh ≤ 3 + M·(1-use_fh[w])
		// so the cap only binds when Free Hit is actually active this week.
		for team, coeffs := range byTeamFH {
			scaled := map[int]float64{}
			for k, c := range coeffs {
				scaled[k] = c
			}
			scaled[v.UseFH[wi]] = bigM
			p.AddConstraint(fmt.Sprintf("team_cap_fh_%d_%d", team, gw), scaled, solver.LE, 3+bigM)
		}
	}
}

func addLineupSize(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		coeffs := map[int]float64{}
		for pi := range idx.Players {
			coeffs[v.Lineup[idx.flat(pi, wi)]] = 1
		}
		coeffs[v.UseBB[wi]] = -4
		p.AddConstraint(fmt.Sprintf("lineup_size_%d", gw), coeffs, solver.EQ, 11)
	}
}

func addFormationBounds(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		byPos := map[domain.Position]map[int]float64{}
		for pi, player := range idx.Players {
			m, ok := byPos[player.Position]
			if !ok {
				m = map[int]float64{}
				byPos[player.Position] = m
			}
			m[v.Lineup[idx.flat(pi, wi)]] = 1
		}
		for pos, bounds := range domain.FormationBounds {
			coeffs := byPos[pos]
			minPlay, maxPlay := float64(bounds[0]), float64(bounds[1])
			quota := float64(domain.PositionQuota[pos])

			p.AddConstraint(fmt.Sprintf("formation_min_%s_%d", pos, gw), coeffs, solver.GE, minPlay)

			upper := map[int]float64{}
			for k, c := range coeffs {
				upper[k] = c
			}
			upper[v.UseBB[wi]] = -(quota - maxPlay)
			p.AddConstraint(fmt.Sprintf("formation_max_%s_%d", pos, gw), upper, solver.LE, maxPlay)
		}
	}
}

func addCaptainVC(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		capCoeffs := map[int]float64{}
		vcCoeffs := map[int]float64{}
		for pi := range idx.Players {
			f := idx.flat(pi, wi)
			capCoeffs[v.Captain[f]] = 1
			vcCoeffs[v.ViceCaptain[f]] = 1
			p.AddConstraint(fmt.Sprintf("captain_in_lineup_%d_%d", idx.Players[pi].ID, gw),
				map[int]float64{v.Captain[f]: 1, v.Lineup[f]: -1}, solver.LE, 0)
			p.AddConstraint(fmt.Sprintf("vc_in_lineup_%d_%d", idx.Players[pi].ID, gw),
				map[int]float64{v.ViceCaptain[f]: 1, v.Lineup[f]: -1}, solver.LE, 0)
			p.AddConstraint(fmt.Sprintf("cap_vc_disjoint_%d_%d", idx.Players[pi].ID, gw),
				map[int]float64{v.Captain[f]: 1, v.ViceCaptain[f]: 1}, solver.LE, 1)
		}
		p.AddConstraint(fmt.Sprintf("exactly_one_captain_%d", gw), capCoeffs, solver.EQ, 1)
		p.AddConstraint(fmt.Sprintf("exactly_one_vc_%d", gw), vcCoeffs, solver.EQ, 1)
	}
}

func addBenchSlots(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		for o := 0; o < BenchSlots; o++ {
			coeffs := map[int]float64{}
			gkCoeffs := map[int]float64{}
			for pi, player := range idx.Players {
				col := v.Bench[idx.flatSlot(pi, wi, o)]
				coeffs[col] = 1
				if o == 0 && player.Position == domain.GK {
					gkCoeffs[col] = 1
				}
			}
			coeffs[v.UseBB[wi]] = 1
			p.AddConstraint(fmt.Sprintf("bench_slot_%d_%d", o, gw), coeffs, solver.EQ, 1)
			if o == 0 {
				gkCoeffs[v.UseBB[wi]] = 1
				p.AddConstraint(fmt.Sprintf("bench_slot0_gk_%d", gw), gkCoeffs, solver.EQ, 1)
			}
		}
	}
}

// addRoleDisjointness enforces §4.4's role source: in a regular week the
// lineup/bench must be drawn from squad[p,w]; in a Free Hit week they must
// be drawn from squad_fh[p,w] instead, never the frozen regular squad.
// Rather than linearising the use_fh[w]·squad_fh[p,w] product, this gates
// each candidate source with its own big-M-relaxed inequality directly on
// use_fh[w]: the regular-squad row binds when use_fh[w]=0 and relaxes to
// vacuous when use_fh[w]=1, and the FH-squad row does the reverse.
func addRoleDisjointness(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)

			regular := map[int]float64{v.Lineup[f]: 1, v.Squad[f]: -1, v.UseFH[wi]: -bigM}
			for o := 0; o < BenchSlots; o++ {
				regular[v.Bench[idx.flatSlot(pi, wi, o)]] = 1
			}
			p.AddConstraint(fmt.Sprintf("role_regular_%d_%d", player.ID, gw), regular, solver.LE, 0)

			fromFH := map[int]float64{v.Lineup[f]: 1, v.SquadFH[f]: -1, v.UseFH[wi]: bigM}
			for o := 0; o < BenchSlots; o++ {
				fromFH[v.Bench[idx.flatSlot(pi, wi, o)]] = 1
			}
			p.AddConstraint(fmt.Sprintf("role_fh_%d_%d", player.ID, gw), fromFH, solver.LE, bigM)
		}
	}
}

// addFHSquad declares the Free Hit alternate squad's own size, position
// quota, and budget rows (§4.4), each gated by use_fh[w] via a big-M
// relax so they bind only in a week Free Hit is actually played: a valid,
// budget-feasible 15 must exist under squad_fh whenever use_fh[w]=1.
func addFHSquad(p *solver.Problem, idx *Indexing, v *Variables, st initialState) {
	for wi, gw := range idx.Gameweeks {
		sizeCoeffs := map[int]float64{v.UseFH[wi]: bigM}
		for pi := range idx.Players {
			sizeCoeffs[v.SquadFH[idx.flat(pi, wi)]] = 1
		}
		p.AddConstraint(fmt.Sprintf("fh_squad_size_upper_%d", gw), sizeCoeffs, solver.LE, 15+bigM)
		sizeLower := map[int]float64{}
		for k, c := range sizeCoeffs {
			sizeLower[k] = c
		}
		sizeLower[v.UseFH[wi]] = -bigM
		p.AddConstraint(fmt.Sprintf("fh_squad_size_lower_%d", gw), sizeLower, solver.GE, 15-bigM)

		byPos := map[domain.Position]map[int]float64{}
		for pi, player := range idx.Players {
			m, ok := byPos[player.Position]
			if !ok {
				m = map[int]float64{}
				byPos[player.Position] = m
			}
			m[v.SquadFH[idx.flat(pi, wi)]] = 1
		}
		for pos, quota := range domain.PositionQuota {
			upper := map[int]float64{}
			for k, c := range byPos[pos] {
				upper[k] = c
			}
			upper[v.UseFH[wi]] = bigM
			p.AddConstraint(fmt.Sprintf("fh_pos_quota_upper_%s_%d", pos, gw), upper, solver.LE, float64(quota)+bigM)

			lower := map[int]float64{}
			for k, c := range byPos[pos] {
				lower[k] = c
			}
			lower[v.UseFH[wi]] = -bigM
			p.AddConstraint(fmt.Sprintf("fh_pos_quota_lower_%s_%d", pos, gw), lower, solver.GE, float64(quota)-bigM)
		}

		// Budget: the FH squad's cost must not exceed the bank entering the
		// week plus the frozen regular squad's sell-on value (the same
		// total a real free hit draws against), relaxed to vacuous when
		// use_fh[w]=0.
		budget := map[int]float64{v.UseFH[wi]: bigM}
		rhs := bigM
		if wi == 0 {
			rhs += float64(st.bank)
		} else {
			budget[v.ITB[wi-1]] = -1
		}
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			budget[v.SquadFH[f]] += buyPriceFor(player)
			budget[v.Squad[f]] += -sellPriceFor(st, player)
		}
		p.AddConstraint(fmt.Sprintf("fh_budget_%d", gw), budget, solver.LE, rhs)
	}
}

func addTCOnCaptain(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			p.AddConstraint(fmt.Sprintf("tc_on_captain_%d_%d", player.ID, gw),
				map[int]float64{v.UseTC[f]: 1, v.Captain[f]: -1}, solver.LE, 0)
		}
	}
}

func addSingleChip(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		coeffs := map[int]float64{
			v.UseWC[wi]: 1,
			v.UseFH[wi]: 1,
			v.UseBB[wi]: 1,
		}
		for pi := range idx.Players {
			coeffs[v.UseTC[idx.flat(pi, wi)]] = 1
		}
		p.AddConstraint(fmt.Sprintf("single_chip_%d", gw), coeffs, solver.LE, 1)
	}
}

func addChipHorizonCaps(p *solver.Problem, idx *Indexing, v *Variables, cfg config.Config, used map[domain.Chip]int) {
	capFor := func(limit, already int) float64 {
		remaining := limit - already
		if remaining < 0 {
			remaining = 0
		}
		return float64(remaining)
	}

	wcCoeffs := map[int]float64{}
	bbCoeffs := map[int]float64{}
	fhCoeffs := map[int]float64{}
	tcCoeffs := map[int]float64{}
	for wi := range idx.Gameweeks {
		wcCoeffs[v.UseWC[wi]] = 1
		bbCoeffs[v.UseBB[wi]] = 1
		fhCoeffs[v.UseFH[wi]] = 1
		for pi := range idx.Players {
			tcCoeffs[v.UseTC[idx.flat(pi, wi)]] = 1
		}
	}
	p.AddConstraint("chip_cap_wc", wcCoeffs, solver.LE, capFor(cfg.ChipLimits.Wildcard, used[domain.ChipWildcard]))
	p.AddConstraint("chip_cap_bb", bbCoeffs, solver.LE, capFor(cfg.ChipLimits.BenchBoost, used[domain.ChipBenchBoost]))
	p.AddConstraint("chip_cap_fh", fhCoeffs, solver.LE, capFor(cfg.ChipLimits.FreeHit, used[domain.ChipFreeHit]))
	p.AddConstraint("chip_cap_tc", tcCoeffs, solver.LE, capFor(cfg.ChipLimits.TripleCaptain, used[domain.ChipTripleCaptain]))

	forceChip := func(gws []int, colFor func(wi int) int, name string) {
		for _, gw := range gws {
			wi, ok := idx.GameweekIndex[gw]
			if !ok {
				continue
			}
			p.AddConstraint(fmt.Sprintf("%s_forced_%d", name, gw), map[int]float64{colFor(wi): 1}, solver.EQ, 1)
		}
	}
	forceChip(cfg.UseWC, func(wi int) int { return v.UseWC[wi] }, "wc")
	forceChip(cfg.UseBB, func(wi int) int { return v.UseBB[wi] }, "bb")
	forceChip(cfg.UseFH, func(wi int) int { return v.UseFH[wi] }, "fh")
	for _, gw := range cfg.UseTC {
		wi, ok := idx.GameweekIndex[gw]
		if !ok {
			continue
		}
		coeffs := map[int]float64{}
		for pi := range idx.Players {
			coeffs[v.UseTC[idx.flat(pi, wi)]] = 1
		}
		p.AddConstraint(fmt.Sprintf("tc_forced_%d", gw), coeffs, solver.EQ, 1)
	}
}

func addSquadEvolution(p *solver.Problem, idx *Indexing, v *Variables, st initialState) {
	for pi, player := range idx.Players {
		prevFixed := 0.0
		if st.squadFlag[player.ID] {
			prevFixed = 1
		}
		for wi, gw := range idx.Gameweeks {
			f := idx.flat(pi, wi)
			if wi == 0 {
				p.AddConstraint(fmt.Sprintf("squad_evo_%d_%d", player.ID, gw),
					map[int]float64{v.Squad[f]: 1, v.TransferIn[f]: -1, v.TransferOut[f]: 1},
					solver.EQ, prevFixed)
				continue
			}
			prevF := idx.flat(pi, wi-1)
			p.AddConstraint(fmt.Sprintf("squad_evo_%d_%d", player.ID, gw),
				map[int]float64{v.Squad[f]: 1, v.Squad[prevF]: -1, v.TransferIn[f]: -1, v.TransferOut[f]: 1},
				solver.EQ, 0)
		}
	}
}

func addInOutExclusion(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			p.AddConstraint(fmt.Sprintf("in_out_excl_%d_%d", player.ID, gw),
				map[int]float64{v.TransferIn[f]: 1, v.TransferOut[f]: 1}, solver.LE, 1)
		}
	}
}

func addFreeHitFreezesTransfers(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			p.AddConstraint(fmt.Sprintf("fh_freeze_in_%d_%d", player.ID, gw),
				map[int]float64{v.TransferIn[f]: 1, v.UseFH[wi]: 1}, solver.LE, 1)
			p.AddConstraint(fmt.Sprintf("fh_freeze_out_%d_%d", player.ID, gw),
				map[int]float64{v.TransferOut[f]: 1, v.UseFH[wi]: 1}, solver.LE, 1)
		}
	}
}

func addBudget(p *solver.Problem, idx *Indexing, v *Variables, st initialState) {
	for wi, gw := range idx.Gameweeks {
		coeffs := map[int]float64{v.ITB[wi]: 1}
		rhs := 0.0
		if wi == 0 {
			rhs = float64(st.bank)
		} else {
			coeffs[v.ITB[wi-1]] = -1
		}
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			coeffs[v.TransferOut[f]] += -sellPriceFor(st, player)
			coeffs[v.TransferIn[f]] += buyPriceFor(player)
		}
		p.AddConstraint(fmt.Sprintf("budget_%d", gw), coeffs, solver.EQ, rhs)
	}
}

func addHits(p *solver.Problem, idx *Indexing, v *Variables) {
	for wi, gw := range idx.Gameweeks {
		coeffs := map[int]float64{v.PenalisedTransfers[wi]: 1, v.FTs[wi]: 1, v.UseWC[wi]: bigM}
		for pi := range idx.Players {
			coeffs[v.TransferOut[idx.flat(pi, wi)]] -= 1
		}
		p.AddConstraint(fmt.Sprintf("hits_%d", gw), coeffs, solver.GE, 0)
	}
}

// addFTTransitions encodes the piecewise FT-state recurrence of §4.4 via
// the indicator scheme of §9: Σ_s is_ft_state[w,s] = 1, fts[w] = Σ_s
// s·is_ft_state[w,s], and the transition to fts[w+1] is linearised against
// the chosen state with big-M per branch.
func addFTTransitions(p *solver.Problem, idx *Indexing, v *Variables, st initialState) {
	for wi, gw := range idx.Gameweeks {
		stateCoeffs := map[int]float64{}
		ftsCoeffs := map[int]float64{v.FTs[wi]: 1}
		for si, s := range FTStates {
			col := v.ftStateCol(idx, wi, si)
			stateCoeffs[col] = 1
			ftsCoeffs[col] = -float64(s)
		}
		p.AddConstraint(fmt.Sprintf("ft_state_choice_%d", gw), stateCoeffs, solver.EQ, 1)
		p.AddConstraint(fmt.Sprintf("ft_state_value_%d", gw), ftsCoeffs, solver.EQ, 0)
	}

	// fts[w0] is fixed by the reconstructed initial free-transfer count.
	if idx.NW > 0 {
		p.AddConstraint("fts_initial", map[int]float64{v.FTs[0]: 1}, solver.EQ, float64(st.fts))
	}

	// ftBigM dominates the full range of fts[w]-n_transfers (fts∈[0,5],
	// n_transfers∈[0,15]), wider than the package bigM used for
	// single-sided per-row gates elsewhere in this file.
	const ftBigM = 20.0

	for wi := 0; wi < idx.NW-1; wi++ {
		gw := idx.Gameweeks[wi]
		nTransfersCoeffs := map[int]float64{}
		for pi := range idx.Players {
			nTransfersCoeffs[v.TransferOut[idx.flat(pi, wi)]] = 1
		}
		overflow := v.FTOverflow[wi]
		capped := v.FTCapped[wi]

		// Carry: if WC or FH played at w, fts[w+1] = fts[w]. The chip
		// coefficients relax the row to vacuous when neither chip is
		// played (bigM dominates fts' own range) and bind it to equality
		// when either is (§4.4's single-chip row rules out both at once).
		carryUpper := map[int]float64{v.FTs[wi+1]: 1, v.FTs[wi]: -1, v.UseWC[wi]: bigM, v.UseFH[wi]: bigM}
		p.AddConstraint(fmt.Sprintf("ft_carry_upper_%d", gw), carryUpper, solver.LE, bigM)
		carryLower := map[int]float64{v.FTs[wi+1]: -1, v.FTs[wi]: 1, v.UseWC[wi]: bigM, v.UseFH[wi]: bigM}
		p.AddConstraint(fmt.Sprintf("ft_carry_lower_%d", gw), carryLower, solver.LE, bigM)

		// Indicator: overflow[w] = 1 iff n_transfers[w] > fts[w] (raw =
		// fts[w]-n_transfers[w]+1 <= 0). Both bounds use the same
		// expression X = fts[w] - n_transfers[w] + ftBigM·overflow, pinned
		// to [0, ftBigM-1] -- tight exactly at the integer overflow
		// boundary, since fts and n_transfers are both integral.
		overflowDef := map[int]float64{v.FTs[wi]: 1, overflow: ftBigM}
		for col, c := range nTransfersCoeffs {
			overflowDef[col] -= c
		}
		overflowGE := map[int]float64{}
		for k, c := range overflowDef {
			overflowGE[k] = c
		}
		p.AddConstraint(fmt.Sprintf("ft_overflow_ge_%d", gw), overflowGE, solver.GE, 0)
		overflowLE := map[int]float64{}
		for k, c := range overflowDef {
			overflowLE[k] = c
		}
		p.AddConstraint(fmt.Sprintf("ft_overflow_le_%d", gw), overflowLE, solver.LE, ftBigM-1)

		// Indicator: capped[w] = 1 iff the uncapped accumulation would
		// exceed 5 (raw = fts[w]-n_transfers[w]+1 >= 6); only reachable
		// when fts[w]=5 and n_transfers[w]=0. Same pinning technique,
		// mirrored around the 5/6 boundary.
		cappedDef := map[int]float64{v.FTs[wi]: 1, capped: -ftBigM}
		for col, c := range nTransfersCoeffs {
			cappedDef[col] -= c
		}
		cappedLE := map[int]float64{}
		for k, c := range cappedDef {
			cappedLE[k] = c
		}
		p.AddConstraint(fmt.Sprintf("ft_capped_le_%d", gw), cappedLE, solver.LE, 4)
		cappedGE := map[int]float64{}
		for k, c := range cappedDef {
			cappedGE[k] = c
		}
		p.AddConstraint(fmt.Sprintf("ft_capped_ge_%d", gw), cappedGE, solver.GE, 5-ftBigM)

		// Branch selection for fts[w+1], gated by whichever of overflow/
		// capped/neither is active this week -- relaxed (vacuous) on the
		// two branches not selected, tight (equality) on the selected one.
		// Every branch row is also relaxed by use_wc[w]+use_fh[w], so in a
		// carried week (WC/FH) only the carry rows above pin fts[w+1].
		resetUpper := map[int]float64{v.FTs[wi+1]: 1, overflow: bigM, v.UseWC[wi]: -bigM, v.UseFH[wi]: -bigM}
		p.AddConstraint(fmt.Sprintf("ft_reset_upper_%d", gw), resetUpper, solver.LE, 1+bigM)
		resetLower := map[int]float64{v.FTs[wi+1]: -1, overflow: bigM, v.UseWC[wi]: -bigM, v.UseFH[wi]: -bigM}
		p.AddConstraint(fmt.Sprintf("ft_reset_lower_%d", gw), resetLower, solver.LE, bigM-1)

		capUpper := map[int]float64{v.FTs[wi+1]: 1, capped: bigM, v.UseWC[wi]: -bigM, v.UseFH[wi]: -bigM}
		p.AddConstraint(fmt.Sprintf("ft_cap_upper_%d", gw), capUpper, solver.LE, 5+bigM)
		capLower := map[int]float64{v.FTs[wi+1]: -1, capped: bigM, v.UseWC[wi]: -bigM, v.UseFH[wi]: -bigM}
		p.AddConstraint(fmt.Sprintf("ft_cap_lower_%d", gw), capLower, solver.LE, bigM-5)

		normalUpper := map[int]float64{v.FTs[wi+1]: 1, v.FTs[wi]: -1, overflow: -bigM, capped: -bigM, v.UseWC[wi]: -bigM, v.UseFH[wi]: -bigM}
		for col, c := range nTransfersCoeffs {
			normalUpper[col] += c
		}
		p.AddConstraint(fmt.Sprintf("ft_normal_upper_%d", gw), normalUpper, solver.LE, 1)
		normalLower := map[int]float64{v.FTs[wi+1]: -1, v.FTs[wi]: 1, overflow: -bigM, capped: -bigM, v.UseWC[wi]: -bigM, v.UseFH[wi]: -bigM}
		for col, c := range nTransfersCoeffs {
			normalLower[col] -= c
		}
		p.AddConstraint(fmt.Sprintf("ft_normal_lower_%d", gw), normalLower, solver.LE, -1)
	}
}

func addBannedLocked(p *solver.Problem, idx *Indexing, v *Variables, cfg config.Config) {
	banned := toSet(cfg.Banned)
	locked := toSet(cfg.Locked)
	for wi, gw := range idx.Gameweeks {
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			if banned[player.ID] {
				p.AddConstraint(fmt.Sprintf("banned_%d_%d", player.ID, gw), map[int]float64{v.Squad[f]: 1}, solver.EQ, 0)
			}
			if locked[player.ID] {
				p.AddConstraint(fmt.Sprintf("locked_%d_%d", player.ID, gw), map[int]float64{v.Squad[f]: 1}, solver.EQ, 1)
			}
		}
	}
}

func addNoTransferTail(p *solver.Problem, idx *Indexing, v *Variables, cfg config.Config) {
	if cfg.NoTransferLastGWs <= 0 {
		return
	}
	start := idx.NW - cfg.NoTransferLastGWs
	if start < 0 {
		start = 0
	}
	for wi := start; wi < idx.NW; wi++ {
		gw := idx.Gameweeks[wi]
		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			p.AddConstraint(fmt.Sprintf("no_transfer_in_%d_%d", player.ID, gw), map[int]float64{v.TransferIn[f]: 1}, solver.EQ, 0)
			p.AddConstraint(fmt.Sprintf("no_transfer_out_%d_%d", player.ID, gw), map[int]float64{v.TransferOut[f]: 1}, solver.EQ, 0)
		}
	}
}

func addBookedTransfers(p *solver.Problem, idx *Indexing, v *Variables, cfg config.Config) {
	for _, bt := range cfg.BookedTransfers {
		wi, ok := idx.GameweekIndex[bt.Gameweek]
		if !ok {
			continue
		}
		pi, ok := idx.PlayerIndex[bt.PlayerID]
		if !ok {
			continue
		}
		f := idx.flat(pi, wi)
		switch bt.Direction {
		case "in":
			p.AddConstraint(fmt.Sprintf("booked_in_%d_%d", bt.PlayerID, bt.Gameweek), map[int]float64{v.TransferIn[f]: 1}, solver.EQ, 1)
		case "out":
			p.AddConstraint(fmt.Sprintf("booked_out_%d_%d", bt.PlayerID, bt.Gameweek), map[int]float64{v.TransferOut[f]: 1}, solver.EQ, 1)
		}
	}
}

func addHitLimits(p *solver.Problem, idx *Indexing, v *Variables, cfg config.Config) {
	if cfg.HitLimit > 0 {
		coeffs := map[int]float64{}
		for wi := range idx.Gameweeks {
			coeffs[v.PenalisedTransfers[wi]] = 1
		}
		p.AddConstraint("hit_limit_total", coeffs, solver.LE, float64(cfg.HitLimit))
	}
	if cfg.WeeklyHitLimit > 0 {
		for wi, gw := range idx.Gameweeks {
			p.AddConstraint(fmt.Sprintf("hit_limit_week_%d", gw),
				map[int]float64{v.PenalisedTransfers[wi]: 1}, solver.LE, float64(cfg.WeeklyHitLimit))
		}
	}
}

func toSet(ids []int) map[int]bool {
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
