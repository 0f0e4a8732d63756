package model

import (
	"fmt"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

// Variables holds the contiguous arrays of solver variable indices for
// every table declared in §4.4. Each slice is flat-indexed via Indexing's
// flat/flatSlot helpers; there is no map keyed on (player, gameweek) in
// the hot path.
type Variables struct {
	Squad        []int // NP*NW
	SquadFH      []int // NP*NW
	Lineup       []int // NP*NW
	Captain      []int // NP*NW
	ViceCaptain  []int // NP*NW
	TransferIn   []int // NP*NW
	TransferOut  []int // NP*NW
	UseTC        []int // NP*NW (per-player TC, coupled to captain below)
	Bench        []int // NP*NW*BenchSlots

	UseWC []int // NW
	UseBB []int // NW
	UseFH []int // NW

	ITB                []int // NW, continuous
	FTs                []int // NW, integer 0..5
	PenalisedTransfers []int // NW, integer >=0
	IsFTState          []int // NW*len(FTStates), binary indicator

	// FTOverflow[w] and FTCapped[w] select the active branch of the
	// piecewise FT-transition recurrence (§4.4/§9): FTOverflow=1 when this
	// week's transfers exceed fts[w] (fts[w+1] resets to 1), FTCapped=1
	// when the accumulation would exceed the 5-transfer ceiling (fts[w+1]
	// clips to 5). Exactly one of the two, or neither, holds each week.
	FTOverflow []int // NW-1
	FTCapped   []int // NW-1
}

// declareVariables adds every column from §4.4's "Variables" section to p
// and records its solver index in the returned Variables table.
func declareVariables(p *solver.Problem, idx *Indexing, maxTransfersPerWeek int) *Variables {
	np, nw := idx.NP, idx.NW
	nwMinus1 := nw - 1
	if nwMinus1 < 0 {
		nwMinus1 = 0
	}
	v := &Variables{
		Squad:              make([]int, np*nw),
		SquadFH:            make([]int, np*nw),
		Lineup:             make([]int, np*nw),
		Captain:            make([]int, np*nw),
		ViceCaptain:        make([]int, np*nw),
		TransferIn:         make([]int, np*nw),
		TransferOut:        make([]int, np*nw),
		UseTC:              make([]int, np*nw),
		Bench:              make([]int, np*nw*BenchSlots),
		UseWC:              make([]int, nw),
		UseBB:              make([]int, nw),
		UseFH:              make([]int, nw),
		ITB:                make([]int, nw),
		FTs:                make([]int, nw),
		PenalisedTransfers: make([]int, nw),
		IsFTState:          make([]int, nw*len(FTStates)),
		FTOverflow:         make([]int, nwMinus1),
		FTCapped:           make([]int, nwMinus1),
	}

	for pi, player := range idx.Players {
		for wi, gw := range idx.Gameweeks {
			f := idx.flat(pi, wi)
			v.Squad[f] = p.AddBinary(fmt.Sprintf("squad_%d_%d", player.ID, gw))
			v.SquadFH[f] = p.AddBinary(fmt.Sprintf("squad_fh_%d_%d", player.ID, gw))
			v.Lineup[f] = p.AddBinary(fmt.Sprintf("lineup_%d_%d", player.ID, gw))
			v.Captain[f] = p.AddBinary(fmt.Sprintf("captain_%d_%d", player.ID, gw))
			v.ViceCaptain[f] = p.AddBinary(fmt.Sprintf("vicecap_%d_%d", player.ID, gw))
			v.TransferIn[f] = p.AddBinary(fmt.Sprintf("transfer_in_%d_%d", player.ID, gw))
			v.TransferOut[f] = p.AddBinary(fmt.Sprintf("transfer_out_%d_%d", player.ID, gw))
			v.UseTC[f] = p.AddBinary(fmt.Sprintf("use_tc_%d_%d", player.ID, gw))

			for o := 0; o < BenchSlots; o++ {
				v.Bench[idx.flatSlot(pi, wi, o)] = p.AddBinary(fmt.Sprintf("bench_%d_%d_%d", player.ID, gw, o))
			}
		}
	}

	maxTransfers := float64(maxTransfersPerWeek)
	for wi, gw := range idx.Gameweeks {
		v.UseWC[wi] = p.AddBinary(fmt.Sprintf("use_wc_%d", gw))
		v.UseBB[wi] = p.AddBinary(fmt.Sprintf("use_bb_%d", gw))
		v.UseFH[wi] = p.AddBinary(fmt.Sprintf("use_fh_%d", gw))

		v.ITB[wi] = p.AddVar(fmt.Sprintf("itb_%d", gw), solver.Continuous, 0, 1e9)
		v.FTs[wi] = p.AddVar(fmt.Sprintf("fts_%d", gw), solver.Integer, 0, 5)
		v.PenalisedTransfers[wi] = p.AddVar(fmt.Sprintf("penalised_transfers_%d", gw), solver.Integer, 0, maxTransfers)

		for si, s := range FTStates {
			v.IsFTState[wi*len(FTStates)+si] = p.AddBinary(fmt.Sprintf("is_ft_state_%d_%d", gw, s))
		}
	}

	for wi := 0; wi < nwMinus1; wi++ {
		gw := idx.Gameweeks[wi]
		v.FTOverflow[wi] = p.AddBinary(fmt.Sprintf("ft_overflow_%d", gw))
		v.FTCapped[wi] = p.AddBinary(fmt.Sprintf("ft_capped_%d", gw))
	}

	return v
}

func (v *Variables) ftStateCol(idx *Indexing, wi, stateIdx int) int {
	return v.IsFTState[wi*len(FTStates)+stateIdx]
}
