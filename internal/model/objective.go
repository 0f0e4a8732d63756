package model

import (
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/solver"
)

// buildObjective composes the decay-weighted, per-gameweek objective of
// §4.4: gw_xp (lineup + captain + weighted vice + TC + weighted bench),
// gw_value (gw_xp net of hits, plus the FT-value delta and ITB valuation),
// summed with decay_base^(w-w0) weighting.
func buildObjective(p *solver.Problem, idx *Indexing, v *Variables, cfg config.Config) {
	for wi, gw := range idx.Gameweeks {
		decay := decayWeight(cfg.DecayBase, wi)

		for pi, player := range idx.Players {
			f := idx.flat(pi, wi)
			xp := player.ProjectionFor(gw).ExpectedPoints

			p.AddToObjective(v.Lineup[f], xp*decay)
			p.AddToObjective(v.Captain[f], xp*decay)
			p.AddToObjective(v.ViceCaptain[f], xp*cfg.VCapWeight*decay)
			p.AddToObjective(v.UseTC[f], xp*decay)

			for o := 0; o < BenchSlots; o++ {
				w := cfg.BenchWeights[o]
				p.AddToObjective(v.Bench[idx.flatSlot(pi, wi, o)], xp*w*decay)
			}
		}

		p.AddToObjective(v.PenalisedTransfers[wi], -cfg.HitCost*decay)
		p.AddToObjective(v.ITB[wi], cfg.ITBValue*decay)

		// ft_value(fts[w]) - ft_value(fts[w-1]), materialised through the
		// is_ft_state indicators declared in declareVariables and tied to
		// fts[w] in addFTTransitions.
		for si, s := range FTStates {
			fv := cfg.FTValueList[s]
			if fv == 0 {
				continue
			}
			p.AddToObjective(v.ftStateCol(idx, wi, si), fv*decay)
		}
		if wi > 0 {
			for si, s := range FTStates {
				fv := cfg.FTValueList[s]
				if fv == 0 {
					continue
				}
				p.AddToObjective(v.ftStateCol(idx, wi-1, si), -fv*decay)
			}
		}
	}
}

func decayWeight(base float64, wi int) float64 {
	if base <= 0 {
		base = 1
	}
	result := 1.0
	for i := 0; i < wi; i++ {
		result *= base
	}
	return result
}
