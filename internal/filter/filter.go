// Package filter implements the Pre-Solve Filter (§4.2): a deterministic,
// order-sensitive reduction of the player universe that keeps the MILP
// tractable while guaranteeing every owned or locked player survives. A
// kept player survives the minutes floor and the EV-per-price cutoff, but
// is dropped if it is also banned.
package filter

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
)

// Options carries the filter-relevant subset of Config (§4.2's inputs).
type Options struct {
	Owned            []int
	Locked           []int
	Keep             []int
	Banned           []int
	KeepTopEVPercent float64
	XMinLB           float64
	EVPerPriceCutoff float64
	Gameweeks        []int
}

// Result is the filtered player set plus the non-fatal diagnostics raised
// while applying banned overrides (§4.2 step 4: locked/owned silently win
// over banned, with a warning).
type Result struct {
	Players     []domain.Player
	Diagnostics []string
}

// Apply runs the four-step algorithm of §4.2, in order. The output is
// never smaller than |owned ∪ locked| (the filter-retention law of §8).
func Apply(players []domain.Player, opts Options) Result {
	log := logging.Root()

	ownedSet := toSet(opts.Owned)
	lockedSet := toSet(opts.Locked)
	keepSet := toSet(opts.Keep)
	bannedSet := toSet(opts.Banned)

	retained := map[int]bool{}
	for id := range ownedSet {
		retained[id] = true
	}
	for id := range lockedSet {
		retained[id] = true
	}
	for id := range keepSet {
		retained[id] = true
	}

	// Step 1b: top-N% by total expected points over the horizon.
	topN := topEVPercent(players, opts.KeepTopEVPercent, opts.Gameweeks)
	for id := range topN {
		retained[id] = true
	}

	// Step 2: drop anyone under the minutes floor, unless retained.
	survivors := make([]domain.Player, 0, len(players))
	for _, p := range players {
		if retained[p.ID] || p.TotalExpectedMinutes(opts.Gameweeks) >= opts.XMinLB {
			survivors = append(survivors, p)
		}
	}

	// Step 3: EV-per-price percentile cutoff among the non-retained
	// remainder.
	if opts.EVPerPriceCutoff > 0 {
		survivors = applyEVPerPriceCutoff(survivors, retained, opts.EVPerPriceCutoff, opts.Gameweeks)
	}

	// Step 4: banned overrides everything except locked/owned, which win
	// over banned with a diagnostic.
	var diagnostics []string
	final := make([]domain.Player, 0, len(survivors))
	for _, p := range survivors {
		if bannedSet[p.ID] {
			if lockedSet[p.ID] || ownedSet[p.ID] {
				msg := "player " + strconv.Itoa(p.ID) + " is both banned and locked/owned; ban ignored"
				diagnostics = append(diagnostics, msg)
				log.WithField("player_id", p.ID).Warn("filter: " + msg)
				final = append(final, p)
			}
			continue
		}
		final = append(final, p)
	}

	return Result{Players: final, Diagnostics: diagnostics}
}

func topEVPercent(players []domain.Player, percent float64, gameweeks []int) map[int]bool {
	out := map[int]bool{}
	if percent <= 0 || len(players) == 0 {
		return out
	}
	n := len(players) * int(percent) / 100
	if n == 0 && percent > 0 {
		n = 1
	}
	ranked := make([]domain.Player, len(players))
	copy(ranked, players)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].TotalExpectedPoints(gameweeks) > ranked[j].TotalExpectedPoints(gameweeks)
	})
	for i := 0; i < n && i < len(ranked); i++ {
		out[ranked[i].ID] = true
	}
	return out
}

// applyEVPerPriceCutoff computes total-xPts/price for the non-retained
// remainder, finds the value at the configured percentile via
// gonum/stat.Quantile, and drops anyone strictly below it.
func applyEVPerPriceCutoff(players []domain.Player, retained map[int]bool, percentile float64, gameweeks []int) []domain.Player {
	var ratios []float64
	for _, p := range players {
		if retained[p.ID] || p.PriceTenths == 0 {
			continue
		}
		ratios = append(ratios, p.TotalExpectedPoints(gameweeks)/float64(p.PriceTenths))
	}
	if len(ratios) == 0 {
		return players
	}
	sort.Float64s(ratios)
	cutoff := stat.Quantile(percentile/100.0, stat.Empirical, ratios, nil)

	out := make([]domain.Player, 0, len(players))
	for _, p := range players {
		if retained[p.ID] || p.PriceTenths == 0 {
			out = append(out, p)
			continue
		}
		ratio := p.TotalExpectedPoints(gameweeks) / float64(p.PriceTenths)
		if ratio >= cutoff {
			out = append(out, p)
		}
	}
	return out
}

func toSet(ids []int) map[int]bool {
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
