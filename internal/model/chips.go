package model

import "github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"

// chipUsageCounts tallies how many times each chip has already been
// activated before the planning horizon began (§4.4's chip state machine:
// "already-used chips start in Used"). Since every chip is single-use per
// season except the free-hit-style "one per chip instance" design of
// modern FPL seasons, this is a simple count rather than a boolean, so
// chip_limits greater than one (a half-season reset, say) are honoured
// uniformly.
func chipUsageCounts(squad domain.SquadState) map[domain.Chip]int {
	counts := map[domain.Chip]int{}
	for _, uc := range squad.ChipsUsed {
		counts[uc.Chip]++
	}
	return counts
}
