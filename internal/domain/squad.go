package domain

import "fmt"

// Chip is one of the four single-use FPL chips.
type Chip int

const (
	ChipNone Chip = iota
	ChipWildcard
	ChipFreeHit
	ChipBenchBoost
	ChipTripleCaptain
)

func (c Chip) String() string {
	switch c {
	case ChipWildcard:
		return "wildcard"
	case ChipFreeHit:
		return "free_hit"
	case ChipBenchBoost:
		return "bench_boost"
	case ChipTripleCaptain:
		return "triple_captain"
	default:
		return "none"
	}
}

// ParseChip accepts the canonical chip names Chip.String() produces.
func ParseChip(s string) (Chip, error) {
	switch s {
	case "wildcard":
		return ChipWildcard, nil
	case "free_hit":
		return ChipFreeHit, nil
	case "bench_boost":
		return ChipBenchBoost, nil
	case "triple_captain":
		return ChipTripleCaptain, nil
	case "none", "":
		return ChipNone, nil
	default:
		return ChipNone, fmt.Errorf("domain: unknown chip %q", s)
	}
}

// UsedChip records a chip already spent before the planning horizon began.
type UsedChip struct {
	Chip      Chip
	Gameweek  int
}

// OwnedPlayer is a player currently held in the manager's squad.
type OwnedPlayer struct {
	PlayerID       int
	PurchasePrice  int // tenths of a million
	SellingPrice   int // tenths of a million
}

// SellingPriceFor derives the selling price identity from §3 of spec.md:
// half of any accrued profit (floored), none of any loss.
func SellingPriceFor(purchasePrice, currentPrice int) int {
	if currentPrice > purchasePrice {
		return purchasePrice + (currentPrice-purchasePrice)/2
	}
	return currentPrice
}

// ChipAvailability tracks which of the four chips remain unused.
type ChipAvailability struct {
	Wildcard      bool
	FreeHit       bool
	BenchBoost    bool
	TripleCaptain bool
}

// SquadState is the initial condition the Model Builder evolves forward
// from: the 15 held players, banked money, free transfers, and chip state.
type SquadState struct {
	Players         [15]OwnedPlayer
	BankTenths      int
	FreeTransfers   int // 1..5
	ChipsAvailable  ChipAvailability
	ChipsUsed       []UsedChip
}

// PositionQuota is the fixed FPL squad composition: 2 GK, 5 DEF, 5 MID, 3 FWD.
var PositionQuota = map[Position]int{
	GK:  2,
	DEF: 5,
	MID: 5,
	FWD: 3,
}

// FormationBounds gives the (min, max) starters allowed per position in an
// 11-man lineup without Bench Boost.
var FormationBounds = map[Position][2]int{
	GK:  {1, 1},
	DEF: {3, 5},
	MID: {2, 5},
	FWD: {1, 3},
}

// Validate checks the structural invariants a SquadState must satisfy
// before the Model Builder can use it as an initial condition: position
// quota, team cap, and a non-negative bank.
func (s SquadState) Validate(playerByID map[int]Player) error {
	if s.BankTenths < 0 {
		return fmt.Errorf("domain: squad bank is negative: %d", s.BankTenths)
	}
	if s.FreeTransfers < 1 || s.FreeTransfers > 5 {
		return fmt.Errorf("domain: free transfers out of range [1,5]: %d", s.FreeTransfers)
	}

	byPosition := map[Position]int{}
	byTeam := map[int]int{}
	seen := map[int]bool{}
	for _, op := range s.Players {
		if seen[op.PlayerID] {
			return fmt.Errorf("domain: duplicate owned player id %d", op.PlayerID)
		}
		seen[op.PlayerID] = true

		p, ok := playerByID[op.PlayerID]
		if !ok {
			return fmt.Errorf("domain: owned player %d not found in player set", op.PlayerID)
		}
		byPosition[p.Position]++
		byTeam[p.TeamID]++
	}

	for pos, quota := range PositionQuota {
		if byPosition[pos] != quota {
			return fmt.Errorf("domain: squad position quota violated for %s: have %d, want %d", pos, byPosition[pos], quota)
		}
	}
	for team, count := range byTeam {
		if count > 3 {
			return fmt.Errorf("domain: squad team cap violated for team %d: have %d, max 3", team, count)
		}
	}
	return nil
}

// UsedChipSet returns the set of chips already spent, keyed by Chip.
func (s SquadState) UsedChipSet() map[Chip]bool {
	out := make(map[Chip]bool, len(s.ChipsUsed))
	for _, uc := range s.ChipsUsed {
		out[uc.Chip] = true
	}
	return out
}
