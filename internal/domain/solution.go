package domain

// PlayerPick is one of the 15 squad members in a gameweek plan, tagged with
// the role flags the extractor derived from the primal solution vector.
type PlayerPick struct {
	PlayerID     int
	Position     Position
	InLineup     bool
	BenchSlot    int  // 0-3 when on the bench, -1 otherwise; slot 0 is always a GK
	IsCaptain    bool
	IsViceCaptain bool
	Multiplier   int // 0, 1, 2, or 3
	TransferIn   bool
	TransferOut  bool
}

// GameweekPlan is the fully materialised decision for a single gameweek:
// the 15 picks, any chip played, transfer/hit accounting, and the bank.
type GameweekPlan struct {
	Gameweek      int
	Picks         [15]PlayerPick
	ChipUsed      Chip
	FreeTransfers int
	TransfersMade int
	Hits          int
	BankTenths    int
	ITBValue      float64
	ExpectedPoints float64

	// FreeHitSquad, when non-empty, is the squad the Free Hit lineup/bench
	// was drawn from. Left nil on gameweeks without Free Hit. See the
	// Free-Hit-display open question in SPEC_FULL.md: the core keeps both
	// representations available rather than picking one.
	FreeHitSquad []int
}

// Captain returns the captain's player id, or 0 if none is set (which
// should never happen for a feasible solution).
func (g GameweekPlan) Captain() int {
	for _, p := range g.Picks {
		if p.IsCaptain {
			return p.PlayerID
		}
	}
	return 0
}

// ViceCaptain returns the vice-captain's player id, or 0 if none is set.
func (g GameweekPlan) ViceCaptain() int {
	for _, p := range g.Picks {
		if p.IsViceCaptain {
			return p.PlayerID
		}
	}
	return 0
}

// Lineup returns the starting 11 (or 15 under Bench Boost).
func (g GameweekPlan) Lineup() []PlayerPick {
	out := make([]PlayerPick, 0, 15)
	for _, p := range g.Picks {
		if p.InLineup {
			out = append(out, p)
		}
	}
	return out
}

// Bench returns the bench picks ordered by slot (0 is always a GK).
func (g GameweekPlan) Bench() []PlayerPick {
	out := make([]PlayerPick, 0, 4)
	for _, p := range g.Picks {
		if !p.InLineup && p.BenchSlot >= 0 {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].BenchSlot < out[j-1].BenchSlot; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SolverStatus reports how a Solve call terminated.
type SolverStatus int

const (
	StatusOptimal SolverStatus = iota
	StatusTimeoutWithIncumbent
	StatusInfeasible
	StatusNoSolution
)

func (s SolverStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusTimeoutWithIncumbent:
		return "timeout_with_incumbent"
	case StatusInfeasible:
		return "infeasible"
	case StatusNoSolution:
		return "no_solution"
	default:
		return "unknown"
	}
}

// Solution is the top-level result the core produces: one plan per
// gameweek in the horizon, a score, solver status, and the fingerprint of
// the configuration that produced it (so callers can tell two Solutions
// apart without re-serialising the Config).
type Solution struct {
	RunID              string
	Score              float64
	ConfigFingerprint  string
	Plans              []GameweekPlan
	Status             SolverStatus
	OptimalityGapAchieved float64
}

// FirstGameweekTransferIns returns the set of player ids transferred in
// during the first planned gameweek — used by the iteration-cut loop in
// internal/engine to forbid repeating the same first move.
func (s Solution) FirstGameweekTransferIns() map[int]bool {
	out := map[int]bool{}
	if len(s.Plans) == 0 {
		return out
	}
	for _, p := range s.Plans[0].Picks {
		if p.TransferIn {
			out[p.PlayerID] = true
		}
	}
	return out
}
