// Package sensitivity runs the Monte-Carlo simulation mode of §5 of
// spec.md: perturb every player's projected points independently, re-solve
// the full model for each draw on a bounded worker pool, and aggregate the
// results commutatively. It follows the shape of the teacher's
// shared/pkg/simulator.MonteCarloSimulator — a worker-bounded loop over
// independent draws feeding progress updates — but the unit of simulation
// here is a full re-solve of the squad-selection model rather than a
// lineup's points distribution.
package sensitivity

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/engine"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
)

// Options configures a sensitivity run.
type Options struct {
	// Draws is the number of independent perturbed re-solves to run.
	Draws int
	// StdDevFraction is the perturbation's standard deviation as a
	// fraction of each player/gameweek's projected points (e.g. 0.2 == a
	// normal draw with stddev 20% of the projection).
	StdDevFraction float64
	// Workers bounds the concurrent re-solves; <=0 defaults to 4.
	Workers int
	// Seed seeds the perturbation RNG; 0 uses an arbitrary but fixed seed
	// so a given (players, squad, cfg, Options) tuple is reproducible.
	Seed int64
	// ProgressFunc, if non-nil, is invoked after each draw completes (from
	// multiple goroutines) with the number of draws finished so far.
	ProgressFunc func(done, total int)
}

// DrawResult is one perturbed re-solve's outcome.
type DrawResult struct {
	RunID     string
	Objective float64
	Squad     map[int]bool // player ids in the drawn solution's gw0 squad
	Err       error
}

// Summary aggregates every completed draw: objective distribution and how
// often each player appeared in the drawn solution's squad ("core squad"
// frequency, per SPEC_FULL.md §C.1).
type Summary struct {
	Draws              int
	Failed             int
	MeanObjective      float64
	VarianceObjective  float64
	ObjectivePercentiles map[string]float64
	PlayerAppearanceRate map[int]float64
}

// Run executes Options.Draws perturbed re-solves concurrently on a bounded
// worker pool (golang.org/x/sync/errgroup, following the teacher's
// worker-loop shape in shared/pkg/simulator/monte_carlo.go) and returns the
// aggregated Summary. Individual draw failures (e.g. a perturbation that
// makes the model infeasible) are recorded, not fatal: Summary.Failed
// counts them and they are excluded from the objective statistics.
func Run(ctx context.Context, players []domain.Player, squad domain.SquadState, cfg config.Config, gameweeks []int, opts Options) (*Summary, error) {
	if opts.Draws <= 0 {
		return nil, fmt.Errorf("sensitivity: draws must be positive, got %d", opts.Draws)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}

	log := logging.WithConfig(cfg.Fingerprint())
	log.WithFields(map[string]interface{}{"draws": opts.Draws, "workers": workers}).Info("sensitivity: starting run")

	results := make([]DrawResult, opts.Draws)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < opts.Draws; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			perturbed := perturbProjections(players, opts.StdDevFraction, rng)

			sol, err := engine.Solve(gctx, perturbed, squad, cfg, gameweeks)
			if err != nil {
				results[i] = DrawResult{RunID: uuid.NewString(), Err: err}
				if opts.ProgressFunc != nil {
					opts.ProgressFunc(int(done.Add(1)), opts.Draws)
				}
				return nil // a single infeasible draw does not abort the batch
			}

			squadIDs := map[int]bool{}
			if len(sol.Plans) > 0 {
				for _, pick := range sol.Plans[0].Picks {
					if pick.PlayerID != 0 {
						squadIDs[pick.PlayerID] = true
					}
				}
			}
			results[i] = DrawResult{RunID: sol.RunID, Objective: sol.Score, Squad: squadIDs}

			if opts.ProgressFunc != nil {
				opts.ProgressFunc(int(done.Add(1)), opts.Draws)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(results), nil
}

// perturbProjections returns a copy of players with each gameweek's
// ExpectedPoints independently perturbed by a normal draw, clamped to
// non-negative (a player cannot score negative points).
func perturbProjections(players []domain.Player, stdDevFraction float64, rng *rand.Rand) []domain.Player {
	out := make([]domain.Player, len(players))
	for i, p := range players {
		np := p
		np.Projections = make(map[int]domain.Projection, len(p.Projections))
		for gw, proj := range p.Projections {
			stdDev := proj.ExpectedPoints * stdDevFraction
			drawn := proj.ExpectedPoints + rng.NormFloat64()*stdDev
			if drawn < 0 {
				drawn = 0
			}
			np.Projections[gw] = domain.Projection{
				ExpectedPoints:  drawn,
				ExpectedMinutes: proj.ExpectedMinutes,
			}
		}
		out[i] = np
	}
	return out
}

func summarize(results []DrawResult) *Summary {
	summary := &Summary{
		Draws:                len(results),
		ObjectivePercentiles: map[string]float64{},
		PlayerAppearanceRate: map[int]float64{},
	}

	var objectives []float64
	appearances := map[int]int{}
	succeeded := 0

	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		succeeded++
		objectives = append(objectives, r.Objective)
		for id := range r.Squad {
			appearances[id]++
		}
	}

	if succeeded == 0 {
		return summary
	}

	total := 0.0
	for _, o := range objectives {
		total += o
	}
	mean := total / float64(succeeded)
	summary.MeanObjective = mean

	variance := 0.0
	for _, o := range objectives {
		d := o - mean
		variance += d * d
	}
	summary.VarianceObjective = variance / float64(succeeded)

	sorted := append([]float64(nil), objectives...)
	sort.Float64s(sorted)
	for _, pct := range []float64{10, 25, 50, 75, 90} {
		idx := int(pct / 100.0 * float64(len(sorted)-1))
		summary.ObjectivePercentiles[fmt.Sprintf("p%d", int(pct))] = sorted[idx]
	}

	for id, count := range appearances {
		summary.PlayerAppearanceRate[id] = float64(count) / float64(succeeded)
	}

	return summary
}
