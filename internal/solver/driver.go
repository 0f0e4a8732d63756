package solver

import (
	"context"
	"time"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/apperrors"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
)

// Status mirrors domain.SolverStatus; kept distinct so this package never
// imports internal/domain (the narrow-interface design note of §9: the
// solver knows vectors and statuses, nothing about squads or gameweeks).
type Status int

const (
	StatusOptimal Status = iota
	StatusTimeoutWithIncumbent
	StatusInfeasible
	StatusNoSolution
)

// SolveOptions configures one solve invocation (§4.5: "time limit,
// relative-gap tolerance, random seed, and verbosity").
type SolveOptions struct {
	TimeLimitSeconds int
	RelGap           float64
	Seed             int64
	Verbose          bool
}

// Result is the outcome handed back to internal/model's extractor.
type Result struct {
	Status         Status
	Primal         []float64
	ObjectiveValue float64
	OptimalityGap  float64
}

// Solver is the narrow "accept a model, return a primal vector and
// status" interface of §9's design note. branchAndBoundSolver is the only
// implementation today; a real external engine (HiGHS/CBC/Gurobi) could
// satisfy this interface without internal/model changing at all.
type Solver interface {
	Solve(ctx context.Context, p *Problem, opts SolveOptions) (Result, error)
}

// branchAndBoundSolver is the hand-rolled MILP engine: a Big-M simplex LP
// relaxation (simplex.go) wrapped in depth-first branch-and-bound
// (branchbound.go). No third-party MILP library exists anywhere in the
// reference corpus (see DESIGN.md); this mirrors the teacher's own
// pattern of hand-rolling numerical optimisation on gonum/mat rather than
// reaching for an external solver package.
type branchAndBoundSolver struct{}

// NewSolver returns the default in-process solver.
func NewSolver() Solver { return branchAndBoundSolver{} }

func (branchAndBoundSolver) Solve(ctx context.Context, p *Problem, opts SolveOptions) (Result, error) {
	log := logging.Root()
	if opts.TimeLimitSeconds <= 0 {
		opts.TimeLimitSeconds = 600
	}

	start := time.Now()
	bb := branchAndBound(ctx, p, opts)
	log.WithFields(map[string]interface{}{
		"vars":        len(p.Vars),
		"constraints": len(p.Constraints),
		"elapsed_ms":  time.Since(start).Milliseconds(),
		"status":      bb.status,
	}).Debug("solver: branch-and-bound finished")

	switch bb.status {
	case StatusInfeasible:
		return Result{Status: StatusInfeasible}, &apperrors.SolverError{
			Kind:   apperrors.SolverInfeasible,
			Reason: "no feasible solution",
		}
	case StatusNoSolution:
		return Result{Status: StatusNoSolution}, &apperrors.SolverError{
			Kind:   apperrors.SolverNoSolution,
			Reason: "time limit reached with no incumbent",
		}
	}

	rounded := roundBinaries(p, bb.x)
	gap := 0.0
	if bb.obj != 0 {
		gap = (bb.obj - bb.bestBound) / absf(bb.obj)
		if gap < 0 {
			gap = -gap
		}
	}

	return Result{
		Status:         bb.status,
		Primal:         rounded,
		ObjectiveValue: bb.obj,
		OptimalityGap:  gap,
	}, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
