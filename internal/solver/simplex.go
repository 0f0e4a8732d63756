package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// lpStatus mirrors the outcome of a single LP relaxation solve.
type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// lpResult is the outcome of relaxing a Problem's integer variables to
// continuous and solving the resulting LP with the simplex method.
type lpResult struct {
	status lpStatus
	x      []float64 // one entry per Problem variable, box bounds already applied
	obj    float64
}

const bigM = 1e7

// solveRelaxation solves the LP relaxation of p with variable bounds
// overridden by bounds (branch-and-bound tightens bounds per node without
// mutating the shared Problem). It converts every row to an equality via
// slack/surplus/artificial variables and runs a dense Big-M primal
// simplex on a gonum/mat tableau — the same "build a matrix, iterate"
// shape the teacher's portfolio optimizer uses for its QP solve, applied
// here to a simplex tableau instead of an L-BFGS descent.
func solveRelaxation(p *Problem, bounds []varBound) lpResult {
	n := len(p.Vars)

	// Shift every variable to start at 0: x = lower + x'. x' ranges over
	// [0, upper-lower]. Upper bounds become explicit <= rows.
	shifted := make([]float64, n)
	for j := range shifted {
		shifted[j] = bounds[j].lower
	}

	rows := make([]Constraint, 0, len(p.Constraints)+n)
	rows = append(rows, p.Constraints...)
	for j, b := range bounds {
		span := b.upper - b.lower
		if span < 0 {
			return lpResult{status: lpInfeasible}
		}
		rows = append(rows, Constraint{
			Coeffs: map[int]float64{j: 1},
			Sense:  LE,
			RHS:    span,
		})
	}

	m := len(rows)
	// Column layout: [original n] [slack/surplus per row] [artificial per
	// row that needs one].
	slackCol := make([]int, m)
	artCol := make([]int, m)
	col := n
	for i, r := range rows {
		switch r.Sense {
		case LE:
			slackCol[i] = col
			col++
			artCol[i] = -1
		case GE:
			slackCol[i] = col
			col++
			artCol[i] = col
			col++
		case EQ:
			slackCol[i] = -1
			artCol[i] = col
			col++
		}
	}
	total := col

	A := mat.NewDense(m, total, nil)
	b := make([]float64, m)
	for i, r := range rows {
		rhs := r.RHS
		for j, coeff := range r.Coeffs {
			rhs -= coeff * shifted[j]
			A.Set(i, j, coeff)
		}
		if rhs < 0 {
			rhs = -rhs
			for j := 0; j < n; j++ {
				A.Set(i, j, -A.At(i, j))
			}
			switch r.Sense {
			case LE:
				r.Sense = GE
			case GE:
				r.Sense = LE
			}
		}
		b[i] = rhs

		switch r.Sense {
		case LE:
			A.Set(i, slackCol[i], 1)
		case GE:
			A.Set(i, slackCol[i], -1)
			A.Set(i, artCol[i], 1)
		case EQ:
			A.Set(i, artCol[i], 1)
		}
	}

	c := make([]float64, total)
	sign := 1.0
	if p.Maximize {
		sign = -1.0
	}
	for j, coeff := range p.Objective {
		c[j] = sign * coeff
	}
	for i := range rows {
		if artCol[i] >= 0 {
			c[artCol[i]] = bigM
		}
	}

	basis := make([]int, m)
	for i := range rows {
		if artCol[i] >= 0 {
			basis[i] = artCol[i]
		} else {
			basis[i] = slackCol[i]
		}
	}

	x, obj, ok := runSimplex(A, b, c, basis, total)
	if !ok {
		return lpResult{status: lpUnbounded}
	}
	for i := range rows {
		if artCol[i] >= 0 && x[artCol[i]] > 1e-6 {
			return lpResult{status: lpInfeasible}
		}
	}

	full := make([]float64, n)
	for j := 0; j < n; j++ {
		full[j] = shifted[j] + x[j]
	}

	trueObj := 0.0
	for j, coeff := range p.Objective {
		trueObj += coeff * full[j]
	}

	_ = obj
	return lpResult{status: lpOptimal, x: full, obj: trueObj}
}

type varBound struct {
	lower, upper float64
}

// runSimplex performs primal simplex with Bland's anti-cycling rule on the
// dense tableau [A | b] with cost row c, starting from the given initial
// basis (assumed feasible: each basic column is an identity column).
// Returns the primal solution restricted to the first `width` columns.
func runSimplex(A *mat.Dense, b []float64, c []float64, basis []int, width int) ([]float64, float64, bool) {
	m, n := A.Dims()
	if m == 0 {
		x := make([]float64, width)
		return x, 0, true
	}

	tab := mat.NewDense(m, n, nil)
	tab.Copy(A)
	rhs := append([]float64(nil), b...)
	cost := append([]float64(nil), c...)

	// Reduced-cost row: cost - c_B^T * tableau, recomputed each iteration by
	// eliminating basic columns out of the cost row directly.
	reduced := append([]float64(nil), cost...)
	for i, bj := range basis {
		cb := cost[bj]
		if cb == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			reduced[j] -= cb * tab.At(i, j)
		}
	}

	const maxIter = 20000
	for iter := 0; iter < maxIter; iter++ {
		// Bland's rule: pick the lowest-indexed column with negative
		// reduced cost (minimisation), to guarantee termination.
		enter := -1
		for j := 0; j < n; j++ {
			if reduced[j] < -1e-9 {
				enter = j
				break
			}
		}
		if enter == -1 {
			break // optimal
		}

		leave := -1
		best := math.Inf(1)
		for i := 0; i < m; i++ {
			a := tab.At(i, enter)
			if a > 1e-9 {
				ratio := rhs[i] / a
				if ratio < best-1e-12 || (ratio < best+1e-12 && (leave == -1 || basis[i] < basis[leave])) {
					best = ratio
					leave = i
				}
			}
		}
		if leave == -1 {
			return nil, 0, false // unbounded
		}

		pivot := tab.At(leave, enter)
		for j := 0; j < n; j++ {
			tab.Set(leave, j, tab.At(leave, j)/pivot)
		}
		rhs[leave] /= pivot

		for i := 0; i < m; i++ {
			if i == leave {
				continue
			}
			factor := tab.At(i, enter)
			if factor == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				tab.Set(i, j, tab.At(i, j)-factor*tab.At(leave, j))
			}
			rhs[i] -= factor * rhs[leave]
		}

		factor := reduced[enter]
		for j := 0; j < n; j++ {
			reduced[j] -= factor * tab.At(leave, j)
		}

		basis[leave] = enter
	}

	x := make([]float64, width)
	for i, bj := range basis {
		if bj < width {
			x[bj] = rhs[i]
		}
	}

	obj := 0.0
	for j := 0; j < width; j++ {
		obj += c[j] * x[j]
	}
	return x, obj, true
}
