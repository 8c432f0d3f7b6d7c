// SPDX-License-Identifier: MIT

// Package lp: problem/solution types, the Solver contract, and the
// package sentinel error set. All algorithms return these sentinels and
// tests match them via errors.Is.

package lp

import (
	"errors"
	"math"
)

// Sentinel errors for LP construction and solving.
var (
	// ErrDimensionMismatch indicates inconsistent lengths between the
	// objective, rows, relations, RHS or bounds of a Problem.
	ErrDimensionMismatch = errors.New("lp: dimension mismatch")

	// ErrBadBounds indicates a variable with Lower > Upper, or a NaN bound.
	ErrBadBounds = errors.New("lp: invalid variable bounds")

	// ErrInfeasible indicates the solver proved no feasible point exists.
	ErrInfeasible = errors.New("lp: problem is infeasible")

	// ErrUnbounded indicates the objective can be improved without limit.
	ErrUnbounded = errors.New("lp: problem is unbounded")

	// ErrIterationLimit indicates the simplex pivot budget was exhausted
	// before reaching optimality (numerical degeneracy safeguard).
	ErrIterationLimit = errors.New("lp: simplex iteration limit exceeded")
)

// Sense selects the optimization direction of a Problem.
type Sense int

const (
	// Minimize seeks the smallest objective value.
	Minimize Sense = 1

	// Maximize seeks the largest objective value.
	Maximize Sense = -1
)

// Relation is the comparison of a constraint row against its RHS.
type Relation int8

const (
	// LE: a·x ≤ b.
	LE Relation = iota

	// GE: a·x ≥ b.
	GE

	// EQ: a·x = b.
	EQ
)

// Status reports the outcome of a solve.
type Status int8

const (
	// Optimal: an optimal basic feasible solution was found.
	Optimal Status = iota

	// Infeasible: the constraint set admits no point.
	Infeasible

	// Unbounded: the objective is unbounded in the optimization direction.
	Unbounded
)

// String returns the conventional name of the status.
func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	default:
		return "Unknown"
	}
}

// NoBound is the sentinel for an absent variable bound. Use +NoBound for
// "no upper bound" and -NoBound for "no lower bound"; never a finite big-M.
var NoBound = math.Inf(1)

// Problem is a dense linear program:
//
//	optimize  Sense · (Objective · x)
//	s.t.      Rows[i] · x  Rel[i]  RHS[i]   for every row i
//	          Lower[j] ≤ x[j] ≤ Upper[j]    for every column j
//
// All slices must agree in length: len(Rows[i]) == len(Objective) ==
// len(Lower) == len(Upper), len(Rows) == len(Rel) == len(RHS).
type Problem struct {
	Sense     Sense
	Objective []float64
	Rows      [][]float64
	Rel       []Relation
	RHS       []float64
	Lower     []float64
	Upper     []float64
}

// NumCols returns the number of variables.
func (p *Problem) NumCols() int { return len(p.Objective) }

// NumRows returns the number of constraint rows.
func (p *Problem) NumRows() int { return len(p.Rows) }

// Validate checks structural consistency of the problem. It returns
// ErrDimensionMismatch or ErrBadBounds; a nil return means the problem is
// well-formed (not that it is feasible).
func (p *Problem) Validate() error {
	n := p.NumCols()
	if len(p.Lower) != n || len(p.Upper) != n {
		return ErrDimensionMismatch
	}
	if len(p.Rel) != len(p.Rows) || len(p.RHS) != len(p.Rows) {
		return ErrDimensionMismatch
	}
	for _, row := range p.Rows {
		if len(row) != n {
			return ErrDimensionMismatch
		}
	}
	for j := 0; j < n; j++ {
		lo, hi := p.Lower[j], p.Upper[j]
		if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
			return ErrBadBounds
		}
	}

	return nil
}

// Solution carries the result of one LP solve.
// The field shape mirrors what external solver bindings report: primal
// column values, one dual per row, and the objective at the solution.
type Solution struct {
	// Status is the solver-reported outcome.
	Status Status

	// Primal holds the value of every variable (column).
	Primal []float64

	// Dual holds one multiplier per constraint row:
	// Dual[i] = ∂Objective/∂RHS[i] at the optimum.
	Dual []float64

	// Objective is the objective function value at the solution
	// (in the problem's own sense, not an internally negated one).
	Objective float64
}

// IsOptimal reports whether the solve produced an optimal solution.
func (s *Solution) IsOptimal() bool { return s.Status == Optimal }

// Solver is the black-box LP adapter: given a well-formed Problem it
// returns a Solution, or an error wrapping ErrInfeasible/ErrUnbounded
// when the model admits no optimum. Implementations must be safe for
// concurrent use by independent goroutines.
type Solver interface {
	Solve(p *Problem) (*Solution, error)
}
