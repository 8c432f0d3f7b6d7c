// SPDX-License-Identifier: MIT

package lp

import (
	"fmt"
	"math"
)

// Simplex — bounded-variable two-phase tableau simplex.
//
// Algorithm Outline:
//  1. Normalize the problem to internal minimization over non-negative
//     columns:
//     - Maximize is solved as min(-c)·x, with objective and duals
//     restored on the way out.
//     - A column with finite lower bound l is shifted: x = l + s, s ≥ 0.
//     - A column bounded only above is mirrored: x = u - s, s ≥ 0.
//     - A free column is split: x = s⁺ - s⁻.
//     - A column with finite range [l,u] gets an explicit row s ≤ u-l.
//  2. Canonicalize every row to RHS ≥ 0 (negating the row and flipping
//     its relation where needed), then append one slack column per ≤
//     row, one surplus per ≥ row, and one artificial per ≥/= row.
//  3. Phase 1 minimizes the sum of artificials from the all-slack/
//     artificial basis; a positive phase-1 optimum proves infeasibility.
//  4. Phase 2 minimizes the true objective with artificial columns
//     barred from entering; an entering column with no positive pivot
//     entry proves unboundedness.
//  5. Bland's rule (lowest eligible index, lowest basic index on ratio
//     ties) is used throughout, so cycling cannot occur; a pivot budget
//     guards against numerical stalling (ErrIterationLimit).
//
// Dual recovery: in the final tableau the reduced cost of row i's
// initial identity column (its slack, or its artificial for ≥/= rows)
// equals -y_i, the multiplier of the canonicalized row. Sign flips from
// canonicalization and sense normalization are undone so that
// Solution.Dual[i] = ∂Objective/∂RHS[i] in the caller's own sense.
//
// Complexity: exponential worst case like any simplex; in practice a
// small polynomial number of pivots for the stage LPs this module builds.
type Simplex struct {
	// Eps is the numeric tolerance for pivoting and feasibility checks.
	Eps float64

	// MaxPivots caps the total pivot count per phase; 0 means automatic
	// (scaled with problem size).
	MaxPivots int
}

// NewSimplex returns a Simplex with the default tolerance (1e-9).
func NewSimplex() *Simplex { return &Simplex{Eps: defaultEps} }

const defaultEps = 1e-9

// column kinds after normalization.
const (
	colShift  = iota // x = offset + s
	colMirror        // x = offset - s
	colFreePlus
	colFreeMinus
)

// intCol maps one internal non-negative column back to a user variable.
type intCol struct {
	orig int     // user column index
	kind int     // colShift / colMirror / colFreePlus / colFreeMinus
	off  float64 // shift offset (l or u)
}

// tableau is the dense working state of one solve.
type tableau struct {
	a     [][]float64 // m rows × ncols
	rhs   []float64   // m
	obj   []float64   // ncols reduced costs
	objV  float64     // current objective value (internal sense)
	basis []int       // m basic column indices
	art   []bool      // per column: artificial flag
}

// Solve implements the Solver interface.
// On Infeasible/Unbounded it returns a Solution carrying the status
// together with a wrapped ErrInfeasible/ErrUnbounded sentinel.
func (s *Simplex) Solve(p *Problem) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	eps := s.Eps
	if eps <= 0 {
		eps = defaultEps
	}

	n := p.NumCols()
	m := p.NumRows()
	if n == 0 {
		return &Solution{Status: Optimal, Primal: nil, Dual: make([]float64, m)}, nil
	}

	// Stage 1: internal minimization objective.
	cUser := p.Objective
	c := make([]float64, n)
	for j := 0; j < n; j++ {
		if p.Sense == Maximize {
			c[j] = -cUser[j]
		} else {
			c[j] = cUser[j]
		}
	}

	// Stage 2: non-negative internal columns.
	cols := make([]intCol, 0, n+2)
	colOf := make([][]int, n) // user var -> internal column(s)
	ranges := make([]struct {
		col int
		ub  float64
	}, 0)
	for j := 0; j < n; j++ {
		lo, hi := p.Lower[j], p.Upper[j]
		switch {
		case !math.IsInf(lo, -1):
			cols = append(cols, intCol{orig: j, kind: colShift, off: lo})
			colOf[j] = []int{len(cols) - 1}
			if !math.IsInf(hi, 1) {
				ranges = append(ranges, struct {
					col int
					ub  float64
				}{len(cols) - 1, hi - lo})
			}
		case !math.IsInf(hi, 1):
			cols = append(cols, intCol{orig: j, kind: colMirror, off: hi})
			colOf[j] = []int{len(cols) - 1}
		default:
			cols = append(cols, intCol{orig: j, kind: colFreePlus})
			cols = append(cols, intCol{orig: j, kind: colFreeMinus})
			colOf[j] = []int{len(cols) - 2, len(cols) - 1}
		}
	}
	nInt := len(cols)
	mAll := m + len(ranges)

	// Stage 3: rows over internal columns, RHS-adjusted for offsets.
	rowA := make([][]float64, mAll)
	rowB := make([]float64, mAll)
	rowRel := make([]Relation, mAll)
	flip := make([]bool, mAll)
	for i := 0; i < m; i++ {
		r := make([]float64, nInt)
		b := p.RHS[i]
		for j := 0; j < n; j++ {
			aij := p.Rows[i][j]
			if aij == 0 {
				continue
			}
			for _, k := range colOf[j] {
				switch cols[k].kind {
				case colShift, colFreePlus:
					r[k] += aij
				case colMirror, colFreeMinus:
					r[k] -= aij
				}
				b -= aij * cols[k].off
			}
		}
		rowA[i], rowB[i], rowRel[i] = r, b, p.Rel[i]
	}
	for q, rg := range ranges {
		r := make([]float64, nInt)
		r[rg.col] = 1
		rowA[m+q], rowB[m+q], rowRel[m+q] = r, rg.ub, LE
	}

	// Stage 4: canonicalize RHS ≥ 0.
	for i := 0; i < mAll; i++ {
		if rowB[i] < 0 {
			for k := range rowA[i] {
				rowA[i][k] = -rowA[i][k]
			}
			rowB[i] = -rowB[i]
			flip[i] = true
			switch rowRel[i] {
			case LE:
				rowRel[i] = GE
			case GE:
				rowRel[i] = LE
			}
		}
	}

	// Stage 5: augment with slack/surplus/artificial columns.
	nAux := 0
	for i := 0; i < mAll; i++ {
		switch rowRel[i] {
		case LE, EQ:
			nAux++
		case GE:
			nAux += 2
		}
	}
	ncols := nInt + nAux
	t := &tableau{
		a:     make([][]float64, mAll),
		rhs:   append([]float64(nil), rowB...),
		obj:   make([]float64, ncols),
		basis: make([]int, mAll),
		art:   make([]bool, ncols),
	}
	idCol := make([]int, mAll) // initial +e_i column per row (dual source)
	next := nInt
	for i := 0; i < mAll; i++ {
		t.a[i] = make([]float64, ncols)
		copy(t.a[i], rowA[i])
		switch rowRel[i] {
		case LE:
			t.a[i][next] = 1
			t.basis[i], idCol[i] = next, next
			next++
		case GE:
			t.a[i][next] = -1 // surplus
			next++
			t.a[i][next] = 1 // artificial
			t.art[next] = true
			t.basis[i], idCol[i] = next, next
			next++
		case EQ:
			t.a[i][next] = 1
			t.art[next] = true
			t.basis[i], idCol[i] = next, next
			next++
		}
	}

	budget := s.MaxPivots
	if budget <= 0 {
		budget = 100 * (mAll + ncols + 10)
	}

	// Phase 1: drive artificials to zero.
	hasArt := false
	for _, f := range t.art {
		if f {
			hasArt = true

			break
		}
	}
	if hasArt {
		c1 := make([]float64, ncols)
		for j, f := range t.art {
			if f {
				c1[j] = 1
			}
		}
		t.priceOut(c1)
		if err := t.iterate(c1, nil, eps, budget); err != nil {
			return nil, err
		}
		if t.objV > 1e-7 {
			return &Solution{Status: Infeasible}, fmt.Errorf("phase 1 optimum %.3g > 0: %w", t.objV, ErrInfeasible)
		}
	}

	// Phase 2: true objective, artificials barred from entering.
	c2 := make([]float64, ncols)
	for k, col := range cols {
		switch col.kind {
		case colShift, colFreePlus:
			c2[k] = c[col.orig]
		case colMirror, colFreeMinus:
			c2[k] = -c[col.orig]
		}
	}
	t.priceOut(c2)
	if err := t.iterate(c2, t.art, eps, budget); err != nil {
		if sol, ok := unboundedSolution(err); ok {
			return sol, err
		}

		return nil, err
	}

	// Stage 6: recover user primal, objective and row duals.
	val := make([]float64, ncols)
	for i, b := range t.basis {
		val[b] = t.rhs[i]
	}
	x := make([]float64, n)
	for k, col := range cols {
		switch col.kind {
		case colShift:
			x[col.orig] = col.off + val[k]
		case colMirror:
			x[col.orig] = col.off - val[k]
		case colFreePlus:
			x[col.orig] += val[k]
		case colFreeMinus:
			x[col.orig] -= val[k]
		}
	}
	objective := 0.0
	for j := 0; j < n; j++ {
		objective += cUser[j] * x[j]
	}
	dual := make([]float64, m)
	for i := 0; i < m; i++ {
		y := -t.obj[idCol[i]]
		if flip[i] {
			y = -y
		}
		if p.Sense == Maximize {
			y = -y
		}
		dual[i] = y
	}

	return &Solution{Status: Optimal, Primal: x, Dual: dual, Objective: objective}, nil
}

// priceOut recomputes the reduced-cost row and objective value for cost
// vector c under the current basis.
func (t *tableau) priceOut(c []float64) {
	copy(t.obj, c)
	t.objV = 0
	for i, b := range t.basis {
		cb := c[b]
		if cb == 0 {
			continue
		}
		for j := range t.obj {
			t.obj[j] -= cb * t.a[i][j]
		}
		t.objV += cb * t.rhs[i]
	}
}

// iterate runs simplex pivots until optimality. barred marks columns
// that may never enter (nil means none). Returns ErrUnbounded when an
// improving column has no positive pivot entry.
func (t *tableau) iterate(c []float64, barred []bool, eps float64, budget int) error {
	m := len(t.basis)
	for pivots := 0; ; pivots++ {
		if pivots > budget {
			return ErrIterationLimit
		}

		// Entering column: Bland — lowest index with negative reduced cost.
		enter := -1
		for j := range t.obj {
			if barred != nil && barred[j] {
				continue
			}
			if t.obj[j] < -eps {
				enter = j

				break
			}
		}
		if enter < 0 {
			return nil // optimal
		}

		// Leaving row: minimum ratio, ties by lowest basic index.
		leave := -1
		best := math.Inf(1)
		for i := 0; i < m; i++ {
			a := t.a[i][enter]
			if a <= eps {
				continue
			}
			ratio := t.rhs[i] / a
			if ratio < best-eps || (ratio < best+eps && (leave < 0 || t.basis[i] < t.basis[leave])) {
				best = ratio
				leave = i
			}
		}
		if leave < 0 {
			return ErrUnbounded
		}

		t.pivot(leave, enter)
	}
}

// pivot performs one Gauss-Jordan pivot on (row, col).
func (t *tableau) pivot(row, col int) {
	piv := t.a[row][col]
	inv := 1 / piv
	for j := range t.a[row] {
		t.a[row][j] *= inv
	}
	t.rhs[row] *= inv
	for i := range t.a {
		if i == row {
			continue
		}
		f := t.a[i][col]
		if f == 0 {
			continue
		}
		for j := range t.a[i] {
			t.a[i][j] -= f * t.a[row][j]
		}
		t.rhs[i] -= f * t.rhs[row]
	}
	f := t.obj[col]
	if f != 0 {
		for j := range t.obj {
			t.obj[j] -= f * t.a[row][j]
		}
		t.objV += f * t.rhs[row]
	}
	t.basis[row] = col
}

// unboundedSolution translates an iterate error into a status-bearing
// solution where the sentinel calls for one.
func unboundedSolution(err error) (*Solution, bool) {
	if err == ErrUnbounded {
		return &Solution{Status: Unbounded}, true
	}

	return nil, false
}
