// SPDX-License-Identifier: MIT

// Package lp defines a dense linear-program representation, the Solver
// adapter contract, and a self-contained two-phase simplex implementation.
//
// 🚀 What lives here?
//
//	Every stage of a multistage stochastic program eventually reduces to a
//	plain linear program: minimize (or maximize) c·x subject to linear
//	rows A·x {≤,=,≥} b and per-variable bounds l ≤ x ≤ u. This package is
//	the single place where such problems are described and solved.
//
// ✨ Key points:
//   - Problem/Solution are plain dense structs — no modeling DSL, no
//     hidden state; build them directly or through the stage package.
//   - Solver is a black-box adapter interface: plug in any LP backend
//     (commercial or open) that can report primal values, row duals and
//     an objective. The engine only ever talks to this interface.
//   - Simplex is the default pure-Go backend: a bounded-variable
//     two-phase tableau simplex with Bland's anti-cycling rule and row
//     dual recovery. No cgo, no external binaries.
//   - Unbounded variables are expressed with ±Inf sentinels, never with a
//     finite big-M constant.
//
// ⚙️ Usage:
//
//	p := &lp.Problem{
//	    Sense:     lp.Minimize,
//	    Objective: []float64{1, 2},
//	    Rows:      [][]float64{{1, 1}},
//	    Rel:       []lp.Relation{lp.GE},
//	    RHS:       []float64{1},
//	    Lower:     []float64{0, 0},
//	    Upper:     []float64{math.Inf(1), math.Inf(1)},
//	}
//	sol, err := lp.NewSimplex().Solve(p)
//
// Dual semantics: Solution.Dual[i] is the sensitivity ∂Objective/∂RHS[i]
// of the reported objective to row i's right-hand side, for both senses.
// This is exactly the quantity Benders-style cut construction needs.
package lp
