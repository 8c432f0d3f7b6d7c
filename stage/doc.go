// SPDX-License-Identifier: MIT

// Package stage builds per-stage LP templates for multistage stochastic
// programs.
//
// A stage template declares:
//   - state variables — (now, past) column pairs; "past" in stage t
//     aliases "now" of stage t-1 and is fixed by the solving engine at
//     run time (in stage 0 it is pinned to the initial condition);
//   - local decision variables with bounds and objective cost;
//   - linear constraints over any of those columns;
//   - uncertainty locations — (constraint, coefficient-or-RHS) slots
//     whose numeric value is substituted per realization.
//
// Build order fixes all column and row indices. Compile() validates the
// declarations (every misdeclaration fails here, never during solving)
// and freezes the template into a Compiled value that is never mutated
// again: Instantiate() stamps out a fresh lp.Problem per realization,
// which the engine then extends with cut rows and state-fixing rows.
//
// ⚙️ Usage:
//
//	m := stage.New(lp.Maximize)
//	wealth := m.AddStateVariable(0, lp.NoBound)
//	buy := m.AddVariable(0, lp.NoBound, 0)
//	con, _ := m.AddConstraint(
//	    []stage.Term{{wealth.Now, 1}, {wealth.Past, -1}, {buy, -1}},
//	    lp.EQ, 0)
//	_ = m.BindUncertainty(stage.Location{Con: con, Var: wealth.Past})
//	tmpl, err := m.Compile()
//
// Errors are package sentinels matched with errors.Is; all of them are
// configuration errors raised at build time.
package stage
