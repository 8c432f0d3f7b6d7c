package sddp

import (
	"fmt"
	"math"

	"github.com/katalvlaran/sddp/lp"
	"github.com/katalvlaran/sddp/stage"
)

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)

// solveInput describes one stage LP to assemble and solve.
type solveInput struct {
	tmpl        *stage.Compiled
	realization []float64
	incoming    []float64
	cuts        []Cut
	thetaCoeff  float64 // objective weight of the future-value column; 0 ⇒ terminal, no θ
	thetaBound  float64 // initial pessimistic bound on θ (sense-dependent side)
}

// solveOutput is what the engine keeps from one stage solve.
type solveOutput struct {
	objective float64   // immediate + thetaCoeff·θ
	immediate float64   // stage cost only
	outgoing  []float64 // now-state values
	slopes    []float64 // ∂objective/∂incoming, one per state variable
}

// solveStage assembles the stage LP — realization substituted, θ column
// and cut rows appended, incoming state fixed by equality rows — and
// solves it through the adapter.
//
// Row layout: template rows first, then one cut row per cut, then one
// fixing row per state variable; the fixing-row duals are the cut
// slopes. Column layout: template columns, then θ (when thetaCoeff ≠ 0).
func solveStage(solver lp.Solver, in solveInput) (*solveOutput, error) {
	p, err := in.tmpl.Instantiate(in.realization)
	if err != nil {
		return nil, err
	}
	states := in.tmpl.States
	if len(in.incoming) != len(states) {
		return nil, fmt.Errorf("incoming state has %d of %d components: %w", len(in.incoming), len(states), ErrStateDim)
	}

	thetaCol := -1
	if in.thetaCoeff != 0 {
		thetaCol = len(p.Objective)
		p.Objective = append(p.Objective, in.thetaCoeff)
		if p.Sense == lp.Minimize {
			p.Lower = append(p.Lower, in.thetaBound)
			p.Upper = append(p.Upper, posInf)
		} else {
			p.Lower = append(p.Lower, negInf)
			p.Upper = append(p.Upper, in.thetaBound)
		}
		for i := range p.Rows {
			p.Rows[i] = append(p.Rows[i], 0)
		}
	}
	ncols := len(p.Objective)

	// Cut rows: θ - Slope·x_now {≥,≤} Intercept.
	cutRel := lp.GE
	if p.Sense == lp.Maximize {
		cutRel = lp.LE
	}
	if thetaCol < 0 && len(in.cuts) > 0 {
		return nil, fmt.Errorf("cuts on a terminal stage: %w", ErrBadOption)
	}
	for _, c := range in.cuts {
		row := make([]float64, ncols)
		row[thetaCol] = 1
		for k, s := range c.Slope {
			row[states[k].Now] -= s
		}
		p.Rows = append(p.Rows, row)
		p.Rel = append(p.Rel, cutRel)
		p.RHS = append(p.RHS, c.Intercept)
	}

	// Fixing rows: past_k = incoming_k.
	fixRow := len(p.Rows)
	for k, st := range states {
		row := make([]float64, ncols)
		row[st.Past] = 1
		p.Rows = append(p.Rows, row)
		p.Rel = append(p.Rel, lp.EQ)
		p.RHS = append(p.RHS, in.incoming[k])
	}

	sol, err := solver.Solve(p)
	if err != nil {
		return nil, err
	}

	out := &solveOutput{
		objective: sol.Objective,
		immediate: sol.Objective,
		outgoing:  make([]float64, len(states)),
		slopes:    make([]float64, len(states)),
	}
	if thetaCol >= 0 {
		out.immediate -= in.thetaCoeff * sol.Primal[thetaCol]
	}
	for k, st := range states {
		out.outgoing[k] = sol.Primal[st.Now]
		out.slopes[k] = sol.Dual[fixRow+k]
	}

	return out, nil
}
