// SPDX-License-Identifier: MIT

package stage

import (
	"fmt"
	"math"

	"github.com/katalvlaran/sddp/lp"
)

// Model is a mutable stage-template builder. A Model is not safe for
// concurrent mutation; freeze it with Compile before sharing.
type Model struct {
	sense  lp.Sense
	cost   []float64
	lower  []float64
	upper  []float64
	states []State
	rows   [][]Term
	rel    []lp.Relation
	rhs    []float64
	locs   []Location
}

// New returns an empty stage template with the given objective sense.
func New(sense lp.Sense) *Model {
	return &Model{sense: sense}
}

// addCol appends one column and returns its index.
func (m *Model) addCol(lo, hi, cost float64) Var {
	m.lower = append(m.lower, lo)
	m.upper = append(m.upper, hi)
	m.cost = append(m.cost, cost)

	return Var(len(m.cost) - 1)
}

// AddStateVariable declares a state variable with bounds [lo, hi] on its
// outgoing ("now") value and returns the (now, past) pair. The incoming
// column is unbounded: its value is pinned by the engine, either to the
// previous stage's decision or to the initial condition at stage 0.
func (m *Model) AddStateVariable(lo, hi float64) State {
	now := m.addCol(lo, hi, 0)
	past := m.addCol(math.Inf(-1), math.Inf(1), 0)
	st := State{Now: now, Past: past}
	m.states = append(m.states, st)

	return st
}

// AddVariable declares a local decision column with bounds [lo, hi] and
// objective coefficient cost.
func (m *Model) AddVariable(lo, hi, cost float64) Var {
	return m.addCol(lo, hi, cost)
}

// SetCost assigns an objective coefficient to an existing column
// (typically a state variable's Now column in a terminal stage).
func (m *Model) SetCost(v Var, cost float64) error {
	if !m.knownVar(v) {
		return fmt.Errorf("SetCost(%d): %w", v, ErrUnknownVariable)
	}
	m.cost[v] = cost

	return nil
}

// AddConstraint appends the row Σ terms {rel} rhs and returns its index.
// Repeated terms on the same column accumulate.
func (m *Model) AddConstraint(terms []Term, rel lp.Relation, rhs float64) (Con, error) {
	if len(terms) == 0 {
		return 0, ErrEmptyConstraint
	}
	for _, tm := range terms {
		if !m.knownVar(tm.Var) {
			return 0, fmt.Errorf("AddConstraint: term on %d: %w", tm.Var, ErrUnknownVariable)
		}
	}
	m.rows = append(m.rows, append([]Term(nil), terms...))
	m.rel = append(m.rel, rel)
	m.rhs = append(m.rhs, rhs)

	return Con(len(m.rows) - 1), nil
}

// BindUncertainty marks the given slots as uncertainty-dependent, in
// order: realization vectors passed to Compiled.Instantiate must list
// one value per location, in the same order (possibly across several
// BindUncertainty calls). A coefficient location must name a column the
// constraint actually contains; binding the same slot twice fails.
func (m *Model) BindUncertainty(locs ...Location) error {
	for _, loc := range locs {
		if int(loc.Con) < 0 || int(loc.Con) >= len(m.rows) {
			return fmt.Errorf("BindUncertainty: row %d: %w", loc.Con, ErrUnknownConstraint)
		}
		if loc.Var != RHS {
			if !m.knownVar(loc.Var) {
				return fmt.Errorf("BindUncertainty: column %d: %w", loc.Var, ErrUnknownVariable)
			}
			if !m.rowContains(loc.Con, loc.Var) {
				return fmt.Errorf("BindUncertainty: row %d has no term on column %d: %w",
					loc.Con, loc.Var, ErrLocationNotFound)
			}
		}
		for _, seen := range m.locs {
			if seen == loc {
				return fmt.Errorf("BindUncertainty: row %d column %d: %w",
					loc.Con, loc.Var, ErrDuplicateLocation)
			}
		}
		m.locs = append(m.locs, loc)
	}

	return nil
}

func (m *Model) knownVar(v Var) bool { return v >= 0 && int(v) < len(m.cost) }

func (m *Model) rowContains(c Con, v Var) bool {
	for _, tm := range m.rows[c] {
		if tm.Var == v {
			return true
		}
	}

	return false
}

// Compiled is a frozen stage template. It shares no storage with the
// Model it came from and is never mutated after compilation: Instantiate
// stamps out independent lp.Problem copies, so one Compiled may be read
// from any number of goroutines.
type Compiled struct {
	Sense lp.Sense

	// Dense template matrices (never handed out to callers).
	cost  []float64
	lower []float64
	upper []float64
	rows  [][]float64
	rel   []lp.Relation
	rhs   []float64

	// States lists the (now, past) column pairs in declaration order;
	// the engine fixes Past columns and reads Now columns through it.
	States []State

	locs []Location
}

// Compile validates the declarations and freezes the template.
func (m *Model) Compile() (*Compiled, error) {
	n := len(m.cost)
	c := &Compiled{
		Sense:  m.sense,
		cost:   append([]float64(nil), m.cost...),
		lower:  append([]float64(nil), m.lower...),
		upper:  append([]float64(nil), m.upper...),
		rel:    append([]lp.Relation(nil), m.rel...),
		rhs:    append([]float64(nil), m.rhs...),
		States: append([]State(nil), m.states...),
		locs:   append([]Location(nil), m.locs...),
	}
	c.rows = make([][]float64, len(m.rows))
	for i, terms := range m.rows {
		row := make([]float64, n)
		for _, tm := range terms {
			row[tm.Var] += tm.Coeff
		}
		c.rows[i] = row
	}

	return c, nil
}

// NumCols returns the number of template columns.
func (c *Compiled) NumCols() int { return len(c.cost) }

// NumLocations returns the required realization-vector length.
func (c *Compiled) NumLocations() int { return len(c.locs) }

// StateDim returns the number of state variables.
func (c *Compiled) StateDim() int { return len(c.States) }

// Instantiate returns a fresh lp.Problem with the realization values
// substituted into the bound locations. The result shares no storage
// with the template; callers may append columns and rows freely.
// A nil realization is valid when no locations are bound.
func (c *Compiled) Instantiate(realization []float64) (*lp.Problem, error) {
	if len(realization) != len(c.locs) {
		return nil, fmt.Errorf("Instantiate: got %d values for %d locations: %w",
			len(realization), len(c.locs), ErrRealizationLength)
	}
	p := &lp.Problem{
		Sense:     c.Sense,
		Objective: append([]float64(nil), c.cost...),
		Rel:       append([]lp.Relation(nil), c.rel...),
		RHS:       append([]float64(nil), c.rhs...),
		Lower:     append([]float64(nil), c.lower...),
		Upper:     append([]float64(nil), c.upper...),
	}
	p.Rows = make([][]float64, len(c.rows))
	for i, row := range c.rows {
		p.Rows[i] = append([]float64(nil), row...)
	}
	for k, loc := range c.locs {
		if loc.Var == RHS {
			p.RHS[loc.Con] = realization[k]
		} else {
			p.Rows[loc.Con][loc.Var] = realization[k]
		}
	}

	return p, nil
}
