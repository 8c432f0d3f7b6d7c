package probdef

import (
	"fmt"
	"math"

	"github.com/katalvlaran/sddp/lp"
	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/stage"
)

// Inputs is a built problem, ready for sddp.New or sddp.NewPeriodical.
type Inputs struct {
	Stages   []*stage.Compiled
	Chain    *markov.Chain
	Initial  []float64
	Realize  func(t int, state []float64) []float64
	Warnings []markov.Warning
}

// Build turns the portfolio definition into engine inputs: an
// allocation stage, rebalancing stages and a priced terminal stage,
// plus a discretized chain of gross return vectors. Stage 0 allocates
// under no uncertainty, so the realization mapping skips it.
func (p Portfolio) Build() (*Inputs, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	mu := make([]float64, len(p.Assets))
	sigma := make([]float64, len(p.Assets))
	for j, a := range p.Assets {
		mu[j] = 1 + a.Alpha
		sigma[j] = a.Sigma
	}
	opts := markov.DefaultDiscretizeOptions(p.Stages, p.StatesPerStage)
	opts.SamplePaths = p.SamplePaths
	opts.Seed = p.Seed
	chain, warnings, err := markov.Discretize(markov.IID{Mu: mu, Sigma: sigma}, opts)
	if err != nil {
		return nil, fmt.Errorf("discretizing returns: %w", err)
	}

	stages := make([]*stage.Compiled, p.Stages)
	if stages[0], err = p.allocationStage(); err != nil {
		return nil, err
	}
	for t := 1; t < p.Stages; t++ {
		priced := t == p.Stages-1
		if stages[t], err = p.rebalanceStage(priced); err != nil {
			return nil, err
		}
	}

	return &Inputs{
		Stages:   stages,
		Chain:    chain,
		Initial:  make([]float64, len(p.Assets)),
		Realize:  skipFirstNegated,
		Warnings: warnings,
	}, nil
}

// skipFirstNegated maps return vectors onto balance-row coefficients:
// nothing at the allocation stage, negated gross returns afterwards
// (the row reads Σ now - Σ r·past = 0).
func skipFirstNegated(t int, state []float64) []float64 {
	if t == 0 {
		return nil
	}
	out := make([]float64, len(state))
	for j, r := range state {
		out[j] = -r
	}

	return out
}

func (p Portfolio) allocationStage() (*stage.Compiled, error) {
	m := stage.New(lp.Maximize)
	terms := make([]stage.Term, len(p.Assets))
	for j, a := range p.Assets {
		terms[j] = stage.Term{Var: m.AddStateVariable(0, a.Max).Now, Coeff: 1}
	}
	if _, err := m.AddConstraint(terms, lp.EQ, p.Wealth); err != nil {
		return nil, fmt.Errorf("allocation stage: %w", err)
	}

	return m.Compile()
}

func (p Portfolio) rebalanceStage(priced bool) (*stage.Compiled, error) {
	m := stage.New(lp.Maximize)
	hold := make([]stage.State, len(p.Assets))
	for j, a := range p.Assets {
		hold[j] = m.AddStateVariable(0, a.Max)
		if priced {
			if err := m.SetCost(hold[j].Now, 1); err != nil {
				return nil, err
			}
		}
	}
	terms := make([]stage.Term, 0, 2*len(hold))
	for _, h := range hold {
		terms = append(terms, stage.Term{Var: h.Now, Coeff: 1})
	}
	for _, h := range hold {
		terms = append(terms, stage.Term{Var: h.Past, Coeff: -1})
	}
	bal, err := m.AddConstraint(terms, lp.EQ, 0)
	if err != nil {
		return nil, fmt.Errorf("rebalance stage: %w", err)
	}
	locs := make([]stage.Location, len(hold))
	for j, h := range hold {
		locs[j] = stage.Location{Con: bal, Var: h.Past}
	}
	if err := m.BindUncertainty(locs...); err != nil {
		return nil, err
	}

	return m.Compile()
}

// Build turns the hydro-thermal definition into periodic engine inputs:
// one storage-passthrough stage plus Period seasonal dispatch stages,
// and a chain whose inflow states are spread evenly across
// mean ± InflowSpread (jointly for all reservoirs, serially independent
// seasons, floored at zero). Stage 0 carries the same number of states
// as stage Period, so the default period wrap applies.
func (h HydroThermal) Build() (*Inputs, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	n := h.InflowStates
	offsets := make([]float64, n)
	for k := range offsets {
		if n > 1 {
			offsets[k] = -h.InflowSpread + 2*h.InflowSpread*float64(k)/float64(n-1)
		}
	}
	season := func(s int) [][]float64 {
		out := make([][]float64, n)
		for k := range out {
			vec := make([]float64, len(h.Reservoirs))
			for r := range vec {
				vec[r] = math.Max(0, h.InflowMean[s][r]+offsets[k])
			}
			out[k] = vec
		}

		return out
	}

	states := make([][][]float64, h.Period+1)
	states[0] = season(h.Period - 1)
	for s := 1; s <= h.Period; s++ {
		states[s] = season(s - 1)
	}
	uniform := make([][]float64, n)
	for i := range uniform {
		row := make([]float64, n)
		for j := range row {
			row[j] = 1 / float64(n)
		}
		uniform[i] = row
	}
	trans := make([][][]float64, h.Period)
	for t := range trans {
		trans[t] = uniform
	}
	chain := &markov.Chain{
		States:  states,
		P:       trans,
		Initial: uniform[0],
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	stages := make([]*stage.Compiled, h.Period+1)
	var err error
	if stages[0], err = h.passthroughStage(); err != nil {
		return nil, err
	}
	for s := 1; s <= h.Period; s++ {
		if stages[s], err = h.dispatchStage(s - 1); err != nil {
			return nil, err
		}
	}

	initial := make([]float64, len(h.Reservoirs))
	for r, res := range h.Reservoirs {
		initial[r] = res.Initial
	}

	return &Inputs{
		Stages:  stages,
		Chain:   chain,
		Initial: initial,
		Realize: skipFirst,
	}, nil
}

// skipFirst passes inflow vectors straight onto balance-row RHS slots,
// with nothing at the initial-condition stage.
func skipFirst(t int, state []float64) []float64 {
	if t == 0 {
		return nil
	}

	return state
}

func (h HydroThermal) passthroughStage() (*stage.Compiled, error) {
	m := stage.New(lp.Minimize)
	for _, res := range h.Reservoirs {
		s := m.AddStateVariable(0, res.Capacity)
		if _, err := m.AddConstraint(
			[]stage.Term{{Var: s.Now, Coeff: 1}, {Var: s.Past, Coeff: -1}},
			lp.EQ, 0); err != nil {
			return nil, fmt.Errorf("passthrough stage: %w", err)
		}
	}

	return m.Compile()
}

// dispatchStage models one season: reservoir balances with uncertain
// inflow on the RHS, and a demand row met by hydro releases, thermal
// plants and load shedding.
func (h HydroThermal) dispatchStage(seasonIdx int) (*stage.Compiled, error) {
	m := stage.New(lp.Minimize)

	demandTerms := make([]stage.Term, 0, len(h.Reservoirs)+len(h.Thermal)+1)
	locs := make([]stage.Location, 0, len(h.Reservoirs))
	for r, res := range h.Reservoirs {
		s := m.AddStateVariable(0, res.Capacity)
		release := m.AddVariable(0, res.MaxRelease, 0)
		spill := m.AddVariable(0, lp.NoBound, 0)
		bal, err := m.AddConstraint(
			[]stage.Term{
				{Var: s.Now, Coeff: 1}, {Var: s.Past, Coeff: -1},
				{Var: release, Coeff: 1}, {Var: spill, Coeff: 1},
			},
			lp.EQ, h.InflowMean[seasonIdx][r])
		if err != nil {
			return nil, fmt.Errorf("season %d balance: %w", seasonIdx, err)
		}
		locs = append(locs, stage.Location{Con: bal, Var: stage.RHS})
		demandTerms = append(demandTerms, stage.Term{Var: release, Coeff: 1})
	}
	for _, pl := range h.Thermal {
		g := m.AddVariable(0, pl.Capacity, pl.Cost)
		demandTerms = append(demandTerms, stage.Term{Var: g, Coeff: 1})
	}
	deficit := m.AddVariable(0, lp.NoBound, h.DeficitCost)
	demandTerms = append(demandTerms, stage.Term{Var: deficit, Coeff: 1})
	if _, err := m.AddConstraint(demandTerms, lp.GE, h.Demand[seasonIdx]); err != nil {
		return nil, fmt.Errorf("season %d demand: %w", seasonIdx, err)
	}
	if err := m.BindUncertainty(locs...); err != nil {
		return nil, err
	}

	return m.Compile()
}
