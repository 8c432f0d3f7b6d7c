package sddp_test

import (
	"testing"

	"github.com/katalvlaran/sddp/lp"
	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/stage"
	"github.com/stretchr/testify/require"
)

// compile is a require-wrapped stage.Model.Compile.
func compile(t *testing.T, m *stage.Model) *stage.Compiled {
	t.Helper()
	c, err := m.Compile()
	require.NoError(t, err)

	return c
}

// inventoryTwoStage builds a deterministic two-stage ordering problem:
//
//	stage 0: order up to 10 units at cost 1, stock them;
//	stage 1: demand of 5 arrives, missing units cost 2 each.
//
// The optimum is to pre-order all 5 units at stage 0 for a total of 5.
func inventoryTwoStage(t *testing.T) (stages []*stage.Compiled, chain *markov.Chain, initial []float64) {
	t.Helper()

	m0 := stage.New(lp.Minimize)
	stock0 := m0.AddStateVariable(0, 10)
	order0 := m0.AddVariable(0, 10, 1)
	_, err := m0.AddConstraint(
		[]stage.Term{{Var: stock0.Now, Coeff: 1}, {Var: stock0.Past, Coeff: -1}, {Var: order0, Coeff: -1}},
		lp.EQ, 0)
	require.NoError(t, err)

	m1 := stage.New(lp.Minimize)
	stock1 := m1.AddStateVariable(0, 10)
	order1 := m1.AddVariable(0, 10, 2)
	_, err = m1.AddConstraint(
		[]stage.Term{{Var: stock1.Now, Coeff: 1}, {Var: stock1.Past, Coeff: -1}, {Var: order1, Coeff: -1}},
		lp.EQ, -5)
	require.NoError(t, err)

	return []*stage.Compiled{compile(t, m0), compile(t, m1)},
		markov.Deterministic(2, nil),
		[]float64{0}
}

// newsvendorStages builds a two-stage problem with Markovian demand at
// stage 1: demand is 2 or 6 with equal probability; stage-0 orders cost
// 1, emergency stage-1 orders cost emergencyCost. With emergencyCost 2
// the risk-neutral optimum is 6 (flat between orders of 2 and 6).
func newsvendorStages(t *testing.T, emergencyCost float64) (stages []*stage.Compiled, chain *markov.Chain, initial []float64, realize func(int, []float64) []float64) {
	t.Helper()

	m0 := stage.New(lp.Minimize)
	stock0 := m0.AddStateVariable(0, 20)
	order0 := m0.AddVariable(0, 20, 1)
	_, err := m0.AddConstraint(
		[]stage.Term{{Var: stock0.Now, Coeff: 1}, {Var: stock0.Past, Coeff: -1}, {Var: order0, Coeff: -1}},
		lp.EQ, 0)
	require.NoError(t, err)

	m1 := stage.New(lp.Minimize)
	stock1 := m1.AddStateVariable(0, 20)
	order1 := m1.AddVariable(0, 20, emergencyCost)
	bal, err := m1.AddConstraint(
		[]stage.Term{{Var: stock1.Now, Coeff: 1}, {Var: stock1.Past, Coeff: -1}, {Var: order1, Coeff: -1}},
		lp.EQ, 0)
	require.NoError(t, err)
	require.NoError(t, m1.BindUncertainty(stage.Location{Con: bal, Var: stage.RHS}))

	chain = &markov.Chain{
		States: [][][]float64{
			{{0}},
			{{2}, {6}},
		},
		P:       [][][]float64{{{0.5, 0.5}}},
		Initial: []float64{1},
	}
	require.NoError(t, chain.Validate())

	// The balance row reads stock.Now - stock.Past - order = -demand.
	realize = func(tt int, s []float64) []float64 {
		if tt == 0 {
			return nil
		}

		return []float64{-s[0]}
	}

	return []*stage.Compiled{compile(t, m0), compile(t, m1)}, chain, []float64{0}, realize
}

// reservoirPeriod builds a one-reservoir periodic problem with period
// length 1: every period 5 units flow in, demand of 10 must be met,
// shortfall is covered by thermal generation at cost 2. The steady
// state burns 5 thermal units per period, so with discount γ the
// infinite-horizon cost is 10/(1-γ).
func reservoirPeriod(t *testing.T) (stages []*stage.Compiled, chain *markov.Chain, initial []float64, realize func(int, []float64) []float64) {
	t.Helper()

	m0 := stage.New(lp.Minimize)
	s0 := m0.AddStateVariable(0, 100)
	_, err := m0.AddConstraint(
		[]stage.Term{{Var: s0.Now, Coeff: 1}, {Var: s0.Past, Coeff: -1}},
		lp.EQ, 0)
	require.NoError(t, err)

	m1 := stage.New(lp.Minimize)
	s1 := m1.AddStateVariable(0, 100)
	release := m1.AddVariable(0, 10, 0)
	thermal := m1.AddVariable(0, lp.NoBound, 2)
	spill := m1.AddVariable(0, lp.NoBound, 0)
	bal, err := m1.AddConstraint(
		[]stage.Term{
			{Var: s1.Now, Coeff: 1}, {Var: s1.Past, Coeff: -1},
			{Var: release, Coeff: 1}, {Var: spill, Coeff: 1},
		},
		lp.EQ, 5)
	require.NoError(t, err)
	_, err = m1.AddConstraint(
		[]stage.Term{{Var: release, Coeff: 1}, {Var: thermal, Coeff: 1}},
		lp.EQ, 10)
	require.NoError(t, err)
	require.NoError(t, m1.BindUncertainty(stage.Location{Con: bal, Var: stage.RHS}))

	chain = &markov.Chain{
		States:  [][][]float64{{{5}}, {{5}}},
		P:       [][][]float64{{{1}}},
		Initial: []float64{1},
	}
	require.NoError(t, chain.Validate())

	realize = func(tt int, s []float64) []float64 {
		if tt == 0 {
			return nil
		}

		return []float64{s[0]}
	}

	return []*stage.Compiled{compile(t, m0), compile(t, m1)}, chain, []float64{0}, realize
}
