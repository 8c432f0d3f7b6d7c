package sddp_test

import (
	"testing"

	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/sddp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solveInventoryPolicy(t *testing.T) (*sddp.Engine, *sddp.Result) {
	t.Helper()
	stages, chain, initial := inventoryTwoStage(t)
	opts := sddp.DefaultOptions()
	opts.MaxIterations = 5
	eng, err := sddp.New(stages, chain, initial, opts)
	require.NoError(t, err)
	res, err := eng.Solve()
	require.NoError(t, err)

	return eng, res
}

func TestEvaluate_DeterministicPolicy(t *testing.T) {
	_, res := solveInventoryPolicy(t)
	stages, chain, initial := inventoryTwoStage(t)

	opts := sddp.DefaultEvalOptions()
	opts.Simulations = 8
	got, err := sddp.Evaluate(res.Policy, stages, chain, initial, opts)
	require.NoError(t, err)

	// Every rollout is identical, so the interval collapses on the mean.
	assert.InDelta(t, 5.0, got.Mean, 1e-9)
	assert.InDelta(t, got.Mean, got.Lo, 1e-9)
	assert.InDelta(t, got.Mean, got.Hi, 1e-9)
	assert.Len(t, got.Samples, 8)
}

func TestEvaluate_RejectsHorizonOverrun(t *testing.T) {
	_, res := solveInventoryPolicy(t)
	stages, chain, initial := inventoryTwoStage(t)

	opts := sddp.DefaultEvalOptions()
	opts.QueryT = 3
	_, err := sddp.Evaluate(res.Policy, stages, chain, initial, opts)
	assert.ErrorIs(t, err, sddp.ErrBadOption)
}

func TestEvaluate_RejectsNilPolicy(t *testing.T) {
	stages, chain, initial := inventoryTwoStage(t)

	_, err := sddp.Evaluate(nil, stages, chain, initial, sddp.DefaultEvalOptions())
	assert.ErrorIs(t, err, sddp.ErrBadOption)
}

func TestEvaluate_NeverAddsCuts(t *testing.T) {
	eng, res := solveInventoryPolicy(t)
	stages, chain, initial := inventoryTwoStage(t)

	before := eng.Pool().Len(0, 0)
	_, err := sddp.Evaluate(res.Policy, stages, chain, initial, sddp.DefaultEvalOptions())
	require.NoError(t, err)

	assert.Equal(t, before, eng.Pool().Len(0, 0))
	assert.Len(t, res.Policy.CutsAt(0, 0), before)
}

// TestEvaluate_StochasticDemand checks the statistical output on the
// newsvendor: every order level the converged policy can choose has the
// same expected cost of 6, while the per-sample spread keeps the
// interval ordered around the mean.
func TestEvaluate_StochasticDemand(t *testing.T) {
	stages, chain, initial, realize := newsvendorStages(t, 2)

	opts := sddp.DefaultOptions()
	opts.MaxIterations = 10
	opts.Realize = realize
	eng, err := sddp.New(stages, chain, initial, opts)
	require.NoError(t, err)
	res, err := eng.Solve()
	require.NoError(t, err)

	evalOpts := sddp.DefaultEvalOptions()
	evalOpts.Simulations = 400
	evalOpts.Realize = realize
	got, err := sddp.Evaluate(res.Policy, stages, chain, initial, evalOpts)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, got.Mean, 0.8)
	assert.LessOrEqual(t, got.Lo, got.Mean)
	assert.GreaterOrEqual(t, got.Hi, got.Mean)
	assert.GreaterOrEqual(t, res.Bound, got.Lo-1e-6, "minimizing bound stays below the estimate's interval")
}

// TestEvaluate_ContinuousProcess simulates under the exact demand
// process instead of the discretized chain: a degenerate IID sampler
// pins demand at 5, between the two representative states, exercising
// the nearest-state cut lookup.
func TestEvaluate_ContinuousProcess(t *testing.T) {
	stages, chain, initial, realize := newsvendorStages(t, 2)

	opts := sddp.DefaultOptions()
	opts.MaxIterations = 10
	opts.Realize = realize
	eng, err := sddp.New(stages, chain, initial, opts)
	require.NoError(t, err)
	res, err := eng.Solve()
	require.NoError(t, err)

	evalOpts := sddp.DefaultEvalOptions()
	evalOpts.Simulations = 5
	evalOpts.Realize = realize
	evalOpts.Process = markov.IID{Mu: []float64{5}, Sigma: []float64{0}}
	got, err := sddp.Evaluate(res.Policy, stages, chain, initial, evalOpts)
	require.NoError(t, err)

	// The policy orders between 2 and 6 units; against a fixed demand
	// of 5 the realized cost lands between 5 (order ≥ 5) and 8.
	assert.GreaterOrEqual(t, got.Mean, 5.0-1e-9)
	assert.LessOrEqual(t, got.Mean, 8.0+1e-9)
	assert.InDelta(t, got.Mean, got.Lo, 1e-9, "degenerate process leaves no spread")
	assert.InDelta(t, got.Mean, got.Hi, 1e-9)
}
