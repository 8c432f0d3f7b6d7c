package probdef_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/sddp/probdef"
	"github.com/katalvlaran/sddp/sddp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPortfolio_EndToEnd drives a built portfolio through the finite
// engine. Maximizing: the deterministic bound is an upper bound, never
// increases, and stays within sane distance of the starting wealth.
func TestPortfolio_EndToEnd(t *testing.T) {
	def := probdef.DefaultPortfolio()
	in, err := def.Build()
	require.NoError(t, err)

	opts := sddp.DefaultOptions()
	opts.MaxIterations = 8
	opts.ThetaBound = 10 * def.Wealth
	opts.FullBackwardPass = true
	opts.Realize = in.Realize
	eng, err := sddp.New(in.Stages, in.Chain, in.Initial, opts)
	require.NoError(t, err)

	res, err := eng.Solve()
	require.NoError(t, err)

	require.False(t, math.IsNaN(res.Bound))
	for i := 1; i < len(res.Log); i++ {
		assert.LessOrEqual(t, res.Log[i].Bound, res.Log[i-1].Bound+1e-9,
			"upper bound regressed at iteration %d", i+1)
	}

	// Three return periods of at most a few percent each.
	assert.Greater(t, res.Bound, 0.8*def.Wealth)
	assert.Less(t, res.Bound, 1.5*def.Wealth)
}

// TestHydroThermal_EndToEnd runs the monthly reservoir system through
// the periodical engine and evaluates the resulting policy over five
// simulated years.
func TestHydroThermal_EndToEnd(t *testing.T) {
	def := probdef.DefaultHydroThermal()
	in, err := def.Build()
	require.NoError(t, err)

	opts := sddp.DefaultPeriodicalOptions()
	opts.MaxIterations = 10
	opts.Discount = def.Discount
	opts.Realize = in.Realize
	eng, err := sddp.NewPeriodical(in.Stages, in.Chain, in.Initial, opts)
	require.NoError(t, err)

	res, err := eng.Solve()
	require.NoError(t, err)

	assert.Greater(t, res.Bound, 0.0, "demand exceeds inflow, thermal cost is unavoidable")
	require.False(t, math.IsInf(res.Bound, 0))
	for i := 1; i < len(res.Log); i++ {
		assert.GreaterOrEqual(t, res.Log[i].Bound, res.Log[i-1].Bound-1e-9)
	}

	evalOpts := sddp.DefaultEvalOptions()
	evalOpts.Simulations = 10
	evalOpts.QueryT = 60
	evalOpts.Realize = in.Realize
	got, err := sddp.Evaluate(res.Policy, in.Stages, in.Chain, in.Initial, evalOpts)
	require.NoError(t, err)

	assert.Greater(t, got.Mean, 0.0)
	require.False(t, math.IsInf(got.Mean, 0))
	assert.Less(t, got.Lo, got.Hi, "random inflows leave sampling spread")
	assert.LessOrEqual(t, got.Lo, got.Mean)
	assert.GreaterOrEqual(t, got.Hi, got.Mean)
}
