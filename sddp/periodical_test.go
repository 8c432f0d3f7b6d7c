package sddp_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/sddp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriodical_RejectsBadSetup(t *testing.T) {
	stages, chain, initial, realize := reservoirPeriod(t)

	base := func() sddp.PeriodicalOptions {
		opts := sddp.DefaultPeriodicalOptions()
		opts.Discount = 0.9
		opts.Realize = realize

		return opts
	}

	t.Run("undiscounted", func(t *testing.T) {
		opts := base()
		opts.Discount = 1
		_, err := sddp.NewPeriodical(stages, chain, initial, opts)
		assert.ErrorIs(t, err, sddp.ErrBadOption)
	})

	t.Run("short rollout", func(t *testing.T) {
		opts := base()
		opts.ForwardStages = 1
		_, err := sddp.NewPeriodical(stages, chain, initial, opts)
		assert.ErrorIs(t, err, sddp.ErrBadOption)
	})

	t.Run("state count mismatch", func(t *testing.T) {
		lopsided := &markov.Chain{
			States:  [][][]float64{{{5}}, {{4}, {6}}},
			P:       [][][]float64{{{0.5, 0.5}}},
			Initial: []float64{1},
		}
		require.NoError(t, lopsided.Validate())
		_, err := sddp.NewPeriodical(stages, lopsided, initial, base())
		assert.ErrorIs(t, err, sddp.ErrPeriodShape)
	})

	t.Run("wrap row not stochastic", func(t *testing.T) {
		opts := base()
		opts.Wrap = [][]float64{{0.5}}
		_, err := sddp.NewPeriodical(stages, chain, initial, opts)
		assert.ErrorIs(t, err, sddp.ErrPeriodShape)
	})
}

// TestPeriodical_ReservoirConverges drives the cyclic reservoir to its
// fixed point. Inflow never covers demand, so every period burns 5
// thermal units at cost 2; the discounted infinite-horizon total is
// 10/(1-0.9) = 100, approached from below as each backward pass pushes
// the loop-closing cuts one contraction step further.
func TestPeriodical_ReservoirConverges(t *testing.T) {
	stages, chain, initial, realize := reservoirPeriod(t)

	opts := sddp.DefaultPeriodicalOptions()
	opts.MaxIterations = 60
	opts.Discount = 0.9
	opts.Realize = realize
	eng, err := sddp.NewPeriodical(stages, chain, initial, opts)
	require.NoError(t, err)

	res, err := eng.Solve()
	require.NoError(t, err)

	for i := 1; i < len(res.Log); i++ {
		assert.GreaterOrEqual(t, res.Log[i].Bound, res.Log[i-1].Bound-1e-9,
			"bound regressed at iteration %d", i+1)
	}
	assert.InDelta(t, 100.0, res.Bound, 0.1)
	assert.Less(t, res.Bound, 100.0+1e-6, "bound approaches the fixed point from below")

	require.NotNil(t, res.Policy)
	assert.Equal(t, 1, res.Policy.Period)
	assert.InDelta(t, 0.9, res.Policy.Discount, 1e-12)
	assert.Len(t, res.Policy.Cuts, 1, "cut positions cover one period")
}

func TestPeriodical_EvaluateRollsBeyondTemplates(t *testing.T) {
	stages, chain, initial, realize := reservoirPeriod(t)

	opts := sddp.DefaultPeriodicalOptions()
	opts.MaxIterations = 60
	opts.Discount = 0.9
	opts.Realize = realize
	eng, err := sddp.NewPeriodical(stages, chain, initial, opts)
	require.NoError(t, err)
	res, err := eng.Solve()
	require.NoError(t, err)

	evalOpts := sddp.DefaultEvalOptions()
	evalOpts.Simulations = 4
	evalOpts.QueryT = 20
	evalOpts.Realize = realize
	got, err := sddp.Evaluate(res.Policy, stages, chain, initial, evalOpts)
	require.NoError(t, err)

	// 19 period stages at 10 apiece, geometrically discounted.
	want := 10 * (1 - math.Pow(0.9, 19)) / (1 - 0.9)
	assert.InDelta(t, want, got.Mean, 1e-6)
	assert.InDelta(t, got.Mean, got.Lo, 1e-9)
	assert.InDelta(t, got.Mean, got.Hi, 1e-9)
}

func TestPeriodical_DefaultRolloutCoversFourPeriods(t *testing.T) {
	stages, chain, initial, realize := reservoirPeriod(t)

	opts := sddp.DefaultPeriodicalOptions()
	opts.MaxIterations = 2
	opts.Discount = 0.9
	opts.Realize = realize
	eng, err := sddp.NewPeriodical(stages, chain, initial, opts)
	require.NoError(t, err)

	_, err = eng.Solve()
	require.NoError(t, err)

	// Period length 1, default rollout 4L+1 = 5: each backward pass
	// lays down 4 cuts on the shared pool position.
	assert.Equal(t, 8, eng.Pool().Len(0, 0))
}
