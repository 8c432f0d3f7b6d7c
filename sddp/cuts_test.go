package sddp_test

import (
	"math"
	"sync"
	"testing"

	"github.com/katalvlaran/sddp/lp"
	"github.com/katalvlaran/sddp/sddp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutPool_EmptyEvaluate(t *testing.T) {
	minPool := sddp.NewCutPool(lp.Minimize, []int{1})
	maxPool := sddp.NewCutPool(lp.Maximize, []int{1})

	assert.True(t, math.IsInf(minPool.Evaluate(0, 0, []float64{1}), -1),
		"empty minimizing pool must report -Inf")
	assert.True(t, math.IsInf(maxPool.Evaluate(0, 0, []float64{1}), +1),
		"empty maximizing pool must report +Inf")
	assert.Zero(t, minPool.Len(0, 0))
}

func TestCutPool_EvaluateTakesTightestCut(t *testing.T) {
	// Minimizing: cuts bound from below, the pool reports their max.
	pool := sddp.NewCutPool(lp.Minimize, []int{1})
	pool.Add(0, 0, sddp.Cut{Intercept: 10, Slope: []float64{-2}})
	pool.Add(0, 0, sddp.Cut{Intercept: 6, Slope: []float64{-1}})

	assert.InDelta(t, 10.0, pool.Evaluate(0, 0, []float64{0}), 1e-12)
	assert.InDelta(t, 4.0, pool.Evaluate(0, 0, []float64{3}), 1e-12) // 10-6 vs 6-3
	assert.InDelta(t, 0.0, pool.Evaluate(0, 0, []float64{6}), 1e-12)

	// Maximizing: cuts bound from above, the pool reports their min.
	pool = sddp.NewCutPool(lp.Maximize, []int{1})
	pool.Add(0, 0, sddp.Cut{Intercept: 10, Slope: []float64{-2}})
	pool.Add(0, 0, sddp.Cut{Intercept: 6, Slope: []float64{-1}})

	assert.InDelta(t, 6.0, pool.Evaluate(0, 0, []float64{0}), 1e-12)
	assert.InDelta(t, 2.5, pool.Evaluate(0, 0, []float64{3.5}), 1e-12)
}

func TestCutPool_CutsAtSnapshot(t *testing.T) {
	pool := sddp.NewCutPool(lp.Minimize, []int{1})
	pool.Add(0, 0, sddp.Cut{Intercept: 1, Slope: []float64{0}})

	snap := pool.CutsAt(0, 0)
	require.Len(t, snap, 1)

	pool.Add(0, 0, sddp.Cut{Intercept: 2, Slope: []float64{0}})
	assert.Len(t, snap, 1, "snapshot must not grow with later Adds")
	assert.Equal(t, 2, pool.Len(0, 0))

	// Appending to the snapshot must not leak into the pool.
	_ = append(snap, sddp.Cut{Intercept: 99, Slope: []float64{0}})
	assert.InDelta(t, 2.0, pool.CutsAt(0, 0)[1].Intercept, 1e-12)
}

func TestCutPool_ConcurrentAdds(t *testing.T) {
	const writers, perWriter = 8, 50

	pool := sddp.NewCutPool(lp.Minimize, []int{2})
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := 0; k < perWriter; k++ {
				pool.Add(0, w%2, sddp.Cut{Intercept: float64(k), Slope: []float64{1}})
				_ = pool.Evaluate(0, w%2, []float64{1})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, writers/2*perWriter, pool.Len(0, 0))
	assert.Equal(t, writers/2*perWriter, pool.Len(0, 1))
}
