package markov

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// RowSumTol is the tolerance within which every transition-matrix row
// must sum to 1.
const RowSumTol = 1e-6

// Sentinel errors for chain construction. All are configuration errors:
// a Chain that passes Validate never fails during solving.
var (
	// ErrEmptyChain indicates a chain with no stages or an empty stage.
	ErrEmptyChain = errors.New("markov: chain has no states")

	// ErrShapeMismatch indicates inconsistent state dimensions or
	// transition-matrix shapes across stages.
	ErrShapeMismatch = errors.New("markov: shape mismatch")

	// ErrNotStochastic indicates a transition row that does not sum to 1
	// within RowSumTol, or a negative probability.
	ErrNotStochastic = errors.New("markov: transition row is not a probability distribution")
)

// Chain is a finite, stage-indexed Markov chain.
//
// States[t][i] is the i-th representative state vector at stage t; all
// vectors share one dimension. P[t][i][j] is the probability of moving
// from state i at stage t to state j at stage t+1, so len(P) is one less
// than len(States). Initial is the distribution over States[0].
//
// A Chain is treated as immutable once validated; helpers that derive
// new chains (Augment) copy what they change and share the rest.
type Chain struct {
	States  [][][]float64
	P       [][][]float64
	Initial []float64
}

// NumStages returns the number of stages.
func (c *Chain) NumStages() int { return len(c.States) }

// NumStates returns the number of representative states at stage t.
func (c *Chain) NumStates(t int) int { return len(c.States[t]) }

// Dim returns the state-vector dimension.
func (c *Chain) Dim() int {
	if len(c.States) == 0 || len(c.States[0]) == 0 {
		return 0
	}

	return len(c.States[0][0])
}

// Validate checks shapes, row sums and the initial distribution.
func (c *Chain) Validate() error {
	if len(c.States) == 0 {
		return ErrEmptyChain
	}
	dim := -1
	for t, st := range c.States {
		if len(st) == 0 {
			return fmt.Errorf("stage %d: %w", t, ErrEmptyChain)
		}
		for i, v := range st {
			if dim < 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return fmt.Errorf("stage %d state %d: dim %d != %d: %w", t, i, len(v), dim, ErrShapeMismatch)
			}
		}
	}
	if len(c.P) != len(c.States)-1 {
		return fmt.Errorf("got %d transition matrices for %d stages: %w", len(c.P), len(c.States), ErrShapeMismatch)
	}
	for t, mat := range c.P {
		if len(mat) != len(c.States[t]) {
			return fmt.Errorf("P[%d] has %d rows for %d states: %w", t, len(mat), len(c.States[t]), ErrShapeMismatch)
		}
		for i, row := range mat {
			if len(row) != len(c.States[t+1]) {
				return fmt.Errorf("P[%d][%d]: %w", t, i, ErrShapeMismatch)
			}
			if err := checkDistribution(row); err != nil {
				return fmt.Errorf("P[%d][%d]: %w", t, i, err)
			}
		}
	}
	if len(c.Initial) != len(c.States[0]) {
		return fmt.Errorf("initial distribution over %d of %d states: %w", len(c.Initial), len(c.States[0]), ErrShapeMismatch)
	}
	if err := checkDistribution(c.Initial); err != nil {
		return fmt.Errorf("initial distribution: %w", err)
	}

	return nil
}

func checkDistribution(row []float64) error {
	sum := 0.0
	for _, p := range row {
		if p < 0 || math.IsNaN(p) {
			return ErrNotStochastic
		}
		sum += p
	}
	if math.Abs(sum-1) > RowSumTol {
		return ErrNotStochastic
	}

	return nil
}

// SampleInitial draws a state index at stage 0.
func (c *Chain) SampleInitial(rng *rand.Rand) int {
	return drawIndex(rng, c.Initial)
}

// SampleNext draws a successor index for state i at stage t.
func (c *Chain) SampleNext(rng *rand.Rand, t, i int) int {
	return drawIndex(rng, c.P[t][i])
}

// SamplePath draws one index trajectory through all stages.
func (c *Chain) SamplePath(rng *rand.Rand) []int {
	path := make([]int, c.NumStages())
	path[0] = c.SampleInitial(rng)
	for t := 1; t < len(path); t++ {
		path[t] = c.SampleNext(rng, t-1, path[t-1])
	}

	return path
}

// drawIndex samples from a discrete distribution by inverse transform;
// the final index absorbs residual rounding mass.
func drawIndex(rng *rand.Rand, dist []float64) int {
	u := rng.Float64()
	acc := 0.0
	for i, p := range dist {
		acc += p
		if u < acc {
			return i
		}
	}

	return len(dist) - 1
}

// Augment returns a chain whose state vectors are the base vectors with
// fn(t, base) appended. Derived dimensions are computed in closed form
// from the discretized base states, so their correlation with the base
// process is exact and no re-discretization happens. Transition matrices
// and the initial distribution are shared with the receiver.
func (c *Chain) Augment(fn func(t int, base []float64) []float64) *Chain {
	out := &Chain{
		States:  make([][][]float64, len(c.States)),
		P:       c.P,
		Initial: c.Initial,
	}
	for t, st := range c.States {
		out.States[t] = make([][]float64, len(st))
		for i, v := range st {
			derived := fn(t, v)
			merged := make([]float64, 0, len(v)+len(derived))
			merged = append(merged, v...)
			merged = append(merged, derived...)
			out.States[t][i] = merged
		}
	}

	return out
}

// Deterministic builds a single-state chain visiting the given vector at
// every stage with probability 1. Handy for deterministic subproblems
// and as the degenerate end of discretization.
func Deterministic(stages int, vector []float64) *Chain {
	c := &Chain{
		States:  make([][][]float64, stages),
		P:       make([][][]float64, stages-1),
		Initial: []float64{1},
	}
	for t := 0; t < stages; t++ {
		c.States[t] = [][]float64{append([]float64(nil), vector...)}
		if t+1 < stages {
			c.P[t] = [][]float64{{1}}
		}
	}

	return c
}
