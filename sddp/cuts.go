package sddp

import (
	"sync"

	"github.com/katalvlaran/sddp/lp"
)

// Cut is one affine bound θ ≥ Intercept + Slope·x (minimization; the
// inequality flips for maximization) on a stage's cost-to-go function.
// A cut is valid by LP duality at the point it was generated: the
// aggregated successor objective equals the cut value there.
type Cut struct {
	Intercept float64
	Slope     []float64
}

// value evaluates the cut at x.
func (c Cut) value(x []float64) float64 {
	v := c.Intercept
	for k, s := range c.Slope {
		v += s * x[k]
	}

	return v
}

// CutPool holds the piecewise-linear cost-to-go approximations, one cut
// list per (stage, markov state). Cuts only ever accumulate — nothing is
// removed — so the approximation refines monotonically across
// iterations.
//
// Concurrency: Add is the single mutation point and takes the write
// lock; readers (the parallel successor solves of the backward pass,
// which only look at later stages) take the read lock through CutsAt.
type CutPool struct {
	mu    sync.RWMutex
	sense lp.Sense
	cuts  [][][]Cut // [stage][markov state][]
}

// NewCutPool allocates an empty pool for the given per-stage state
// counts.
func NewCutPool(sense lp.Sense, statesPerStage []int) *CutPool {
	cp := &CutPool{sense: sense, cuts: make([][][]Cut, len(statesPerStage))}
	for t, n := range statesPerStage {
		cp.cuts[t] = make([][]Cut, n)
	}

	return cp
}

// Add inserts one cut for (stage, markov state).
func (cp *CutPool) Add(stage, state int, c Cut) {
	cp.mu.Lock()
	cp.cuts[stage][state] = append(cp.cuts[stage][state], c)
	cp.mu.Unlock()
}

// CutsAt returns a snapshot of the cut list for (stage, markov state).
// The returned slice is safe to read after further Adds.
func (cp *CutPool) CutsAt(stage, state int) []Cut {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	return cp.cuts[stage][state][:len(cp.cuts[stage][state]):len(cp.cuts[stage][state])]
}

// Len returns the number of cuts stored for (stage, markov state).
func (cp *CutPool) Len(stage, state int) int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	return len(cp.cuts[stage][state])
}

// Evaluate returns the pool's cost-to-go estimate at x: the max over
// cuts for minimization (lower-bounding cuts), the min for maximization
// (upper-bounding cuts). With no cuts it returns -Inf / +Inf
// respectively, meaning "unbounded from the approximation's side".
func (cp *CutPool) Evaluate(stage, state int, x []float64) float64 {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	best := 0.0
	for n, c := range cp.cuts[stage][state] {
		v := c.value(x)
		switch {
		case n == 0:
			best = v
		case cp.sense == lp.Minimize && v > best:
			best = v
		case cp.sense == lp.Maximize && v < best:
			best = v
		}
	}
	if len(cp.cuts[stage][state]) == 0 {
		if cp.sense == lp.Minimize {
			return negInf
		}

		return posInf
	}

	return best
}

// snapshot deep-copies the pool's cut lists.
func (cp *CutPool) snapshot() [][][]Cut {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	out := make([][][]Cut, len(cp.cuts))
	for t := range cp.cuts {
		out[t] = make([][]Cut, len(cp.cuts[t]))
		for i := range cp.cuts[t] {
			out[t][i] = append([]Cut(nil), cp.cuts[t][i]...)
		}
	}

	return out
}

// Policy is the immutable cut collection produced by a finished solve,
// consumed by the Evaluator. Period and Discount carry the periodical
// structure when the policy came from a PeriodicalEngine (Period == 0
// means finite horizon).
type Policy struct {
	Sense    lp.Sense
	Cuts     [][][]Cut
	Period   int
	Discount float64
}

// CutsAt returns the cut list for (stage, markov state).
func (p *Policy) CutsAt(stage, state int) []Cut { return p.Cuts[stage][state] }
