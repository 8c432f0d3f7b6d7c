package markov

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrBadOption indicates nonsensical discretization parameters.
var ErrBadOption = errors.New("markov: invalid discretization option")

// Warning records a non-fatal numerical event during discretization.
// Warnings never abort the run; callers that care inspect the returned
// slice.
type Warning struct {
	// Stage is the stage at which the event occurred.
	Stage int

	// Requested and Got report a state-count collapse: degenerate
	// clustering produced fewer representative states than asked for.
	Requested int
	Got       int
}

func (w Warning) String() string {
	return fmt.Sprintf("markov: stage %d collapsed to %d of %d requested states", w.Stage, w.Got, w.Requested)
}

// DiscretizeOptions configures Discretize.
//
// Fields:
//   - Stages         — number of stages to discretize (≥ 1).
//   - StatesPerStage — target number of representative states (≥ 1).
//   - SamplePaths    — number of independent trajectories drawn from the
//     generator; more paths mean better transition estimates.
//   - MaxIterations  — cap on Lloyd fixed-point rounds per stage.
//   - CentroidTol    — stop once no centroid moved more than this.
//   - Seed           — root seed; fixes the result completely.
type DiscretizeOptions struct {
	Stages         int
	StatesPerStage int
	SamplePaths    int
	MaxIterations  int
	CentroidTol    float64
	Seed           int64
}

// DefaultDiscretizeOptions returns the documented defaults for the given
// stage and state counts: 1000 sample paths, 50 Lloyd rounds, 1e-8
// centroid tolerance, seed 1.
func DefaultDiscretizeOptions(stages, statesPerStage int) DiscretizeOptions {
	return DiscretizeOptions{
		Stages:         stages,
		StatesPerStage: statesPerStage,
		SamplePaths:    1000,
		MaxIterations:  50,
		CentroidTol:    1e-8,
		Seed:           1,
	}
}

func (o DiscretizeOptions) validate() error {
	switch {
	case o.Stages < 1:
		return fmt.Errorf("Stages %d: %w", o.Stages, ErrBadOption)
	case o.StatesPerStage < 1:
		return fmt.Errorf("StatesPerStage %d: %w", o.StatesPerStage, ErrBadOption)
	case o.SamplePaths < 1:
		return fmt.Errorf("SamplePaths %d: %w", o.SamplePaths, ErrBadOption)
	case o.MaxIterations < 1:
		return fmt.Errorf("MaxIterations %d: %w", o.MaxIterations, ErrBadOption)
	case o.CentroidTol <= 0 || math.IsNaN(o.CentroidTol):
		return fmt.Errorf("CentroidTol %g: %w", o.CentroidTol, ErrBadOption)
	}

	return nil
}

// Discretize — sample-average approximation of a continuous process.
//
// Algorithm Outline:
//  1. Draw SamplePaths independent trajectories of length Stages from
//     the generator (sequentially, so the Seed fixes every draw).
//  2. Per stage, quantize the sampled vectors into at most
//     StatesPerStage clusters by Lloyd fixed-point iteration:
//     - initial centroids sit at evenly spaced quantiles of the samples
//     ordered by first component (deterministic seeding);
//     - each sample joins its nearest centroid by Euclidean distance,
//     ties broken toward the lowest cluster index;
//     - centroids move to the mean of their members until no centroid
//     shifts more than CentroidTol or MaxIterations is reached;
//     - clusters that end up empty are dropped, recorded as a Warning.
//  3. Estimate P[t][i][j] as the empirical frequency of paths moving
//     from cluster i at stage t to cluster j at stage t+1, and the
//     initial distribution from stage-0 memberships.
//
// Every transition row is normalized by its own count total, so rows sum
// to 1 up to floating-point rounding (well within RowSumTol). A
// zero-variance generator collapses to one state per stage with
// transition probability 1.
//
// Complexity: O(Stages · SamplePaths · StatesPerStage · MaxIterations)
// distance evaluations.
func Discretize(s Sampler, opts DiscretizeOptions) (*Chain, []Warning, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	if s == nil || s.Dim() == 0 {
		return nil, nil, fmt.Errorf("nil or zero-dimensional sampler: %w", ErrBadOption)
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	// Stage 1: simulate.
	paths := make([][][]float64, opts.SamplePaths)
	for p := range paths {
		paths[p] = make([][]float64, opts.Stages)
		var prev []float64
		for t := 0; t < opts.Stages; t++ {
			paths[p][t] = s.Sample(rng, t, prev)
			prev = paths[p][t]
		}
	}

	// Stage 2: quantize each stage.
	chain := &Chain{
		States:  make([][][]float64, opts.Stages),
		P:       make([][][]float64, opts.Stages-1),
		Initial: nil,
	}
	var warnings []Warning
	member := make([][]int, opts.Stages) // member[t][p] = cluster of path p
	for t := 0; t < opts.Stages; t++ {
		samples := make([][]float64, opts.SamplePaths)
		for p := range paths {
			samples[p] = paths[p][t]
		}
		centroids, assign := lloyd(samples, opts.StatesPerStage, opts.MaxIterations, opts.CentroidTol)
		if len(centroids) < opts.StatesPerStage {
			warnings = append(warnings, Warning{Stage: t, Requested: opts.StatesPerStage, Got: len(centroids)})
		}
		chain.States[t] = centroids
		member[t] = assign
	}

	// Stage 3: empirical transitions and initial distribution.
	chain.Initial = make([]float64, len(chain.States[0]))
	for _, i := range member[0] {
		chain.Initial[i]++
	}
	for i := range chain.Initial {
		chain.Initial[i] /= float64(opts.SamplePaths)
	}
	for t := 0; t+1 < opts.Stages; t++ {
		ni, nj := len(chain.States[t]), len(chain.States[t+1])
		counts := make([][]float64, ni)
		totals := make([]float64, ni)
		for i := range counts {
			counts[i] = make([]float64, nj)
		}
		for p := 0; p < opts.SamplePaths; p++ {
			i, j := member[t][p], member[t+1][p]
			counts[i][j]++
			totals[i]++
		}
		for i := range counts {
			if totals[i] == 0 {
				// Unvisited state: fall back to a uniform row.
				for j := range counts[i] {
					counts[i][j] = 1 / float64(nj)
				}

				continue
			}
			for j := range counts[i] {
				counts[i][j] /= totals[i]
			}
		}
		chain.P[t] = counts
	}

	if err := chain.Validate(); err != nil {
		return nil, warnings, err
	}

	return chain, warnings, nil
}

// lloyd clusters samples into at most k non-empty clusters and returns
// the centroids plus each sample's cluster index.
func lloyd(samples [][]float64, k, maxIter int, tol float64) ([][]float64, []int) {
	n := len(samples)
	if k > n {
		k = n
	}
	dim := len(samples[0])

	// Deterministic seeding: order samples by first component and place
	// centroids at evenly spaced quantiles.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return samples[order[a]][0] < samples[order[b]][0]
	})
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		pos := 0
		if k > 1 {
			pos = c * (n - 1) / (k - 1)
		}
		centroids[c] = append([]float64(nil), samples[order[pos]]...)
	}

	assign := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		// Assignment step: nearest centroid, lowest index wins ties.
		for p, v := range samples {
			best, bestD := 0, math.Inf(1)
			for c, ctr := range centroids {
				d := sqDist(v, ctr)
				if d < bestD {
					best, bestD = c, d
				}
			}
			assign[p] = best
		}

		// Update step: weighted centroid of members.
		sums := make([][]float64, len(centroids))
		counts := make([]float64, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for p, c := range assign {
			for d := 0; d < dim; d++ {
				sums[c][d] += samples[p][d]
			}
			counts[c]++
		}
		shift := 0.0
		for c := range centroids {
			if counts[c] == 0 {
				continue // handled by compaction below
			}
			for d := 0; d < dim; d++ {
				mean := sums[c][d] / counts[c]
				shift = math.Max(shift, math.Abs(mean-centroids[c][d]))
				centroids[c][d] = mean
			}
		}

		// Compaction: drop empty clusters and re-index assignments.
		if hasEmpty(counts) {
			remap := make([]int, len(centroids))
			kept := centroids[:0]
			for c := range centroids {
				if counts[c] == 0 {
					remap[c] = -1

					continue
				}
				remap[c] = len(kept)
				kept = append(kept, centroids[c])
			}
			centroids = kept
			for p := range assign {
				assign[p] = remap[assign[p]]
			}
		}

		if shift <= tol {
			break
		}
	}

	// Final assignment against the settled centroids.
	for p, v := range samples {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			d := sqDist(v, ctr)
			if d < bestD {
				best, bestD = c, d
			}
		}
		assign[p] = best
	}

	return centroids, assign
}

func hasEmpty(counts []float64) bool {
	for _, c := range counts {
		if c == 0 {
			return true
		}
	}

	return false
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}

	return s
}
