package markov

import (
	"math"
	"math/rand"
)

// Sampler generates realizations of a continuous (possibly Markovian)
// stochastic process, one stage at a time.
//
// Sample must return a fresh vector of length Dim for stage t, given the
// previous stage's realization (nil at t == 0). Implementations hold
// immutable parameters only; all randomness comes from rng, so a sampler
// value may be shared across goroutines that each own their own rng.
type Sampler interface {
	Dim() int
	Sample(rng *rand.Rand, t int, prev []float64) []float64
}

// LogWalk is a geometric random walk: each component evolves as
//
//	x_t[j] = x_{t-1}[j] · exp(Alpha[j] + Sigma[j]·Z),   Z ~ N(0,1),
//
// with one shared Gaussian shock per stage (a single market factor) and
// x_0 = Start. Per-asset parameters live in plain exported fields
// instead of captured closures, so two LogWalks with equal fields are
// the same process.
type LogWalk struct {
	Alpha []float64
	Sigma []float64
	Start []float64
}

// Dim returns the number of components.
func (w LogWalk) Dim() int { return len(w.Alpha) }

// Sample implements Sampler. Stage 0 returns Start deterministically.
func (w LogWalk) Sample(rng *rand.Rand, t int, prev []float64) []float64 {
	out := make([]float64, len(w.Alpha))
	if t == 0 {
		copy(out, w.Start)

		return out
	}
	z := rng.NormFloat64()
	for j := range out {
		out[j] = prev[j] * math.Exp(w.Alpha[j]+w.Sigma[j]*z)
	}

	return out
}

// GaussianWalk is an additive random walk with independent component
// shocks: x_t[j] = x_{t-1}[j] + Mu[j] + Sigma[j]·Z_j, x_0 = Start.
type GaussianWalk struct {
	Mu    []float64
	Sigma []float64
	Start []float64
}

// Dim returns the number of components.
func (w GaussianWalk) Dim() int { return len(w.Mu) }

// Sample implements Sampler. Stage 0 returns Start deterministically.
func (w GaussianWalk) Sample(rng *rand.Rand, t int, prev []float64) []float64 {
	out := make([]float64, len(w.Mu))
	if t == 0 {
		copy(out, w.Start)

		return out
	}
	for j := range out {
		out[j] = prev[j] + w.Mu[j] + w.Sigma[j]*rng.NormFloat64()
	}

	return out
}

// IID samples every stage independently of the past:
// x_t[j] = Mu[j] + Sigma[j]·Z_j. Stage 0 included.
type IID struct {
	Mu    []float64
	Sigma []float64
}

// Dim returns the number of components.
func (s IID) Dim() int { return len(s.Mu) }

// Sample implements Sampler; prev is ignored.
func (s IID) Sample(rng *rand.Rand, _ int, _ []float64) []float64 {
	out := make([]float64, len(s.Mu))
	for j := range out {
		out[j] = s.Mu[j] + s.Sigma[j]*rng.NormFloat64()
	}

	return out
}
