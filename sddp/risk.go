package sddp

import (
	"math"
	"sort"

	"github.com/katalvlaran/sddp/lp"
)

// adjustedProbs returns the probabilities used to aggregate successor
// outcomes into a cut under the risk measure
//
//	λ·E[·] + (1-λ)·AVaR_α[·].
//
// λ = 1 is the risk-neutral expectation and returns probs unchanged.
// Otherwise the AVaR part re-weights the worst (1-α) probability tail —
// highest costs when minimizing, lowest values when maximizing — each
// outcome contributing at most probs[j]/(1-α), following the dual
// representation of AVaR. Only the aggregation weights change; the
// backward-pass control flow is untouched.
func adjustedProbs(probs, values []float64, sense lp.Sense, lambda, alpha float64) []float64 {
	if lambda >= 1 {
		return probs
	}

	n := len(probs)
	order := make([]int, n)
	for j := range order {
		order[j] = j
	}
	// Worst outcomes first; stable so equal values keep successor order.
	sort.SliceStable(order, func(a, b int) bool {
		if sense == lp.Minimize {
			return values[order[a]] > values[order[b]]
		}

		return values[order[a]] < values[order[b]]
	})

	q := make([]float64, n)
	remaining := 1.0
	capFactor := 1 / (1 - alpha)
	for _, j := range order {
		take := math.Min(remaining, probs[j]*capFactor)
		q[j] = take
		remaining -= take
		if remaining <= 1e-15 {
			break
		}
	}

	out := make([]float64, n)
	for j := range out {
		out[j] = lambda*probs[j] + (1-lambda)*q[j]
	}

	return out
}
