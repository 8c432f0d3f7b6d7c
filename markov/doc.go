// Package markov represents the uncertainty side of a multistage
// stochastic program: finite Markov chains, continuous sample
// generators, and the discretization bridge between them.
//
// 🚀 What is a discretized process?
//
//	SDDP-style algorithms need a finite description of uncertainty: a
//	small set of representative state vectors per stage plus transition
//	probabilities between adjacent stages. Exogenous chains can be
//	supplied directly (Chain); continuous or Markovian generators
//	(Sampler) are reduced to a Chain by Discretize.
//
// ✨ Key features:
//   - Chain validation: every transition row must sum to 1 within
//     RowSumTol (1e-6), shapes must be consistent — violations are
//     configuration errors raised before any solving starts.
//   - Discretize: sample-average approximation. Draw SamplePaths
//     trajectories from the generator, quantize each stage's samples by
//     Lloyd fixed-point iteration (deterministic quantile seeding,
//     nearest-centroid assignment with lowest-index tie-break), then
//     estimate transition probabilities from empirical frequencies.
//     Degenerate clustering collapses states and reports non-fatal
//     Warnings instead of failing.
//   - Augment: append closed-form derived dimensions (e.g. per-asset
//     exposures that are linear in a market factor) to every state of an
//     existing chain without re-discretizing, preserving exact
//     correlation with the base dimensions.
//   - Samplers are plain parameterized structs with immutable fields —
//     no captured closures, no global state; all randomness flows
//     through the *rand.Rand handed to Sample.
//
// Determinism: Discretize is a pure function of (Sampler, Options); the
// same Seed reproduces the same Chain bit for bit.
package markov
