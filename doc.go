// Package sddp is a pure-Go toolkit for multistage stochastic linear
// programming: model per-stage LPs, discretize the uncertainty, and
// solve the whole thing with Stochastic Dual Dynamic Programming.
//
// 🚀 What is sddp?
//
//	A modular solver library that brings together:
//		• Stage templates: declarative per-stage LPs with state variables
//		  and uncertainty slots (stage/)
//		• Uncertainty: continuous samplers, SAA discretization into
//		  stagewise Markov chains, derived dimensions (markov/)
//		• The engine: forward/backward SDDP with Benders cuts, risk
//		  aversion (AVaR), parallel backward solves (sddp/)
//		• Infinite horizons: the periodical variant closes a seasonal
//		  cycle with per-period discounting (sddp/)
//		• Policy evaluation: out-of-sample Monte Carlo with confidence
//		  intervals (sddp/)
//		• LP backends: a solver-agnostic adapter interface plus a
//		  built-in two-phase simplex with dual recovery (lp/)
//		• Problem files: YAML-loadable portfolio and hydro-thermal
//		  definitions (probdef/)
//
// ✨ Why choose sddp?
//
//   - Deterministic by default – fixed seeds reproduce trajectories,
//     cuts and bounds exactly
//   - Fail-fast modeling – mis-declared problems error at build time,
//     never mid-solve
//   - Pure Go – no cgo; plug in an external LP solver only if you
//     want one
//   - Both senses – minimize costs or maximize value, bounds and cut
//     inequalities flip consistently
//
// Everything is organized under five subpackages:
//
//	lp/      — dense LP problems, the Solver interface, the simplex
//	stage/   — stage-template builder and compiled instantiation
//	markov/  — chains, samplers, discretization
//	sddp/    — engines (finite + periodical), cuts, evaluator
//	probdef/ — declarative problem definitions (YAML)
//
// Quick sketch of one iteration:
//
//	forward:   x₀ ──LP──> x₁ ──LP──> x₂   (sample one scenario path)
//	backward:  cuts(t=2) ─> cuts(t=1)     (duals at trial points)
//	bound:     stage-0 LP with fresh cuts
//
// See examples/ for complete portfolio and hydro-thermal programs.
//
//	go get github.com/katalvlaran/sddp
package sddp
