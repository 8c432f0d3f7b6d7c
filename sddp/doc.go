// Package sddp implements Stochastic Dual Dynamic Programming: the
// forward/backward cutting-plane iteration that approximates the value
// functions of multistage stochastic linear programs, plus a periodical
// (infinite-horizon) variant and an out-of-sample policy evaluator.
//
// 🚀 How it works
//
//	Each iteration runs two passes over the stage templates:
//	  • Forward — sample one Markov trajectory, solve the stages in
//	    order under the current cut approximation, and record the
//	    visited states as trial points plus one sampled total cost.
//	  • Backward — from the last stage down, solve every successor
//	    Markov state against the trial point, weight the resulting
//	    objectives and duals by transition probabilities (optionally
//	    risk-adjusted with an AVaR mix), and add one new cut to the
//	    preceding stage's pool.
//	Cuts only accumulate, so the deterministic bound from the stage-0
//	solve improves monotonically; the forward samples give a
//	statistical estimate from the other side. Solving stops on the
//	iteration budget, the bound/estimate gap, a stalled bound, or the
//	wall clock.
//
// ✨ Key features:
//   - Markov-chain or stagewise-independent uncertainty (a one-state
//     chain), with realization mapping into declared template slots
//   - risk-averse cut aggregation: λ·E + (1−λ)·AVaR_α
//   - PeriodicalEngine: cuts for one base period are reused — scaled by
//     a per-period discount — for arbitrarily long rollouts, solving
//     infinite-horizon periodic problems with a finite cut set
//   - parallel backward-pass and evaluation solves on a bounded worker
//     pool; the single cut insertion per (stage, state) is the only
//     write point
//   - deterministic sub-stream seeding: one root seed reproduces every
//     trajectory and every cut
//
// ⚙️ Usage:
//
//	eng, err := sddp.New(stages, chain, initialState, opts)
//	res, err := eng.Solve()
//	eval, err := sddp.Evaluate(res.Policy, stages, chain, initialState,
//	    sddp.DefaultEvalOptions())
//
// A failed stage LP (infeasible/unbounded) aborts the iteration with a
// *SolveError naming the stage and iteration; no partial Policy is ever
// returned.
package sddp
