package sddp

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/katalvlaran/sddp/lp"
	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/stage"
)

// EvalOptions configures Evaluate.
//
// Fields:
//   - Simulations — number of independent out-of-sample trajectories.
//   - QueryT      — simulated horizon in stages. Finite policies default
//     to (and cannot exceed) their own horizon; periodical policies may
//     roll any horizon (default four periods).
//   - Seed        — root seed; per-simulation sub-streams derive from it.
//   - Confidence  — z multiplier for the interval; 0 means 1.96.
//   - Workers     — parallel simulations; 0 means GOMAXPROCS.
//   - Solver      — LP backend; nil means lp.NewSimplex().
//   - Process     — optional continuous generator to simulate under the
//     exact underlying process instead of the discretized chain (the
//     gap between the two quantifies the approximation error). Cut
//     lookup then uses the nearest discretized state.
//   - Realize     — realization mapping, as in Options; nil is identity.
//   - ThetaBound  — same pessimistic θ bound the engine used.
//   - Wrap        — period-closing transition rows for periodical
//     policies; nil reuses the chain's stage-0 matrix.
type EvalOptions struct {
	Simulations int
	QueryT      int
	Seed        int64
	Confidence  float64
	Workers     int
	Solver      lp.Solver
	Process     markov.Sampler
	Realize     func(t int, state []float64) []float64
	ThetaBound  float64
	Wrap        [][]float64
}

// DefaultEvalOptions returns the documented defaults: 100 simulations,
// 95% intervals, seed 1.
func DefaultEvalOptions() EvalOptions {
	return EvalOptions{Simulations: 100, Confidence: 1.96, Seed: 1}
}

// EvalResult reports the Monte Carlo estimate of a policy's total
// discounted cost (or value): sample mean and confidence interval, plus
// the raw per-simulation samples for callers that want more statistics.
type EvalResult struct {
	Mean    float64
	Lo      float64
	Hi      float64
	Samples []float64
}

// evaluator bundles the resolved simulation setup.
type evaluator struct {
	policy  *Policy
	stages  []*stage.Compiled
	chain   *markov.Chain
	wrap    [][]float64
	initial []float64
	opts    EvalOptions
}

// Evaluate simulates a finalized Policy over independent out-of-sample
// trajectories, applying the cut-based decision rule at every stage —
// solve the stage LP under the current cuts, take its decisions, advance
// the state — and never adding new cuts. It reports mean ± z·stderr of
// the total discounted cost/value.
func Evaluate(policy *Policy, stages []*stage.Compiled, chain *markov.Chain, initial []float64, opts EvalOptions) (*EvalResult, error) {
	if policy == nil {
		return nil, fmt.Errorf("nil policy: %w", ErrBadOption)
	}
	if opts.Realize == nil {
		opts.Realize = func(_ int, state []float64) []float64 { return state }
	}
	if err := validateAssembly(stages, chain, initial, opts.Realize); err != nil {
		return nil, err
	}
	if opts.Simulations < 1 {
		return nil, fmt.Errorf("Simulations %d: %w", opts.Simulations, ErrBadOption)
	}
	if opts.Solver == nil {
		opts.Solver = lp.NewSimplex()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Confidence <= 0 {
		opts.Confidence = 1.96
	}
	if policy.Period == 0 {
		if opts.QueryT == 0 {
			opts.QueryT = len(stages)
		}
		if opts.QueryT > len(stages) {
			return nil, fmt.Errorf("QueryT %d beyond finite horizon %d: %w", opts.QueryT, len(stages), ErrBadOption)
		}
	} else {
		if opts.QueryT == 0 {
			opts.QueryT = 4*policy.Period + 1
		}
	}

	ev := &evaluator{
		policy:  policy,
		stages:  stages,
		chain:   chain,
		initial: append([]float64(nil), initial...),
		opts:    opts,
	}
	if policy.Period > 0 {
		ev.wrap = opts.Wrap
		if ev.wrap == nil {
			ev.wrap = chain.P[0]
		}
	}

	samples := make([]float64, opts.Simulations)
	errs := make([]error, opts.Simulations)
	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.Workers)
	for s := 0; s < opts.Simulations; s++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(s int) {
			defer wg.Done()
			defer func() { <-sem }()
			rng := rand.New(rand.NewSource(subSeed(opts.Seed, int64(s))))
			samples[s], errs[s] = ev.simulate(rng)
		}(s)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	mean, stderr := meanStderr(samples)

	return &EvalResult{
		Mean:    mean,
		Lo:      mean - opts.Confidence*stderr,
		Hi:      mean + opts.Confidence*stderr,
		Samples: samples,
	}, nil
}

// tpl maps a rolled stage to its template index.
func (ev *evaluator) tpl(t int) int {
	if ev.policy.Period == 0 || t == 0 {
		return t
	}

	return (t-1)%ev.policy.Period + 1
}

// simulate rolls one trajectory and returns its discounted total.
func (ev *evaluator) simulate(rng *rand.Rand) (float64, error) {
	incoming := ev.initial
	total := 0.0
	idx := 0
	var prevVec []float64
	for t := 0; t < ev.opts.QueryT; t++ {
		s := ev.tpl(t)

		// Realized uncertainty: discretized chain or exact process.
		var vec []float64
		if ev.opts.Process != nil {
			vec = ev.opts.Process.Sample(rng, s, prevVec)
			prevVec = vec
			idx = nearestState(ev.chain.States[s], vec)
		} else {
			idx = ev.nextIndex(rng, t, idx)
			vec = ev.chain.States[s][idx]
		}

		out, err := ev.solveOne(t, s, idx, vec, incoming)
		if err != nil {
			return 0, err
		}
		total += ev.discount(t) * out.immediate
		incoming = out.outgoing
	}

	return total, nil
}

// nextIndex samples the Markov index for rolled stage t given the index
// at t-1.
func (ev *evaluator) nextIndex(rng *rand.Rand, t, prev int) int {
	if t == 0 {
		return ev.chain.SampleInitial(rng)
	}
	if ev.policy.Period > 0 && ev.tpl(t-1) == ev.policy.Period {
		return drawFromRow(rng, ev.wrap[prev])
	}

	return drawFromRow(rng, ev.chain.P[ev.tpl(t-1)][prev])
}

// solveOne applies the decision rule at one stage. The cut sets come
// from the immutable Policy; nothing is added.
func (ev *evaluator) solveOne(t, s, i int, vec, incoming []float64) (*solveOutput, error) {
	in := solveInput{
		tmpl:        ev.stages[s],
		realization: ev.opts.Realize(s, vec),
		incoming:    incoming,
		thetaBound:  ev.opts.ThetaBound,
	}
	switch {
	case ev.policy.Period > 0:
		key := s
		if s == ev.policy.Period {
			key = 0
		}
		in.cuts = ev.policy.CutsAt(key, i)
		in.thetaCoeff = 1.0
		if s == ev.policy.Period {
			in.thetaCoeff = ev.policy.Discount
		}
	case t < len(ev.stages)-1:
		in.cuts = ev.policy.CutsAt(t, i)
		in.thetaCoeff = ev.policy.Discount
	}
	out, err := solveStage(ev.opts.Solver, in)
	if err != nil {
		return nil, wrapSolve(0, s, err)
	}

	return out, nil
}

// discount weights rolled stage t's immediate cost: γ^period for
// periodical policies, d^t for finite ones.
func (ev *evaluator) discount(t int) float64 {
	if ev.policy.Period > 0 {
		if t == 0 {
			return 1
		}

		return math.Pow(ev.policy.Discount, float64((t-1)/ev.policy.Period))
	}

	return math.Pow(ev.policy.Discount, float64(t))
}

// nearestState maps a continuous realization to the closest
// representative state (Euclidean distance over the shared leading
// dimensions, lowest index on ties).
func nearestState(states [][]float64, v []float64) int {
	best, bestD := 0, math.Inf(1)
	for i, s := range states {
		n := len(s)
		if len(v) < n {
			n = len(v)
		}
		d := 0.0
		for k := 0; k < n; k++ {
			dk := s[k] - v[k]
			d += dk * dk
		}
		if d < bestD {
			best, bestD = i, d
		}
	}

	return best
}
