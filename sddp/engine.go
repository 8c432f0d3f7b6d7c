package sddp

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/katalvlaran/sddp/lp"
	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/stage"
)

// Options configures an Engine.
//
// Fields:
//   - MaxIterations — iteration budget (≥ 1).
//   - GapTol        — stop once |statistical estimate − bound| relative
//     to the estimate falls below this; 0 disables.
//   - TimeLimit     — wall-clock budget; 0 disables.
//   - StallIterations/StallTol — declare convergence after this many
//     consecutive iterations whose bound moved less than StallTol;
//     StallIterations 0 disables.
//   - Seed          — root seed; per-iteration sub-streams are derived
//     from it, so a fixed seed reproduces trajectories and cuts exactly.
//   - ThetaBound    — finite pessimistic bound on every cost-to-go
//     variable before the first cut exists (a lower bound when
//     minimizing, an upper bound when maximizing).
//   - Discount      — per-stage discount factor in (0, 1]; default 1.
//   - RiskLambda/RiskAlpha — backward-pass aggregation uses
//     λ·E + (1−λ)·AVaR_α; λ = 1 (default) is risk neutral.
//   - FullBackwardPass — cut every Markov state at each visited stage
//     instead of only the sampled one.
//   - Workers       — parallel LP solves in the backward pass and the
//     evaluator; 0 means GOMAXPROCS.
//   - Solver        — LP backend; nil means lp.NewSimplex().
//   - Logger        — optional per-iteration callback.
//   - Realize       — maps a Markov state vector to a stage's
//     realization vector; nil means identity.
//   - Confidence    — z multiplier for reported intervals; 0 means 1.96.
type Options struct {
	MaxIterations    int
	GapTol           float64
	TimeLimit        time.Duration
	StallIterations  int
	StallTol         float64
	Seed             int64
	ThetaBound       float64
	Discount         float64
	RiskLambda       float64
	RiskAlpha        float64
	FullBackwardPass bool
	Workers          int
	Solver           lp.Solver
	Logger           func(IterationRecord)
	Realize          func(t int, state []float64) []float64
	Confidence       float64
}

// DefaultOptions returns the documented defaults: 30 iterations,
// risk-neutral aggregation, no discounting, automatic worker count, the
// built-in simplex.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 30,
		StallTol:      1e-9,
		Seed:          1,
		Discount:      1,
		RiskLambda:    1,
		Confidence:    1.96,
	}
}

func (o *Options) normalize() error {
	switch {
	case o.MaxIterations < 1:
		return fmt.Errorf("MaxIterations %d: %w", o.MaxIterations, ErrBadOption)
	case math.IsInf(o.ThetaBound, 0) || math.IsNaN(o.ThetaBound):
		return fmt.Errorf("ThetaBound must be finite: %w", ErrBadOption)
	case o.Discount <= 0 || o.Discount > 1:
		return fmt.Errorf("Discount %g: %w", o.Discount, ErrBadOption)
	case o.RiskLambda < 0 || o.RiskLambda > 1:
		return fmt.Errorf("RiskLambda %g: %w", o.RiskLambda, ErrBadOption)
	case o.RiskAlpha < 0 || o.RiskAlpha >= 1:
		return fmt.Errorf("RiskAlpha %g: %w", o.RiskAlpha, ErrBadOption)
	case o.GapTol < 0 || o.StallTol < 0:
		return fmt.Errorf("negative tolerance: %w", ErrBadOption)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Solver == nil {
		o.Solver = lp.NewSimplex()
	}
	if o.Realize == nil {
		o.Realize = func(_ int, state []float64) []float64 { return state }
	}
	if o.Confidence <= 0 {
		o.Confidence = 1.96
	}

	return nil
}

// Engine runs finite-horizon SDDP: forward simulation to collect trial
// points, backward cut generation, bound tracking, stopping rules.
// The engine owns its CutPool; templates and chain are read-only.
type Engine struct {
	stages  []*stage.Compiled
	chain   *markov.Chain
	initial []float64
	opts    Options
	pool    *CutPool
}

// New validates the problem assembly and returns a ready engine.
// The stage list, chain and options are checked here so that nothing
// mis-declared survives to solving time.
func New(stages []*stage.Compiled, chain *markov.Chain, initial []float64, opts Options) (*Engine, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if err := validateAssembly(stages, chain, initial, opts.Realize); err != nil {
		return nil, err
	}

	counts := make([]int, len(stages))
	for t := range counts {
		counts[t] = chain.NumStates(t)
	}

	return &Engine{
		stages:  stages,
		chain:   chain,
		initial: append([]float64(nil), initial...),
		opts:    opts,
		pool:    NewCutPool(stages[0].Sense, counts),
	}, nil
}

// validateAssembly is shared by the finite and periodical constructors.
func validateAssembly(stages []*stage.Compiled, chain *markov.Chain, initial []float64, realize func(int, []float64) []float64) error {
	if len(stages) == 0 {
		return ErrNoStages
	}
	if err := chain.Validate(); err != nil {
		return err
	}
	if chain.NumStages() != len(stages) {
		return fmt.Errorf("%d chain stages for %d templates: %w", chain.NumStages(), len(stages), ErrStageCount)
	}
	dim := stages[0].StateDim()
	sense := stages[0].Sense
	for t, tmpl := range stages {
		if tmpl.StateDim() != dim {
			return fmt.Errorf("stage %d has %d state variables, stage 0 has %d: %w", t, tmpl.StateDim(), dim, ErrStateDim)
		}
		if tmpl.Sense != sense {
			return fmt.Errorf("stage %d: %w", t, ErrSenseMismatch)
		}
		got := len(realize(t, chain.States[t][0]))
		if got != tmpl.NumLocations() {
			return fmt.Errorf("stage %d: realization has %d values for %d locations: %w",
				t, got, tmpl.NumLocations(), ErrRealizationDim)
		}
	}
	if len(initial) != dim {
		return fmt.Errorf("initial state has %d of %d components: %w", len(initial), dim, ErrStateDim)
	}

	return nil
}

// Pool exposes the engine's cut pool (read-only use intended).
func (e *Engine) Pool() *CutPool { return e.pool }

// trajectory is one forward pass: Markov indices, outgoing states and
// the discounted cost sample.
type trajectory struct {
	idx  []int
	x    [][]float64
	cost float64
}

// Solve iterates forward/backward passes until a stopping rule fires.
// It returns the finalized Policy with bound statistics, or the first
// stage failure as a *SolveError.
func (e *Engine) Solve() (*Result, error) {
	start := time.Now()
	res := &Result{StopReason: MaxIterationsReached}
	values := make([]float64, 0, e.opts.MaxIterations)
	prevBound := math.NaN()
	stall := 0

	for iter := 1; iter <= e.opts.MaxIterations; iter++ {
		rng := rand.New(rand.NewSource(subSeed(e.opts.Seed, int64(iter))))

		traj, err := e.forward(rng, iter)
		if err != nil {
			return nil, err
		}
		values = append(values, traj.cost)

		if err = e.backward(iter, traj); err != nil {
			return nil, err
		}

		bound, err := e.rootBound(iter)
		if err != nil {
			return nil, err
		}

		rec := IterationRecord{Iteration: iter, Bound: bound, Value: traj.cost, Time: time.Since(start)}
		res.Log = append(res.Log, rec)
		if e.opts.Logger != nil {
			e.opts.Logger(rec)
		}
		res.Bound = bound

		mean, _ := meanStderr(values)
		if e.opts.GapTol > 0 && relGap(mean, bound) <= e.opts.GapTol {
			res.StopReason = GapTolMet

			break
		}
		if e.opts.StallIterations > 0 {
			if !math.IsNaN(prevBound) && math.Abs(bound-prevBound) <= e.opts.StallTol {
				stall++
			} else {
				stall = 0
			}
			if stall >= e.opts.StallIterations {
				res.StopReason = Converged

				break
			}
		}
		prevBound = bound
		if e.opts.TimeLimit > 0 && time.Since(start) > e.opts.TimeLimit {
			res.StopReason = TimeLimitReached

			break
		}
	}

	mean, stderr := meanStderr(values)
	res.Value = mean
	res.ValueLo = mean - e.opts.Confidence*stderr
	res.ValueHi = mean + e.opts.Confidence*stderr
	res.Elapsed = time.Since(start)
	res.Policy = &Policy{
		Sense:    e.stages[0].Sense,
		Cuts:     e.pool.snapshot(),
		Discount: e.opts.Discount,
	}

	return res, nil
}

// forward samples one Markov trajectory and solves the stages in order,
// threading each stage's outgoing state into the next stage's fixing
// rows.
func (e *Engine) forward(rng *rand.Rand, iter int) (*trajectory, error) {
	T := len(e.stages)
	traj := &trajectory{idx: make([]int, T), x: make([][]float64, T)}
	incoming := e.initial
	disc := 1.0
	for t := 0; t < T; t++ {
		if t == 0 {
			traj.idx[t] = e.chain.SampleInitial(rng)
		} else {
			traj.idx[t] = e.chain.SampleNext(rng, t-1, traj.idx[t-1])
		}
		out, err := e.solveOne(iter, t, traj.idx[t], incoming)
		if err != nil {
			return nil, err
		}
		traj.cost += disc * out.immediate
		traj.x[t] = out.outgoing
		incoming = out.outgoing
		disc *= e.opts.Discount
	}

	return traj, nil
}

// solveOne solves stage t in Markov state i with the given incoming
// state, wiring in the current cut approximation for the future stage.
func (e *Engine) solveOne(iter, t, i int, incoming []float64) (*solveOutput, error) {
	in := solveInput{
		tmpl:        e.stages[t],
		realization: e.opts.Realize(t, e.chain.States[t][i]),
		incoming:    incoming,
		thetaBound:  e.opts.ThetaBound,
	}
	if t < len(e.stages)-1 {
		in.cuts = e.pool.CutsAt(t, i)
		in.thetaCoeff = e.opts.Discount
	}
	out, err := solveStage(e.opts.Solver, in)
	if err != nil {
		return nil, wrapSolve(iter, t, err)
	}

	return out, nil
}

// backward walks the sampled trajectory from the last stage down,
// solving every successor Markov state at stage t against the stage-t-1
// trial point and folding the dual information into one new cut per
// targeted (stage t-1, Markov state).
func (e *Engine) backward(iter int, traj *trajectory) error {
	T := len(e.stages)
	for t := T - 1; t >= 1; t-- {
		trial := traj.x[t-1]
		outs, err := parallelSolve(e.opts.Workers, e.chain.NumStates(t), func(j int) (*solveOutput, error) {
			return e.solveOne(iter, t, j, trial)
		})
		if err != nil {
			return err
		}

		targets := []int{traj.idx[t-1]}
		if e.opts.FullBackwardPass {
			targets = targets[:0]
			for i := 0; i < e.chain.NumStates(t-1); i++ {
				targets = append(targets, i)
			}
		}
		for _, i := range targets {
			e.pool.Add(t-1, i, aggregateCut(e.chain.P[t-1][i], outs, trial, e.stages[0].Sense, e.opts.RiskLambda, e.opts.RiskAlpha))
		}
	}

	return nil
}

// parallelSolve fans n independent stage solves out over a bounded
// worker pool. The solves share only read-only state (templates, the
// cut pools of later stages); results land in distinct slots and the
// first error wins.
func parallelSolve(workers, n int, solve func(j int) (*solveOutput, error)) ([]*solveOutput, error) {
	outs := make([]*solveOutput, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for j := 0; j < n; j++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(j int) {
			defer wg.Done()
			defer func() { <-sem }()
			outs[j], errs[j] = solve(j)
		}(j)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return outs, nil
}

// aggregateCut folds successor objectives and duals into one cut at the
// trial point, weighting by transition (or risk-adjusted) probabilities.
// The cut is tight at the trial point by construction.
func aggregateCut(probs []float64, outs []*solveOutput, trial []float64, sense lp.Sense, lambda, alpha float64) Cut {
	vals := make([]float64, len(outs))
	for j, o := range outs {
		vals[j] = o.objective
	}
	zeta := adjustedProbs(probs, vals, sense, lambda, alpha)

	slope := make([]float64, len(trial))
	intercept := 0.0
	for j, o := range outs {
		if zeta[j] == 0 {
			continue
		}
		intercept += zeta[j] * o.objective
		for k, s := range o.slopes {
			slope[k] += zeta[j] * s
			intercept -= zeta[j] * s * trial[k]
		}
	}

	return Cut{Intercept: intercept, Slope: slope}
}

// rootBound re-solves stage 0 with the refreshed cuts and returns the
// deterministic bound, weighting by the chain's initial distribution.
func (e *Engine) rootBound(iter int) (float64, error) {
	b := 0.0
	for i, p0 := range e.chain.Initial {
		if p0 == 0 {
			continue
		}
		out, err := e.solveOne(iter, 0, i, e.initial)
		if err != nil {
			return 0, err
		}
		b += p0 * out.objective
	}

	return b, nil
}

// wrapSolve attaches iteration/stage context to a solver failure.
func wrapSolve(iter, t int, err error) error {
	status := lp.Optimal
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		status = lp.Infeasible
	case errors.Is(err, lp.ErrUnbounded):
		status = lp.Unbounded
	}

	return &SolveError{Iteration: iter, Stage: t, Status: status, Err: err}
}

// meanStderr returns the sample mean and standard error.
func meanStderr(xs []float64) (mean, stderr float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}

	return mean, math.Sqrt(ss/(n-1)) / math.Sqrt(n)
}

// relGap is |value − bound| relative to the value's magnitude.
func relGap(value, bound float64) float64 {
	return math.Abs(value-bound) / math.Max(1, math.Abs(value))
}

// subSeed derives an independent sub-stream seed from the root seed
// (splitmix64 finalizer), so trajectories and iterations get
// reproducible yet uncorrelated randomness.
func subSeed(root, stream int64) int64 {
	z := uint64(root) + 0x9E3779B97F4A7C15*uint64(stream+1)
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB

	return int64(z ^ (z >> 31))
}
