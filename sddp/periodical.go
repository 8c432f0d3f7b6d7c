package sddp

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/katalvlaran/sddp/markov"
	"github.com/katalvlaran/sddp/stage"
)

// PeriodicalOptions extends Options for infinite-horizon periodic
// problems.
//
// Discount (inherited) is REQUIRED to lie in (0, 1): it is the per-
// period factor γ applied whenever the rollout crosses from the last
// stage of one period into the first stage of the next.
//
// ForwardStages is the rollout length of each forward pass; values well
// beyond one period (the default is four periods) generate trial points
// deep into the repeated horizon, which speeds up empirical convergence.
//
// Wrap optionally overrides the period-closing transition matrix (from
// the states of stage L to the states of stage 1). When nil, the
// stage-0 matrix P[0] is reused, which requires stage L to carry the
// same number of states as stage 0.
type PeriodicalOptions struct {
	Options
	ForwardStages int
	Wrap          [][]float64
}

// DefaultPeriodicalOptions mirrors DefaultOptions with a period-aware
// rollout default.
func DefaultPeriodicalOptions() PeriodicalOptions {
	return PeriodicalOptions{Options: DefaultOptions()}
}

// PeriodicalEngine solves an infinite-horizon problem with period
// length L, modeled as L+1 stage templates (stage 0 holds the initial
// condition, stages 1..L one full period). Cuts are generated only for
// pool positions 0..L-1; the cost-to-go after stage L is identified
// with the cost-to-go after stage 0 — discounted by γ — which closes
// the loop. Forward passes roll the L stage templates cyclically for
// ForwardStages stages.
type PeriodicalEngine struct {
	stages  []*stage.Compiled // L+1 templates
	chain   *markov.Chain     // L+1 stages of states
	wrap    [][]float64       // States[L] -> States[1]
	initial []float64
	opts    PeriodicalOptions
	period  int
	pool    *CutPool // keys 0..L-1
}

// NewPeriodical validates the periodic assembly. The chain must have
// exactly len(stages) stages, and its last stage must carry as many
// states as its first so that stage-L states can be identified with
// stage-0 states when reusing cuts.
func NewPeriodical(stages []*stage.Compiled, chain *markov.Chain, initial []float64, opts PeriodicalOptions) (*PeriodicalEngine, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if opts.Discount >= 1 {
		return nil, fmt.Errorf("periodical Discount %g must be < 1: %w", opts.Discount, ErrBadOption)
	}
	if err := validateAssembly(stages, chain, initial, opts.Realize); err != nil {
		return nil, err
	}
	L := len(stages) - 1
	if L < 1 {
		return nil, fmt.Errorf("period length %d: %w", L, ErrNoStages)
	}
	if chain.NumStates(L) != chain.NumStates(0) {
		return nil, fmt.Errorf("stage %d has %d states, stage 0 has %d: %w",
			L, chain.NumStates(L), chain.NumStates(0), ErrPeriodShape)
	}
	wrap := opts.Wrap
	if wrap == nil {
		wrap = chain.P[0]
	}
	if len(wrap) != chain.NumStates(L) {
		return nil, fmt.Errorf("wrap matrix has %d rows for %d states: %w", len(wrap), chain.NumStates(L), ErrPeriodShape)
	}
	for i, row := range wrap {
		if len(row) != chain.NumStates(1) {
			return nil, fmt.Errorf("wrap row %d: %w", i, ErrPeriodShape)
		}
		sum := 0.0
		for _, p := range row {
			sum += p
		}
		if math.Abs(sum-1) > markov.RowSumTol {
			return nil, fmt.Errorf("wrap row %d sums to %g: %w", i, sum, ErrPeriodShape)
		}
	}
	if opts.ForwardStages <= 0 {
		opts.ForwardStages = 4*L + 1
	}
	if opts.ForwardStages < L+1 {
		return nil, fmt.Errorf("ForwardStages %d < one period %d: %w", opts.ForwardStages, L+1, ErrBadOption)
	}

	counts := make([]int, L)
	for t := 0; t < L; t++ {
		counts[t] = chain.NumStates(t)
	}

	return &PeriodicalEngine{
		stages:  stages,
		chain:   chain,
		wrap:    wrap,
		initial: append([]float64(nil), initial...),
		opts:    opts,
		period:  L,
		pool:    NewCutPool(stages[0].Sense, counts),
	}, nil
}

// tpl maps a rolled stage index to its template index: 0 for the
// initial stage, then 1..L cyclically.
func (e *PeriodicalEngine) tpl(t int) int {
	if t == 0 {
		return 0
	}

	return (t-1)%e.period + 1
}

// poolKey maps a rolled stage to the cut-pool position holding its
// cost-to-go: position s for template stage s < L, position 0 for
// template stage L (the period boundary reuses stage 0's future).
func (e *PeriodicalEngine) poolKey(t int) int {
	s := e.tpl(t)
	if s == e.period {
		return 0
	}

	return s
}

// thetaCoeff is γ at the period boundary, 1 inside a period.
func (e *PeriodicalEngine) thetaCoeff(t int) float64 {
	if e.tpl(t) == e.period {
		return e.opts.Discount
	}

	return 1
}

// trans returns the transition row set out of rolled stage t.
func (e *PeriodicalEngine) trans(t int) [][]float64 {
	s := e.tpl(t)
	if s == e.period {
		return e.wrap
	}

	return e.chain.P[s]
}

// Pool exposes the engine's cut pool.
func (e *PeriodicalEngine) Pool() *CutPool { return e.pool }

// Solve runs the periodical forward/backward iteration. The returned
// Policy records the period length and discount so the Evaluator can
// roll it for arbitrarily many stages.
func (e *PeriodicalEngine) Solve() (*Result, error) {
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
		Period:   e.period,
		Discount: e.opts.Discount,
	}

	return res, nil
}

// solveOne solves rolled stage t in Markov state i. Every stage of an
// infinite-horizon problem has a future, so θ and cuts are always
// present.
func (e *PeriodicalEngine) solveOne(iter, t, i int, incoming []float64) (*solveOutput, error) {
	s := e.tpl(t)
	in := solveInput{
		tmpl:        e.stages[s],
		realization: e.opts.Realize(s, e.chain.States[s][i]),
		incoming:    incoming,
		cuts:        e.pool.CutsAt(e.poolKey(t), i),
		thetaCoeff:  e.thetaCoeff(t),
		thetaBound:  e.opts.ThetaBound,
	}
	out, err := solveStage(e.opts.Solver, in)
	if err != nil {
		return nil, wrapSolve(iter, s, err)
	}

	return out, nil
}

// forward rolls the cyclic templates for ForwardStages stages. The cost
// sample discounts each period's immediate costs by γ^period.
func (e *PeriodicalEngine) forward(rng *rand.Rand, iter int) (*trajectory, error) {
	T := e.opts.ForwardStages
	traj := &trajectory{idx: make([]int, T), x: make([][]float64, T)}
	incoming := e.initial
	for t := 0; t < T; t++ {
		if t == 0 {
			traj.idx[t] = e.chain.SampleInitial(rng)
		} else {
			traj.idx[t] = drawFromRow(rng, e.trans(t-1)[traj.idx[t-1]])
		}
		out, err := e.solveOne(iter, t, traj.idx[t], incoming)
		if err != nil {
			return nil, err
		}
		traj.cost += e.periodDiscount(t) * out.immediate
		traj.x[t] = out.outgoing
		incoming = out.outgoing
	}

	return traj, nil
}

// periodDiscount is γ^k for a rolled stage in period k.
func (e *PeriodicalEngine) periodDiscount(t int) float64 {
	if t == 0 {
		return 1
	}

	return math.Pow(e.opts.Discount, float64((t-1)/e.period))
}

// backward walks the rolled trajectory downward; each step cuts the
// pool position of the preceding stage, so positions 0..L-1 — and in
// particular position 0, shared by stage 0 and every period boundary —
// keep improving from trial points across all rolled periods.
func (e *PeriodicalEngine) backward(iter int, traj *trajectory) error {
	for t := e.opts.ForwardStages - 1; t >= 1; t-- {
		trial := traj.x[t-1]
		ns := e.chain.NumStates(e.tpl(t))
		outs, err := parallelSolve(e.opts.Workers, ns, func(j int) (*solveOutput, error) {
			return e.solveOne(iter, t, j, trial)
		})
		if err != nil {
			return err
		}

		targets := []int{traj.idx[t-1]}
		if e.opts.FullBackwardPass {
			targets = targets[:0]
			for i := 0; i < e.chain.NumStates(e.tpl(t-1)); i++ {
				targets = append(targets, i)
			}
		}
		key := e.poolKey(t - 1)
		for _, i := range targets {
			e.pool.Add(key, i, aggregateCut(e.trans(t-1)[i], outs, trial, e.stages[0].Sense, e.opts.RiskLambda, e.opts.RiskAlpha))
		}
	}

	return nil
}

// rootBound re-solves stage 0 against pool position 0.
func (e *PeriodicalEngine) rootBound(iter int) (float64, error) {
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

// drawFromRow samples an index from one transition row.
func drawFromRow(rng *rand.Rand, row []float64) int {
	u := rng.Float64()
	acc := 0.0
	for j, p := range row {
		acc += p
		if u < acc {
			return j
		}
	}

	return len(row) - 1
}
