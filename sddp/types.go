package sddp

import (
	"errors"
	"fmt"
	"time"

	"github.com/katalvlaran/sddp/lp"
)

// Sentinel errors for engine configuration. All of them are raised by
// New/NewPeriodical before any solving starts.
var (
	// ErrNoStages indicates an empty stage list.
	ErrNoStages = errors.New("sddp: no stage templates")

	// ErrStageCount indicates the chain's stage count does not match the
	// number of stage templates.
	ErrStageCount = errors.New("sddp: chain/stage count mismatch")

	// ErrStateDim indicates stage templates disagree on the number of
	// state variables, or the initial state has the wrong length.
	ErrStateDim = errors.New("sddp: state dimension mismatch")

	// ErrSenseMismatch indicates stage templates with different
	// optimization senses.
	ErrSenseMismatch = errors.New("sddp: stage sense mismatch")

	// ErrRealizationDim indicates the realization mapping produces a
	// vector whose length differs from a stage's bound locations.
	ErrRealizationDim = errors.New("sddp: realization dimension mismatch")

	// ErrBadOption indicates nonsensical engine options.
	ErrBadOption = errors.New("sddp: invalid option")

	// ErrPeriodShape indicates a periodical setup whose chain cannot be
	// closed into a cycle (wrap states mismatched).
	ErrPeriodShape = errors.New("sddp: periodic chain cannot be closed")
)

// SolveError reports a stage LP that came back Infeasible or Unbounded.
// It aborts the current iteration immediately; the engine never skips a
// failed stage, and no Policy is produced from a failed solve.
type SolveError struct {
	Iteration int
	Stage     int
	Status    lp.Status
	Err       error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("sddp: iteration %d stage %d: solver reported %s", e.Iteration, e.Stage, e.Status)
}

// Unwrap exposes the underlying solver sentinel for errors.Is.
func (e *SolveError) Unwrap() error { return e.Err }

// StopReason tells why Solve returned.
type StopReason int8

const (
	// MaxIterationsReached: the iteration budget was exhausted.
	MaxIterationsReached StopReason = iota

	// GapTolMet: the deterministic bound and the statistical estimate
	// agree within Options.GapTol.
	GapTolMet

	// Converged: the deterministic bound stalled for
	// Options.StallIterations consecutive iterations.
	Converged

	// TimeLimitReached: Options.TimeLimit elapsed.
	TimeLimitReached
)

// String returns the reporting name of the reason.
func (r StopReason) String() string {
	switch r {
	case MaxIterationsReached:
		return "MaxIterationsReached"
	case GapTolMet:
		return "GapTolMet"
	case Converged:
		return "Converged"
	case TimeLimitReached:
		return "TimeLimitReached"
	default:
		return "Unknown"
	}
}

// IterationRecord is one row of the iteration log.
//
// Bound is the deterministic bound from the stage-0 solve (a lower
// bound when minimizing, an upper bound when maximizing); Value is this
// iteration's forward-pass sample of total cost/value.
type IterationRecord struct {
	Iteration int
	Bound     float64
	Value     float64
	Time      time.Duration
}

func (r IterationRecord) String() string {
	return fmt.Sprintf("%4d  %14.6f  %14.6f  %10s", r.Iteration, r.Bound, r.Value, r.Time.Round(time.Microsecond))
}

// Result is the outcome of a successful Solve.
type Result struct {
	// Policy is the finalized cut collection; nil is never returned from
	// a successful solve.
	Policy *Policy

	// Bound is the final deterministic bound.
	Bound float64

	// Value, ValueLo, ValueHi are the mean and confidence interval of
	// the forward-pass samples collected across iterations.
	Value   float64
	ValueLo float64
	ValueHi float64

	// StopReason tells which stopping rule fired.
	StopReason StopReason

	// Log holds one record per iteration, in order.
	Log []IterationRecord

	// Elapsed is the total wall-clock solving time.
	Elapsed time.Duration
}
