// SPDX-License-Identifier: MIT

// Package stage: public identifier types, uncertainty locations, and the
// sentinel error set. All errors here are configuration errors: they are
// raised while declaring or compiling a template, never during solving.

package stage

import "errors"

// Sentinel errors for stage-template construction.
var (
	// ErrUnknownVariable indicates a Term or Location referenced a column
	// that was never added to the model.
	ErrUnknownVariable = errors.New("stage: unknown variable")

	// ErrUnknownConstraint indicates a Location referenced a row that was
	// never added to the model.
	ErrUnknownConstraint = errors.New("stage: unknown constraint")

	// ErrLocationNotFound indicates an uncertainty Location named a
	// (constraint, variable) slot the constraint does not contain.
	ErrLocationNotFound = errors.New("stage: uncertainty location not present in constraint")

	// ErrDuplicateLocation indicates the same slot was bound twice.
	ErrDuplicateLocation = errors.New("stage: uncertainty location bound twice")

	// ErrEmptyConstraint indicates AddConstraint was called without terms.
	ErrEmptyConstraint = errors.New("stage: constraint has no terms")

	// ErrRealizationLength indicates Instantiate received a realization
	// vector whose length differs from the number of bound locations.
	ErrRealizationLength = errors.New("stage: realization length mismatch")
)

// Var identifies one column of the stage LP, in creation order.
type Var int

// RHS is the Location sentinel selecting a row's right-hand side
// instead of a variable coefficient.
const RHS Var = -1

// Con identifies one constraint row, in creation order.
type Con int

// State is a state-variable pair: Now is this stage's outgoing value,
// Past is the incoming value (stage t-1's Now), fixed by the engine.
type State struct {
	Now  Var
	Past Var
}

// Term is one linear summand Coeff·Var of a constraint.
type Term struct {
	Var   Var
	Coeff float64
}

// Location addresses one uncertainty-dependent slot: the coefficient of
// Var in row Con, or the row's RHS when Var == RHS. The order in which
// locations are bound defines the layout of realization vectors.
type Location struct {
	Con Con
	Var Var
}
