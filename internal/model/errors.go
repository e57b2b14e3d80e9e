package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when parameters are rejected before any
	// computation starts.
	ErrInvalidInput = errors.New("pricing: invalid input")

	// ErrUnsupportedClass is returned for an option class other than Call or Put.
	ErrUnsupportedClass = fmt.Errorf("%w: unsupported option class", ErrInvalidInput)

	// ErrInvalidBarrierOrder is returned when the lower barrier is not strictly
	// below the upper barrier.
	ErrInvalidBarrierOrder = fmt.Errorf("%w: invalid barrier order", ErrInvalidInput)

	// ErrDegenerate is returned when a computation hits a numerically
	// degenerate configuration (zero variance, lattice probability outside (0,1)).
	ErrDegenerate = errors.New("pricing: numerical degeneracy")

	// ErrNotConverged is returned when an iterative solver exhausts its budget.
	ErrNotConverged = errors.New("pricing: did not converge")

	// ErrResourceLimit is returned when a request exceeds configured ceilings.
	ErrResourceLimit = errors.New("pricing: resource limit exceeded")
)

// Kind classifies err into one of the taxonomy labels used for metrics and
// HTTP status mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDegenerate):
		return "degenerate"
	case errors.Is(err, ErrNotConverged):
		return "not_converged"
	case errors.Is(err, ErrResourceLimit):
		return "resource_limit"
	default:
		return "internal"
	}
}
