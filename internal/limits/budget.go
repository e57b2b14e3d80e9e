// Package limits enforces per-request resource ceilings before any engine
// allocates its working set.
//
// A simulation keeps at most one chunk of paths in memory at a time, but its
// running time still scales with paths × steps, so the budget caps paths,
// steps and their product separately:
//   - MaxPaths bounds m on its own
//   - MaxSteps bounds the monitoring dates n of one path
//   - MaxPathCells bounds m·n
//
// Lattice depth and solver iterations have their own ceilings.
package limits

import (
	"fmt"

	"github.com/atmx/pricing-engine/internal/model"
)

var (
	// ErrPathsExceeded is returned when a request asks for more paths than allowed.
	ErrPathsExceeded = fmt.Errorf("%w: path count", model.ErrResourceLimit)

	// ErrStepsExceeded is returned when a path has more steps than allowed.
	ErrStepsExceeded = fmt.Errorf("%w: step count", model.ErrResourceLimit)

	// ErrPathCellsExceeded is returned when paths × steps exceeds the budget.
	ErrPathCellsExceeded = fmt.Errorf("%w: path cells", model.ErrResourceLimit)

	// ErrLatticeStepsExceeded is returned when a tree is deeper than allowed.
	ErrLatticeStepsExceeded = fmt.Errorf("%w: lattice steps", model.ErrResourceLimit)

	// ErrIterationsExceeded is returned when a solver asks for too many iterations.
	ErrIterationsExceeded = fmt.Errorf("%w: solver iterations", model.ErrResourceLimit)
)

// Budget holds the configured ceilings. A zero field disables that check.
type Budget struct {
	MaxPaths        int
	MaxSteps        int
	MaxPathCells    int64
	MaxLatticeSteps int
	MaxIterations   int
}

// DefaultBudget returns the ceilings used when no configuration overrides them.
func DefaultBudget() Budget {
	return Budget{
		MaxPaths:        2000000,
		MaxSteps:        1000,
		MaxPathCells:    200000000,
		MaxLatticeSteps: 20000,
		MaxIterations:   1000,
	}
}

// CheckSimulation validates a run of paths paths with steps steps each.
// Terminal-only simulations pass steps = 1.
func (b Budget) CheckSimulation(paths, steps int) error {
	if b.MaxPaths > 0 && paths > b.MaxPaths {
		return fmt.Errorf("%w: %d > %d", ErrPathsExceeded, paths, b.MaxPaths)
	}
	if b.MaxSteps > 0 && steps > b.MaxSteps {
		return fmt.Errorf("%w: %d > %d", ErrStepsExceeded, steps, b.MaxSteps)
	}
	cells := int64(paths) * int64(steps)
	if b.MaxPathCells > 0 && cells > b.MaxPathCells {
		return fmt.Errorf("%w: %d > %d", ErrPathCellsExceeded, cells, b.MaxPathCells)
	}
	return nil
}

// CheckLattice validates the depth of a binomial tree.
func (b Budget) CheckLattice(steps int) error {
	if b.MaxLatticeSteps > 0 && steps > b.MaxLatticeSteps {
		return fmt.Errorf("%w: %d > %d", ErrLatticeStepsExceeded, steps, b.MaxLatticeSteps)
	}
	return nil
}

// CheckIterations validates a root-finder iteration budget.
func (b Budget) CheckIterations(n int) error {
	if b.MaxIterations > 0 && n > b.MaxIterations {
		return fmt.Errorf("%w: %d > %d", ErrIterationsExceeded, n, b.MaxIterations)
	}
	return nil
}
