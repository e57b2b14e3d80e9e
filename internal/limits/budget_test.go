package limits

import (
	"errors"
	"testing"

	"github.com/atmx/pricing-engine/internal/model"
)

func TestCheckSimulation_WithinLimits(t *testing.T) {
	b := DefaultBudget()
	if err := b.CheckSimulation(100000, 50); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckSimulation_Exceeded(t *testing.T) {
	b := Budget{MaxPaths: 1000, MaxSteps: 10, MaxPathCells: 5000}

	tests := []struct {
		name         string
		paths, steps int
		want         error
	}{
		{"paths", 1001, 1, ErrPathsExceeded},
		{"steps", 10, 11, ErrStepsExceeded},
		{"cells", 1000, 6, ErrPathCellsExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.CheckSimulation(tt.paths, tt.steps)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, model.ErrResourceLimit) {
				t.Errorf("expected the error to classify as a resource limit, got %v", err)
			}
		})
	}
}

func TestCheckSimulation_ExactlyAtLimit(t *testing.T) {
	b := Budget{MaxPaths: 1000, MaxSteps: 10, MaxPathCells: 10000}
	if err := b.CheckSimulation(1000, 10); err != nil {
		t.Errorf("limits are inclusive, got %v", err)
	}
}

func TestCheckSimulation_CellsDoNotOverflow(t *testing.T) {
	b := Budget{MaxPathCells: 1 << 40}
	if err := b.CheckSimulation(1<<30, 1<<9); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := b.CheckSimulation(1<<30, 1<<11); !errors.Is(err, ErrPathCellsExceeded) {
		t.Errorf("expected ErrPathCellsExceeded, got %v", err)
	}
}

func TestCheckLattice(t *testing.T) {
	b := DefaultBudget()
	if err := b.CheckLattice(b.MaxLatticeSteps); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := b.CheckLattice(b.MaxLatticeSteps + 1); !errors.Is(err, ErrLatticeStepsExceeded) {
		t.Errorf("expected ErrLatticeStepsExceeded, got %v", err)
	}
}

func TestCheckIterations(t *testing.T) {
	b := DefaultBudget()
	if err := b.CheckIterations(100); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := b.CheckIterations(5000); !errors.Is(err, ErrIterationsExceeded) {
		t.Errorf("expected ErrIterationsExceeded, got %v", err)
	}
}

func TestZeroBudgetDisablesChecks(t *testing.T) {
	var b Budget
	if err := b.CheckSimulation(1<<30, 1<<20); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := b.CheckLattice(1 << 30); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
