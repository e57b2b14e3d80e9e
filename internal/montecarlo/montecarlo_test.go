package montecarlo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/atmx/pricing-engine/internal/analytic"
	"github.com/atmx/pricing-engine/internal/model"
)

func asianParams(class model.OptionClass) AsianParams {
	return AsianParams{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Vol: 0.3, Steps: 12, Class: class}
}

func basketParams(class model.OptionClass) BasketParams {
	return BasketParams{
		Spot1: 100, Spot2: 100, Vol1: 0.3, Vol2: 0.3, Correlation: 0.5,
		Rate: 0.05, Strike: 100, Maturity: 3, Class: class,
	}
}

func config(cv model.ControlVariate) Config {
	return Config{Paths: 40000, Seed: 7405, ControlVariate: cv, Workers: 4, ChunkSize: 4096}
}

func sameEstimate(a, b model.PriceEstimate) bool {
	if a.Price != b.Price || a.StdError != b.StdError || a.ControlVariateApplied != b.ControlVariateApplied {
		return false
	}
	if (a.Interval == nil) != (b.Interval == nil) {
		return false
	}
	return a.Interval == nil || *a.Interval == *b.Interval
}

func checkInterval(t *testing.T, est model.PriceEstimate) {
	t.Helper()
	if est.Interval == nil {
		t.Fatal("expected a confidence interval")
	}
	lo, hi := float64(est.Interval.Lower), float64(est.Interval.Upper)
	if !(lo <= est.Price && est.Price <= hi) {
		t.Errorf("interval [%v, %v] does not bracket %v", lo, hi, est.Price)
	}
}

// --- Reproducibility ---

func TestPriceAsian_Reproducible(t *testing.T) {
	p := asianParams(model.Call)
	a, err := PriceAsian(context.Background(), p, config(model.ControlGeometric))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := PriceAsian(context.Background(), p, config(model.ControlGeometric))
	if !sameEstimate(a, b) {
		t.Errorf("repeated runs differ: %+v vs %+v", a, b)
	}
}

func TestPriceAsian_IndependentOfWorkerCount(t *testing.T) {
	p := asianParams(model.Put)
	one := config(model.ControlNone)
	one.Workers = 1
	many := config(model.ControlNone)
	many.Workers = 16

	a, err := PriceAsian(context.Background(), p, one)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := PriceAsian(context.Background(), p, many)
	if !sameEstimate(a, b) {
		t.Errorf("worker count changed the estimate: %+v vs %+v", a, b)
	}
}

func TestPriceBasket_SeedMatters(t *testing.T) {
	p := basketParams(model.Call)
	a, _ := PriceBasket(context.Background(), p, config(model.ControlNone))
	cfg := config(model.ControlNone)
	cfg.Seed = 1
	b, _ := PriceBasket(context.Background(), p, cfg)
	if a.Price == b.Price {
		t.Error("different seeds produced identical prices")
	}
}

// --- Variance reduction ---

func TestPriceAsian_ControlVariateReducesStdError(t *testing.T) {
	for _, class := range []model.OptionClass{model.Call, model.Put} {
		p := asianParams(class)
		plain, err := PriceAsian(context.Background(), p, config(model.ControlNone))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cv, err := PriceAsian(context.Background(), p, config(model.ControlGeometric))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cv.ControlVariateApplied {
			t.Fatalf("%s: control variate was not applied", class)
		}
		if cv.StdError > plain.StdError {
			t.Errorf("%s: std error with control %v exceeds plain %v", class, cv.StdError, plain.StdError)
		}
		if math.Abs(cv.Price-plain.Price) > 4*plain.StdError {
			t.Errorf("%s: controlled %v and plain %v disagree beyond sampling error", class, cv.Price, plain.Price)
		}
		checkInterval(t, plain)
		checkInterval(t, cv)
	}
}

func TestPriceBasket_ControlVariateReducesStdError(t *testing.T) {
	p := basketParams(model.Call)
	plain, err := PriceBasket(context.Background(), p, config(model.ControlNone))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cv, err := PriceBasket(context.Background(), p, config(model.ControlGeometric))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cv.StdError > plain.StdError {
		t.Errorf("std error with control %v exceeds plain %v", cv.StdError, plain.StdError)
	}
	// The arithmetic mean dominates the geometric mean, so the call is worth more.
	geo, _ := analytic.GeometricBasketPrice(p.geometric())
	if cv.Price < geo {
		t.Errorf("arithmetic basket call %v below geometric closed form %v", cv.Price, geo)
	}
	checkInterval(t, cv)
}

// --- Convergence to closed form ---

func TestPriceAsian_GeometricConvergesToClosedForm(t *testing.T) {
	p := asianParams(model.Call)
	cfg := config(model.ControlNone)
	cfg.Averaging = model.Geometric
	cfg.Paths = 100000

	est, err := PriceAsian(context.Background(), p, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := analytic.GeometricAsianPrice(p.geometric())
	if math.Abs(est.Price-want) > 4*est.StdError {
		t.Errorf("simulated %v ± %v too far from closed form %v", est.Price, est.StdError, want)
	}
}

func TestPriceBasket_GeometricConvergesToClosedForm(t *testing.T) {
	p := basketParams(model.Put)
	cfg := config(model.ControlNone)
	cfg.Averaging = model.Geometric
	cfg.Paths = 100000

	est, err := PriceBasket(context.Background(), p, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := analytic.GeometricBasketPrice(p.geometric())
	if math.Abs(est.Price-want) > 4*est.StdError {
		t.Errorf("simulated %v ± %v too far from closed form %v", est.Price, est.StdError, want)
	}
}

// --- Edge cases ---

func TestPriceAsian_DegenerateControlFallsBack(t *testing.T) {
	// With zero maturity every path stays at the spot, so Var(Y) is zero.
	p := AsianParams{Spot: 110, Strike: 100, Maturity: 0, Rate: 0.05, Vol: 0.2, Steps: 4, Class: model.Call}
	est, err := PriceAsian(context.Background(), p, config(model.ControlGeometric))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.ControlVariateApplied {
		t.Error("expected fallback to the plain estimator")
	}
	if math.Abs(est.Price-10) > 1e-9 || est.StdError > 1e-9 {
		t.Errorf("expected intrinsic 10 with no spread, got %v ± %v", est.Price, est.StdError)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"too few paths", Config{Paths: 1}},
		{"geometric payoff with geometric control", Config{Paths: 10, Averaging: model.Geometric, ControlVariate: model.ControlGeometric}},
		{"unknown control", Config{Paths: 10, ControlVariate: model.ControlVariate(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPriceAsian_InvalidInputs(t *testing.T) {
	bad := asianParams(model.Call)
	bad.Steps = 0
	if _, err := PriceAsian(context.Background(), bad, config(model.ControlNone)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("zero steps: expected ErrInvalidInput, got %v", err)
	}
	bad = asianParams(0)
	if _, err := PriceAsian(context.Background(), bad, config(model.ControlNone)); !errors.Is(err, model.ErrUnsupportedClass) {
		t.Errorf("zero class: expected ErrUnsupportedClass, got %v", err)
	}
}

func TestPriceBasket_InvalidCorrelation(t *testing.T) {
	p := basketParams(model.Call)
	p.Correlation = -1.2
	if _, err := PriceBasket(context.Background(), p, config(model.ControlNone)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPriceAsian_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PriceAsian(ctx, asianParams(model.Call), config(model.ControlNone))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
