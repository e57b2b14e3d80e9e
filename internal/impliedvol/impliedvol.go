// Package impliedvol inverts the Black-Scholes formula for volatility with a
// Newton-Raphson root-find driven by the analytic price and vega.
package impliedvol

import (
	"fmt"
	"math"

	"github.com/atmx/pricing-engine/internal/analytic"
	"github.com/atmx/pricing-engine/internal/model"
)

const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 100

	// minVega is the sensitivity below which a Newton step is meaningless.
	minVega = 1e-12
)

// Params are the inputs of an implied volatility solve. Zero Tolerance or
// MaxIterations select the defaults.
type Params struct {
	Spot          float64
	Strike        float64
	Maturity      float64
	Rate          float64
	Dividend      float64
	Premium       float64
	Class         model.OptionClass
	Tolerance     float64
	MaxIterations int
}

// Result is the outcome of a solve. On ErrNotConverged it holds the last
// iterate and the number of iterations spent.
type Result struct {
	Vol        float64
	Iterations int
}

// Solve finds σ such that the Black-Scholes price equals the premium.
func Solve(p Params) (Result, error) {
	if p.Tolerance == 0 {
		p.Tolerance = DefaultTolerance
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = DefaultMaxIterations
	}
	if err := validate(p); err != nil {
		return Result{}, err
	}

	ep := analytic.EuropeanParams{
		Spot:     p.Spot,
		Strike:   p.Strike,
		Maturity: p.Maturity,
		Rate:     p.Rate,
		Dividend: p.Dividend,
		Class:    p.Class,
	}
	sigma := initialGuess(p)

	for i := 1; i <= p.MaxIterations; i++ {
		ep.Vol = sigma
		price, err := analytic.EuropeanPrice(ep)
		if err != nil {
			return Result{Vol: sigma, Iterations: i}, err
		}
		vega := analytic.Vega(ep)
		if !(vega > minVega) {
			return Result{Vol: sigma, Iterations: i},
				fmt.Errorf("%w: vega vanished at sigma=%g after %d iterations", model.ErrNotConverged, sigma, i)
		}

		next := sigma - (price-p.Premium)/vega
		if next <= 0 {
			next = sigma / 2
		}
		step := math.Abs(next - sigma)
		sigma = next
		if step < p.Tolerance {
			return Result{Vol: sigma, Iterations: i}, nil
		}
	}

	return Result{Vol: sigma, Iterations: p.MaxIterations},
		fmt.Errorf("%w: %d iterations exhausted, last sigma=%g", model.ErrNotConverged, p.MaxIterations, sigma)
}

// initialGuess uses the moneyness seed, falling back to the at-the-money
// Brenner-Subrahmanyam approximation when the option is at the forward.
func initialGuess(p Params) float64 {
	seed := math.Sqrt(2 * math.Abs(math.Log(p.Spot/p.Strike)+(p.Rate-p.Dividend)*p.Maturity) / p.Maturity)
	if seed > 0 {
		return seed
	}
	return math.Sqrt(2*math.Pi/p.Maturity) * p.Premium / p.Spot
}

func validate(p Params) error {
	if err := p.Class.Validate(); err != nil {
		return err
	}
	switch {
	case !(p.Spot > 0) || math.IsInf(p.Spot, 0):
		return fmt.Errorf("%w: spot must be positive and finite, got %g", model.ErrInvalidInput, p.Spot)
	case !(p.Strike > 0) || math.IsInf(p.Strike, 0):
		return fmt.Errorf("%w: strike must be positive and finite, got %g", model.ErrInvalidInput, p.Strike)
	case !(p.Maturity > 0) || math.IsInf(p.Maturity, 0):
		return fmt.Errorf("%w: maturity must be positive, got %g", model.ErrInvalidInput, p.Maturity)
	case math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0):
		return fmt.Errorf("%w: rate must be finite, got %g", model.ErrInvalidInput, p.Rate)
	case !(p.Dividend >= 0) || math.IsInf(p.Dividend, 0):
		return fmt.Errorf("%w: dividend yield must be non-negative, got %g", model.ErrInvalidInput, p.Dividend)
	case !(p.Tolerance > 0):
		return fmt.Errorf("%w: tolerance must be positive, got %g", model.ErrInvalidInput, p.Tolerance)
	case p.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", model.ErrInvalidInput, p.MaxIterations)
	}

	lower, upper := Bounds(p.Spot, p.Strike, p.Maturity, p.Rate, p.Dividend, p.Class)
	if !(p.Premium > lower && p.Premium < upper) {
		return fmt.Errorf("%w: premium %g outside no-arbitrage band (%g, %g)", model.ErrInvalidInput, p.Premium, lower, upper)
	}
	return nil
}

// Bounds returns the open interval of premiums attainable with a positive
// finite volatility.
func Bounds(spot, strike, maturity, rate, dividend float64, class model.OptionClass) (lower, upper float64) {
	fwdSpot := spot * math.Exp(-dividend*maturity)
	pvStrike := strike * math.Exp(-rate*maturity)
	if class == model.Call {
		return math.Max(fwdSpot-pvStrike, 0), fwdSpot
	}
	return math.Max(pvStrike-fwdSpot, 0), pvStrike
}
