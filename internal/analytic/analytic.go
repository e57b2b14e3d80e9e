// Package analytic implements closed-form option prices under geometric
// Brownian motion: Black-Scholes for European options and the lognormal
// formulas for geometric-average Asian and two-asset geometric basket options.
//
// Every formula reduces to one forward-measure kernel
//
//	price = D · (F·N(d1) − K·N(d2)),  d1 = (ln(F/K) + σ²T/2) / (σ√T)
//
// with an instrument-specific forward F, discount factor D and effective
// volatility σ. When σ√T is zero the kernel returns the discounted intrinsic
// value of the forward instead of dividing by zero.
//
// The functions are pure and safe for concurrent use. They are also the
// reference prices used by the Monte Carlo control variates.
package analytic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/atmx/pricing-engine/internal/model"
)

// EuropeanParams are the inputs of a Black-Scholes European option.
type EuropeanParams struct {
	Spot     float64
	Strike   float64
	Maturity float64
	Rate     float64
	Vol      float64
	Dividend float64
	Class    model.OptionClass
}

// Validate checks the ranges the closed form needs.
func (p EuropeanParams) Validate() error {
	if err := p.Class.Validate(); err != nil {
		return err
	}
	return validateCommon(p.Spot, p.Strike, p.Maturity, p.Rate, p.Vol, p.Dividend)
}

// EuropeanPrice returns the Black-Scholes price of a European option on an
// asset paying a continuous dividend yield.
func EuropeanPrice(p EuropeanParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	forward := p.Spot * math.Exp((p.Rate-p.Dividend)*p.Maturity)
	discount := math.Exp(-p.Rate * p.Maturity)
	return kernel(forward, p.Strike, discount, p.Vol, p.Maturity, p.Class), nil
}

// Vega returns ∂price/∂σ of the European option (identical for calls and puts).
func Vega(p EuropeanParams) float64 {
	sqrtT := math.Sqrt(p.Maturity)
	if p.Vol*sqrtT == 0 {
		return 0
	}
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate-p.Dividend+0.5*p.Vol*p.Vol)*p.Maturity) / (p.Vol * sqrtT)
	return p.Spot * math.Exp(-p.Dividend*p.Maturity) * sqrtT * distuv.UnitNormal.Prob(d1)
}

// GeometricAsianParams are the inputs of a discretely monitored
// geometric-average Asian option with N equally spaced fixings.
type GeometricAsianParams struct {
	Spot     float64
	Strike   float64
	Maturity float64
	Rate     float64
	Vol      float64
	Fixings  int
	Class    model.OptionClass
}

// Validate checks the ranges the closed form needs.
func (p GeometricAsianParams) Validate() error {
	if err := p.Class.Validate(); err != nil {
		return err
	}
	if p.Fixings < 1 {
		return fmt.Errorf("%w: fixings must be at least 1, got %d", model.ErrInvalidInput, p.Fixings)
	}
	return validateCommon(p.Spot, p.Strike, p.Maturity, p.Rate, p.Vol, 0)
}

// AdjustedParams returns the effective volatility and drift of the geometric
// average of N lognormal fixings.
func (p GeometricAsianParams) AdjustedParams() (sigmaAdj, muAdj float64) {
	n := float64(p.Fixings)
	sigmaAdj = p.Vol * math.Sqrt((n+1)*(2*n+1)/(6*n*n))
	muAdj = (p.Rate-0.5*p.Vol*p.Vol)*(n+1)/(2*n) + 0.5*sigmaAdj*sigmaAdj
	return sigmaAdj, muAdj
}

// GeometricAsianPrice returns the closed-form price of a geometric-average
// Asian option.
func GeometricAsianPrice(p GeometricAsianParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	sigmaAdj, muAdj := p.AdjustedParams()
	forward := p.Spot * math.Exp(muAdj*p.Maturity)
	discount := math.Exp(-p.Rate * p.Maturity)
	return kernel(forward, p.Strike, discount, sigmaAdj, p.Maturity, p.Class), nil
}

// GeometricBasketParams are the inputs of an option on the geometric mean of
// two correlated assets observed at maturity.
type GeometricBasketParams struct {
	Spot1       float64
	Spot2       float64
	Vol1        float64
	Vol2        float64
	Correlation float64
	Rate        float64
	Strike      float64
	Maturity    float64
	Class       model.OptionClass
}

// Validate checks the ranges the closed form needs.
func (p GeometricBasketParams) Validate() error {
	if err := p.Class.Validate(); err != nil {
		return err
	}
	if err := validateCommon(p.Spot1, p.Strike, p.Maturity, p.Rate, p.Vol1, 0); err != nil {
		return err
	}
	if err := validateCommon(p.Spot2, p.Strike, p.Maturity, p.Rate, p.Vol2, 0); err != nil {
		return err
	}
	if !(p.Correlation >= -1 && p.Correlation <= 1) {
		return fmt.Errorf("%w: correlation must lie in [-1, 1], got %g", model.ErrInvalidInput, p.Correlation)
	}
	return nil
}

// AdjustedParams returns the effective volatility, drift and initial level of
// the geometric basket sqrt(S1·S2).
func (p GeometricBasketParams) AdjustedParams() (sigmaBg, muBg, spotBg float64) {
	s1, s2 := p.Vol1*p.Vol1, p.Vol2*p.Vol2
	sigmaBg = math.Sqrt(s1+s2+2*p.Correlation*p.Vol1*p.Vol2) / 2
	muBg = p.Rate - 0.25*(s1+s2) + 0.5*sigmaBg*sigmaBg
	spotBg = math.Sqrt(p.Spot1 * p.Spot2)
	return sigmaBg, muBg, spotBg
}

// GeometricBasketPrice returns the closed-form price of a two-asset geometric
// basket option.
func GeometricBasketPrice(p GeometricBasketParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	sigmaBg, muBg, spotBg := p.AdjustedParams()
	forward := spotBg * math.Exp(muBg*p.Maturity)
	discount := math.Exp(-p.Rate * p.Maturity)
	return kernel(forward, p.Strike, discount, sigmaBg, p.Maturity, p.Class), nil
}

// kernel prices a lognormal forward. class must already be validated.
func kernel(forward, strike, discount, vol, maturity float64, class model.OptionClass) float64 {
	stdDev := vol * math.Sqrt(maturity)
	if stdDev == 0 {
		return discount * class.Payoff(forward, strike)
	}
	d1 := (math.Log(forward/strike) + 0.5*stdDev*stdDev) / stdDev
	d2 := d1 - stdDev
	if class == model.Call {
		return discount * (forward*distuv.UnitNormal.CDF(d1) - strike*distuv.UnitNormal.CDF(d2))
	}
	return discount * (strike*distuv.UnitNormal.CDF(-d2) - forward*distuv.UnitNormal.CDF(-d1))
}

func validateCommon(spot, strike, maturity, rate, vol, dividend float64) error {
	switch {
	case !(spot > 0) || math.IsInf(spot, 0):
		return fmt.Errorf("%w: spot must be positive and finite, got %g", model.ErrInvalidInput, spot)
	case !(strike > 0) || math.IsInf(strike, 0):
		return fmt.Errorf("%w: strike must be positive and finite, got %g", model.ErrInvalidInput, strike)
	case !(maturity >= 0) || math.IsInf(maturity, 0):
		return fmt.Errorf("%w: maturity must be non-negative, got %g", model.ErrInvalidInput, maturity)
	case !(vol >= 0) || math.IsInf(vol, 0):
		return fmt.Errorf("%w: volatility must be non-negative, got %g", model.ErrInvalidInput, vol)
	case !(dividend >= 0) || math.IsInf(dividend, 0):
		return fmt.Errorf("%w: dividend yield must be non-negative, got %g", model.ErrInvalidInput, dividend)
	case math.IsNaN(rate) || math.IsInf(rate, 0):
		return fmt.Errorf("%w: rate must be finite, got %g", model.ErrInvalidInput, rate)
	}
	return nil
}
