// Package lattice prices options on a Cox-Ross-Rubinstein binomial tree with
// optional early exercise.
package lattice

import (
	"fmt"
	"math"

	"github.com/atmx/pricing-engine/internal/model"
)

// Params are the inputs of a lattice valuation.
type Params struct {
	Spot     float64
	Strike   float64
	Maturity float64
	Rate     float64
	Vol      float64
	Dividend float64
	Steps    int
	Class    model.OptionClass
	Exercise model.Exercise
}

// Validate checks the inputs that do not depend on the tree geometry.
func (p Params) Validate() error {
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
	case !(p.Vol > 0) || math.IsInf(p.Vol, 0):
		return fmt.Errorf("%w: volatility must be positive, got %g", model.ErrInvalidInput, p.Vol)
	case math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0):
		return fmt.Errorf("%w: rate must be finite, got %g", model.ErrInvalidInput, p.Rate)
	case !(p.Dividend >= 0) || math.IsInf(p.Dividend, 0):
		return fmt.Errorf("%w: dividend yield must be non-negative, got %g", model.ErrInvalidInput, p.Dividend)
	case p.Steps < 1:
		return fmt.Errorf("%w: steps must be at least 1, got %d", model.ErrInvalidInput, p.Steps)
	}
	if p.Exercise != model.American && p.Exercise != model.European {
		return fmt.Errorf("%w: unknown exercise style %d", model.ErrInvalidInput, int(p.Exercise))
	}
	return nil
}

// Price values the option by backward induction. A risk-neutral up
// probability outside (0, 1) means the tree admits arbitrage and is reported
// as ErrDegenerate.
func Price(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	n := p.Steps
	dt := p.Maturity / float64(n)
	u := math.Exp(p.Vol * math.Sqrt(dt))
	d := 1 / u
	prob := (math.Exp((p.Rate-p.Dividend)*dt) - d) / (u - d)
	if !(prob > 0 && prob < 1) {
		return 0, fmt.Errorf("%w: up probability %g outside (0, 1) with dt=%g", model.ErrDegenerate, prob, dt)
	}
	disc := math.Exp(-p.Rate * dt)
	pu, pd := disc*prob, disc*(1-prob)
	early := p.Exercise == model.American

	// Node i of level j holds S·u^(j−i)·d^i, taken from the power tables so
	// early-exercise checks see the same asset price at every level.
	up := make([]float64, n+1)
	dn := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		up[k] = math.Pow(u, float64(k))
		dn[k] = math.Pow(d, float64(k))
	}
	value := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		value[i] = p.Class.Payoff(p.Spot*up[n-i]*dn[i], p.Strike)
	}

	for j := n - 1; j >= 0; j-- {
		for i := 0; i <= j; i++ {
			value[i] = pu*value[i] + pd*value[i+1]
			if early {
				value[i] = math.Max(value[i], p.Class.Payoff(p.Spot*up[j-i]*dn[i], p.Strike))
			}
		}
	}
	return value[0], nil
}
