package contract

import (
	"github.com/atmx/pricing-engine/internal/analytic"
	"github.com/atmx/pricing-engine/internal/barrier"
	"github.com/atmx/pricing-engine/internal/impliedvol"
	"github.com/atmx/pricing-engine/internal/lattice"
	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/montecarlo"
)

// EuropeanRequest is the body of POST /black-scholes-european-option.
type EuropeanRequest struct {
	Spot       float64 `json:"S"           validate:"gt=0"`
	Strike     float64 `json:"K"           validate:"gt=0"`
	Maturity   float64 `json:"T"           validate:"gte=0"`
	Rate       float64 `json:"r"`
	Vol        float64 `json:"sigma"       validate:"gte=0"`
	Dividend   float64 `json:"q"           validate:"gte=0"`
	OptionType string  `json:"option_type" validate:"required,oneof=call put"`
}

// ToParams converts the request into Black-Scholes inputs.
func (r EuropeanRequest) ToParams() (analytic.EuropeanParams, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return analytic.EuropeanParams{}, err
	}
	return analytic.EuropeanParams{
		Spot:     r.Spot,
		Strike:   r.Strike,
		Maturity: r.Maturity,
		Rate:     r.Rate,
		Vol:      r.Vol,
		Dividend: r.Dividend,
		Class:    class,
	}, nil
}

// ImpliedVolatilityRequest is the body of POST /implied-volatility.
type ImpliedVolatilityRequest struct {
	Spot          float64  `json:"S"                   validate:"gt=0"`
	Strike        float64  `json:"K"                   validate:"gt=0"`
	Maturity      float64  `json:"T"                   validate:"gt=0"`
	Rate          float64  `json:"r"`
	Dividend      float64  `json:"q"                   validate:"gte=0"`
	Premium       float64  `json:"option_premium"      validate:"gt=0"`
	OptionType    string   `json:"option_type"         validate:"required,oneof=call put"`
	Tolerance     *float64 `json:"tolerance,omitempty" validate:"omitempty,gt=0"`
	MaxIterations int      `json:"max_iter,omitempty"  validate:"omitempty,min=1"`
}

// ToParams converts the request into solver inputs. Unset tolerance and
// iteration limits take the solver defaults.
func (r ImpliedVolatilityRequest) ToParams() (impliedvol.Params, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return impliedvol.Params{}, err
	}
	p := impliedvol.Params{
		Spot:          r.Spot,
		Strike:        r.Strike,
		Maturity:      r.Maturity,
		Rate:          r.Rate,
		Dividend:      r.Dividend,
		Premium:       r.Premium,
		Class:         class,
		Tolerance:     impliedvol.DefaultTolerance,
		MaxIterations: impliedvol.DefaultMaxIterations,
	}
	if r.Tolerance != nil {
		p.Tolerance = *r.Tolerance
	}
	if r.MaxIterations > 0 {
		p.MaxIterations = r.MaxIterations
	}
	return p, nil
}

// GeometricAsianRequest is the body of POST /closed-form-geometric-asian-option.
type GeometricAsianRequest struct {
	Spot       float64 `json:"S"           validate:"gt=0"`
	Strike     float64 `json:"K"           validate:"gt=0"`
	Maturity   float64 `json:"T"           validate:"gte=0"`
	Rate       float64 `json:"r"`
	Vol        float64 `json:"sigma"       validate:"gte=0"`
	Fixings    int     `json:"n"           validate:"min=1"`
	OptionType string  `json:"option_type" validate:"required,oneof=call put"`
}

// ToParams converts the request into closed-form inputs.
func (r GeometricAsianRequest) ToParams() (analytic.GeometricAsianParams, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return analytic.GeometricAsianParams{}, err
	}
	return analytic.GeometricAsianParams{
		Spot:     r.Spot,
		Strike:   r.Strike,
		Maturity: r.Maturity,
		Rate:     r.Rate,
		Vol:      r.Vol,
		Fixings:  r.Fixings,
		Class:    class,
	}, nil
}

// GeometricBasketRequest is the body of POST /closed-form-geometric-basket-option.
type GeometricBasketRequest struct {
	Spot1       float64 `json:"S1"          validate:"gt=0"`
	Spot2       float64 `json:"S2"          validate:"gt=0"`
	Vol1        float64 `json:"sigma1"      validate:"gte=0"`
	Vol2        float64 `json:"sigma2"      validate:"gte=0"`
	Correlation float64 `json:"rho"         validate:"gte=-1,lte=1"`
	Rate        float64 `json:"r"`
	Strike      float64 `json:"K"           validate:"gt=0"`
	Maturity    float64 `json:"T"           validate:"gte=0"`
	OptionType  string  `json:"option_type" validate:"required,oneof=call put"`
}

// ToParams converts the request into closed-form inputs.
func (r GeometricBasketRequest) ToParams() (analytic.GeometricBasketParams, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return analytic.GeometricBasketParams{}, err
	}
	return analytic.GeometricBasketParams{
		Spot1:       r.Spot1,
		Spot2:       r.Spot2,
		Vol1:        r.Vol1,
		Vol2:        r.Vol2,
		Correlation: r.Correlation,
		Rate:        r.Rate,
		Strike:      r.Strike,
		Maturity:    r.Maturity,
		Class:       class,
	}, nil
}

// ArithmeticAsianRequest is the body of POST /monte-carlo-arithmetic-asian-option.
type ArithmeticAsianRequest struct {
	Spot           float64 `json:"S"                   validate:"gt=0"`
	Strike         float64 `json:"K"                   validate:"gt=0"`
	Maturity       float64 `json:"T"                   validate:"gte=0"`
	Rate           float64 `json:"r"`
	Vol            float64 `json:"sigma"               validate:"gte=0"`
	Fixings        int     `json:"n"                   validate:"min=1"`
	Paths          int     `json:"m"                   validate:"min=2"`
	OptionType     string  `json:"option_type"         validate:"required,oneof=call put"`
	ControlVariate string  `json:"control_variate"     validate:"omitempty,oneof=none geometric"`
	Averaging      string  `json:"averaging,omitempty" validate:"omitempty,oneof=arithmetic geometric"`
	Seed           *uint64 `json:"seed,omitempty"`
}

// ToParams converts the request into simulation inputs. The returned Config
// carries no seed or worker settings; the caller supplies them.
func (r ArithmeticAsianRequest) ToParams() (montecarlo.AsianParams, montecarlo.Config, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return montecarlo.AsianParams{}, montecarlo.Config{}, err
	}
	cfg, err := simulationConfig(r.Paths, r.ControlVariate, r.Averaging)
	if err != nil {
		return montecarlo.AsianParams{}, montecarlo.Config{}, err
	}
	return montecarlo.AsianParams{
		Spot:     r.Spot,
		Strike:   r.Strike,
		Maturity: r.Maturity,
		Rate:     r.Rate,
		Vol:      r.Vol,
		Steps:    r.Fixings,
		Class:    class,
	}, cfg, nil
}

// ArithmeticBasketRequest is the body of POST /monte-carlo-arithmetic-mean-basket-option.
type ArithmeticBasketRequest struct {
	Spot1          float64 `json:"S1"                  validate:"gt=0"`
	Spot2          float64 `json:"S2"                  validate:"gt=0"`
	Vol1           float64 `json:"sigma1"              validate:"gte=0"`
	Vol2           float64 `json:"sigma2"              validate:"gte=0"`
	Correlation    float64 `json:"rho"                 validate:"gte=-1,lte=1"`
	Rate           float64 `json:"r"`
	Strike         float64 `json:"K"                   validate:"gt=0"`
	Maturity       float64 `json:"T"                   validate:"gte=0"`
	Paths          int     `json:"m"                   validate:"min=2"`
	OptionType     string  `json:"option_type"         validate:"required,oneof=call put"`
	ControlVariate string  `json:"control_variate"     validate:"omitempty,oneof=none geometric"`
	Averaging      string  `json:"averaging,omitempty" validate:"omitempty,oneof=arithmetic geometric"`
	Seed           *uint64 `json:"seed,omitempty"`
}

// ToParams converts the request into simulation inputs.
func (r ArithmeticBasketRequest) ToParams() (montecarlo.BasketParams, montecarlo.Config, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return montecarlo.BasketParams{}, montecarlo.Config{}, err
	}
	cfg, err := simulationConfig(r.Paths, r.ControlVariate, r.Averaging)
	if err != nil {
		return montecarlo.BasketParams{}, montecarlo.Config{}, err
	}
	return montecarlo.BasketParams{
		Spot1:       r.Spot1,
		Spot2:       r.Spot2,
		Vol1:        r.Vol1,
		Vol2:        r.Vol2,
		Correlation: r.Correlation,
		Rate:        r.Rate,
		Strike:      r.Strike,
		Maturity:    r.Maturity,
		Class:       class,
	}, cfg, nil
}

func simulationConfig(paths int, control, averaging string) (montecarlo.Config, error) {
	cv, err := model.ParseControlVariate(control)
	if err != nil {
		return montecarlo.Config{}, err
	}
	avg, err := model.ParseAveraging(averaging)
	if err != nil {
		return montecarlo.Config{}, err
	}
	cfg := montecarlo.Config{Paths: paths, ControlVariate: cv, Averaging: avg}
	return cfg, cfg.Validate()
}

// KIKOPutRequest is the body of POST /quasi-monte-carlo-kiko-put-option.
type KIKOPutRequest struct {
	Spot     float64 `json:"S"                 validate:"gt=0"`
	Strike   float64 `json:"K"                 validate:"gt=0"`
	Maturity float64 `json:"T"                 validate:"gt=0"`
	Rate     float64 `json:"r"`
	Vol      float64 `json:"sigma"             validate:"gt=0"`
	Lower    float64 `json:"L"                 validate:"gt=0,ltfield=Upper"`
	Upper    float64 `json:"U"                 validate:"gt=0"`
	Rebate   float64 `json:"R"                 validate:"gte=0"`
	Steps    int     `json:"n"                 validate:"min=1"`
	Paths    int     `json:"m,omitempty"       validate:"omitempty,min=2"`
	Bump     float64 `json:"delta_s,omitempty" validate:"omitempty,gt=0"`
	Seed     *uint64 `json:"seed,omitempty"`
}

// ToParams converts the request into barrier inputs. Unset path count and
// bump take barrier.DefaultPaths and barrier.DefaultBump.
func (r KIKOPutRequest) ToParams() (barrier.Params, barrier.Config) {
	cfg := barrier.Config{Paths: r.Paths, Bump: r.Bump}
	if cfg.Paths == 0 {
		cfg.Paths = barrier.DefaultPaths
	}
	if cfg.Bump == 0 {
		cfg.Bump = barrier.DefaultBump
	}
	return barrier.Params{
		Spot:     r.Spot,
		Strike:   r.Strike,
		Maturity: r.Maturity,
		Rate:     r.Rate,
		Vol:      r.Vol,
		Lower:    r.Lower,
		Upper:    r.Upper,
		Rebate:   r.Rebate,
		Steps:    r.Steps,
	}, cfg
}

// LatticeRequest is the body of POST /binomial-tree-american-option.
type LatticeRequest struct {
	Spot       float64 `json:"S"                  validate:"gt=0"`
	Strike     float64 `json:"K"                  validate:"gt=0"`
	Maturity   float64 `json:"T"                  validate:"gt=0"`
	Rate       float64 `json:"r"`
	Vol        float64 `json:"sigma"              validate:"gt=0"`
	Dividend   float64 `json:"q"                  validate:"gte=0"`
	Steps      int     `json:"n"                  validate:"min=1"`
	OptionType string  `json:"option_type"        validate:"required,oneof=call put"`
	Exercise   string  `json:"exercise,omitempty" validate:"omitempty,oneof=american european"`
}

// ToParams converts the request into lattice inputs.
func (r LatticeRequest) ToParams() (lattice.Params, error) {
	class, err := model.ParseClass(r.OptionType)
	if err != nil {
		return lattice.Params{}, err
	}
	exercise, err := model.ParseExercise(r.Exercise)
	if err != nil {
		return lattice.Params{}, err
	}
	return lattice.Params{
		Spot:     r.Spot,
		Strike:   r.Strike,
		Maturity: r.Maturity,
		Rate:     r.Rate,
		Vol:      r.Vol,
		Dividend: r.Dividend,
		Steps:    r.Steps,
		Class:    class,
		Exercise: exercise,
	}, nil
}
