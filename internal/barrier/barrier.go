// Package barrier prices a double-barrier knock-in/knock-out (KIKO) put by
// randomized quasi-Monte Carlo and estimates its delta by central finite
// differences with common random numbers.
//
// Each chunk of paths is an Owen-scrambled Halton point set whose scrambling
// is drawn from the chunk's own seeded stream. The Gaussian increments of a
// path are cumulated once in log space and evaluated against the barriers of
// all three spot scenarios (S−δ, S, S+δ), so the scenarios share every draw.
package barrier

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/samplemv"

	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/random"
	"github.com/atmx/pricing-engine/internal/stats"
)

const (
	DefaultPaths     = 1000000
	DefaultBump      = 0.2
	DefaultChunkSize = 8192

	// MaxSteps is the largest Halton dimension the sampler supports.
	MaxSteps = 1000

	// uniformClamp keeps quantile inputs strictly inside (0, 1).
	uniformClamp = 1e-12
)

// Params describe a KIKO put. Paths at or above Upper knock out and pay
// Rebate at the first hitting time; otherwise a path that touched Lower pays
// the put at maturity.
type Params struct {
	Spot     float64
	Strike   float64
	Maturity float64
	Rate     float64
	Vol      float64
	Lower    float64
	Upper    float64
	Rebate   float64
	Steps    int
}

// Config controls the simulation.
type Config struct {
	Paths int
	Seed  uint64
	// Bump is the spot shift δ used for delta; zero means DefaultBump.
	Bump      float64
	Workers   int
	ChunkSize int
}

func (c Config) withDefaults() Config {
	if c.Bump == 0 {
		c.Bump = DefaultBump
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// Validate checks the contract terms. L ≥ U is reported as
// ErrInvalidBarrierOrder.
func (p Params) Validate() error {
	switch {
	case !(p.Spot > 0) || math.IsInf(p.Spot, 0):
		return fmt.Errorf("%w: spot must be positive and finite, got %g", model.ErrInvalidInput, p.Spot)
	case !(p.Strike > 0) || math.IsInf(p.Strike, 0):
		return fmt.Errorf("%w: strike must be positive and finite, got %g", model.ErrInvalidInput, p.Strike)
	case !(p.Maturity >= 0) || math.IsInf(p.Maturity, 0):
		return fmt.Errorf("%w: maturity must be non-negative, got %g", model.ErrInvalidInput, p.Maturity)
	case !(p.Vol >= 0) || math.IsInf(p.Vol, 0):
		return fmt.Errorf("%w: volatility must be non-negative, got %g", model.ErrInvalidInput, p.Vol)
	case math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0):
		return fmt.Errorf("%w: rate must be finite, got %g", model.ErrInvalidInput, p.Rate)
	case !(p.Lower > 0) || !(p.Upper > 0) || math.IsInf(p.Upper, 0):
		return fmt.Errorf("%w: barriers must be positive and finite, got L=%g U=%g", model.ErrInvalidInput, p.Lower, p.Upper)
	case p.Lower >= p.Upper:
		return fmt.Errorf("%w: lower barrier %g must be below upper barrier %g", model.ErrInvalidBarrierOrder, p.Lower, p.Upper)
	case !(p.Rebate >= 0) || math.IsInf(p.Rebate, 0):
		return fmt.Errorf("%w: rebate must be non-negative, got %g", model.ErrInvalidInput, p.Rebate)
	case p.Steps < 1 || p.Steps > MaxSteps:
		return fmt.Errorf("%w: steps must lie in [1, %d], got %d", model.ErrInvalidInput, MaxSteps, p.Steps)
	}
	return nil
}

func (c Config) validate(spot float64) error {
	switch {
	case c.Paths < 2:
		return fmt.Errorf("%w: at least 2 paths are required, got %d", model.ErrInvalidInput, c.Paths)
	case !(c.Bump > 0) || !(c.Bump < spot):
		return fmt.Errorf("%w: bump must lie in (0, spot), got %g", model.ErrInvalidInput, c.Bump)
	}
	return nil
}

const (
	down = iota
	base
	up
	scenarios
)

// scenario holds the barrier levels of one spot, expressed as log returns.
type scenario struct {
	spot       float64
	logUpper   float64
	logLower   float64
	knockedOut bool // at or above U at inception
	knockedIn  bool // at or below L at inception
}

func newScenario(spot float64, p Params) scenario {
	return scenario{
		spot:       spot,
		logUpper:   math.Log(p.Upper / spot),
		logLower:   math.Log(p.Lower / spot),
		knockedOut: spot >= p.Upper,
		knockedIn:  spot <= p.Lower,
	}
}

// Price returns the KIKO put price, its 95% interval and delta.
func Price(ctx context.Context, p Params, cfg Config) (model.PriceEstimate, error) {
	if err := p.Validate(); err != nil {
		return model.PriceEstimate{}, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(p.Spot); err != nil {
		return model.PriceEstimate{}, err
	}

	var sc [scenarios]scenario
	sc[down] = newScenario(p.Spot-cfg.Bump, p)
	sc[base] = newScenario(p.Spot, p)
	sc[up] = newScenario(p.Spot+cfg.Bump, p)

	if sc[down].knockedOut && sc[base].knockedOut && sc[up].knockedOut {
		delta := 0.0
		return model.PriceEstimate{
			Price:    p.Rebate,
			Interval: &model.Interval{Lower: model.Number(p.Rebate), Upper: model.Number(p.Rebate)},
			Delta:    &delta,
		}, nil
	}

	acc, err := simulate(ctx, p, cfg, sc)
	if err != nil {
		return model.PriceEstimate{}, err
	}

	price := acc[base].Mean
	stderr := acc[base].StdError()
	delta := (acc[up].Mean - acc[down].Mean) / (2 * cfg.Bump)
	iv := model.Normal95(price, stderr)
	return model.PriceEstimate{
		Price:    price,
		Interval: &iv,
		StdError: stderr,
		Delta:    &delta,
	}, nil
}

func simulate(ctx context.Context, p Params, cfg Config, sc [scenarios]scenario) ([scenarios]stats.Moments, error) {
	chunks := (cfg.Paths + cfg.ChunkSize - 1) / cfg.ChunkSize
	partials := make([][scenarios]stats.Moments, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for c := 0; c < chunks; c++ {
		if gctx.Err() != nil {
			break
		}
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			size := cfg.ChunkSize
			if rem := cfg.Paths - c*cfg.ChunkSize; rem < size {
				size = rem
			}
			partials[c] = runChunk(p, sc, random.NewStream(cfg.Seed, c), size)
			return nil
		})
	}

	var total [scenarios]stats.Moments
	if err := g.Wait(); err != nil {
		return total, err
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	for _, part := range partials {
		for k := range total {
			total[k].Merge(part[k])
		}
	}
	return total, nil
}

// runChunk prices size paths drawn from one scrambled Halton point set.
func runChunk(p Params, sc [scenarios]scenario, s *random.Stream, size int) [scenarios]stats.Moments {
	n := p.Steps
	points := mat.NewDense(size, n, nil)
	halton := samplemv.Halton{
		Kind: samplemv.Owen,
		Q:    distmv.NewUnitUniform(n, nil),
		Src:  s.Source(),
	}
	halton.Sample(points)

	dt := p.Maturity / float64(n)
	drift := (p.Rate - 0.5*p.Vol*p.Vol) * dt
	volStep := p.Vol * math.Sqrt(dt)
	maturityDiscount := math.Exp(-p.Rate * p.Maturity)
	rebateDiscount := make([]float64, n)
	for j := range rebateDiscount {
		rebateDiscount[j] = p.Rebate * math.Exp(-p.Rate*float64(j+1)*dt)
	}

	var acc [scenarios]stats.Moments
	for i := 0; i < size; i++ {
		row := points.RawRowView(i)

		var hitStep [scenarios]int
		var touched [scenarios]bool
		alive := 0
		for k := range sc {
			hitStep[k] = -1
			touched[k] = sc[k].knockedIn
			if !sc[k].knockedOut {
				alive++
			}
		}

		var cum float64
		for j := 0; j < n && alive > 0; j++ {
			u := math.Min(math.Max(row[j], uniformClamp), 1-uniformClamp)
			cum += drift + volStep*distuv.UnitNormal.Quantile(u)
			row[j] = cum
			for k := range sc {
				if sc[k].knockedOut || hitStep[k] >= 0 {
					continue
				}
				if cum >= sc[k].logUpper {
					hitStep[k] = j
					alive--
					continue
				}
				if cum <= sc[k].logLower {
					touched[k] = true
				}
			}
		}

		for k := range sc {
			var payoff float64
			switch {
			case sc[k].knockedOut:
				payoff = p.Rebate
			case hitStep[k] >= 0:
				payoff = rebateDiscount[hitStep[k]]
			case touched[k]:
				terminal := sc[k].spot * math.Exp(row[n-1])
				payoff = maturityDiscount * math.Max(p.Strike-terminal, 0)
			}
			acc[k].Add(payoff)
		}
	}
	return acc
}
