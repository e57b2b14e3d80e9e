// Package pricing exposes the eight pricing operations. Each call validates
// its request, enforces the resource budget, replays a cached result when
// one exists and otherwise runs the engine, stamps the result with a
// calculation id, records metrics and publishes a price_computed event.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/pricing-engine/internal/analytic"
	"github.com/atmx/pricing-engine/internal/barrier"
	"github.com/atmx/pricing-engine/internal/contract"
	"github.com/atmx/pricing-engine/internal/impliedvol"
	"github.com/atmx/pricing-engine/internal/lattice"
	"github.com/atmx/pricing-engine/internal/limits"
	"github.com/atmx/pricing-engine/internal/metrics"
	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/montecarlo"
	"github.com/atmx/pricing-engine/internal/random"
	"github.com/atmx/pricing-engine/internal/store"
)

// Publisher receives an event for every freshly computed result.
type Publisher interface {
	Publish(ev contract.Event)
}

// Options configure a Service. Zero values select engine defaults.
// Simulations always use the engines' DefaultChunkSize: chunk c draws from
// the stream of (seed, c), so the chunk layout is part of the result and
// cannot vary between deployments.
type Options struct {
	Budget      limits.Budget
	Workers     int
	DefaultSeed uint64
}

// Service runs pricing operations.
type Service struct {
	cache     store.ResultStore
	publisher Publisher
	budget    limits.Budget
	workers   int
	seed      uint64
	now       func() time.Time
}

// NewService creates a Service. cache and publisher may be nil.
func NewService(cache store.ResultStore, publisher Publisher, opts Options) *Service {
	seed := opts.DefaultSeed
	if seed == 0 {
		seed = random.DefaultSeed
	}
	return &Service{
		cache:     cache,
		publisher: publisher,
		budget:    opts.Budget,
		workers:   opts.Workers,
		seed:      seed,
		now:       time.Now,
	}
}

// European prices a European option with Black-Scholes.
func (s *Service) European(ctx context.Context, req contract.EuropeanRequest) (*contract.Response, error) {
	const method = contract.MethodEuropean
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	return s.execute(ctx, method, req, func(context.Context) (*contract.Response, error) {
		price, err := analytic.EuropeanPrice(params)
		if err != nil {
			return nil, err
		}
		return contract.NewPriceResponse(price), nil
	})
}

// ImpliedVolatility solves for the Black-Scholes volatility of a premium.
func (s *Service) ImpliedVolatility(ctx context.Context, req contract.ImpliedVolatilityRequest) (*contract.Response, error) {
	const method = contract.MethodImpliedVolatility
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	if err := s.budget.CheckIterations(params.MaxIterations); err != nil {
		return nil, s.reject(method, err)
	}
	return s.execute(ctx, method, req, func(context.Context) (*contract.Response, error) {
		res, err := impliedvol.Solve(params)
		if err != nil {
			if errors.Is(err, model.ErrNotConverged) {
				slog.Warn("implied volatility did not converge",
					"last_vol", res.Vol,
					"iterations", res.Iterations,
				)
			}
			return nil, err
		}
		return contract.NewVolatilityResponse(res), nil
	})
}

// GeometricAsian prices a geometric Asian option in closed form.
func (s *Service) GeometricAsian(ctx context.Context, req contract.GeometricAsianRequest) (*contract.Response, error) {
	const method = contract.MethodGeometricAsian
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	return s.execute(ctx, method, req, func(context.Context) (*contract.Response, error) {
		price, err := analytic.GeometricAsianPrice(params)
		if err != nil {
			return nil, err
		}
		return contract.NewPriceResponse(price), nil
	})
}

// GeometricBasket prices a two-asset geometric basket option in closed form.
func (s *Service) GeometricBasket(ctx context.Context, req contract.GeometricBasketRequest) (*contract.Response, error) {
	const method = contract.MethodGeometricBasket
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	return s.execute(ctx, method, req, func(context.Context) (*contract.Response, error) {
		price, err := analytic.GeometricBasketPrice(params)
		if err != nil {
			return nil, err
		}
		return contract.NewPriceResponse(price), nil
	})
}

// ArithmeticAsian prices an arithmetic Asian option by Monte Carlo.
func (s *Service) ArithmeticAsian(ctx context.Context, req contract.ArithmeticAsianRequest) (*contract.Response, error) {
	const method = contract.MethodArithmeticAsian
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, cfg, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	if err := s.budget.CheckSimulation(cfg.Paths, params.Steps); err != nil {
		return nil, s.reject(method, err)
	}
	req.Seed = s.resolveSeed(req.Seed)
	cfg.Seed, cfg.Workers = *req.Seed, s.workers
	return s.execute(ctx, method, req, func(ctx context.Context) (*contract.Response, error) {
		est, err := montecarlo.PriceAsian(ctx, params, cfg)
		if err != nil {
			return nil, err
		}
		s.recordSimulation(method, cfg.Paths, cfg.ControlVariate, est)
		return contract.NewEstimateResponse(est, cfg.ControlVariate == model.ControlGeometric), nil
	})
}

// ArithmeticBasket prices an arithmetic-mean basket option by Monte Carlo.
func (s *Service) ArithmeticBasket(ctx context.Context, req contract.ArithmeticBasketRequest) (*contract.Response, error) {
	const method = contract.MethodArithmeticBasket
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, cfg, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	if err := s.budget.CheckSimulation(cfg.Paths, 1); err != nil {
		return nil, s.reject(method, err)
	}
	req.Seed = s.resolveSeed(req.Seed)
	cfg.Seed, cfg.Workers = *req.Seed, s.workers
	return s.execute(ctx, method, req, func(ctx context.Context) (*contract.Response, error) {
		est, err := montecarlo.PriceBasket(ctx, params, cfg)
		if err != nil {
			return nil, err
		}
		s.recordSimulation(method, cfg.Paths, cfg.ControlVariate, est)
		return contract.NewEstimateResponse(est, cfg.ControlVariate == model.ControlGeometric), nil
	})
}

// KIKOPut prices a knock-in/knock-out put with its delta by quasi-Monte Carlo.
func (s *Service) KIKOPut(ctx context.Context, req contract.KIKOPutRequest) (*contract.Response, error) {
	const method = contract.MethodKIKOPut
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, cfg := req.ToParams()
	if err := s.budget.CheckSimulation(cfg.Paths, params.Steps); err != nil {
		return nil, s.reject(method, err)
	}
	// Record the effective defaults so the cache key and echoed input are explicit.
	req.Paths, req.Bump = cfg.Paths, cfg.Bump
	req.Seed = s.resolveSeed(req.Seed)
	cfg.Seed, cfg.Workers = *req.Seed, s.workers
	return s.execute(ctx, method, req, func(ctx context.Context) (*contract.Response, error) {
		est, err := barrier.Price(ctx, params, cfg)
		if err != nil {
			return nil, err
		}
		metrics.SimulatedPaths.WithLabelValues(method).Add(float64(cfg.Paths))
		return contract.NewEstimateResponse(est, false), nil
	})
}

// Lattice prices an option on a binomial tree.
func (s *Service) Lattice(ctx context.Context, req contract.LatticeRequest) (*contract.Response, error) {
	const method = contract.MethodLattice
	if err := contract.Validate(req); err != nil {
		return nil, s.reject(method, err)
	}
	params, err := req.ToParams()
	if err != nil {
		return nil, s.reject(method, err)
	}
	if err := s.budget.CheckLattice(params.Steps); err != nil {
		return nil, s.reject(method, err)
	}
	return s.execute(ctx, method, req, func(context.Context) (*contract.Response, error) {
		price, err := lattice.Price(params)
		if err != nil {
			return nil, err
		}
		return contract.NewPriceResponse(price), nil
	})
}

func (s *Service) resolveSeed(seed *uint64) *uint64 {
	if seed != nil {
		return seed
	}
	v := s.seed
	return &v
}

func (s *Service) recordSimulation(method string, paths int, cv model.ControlVariate, est model.PriceEstimate) {
	metrics.SimulatedPaths.WithLabelValues(method).Add(float64(paths))
	if cv == model.ControlGeometric && !est.ControlVariateApplied {
		metrics.ControlVariateFallbacks.WithLabelValues(method).Inc()
		slog.Warn("control variate fell back to plain estimator",
			"method", method,
			"paths", paths,
		)
	}
}

// reject records a request refused before computation.
func (s *Service) reject(method string, err error) error {
	kind := model.Kind(err)
	metrics.PricingRequestsTotal.WithLabelValues(method, kind).Inc()
	slog.Info("pricing request rejected", "method", method, "kind", kind, "err", err)
	return err
}

// execute replays a cached result for (method, req) or runs compute and
// finalizes its response.
func (s *Service) execute(ctx context.Context, method string, req any, compute func(context.Context) (*contract.Response, error)) (*contract.Response, error) {
	start := s.now()

	key, err := store.Key(method, req)
	if err != nil {
		return nil, s.fail(method, err)
	}
	if resp := s.lookup(ctx, key); resp != nil {
		metrics.PricingRequestsTotal.WithLabelValues(method, "cached").Inc()
		return resp, nil
	}

	resp, err := compute(ctx)
	if err != nil {
		return nil, s.fail(method, err)
	}
	elapsed := s.now().Sub(start)

	resp.CalculationID = uuid.New().String()
	resp.Method = method
	resp.Input = req
	resp.Status = contract.StatusOK
	if !resp.Finite() {
		resp.Status = contract.StatusNonFinite
		slog.Warn("non-finite pricing result",
			"method", method,
			"calculation_id", resp.CalculationID,
		)
	}

	metrics.PricingRequestsTotal.WithLabelValues(method, model.Kind(nil)).Inc()
	metrics.PricingLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	slog.Info("price computed",
		"method", method,
		"calculation_id", resp.CalculationID,
		"status", resp.Status,
		"price", headline(resp),
		"duration", elapsed,
	)

	s.save(ctx, key, resp)
	if s.publisher != nil {
		s.publisher.Publish(contract.NewEvent(resp, s.now()))
	}
	return resp, nil
}

func (s *Service) fail(method string, err error) error {
	kind := model.Kind(err)
	metrics.PricingRequestsTotal.WithLabelValues(method, kind).Inc()
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Info("pricing cancelled", "method", method, "err", err)
	case kind == "internal":
		slog.Error("pricing failed", "method", method, "err", err)
	default:
		slog.Warn("pricing failed", "method", method, "kind", kind, "err", err)
	}
	return err
}

// lookup returns the cached response for key, or nil on a miss. Cache
// errors are logged and treated as misses.
func (s *Service) lookup(ctx context.Context, key string) *contract.Response {
	if s.cache == nil {
		return nil
	}
	payload, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.Warn("result cache lookup failed", "err", err)
		return nil
	case !ok:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	var resp contract.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.Warn("result cache entry unreadable", "err", err)
		return nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	resp.Cached = true
	return &resp
}

func (s *Service) save(ctx context.Context, key string, resp *contract.Response) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("result cache encode failed", "method", resp.Method, "err", err)
		return
	}
	if err := s.cache.Put(ctx, key, payload); err != nil {
		slog.Warn("result cache write failed", "method", resp.Method, "err", err)
	}
}

func headline(resp *contract.Response) float64 {
	switch {
	case resp.Price != nil:
		return float64(*resp.Price)
	case resp.ImpliedVolatility != nil:
		return float64(*resp.ImpliedVolatility)
	}
	return 0
}
