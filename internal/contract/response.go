package contract

import (
	"time"

	"github.com/atmx/pricing-engine/internal/impliedvol"
	"github.com/atmx/pricing-engine/internal/model"
)

// Operation names, used as the response "method", metric label and cache
// key namespace.
const (
	MethodEuropean          = "european_price"
	MethodImpliedVolatility = "implied_volatility"
	MethodGeometricAsian    = "geometric_asian_price"
	MethodGeometricBasket   = "geometric_basket_price"
	MethodArithmeticAsian   = "arithmetic_asian_price"
	MethodArithmeticBasket  = "arithmetic_basket_price"
	MethodKIKOPut           = "barrier_price_with_delta"
	MethodLattice           = "lattice_price"
)

const (
	StatusOK        = "ok"
	StatusNonFinite = "non_finite"
)

// Response is the body returned by every pricing operation. Fields an
// operation does not produce are omitted.
type Response struct {
	CalculationID         string          `json:"calculation_id"`
	Method                string          `json:"method"`
	Status                string          `json:"status"`
	Price                 *model.Number   `json:"price,omitempty"`
	ImpliedVolatility     *model.Number   `json:"implied_volatility,omitempty"`
	Iterations            int             `json:"iterations,omitempty"`
	ConfidenceInterval    *model.Interval `json:"confidence_interval,omitempty"`
	StdError              *model.Number   `json:"std_error,omitempty"`
	Delta                 *model.Number   `json:"delta,omitempty"`
	ControlVariateApplied *bool           `json:"control_variate_applied,omitempty"`
	Cached                bool            `json:"cached"`
	Input                 any             `json:"input"`
}

// Finite reports whether every number in the response is finite.
func (r *Response) Finite() bool {
	for _, n := range []*model.Number{r.Price, r.ImpliedVolatility, r.StdError, r.Delta} {
		if n != nil && !n.Finite() {
			return false
		}
	}
	if iv := r.ConfidenceInterval; iv != nil && (!iv.Lower.Finite() || !iv.Upper.Finite()) {
		return false
	}
	return true
}

// NewPriceResponse wraps a scalar price from a closed form or the lattice.
func NewPriceResponse(price float64) *Response {
	return &Response{Price: number(price)}
}

// NewEstimateResponse wraps a simulation estimate.
func NewEstimateResponse(est model.PriceEstimate, withControl bool) *Response {
	resp := &Response{
		Price:              number(est.Price),
		ConfidenceInterval: est.Interval,
		StdError:           number(est.StdError),
	}
	if est.Delta != nil {
		resp.Delta = number(*est.Delta)
	}
	if withControl {
		applied := est.ControlVariateApplied
		resp.ControlVariateApplied = &applied
	}
	return resp
}

// NewVolatilityResponse wraps a converged implied volatility.
func NewVolatilityResponse(res impliedvol.Result) *Response {
	return &Response{ImpliedVolatility: number(res.Vol), Iterations: res.Iterations}
}

func number(f float64) *model.Number {
	n := model.Number(f)
	return &n
}

// Event is broadcast to WebSocket subscribers after each computed result.
type Event struct {
	Type          string        `json:"type"`
	CalculationID string        `json:"calculation_id"`
	Method        string        `json:"method"`
	Status        string        `json:"status"`
	Price         *model.Number `json:"price,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// EventPriceComputed is the Event type emitted for fresh results.
const EventPriceComputed = "price_computed"

// NewEvent summarizes resp for subscribers.
func NewEvent(resp *Response, at time.Time) Event {
	price := resp.Price
	if price == nil {
		price = resp.ImpliedVolatility
	}
	return Event{
		Type:          EventPriceComputed,
		CalculationID: resp.CalculationID,
		Method:        resp.Method,
		Status:        resp.Status,
		Price:         price,
		Timestamp:     at,
	}
}
