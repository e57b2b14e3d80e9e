package contract

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/atmx/pricing-engine/internal/barrier"
	"github.com/atmx/pricing-engine/internal/impliedvol"
	"github.com/atmx/pricing-engine/internal/model"
)

func validKIKO() KIKOPutRequest {
	return KIKOPutRequest{
		Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Vol: 0.2,
		Lower: 80, Upper: 125, Rebate: 1.5, Steps: 24,
	}
}

func TestValidate_Valid(t *testing.T) {
	reqs := []any{
		EuropeanRequest{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Vol: 0.2, OptionType: "call"},
		ImpliedVolatilityRequest{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Premium: 10.45, OptionType: "call"},
		GeometricAsianRequest{Spot: 100, Strike: 100, Maturity: 3, Rate: 0.05, Vol: 0.3, Fixings: 50, OptionType: "put"},
		GeometricBasketRequest{Spot1: 100, Spot2: 100, Vol1: 0.3, Vol2: 0.3, Correlation: -1, Rate: 0.05, Strike: 100, Maturity: 3, OptionType: "call"},
		ArithmeticAsianRequest{Spot: 100, Strike: 100, Maturity: 3, Rate: 0.05, Vol: 0.3, Fixings: 50, Paths: 1000, OptionType: "call", ControlVariate: "geometric"},
		ArithmeticBasketRequest{Spot1: 100, Spot2: 100, Vol1: 0.3, Vol2: 0.3, Correlation: 0.5, Rate: 0.05, Strike: 100, Maturity: 3, Paths: 1000, OptionType: "put", ControlVariate: "none"},
		validKIKO(),
		LatticeRequest{Spot: 50, Strike: 52, Maturity: 2, Rate: 0.05, Vol: 0.3, Steps: 200, OptionType: "put"},
	}
	for _, req := range reqs {
		if err := Validate(req); err != nil {
			t.Errorf("%T: unexpected error: %v", req, err)
		}
	}
}

func TestValidate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		req   any
		field string
	}{
		{"zero spot", EuropeanRequest{Strike: 100, Maturity: 1, Vol: 0.2, OptionType: "call"}, "S"},
		{"negative vol", EuropeanRequest{Spot: 100, Strike: 100, Maturity: 1, Vol: -0.2, OptionType: "call"}, "sigma"},
		{"zero maturity iv", ImpliedVolatilityRequest{Spot: 100, Strike: 100, Premium: 10, OptionType: "call"}, "T"},
		{"zero premium", ImpliedVolatilityRequest{Spot: 100, Strike: 100, Maturity: 1, OptionType: "call"}, "option_premium"},
		{"zero fixings", GeometricAsianRequest{Spot: 100, Strike: 100, Maturity: 1, Vol: 0.2, OptionType: "call"}, "n"},
		{"rho above one", GeometricBasketRequest{Spot1: 100, Spot2: 100, Vol1: 0.3, Vol2: 0.3, Correlation: 1.5, Strike: 100, Maturity: 1, OptionType: "call"}, "rho"},
		{"one path", ArithmeticAsianRequest{Spot: 100, Strike: 100, Maturity: 1, Vol: 0.2, Fixings: 10, Paths: 1, OptionType: "call"}, "m"},
		{"bad control", ArithmeticBasketRequest{Spot1: 100, Spot2: 100, Vol1: 0.3, Vol2: 0.3, Strike: 100, Maturity: 1, Paths: 100, OptionType: "call", ControlVariate: "antithetic"}, "control_variate"},
		{"negative rebate", func() KIKOPutRequest { r := validKIKO(); r.Rebate = -1; return r }(), "R"},
		{"bad exercise", LatticeRequest{Spot: 50, Strike: 52, Maturity: 2, Vol: 0.3, Steps: 10, OptionType: "put", Exercise: "bermudan"}, "exercise"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to name %q, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_UnsupportedClass(t *testing.T) {
	for _, class := range []string{"", "straddle", "CALLS"} {
		req := EuropeanRequest{Spot: 100, Strike: 100, Maturity: 1, Vol: 0.2, OptionType: class}
		if err := Validate(req); !errors.Is(err, model.ErrUnsupportedClass) {
			t.Errorf("option_type %q: expected ErrUnsupportedClass, got %v", class, err)
		}
	}
}

func TestValidate_BarrierOrder(t *testing.T) {
	for _, bounds := range [][2]float64{{120, 90}, {100, 100}} {
		req := validKIKO()
		req.Lower, req.Upper = bounds[0], bounds[1]
		err := Validate(req)
		if !errors.Is(err, model.ErrInvalidBarrierOrder) {
			t.Errorf("L=%v U=%v: expected ErrInvalidBarrierOrder, got %v", bounds[0], bounds[1], err)
		}
		if err != nil && !strings.Contains(err.Error(), "must be below U") {
			t.Errorf("expected the wire name of the upper barrier, got %v", err)
		}
	}
}

func TestDecode_WireNames(t *testing.T) {
	body := `{"S":100,"K":100,"T":1,"r":0.05,"sigma":0.2,"L":80,"U":125,"R":1.5,"n":24,"m":4096,"seed":42}`
	var req KIKOPutRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Lower != 80 || req.Upper != 125 || req.Rebate != 1.5 || req.Paths != 4096 {
		t.Errorf("unexpected decode: %+v", req)
	}
	if req.Seed == nil || *req.Seed != 42 {
		t.Errorf("expected seed 42, got %v", req.Seed)
	}
}

func TestKIKOPutRequest_Defaults(t *testing.T) {
	_, cfg := validKIKO().ToParams()
	if cfg.Paths != barrier.DefaultPaths || cfg.Bump != barrier.DefaultBump {
		t.Errorf("expected default paths and bump, got %+v", cfg)
	}
}

func TestImpliedVolatilityRequest_Defaults(t *testing.T) {
	req := ImpliedVolatilityRequest{Spot: 100, Strike: 100, Maturity: 1, Premium: 10, OptionType: "put"}
	p, err := req.ToParams()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Class != model.Put || p.Tolerance != impliedvol.DefaultTolerance || p.MaxIterations != impliedvol.DefaultMaxIterations {
		t.Errorf("unexpected params: %+v", p)
	}
	tol := 1e-4
	req.Tolerance, req.MaxIterations = &tol, 7
	p, _ = req.ToParams()
	if p.Tolerance != tol || p.MaxIterations != 7 {
		t.Errorf("overrides not applied: %+v", p)
	}
}

func TestArithmeticAsianRequest_GeometricSelfControl(t *testing.T) {
	req := ArithmeticAsianRequest{
		Spot: 100, Strike: 100, Maturity: 1, Vol: 0.2, Fixings: 10, Paths: 100,
		OptionType: "call", ControlVariate: "geometric", Averaging: "geometric",
	}
	if _, _, err := req.ToParams(); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLatticeRequest_DefaultsToAmerican(t *testing.T) {
	req := LatticeRequest{Spot: 50, Strike: 52, Maturity: 2, Vol: 0.3, Steps: 10, OptionType: "put"}
	p, err := req.ToParams()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Exercise != model.American {
		t.Errorf("expected american exercise, got %v", p.Exercise)
	}
}

func TestResponse_Finite(t *testing.T) {
	resp := NewEstimateResponse(model.PriceEstimate{Price: 1, StdError: 0.1}, true)
	if !resp.Finite() {
		t.Error("expected finite response")
	}
	if resp.ControlVariateApplied == nil || *resp.ControlVariateApplied {
		t.Errorf("expected control_variate_applied=false, got %v", resp.ControlVariateApplied)
	}
	if NewPriceResponse(math.Inf(1)).Finite() {
		t.Error("infinite price should not be finite")
	}
	iv := model.Interval{Lower: model.Number(math.NaN()), Upper: 1}
	if (&Response{ConfidenceInterval: &iv}).Finite() {
		t.Error("NaN interval bound should not be finite")
	}
}

func TestResponse_MarshalsNaNSentinel(t *testing.T) {
	resp := NewPriceResponse(math.NaN())
	resp.Status = StatusNonFinite
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"price":"NaN"`) {
		t.Errorf("expected NaN sentinel, got %s", data)
	}
	if strings.Contains(string(data), "confidence_interval") {
		t.Errorf("scalar response should omit the interval, got %s", data)
	}
}

func TestNewEvent_UsesVolatilityWhenNoPrice(t *testing.T) {
	resp := NewVolatilityResponse(impliedvol.Result{Vol: 0.2, Iterations: 4})
	resp.Method = MethodImpliedVolatility
	ev := NewEvent(resp, time.Time{})
	if ev.Type != EventPriceComputed || ev.Price == nil || float64(*ev.Price) != 0.2 {
		t.Errorf("unexpected event: %+v", ev)
	}
}
