// Package model defines the core domain types shared across the pricing engine.
// Engines work in float64; shopspring/decimal is only used to render finite
// numbers at a fixed scale on the wire.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places kept when a Number is serialized.
const PriceScale int32 = 10

// NaNSentinel is the JSON value emitted for NaN and ±Inf results.
const NaNSentinel = "NaN"

// OptionClass is the payoff direction of a vanilla-style contract.
type OptionClass int

const (
	Call OptionClass = iota + 1
	Put
)

// ParseClass converts "call"/"put" (any case) to an OptionClass.
func ParseClass(s string) (OptionClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call":
		return Call, nil
	case "put":
		return Put, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedClass, s)
	}
}

// Validate rejects anything other than Call or Put.
func (c OptionClass) Validate() error {
	if c != Call && c != Put {
		return fmt.Errorf("%w: %d", ErrUnsupportedClass, int(c))
	}
	return nil
}

func (c OptionClass) String() string {
	switch c {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("OptionClass(%d)", int(c))
	}
}

// Payoff returns the intrinsic value of the class at level s.
func (c OptionClass) Payoff(s, strike float64) float64 {
	if c == Call {
		return math.Max(s-strike, 0)
	}
	return math.Max(strike-s, 0)
}

// ControlVariate selects the variance reduction applied to Monte Carlo estimates.
type ControlVariate int

const (
	ControlNone ControlVariate = iota
	ControlGeometric
)

// ParseControlVariate converts "none"/"geometric" to a ControlVariate.
func ParseControlVariate(s string) (ControlVariate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ControlNone, nil
	case "geometric":
		return ControlGeometric, nil
	default:
		return 0, fmt.Errorf("%w: unsupported control variate %q", ErrInvalidInput, s)
	}
}

func (c ControlVariate) String() string {
	if c == ControlGeometric {
		return "geometric"
	}
	return "none"
}

// Averaging selects which average a simulated Asian or basket payoff uses.
type Averaging int

const (
	Arithmetic Averaging = iota
	Geometric
)

// ParseAveraging converts "arithmetic"/"geometric" to an Averaging. Empty
// selects Arithmetic.
func ParseAveraging(s string) (Averaging, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "arithmetic":
		return Arithmetic, nil
	case "geometric":
		return Geometric, nil
	default:
		return 0, fmt.Errorf("%w: unsupported averaging %q", ErrInvalidInput, s)
	}
}

func (a Averaging) String() string {
	if a == Geometric {
		return "geometric"
	}
	return "arithmetic"
}

// Exercise is the exercise style of a lattice contract.
type Exercise int

const (
	American Exercise = iota
	European
)

// ParseExercise converts "american"/"european" to an Exercise. Empty selects
// American.
func ParseExercise(s string) (Exercise, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "american":
		return American, nil
	case "european":
		return European, nil
	default:
		return 0, fmt.Errorf("%w: unsupported exercise style %q", ErrInvalidInput, s)
	}
}

func (e Exercise) String() string {
	if e == European {
		return "european"
	}
	return "american"
}

// Interval is a two-sided confidence interval, Lower <= Upper.
type Interval struct {
	Lower Number
	Upper Number
}

// MarshalJSON renders the interval as the ordered pair [lower, upper].
func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Number{iv.Lower, iv.Upper})
}

// UnmarshalJSON accepts the [lower, upper] pair produced by MarshalJSON.
func (iv *Interval) UnmarshalJSON(data []byte) error {
	var pair [2]Number
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	iv.Lower, iv.Upper = pair[0], pair[1]
	return nil
}

// Normal95 builds the symmetric normal-approximation interval mean ± 1.96·stderr.
func Normal95(mean, stderr float64) Interval {
	half := 1.96 * stderr
	return Interval{Lower: Number(mean - half), Upper: Number(mean + half)}
}

// PriceEstimate is the result of a pricing engine invocation.
type PriceEstimate struct {
	Price    float64
	Interval *Interval
	StdError float64
	// Delta is set by engines that estimate a spot sensitivity.
	Delta *float64
	// ControlVariateApplied is false when the control variate was requested but
	// fell back to the plain estimator.
	ControlVariateApplied bool
}

// Finite reports whether every number in the estimate is finite.
func (e PriceEstimate) Finite() bool {
	if !isFinite(e.Price) {
		return false
	}
	if e.Interval != nil && (!e.Interval.Lower.Finite() || !e.Interval.Upper.Finite()) {
		return false
	}
	if e.Delta != nil && !isFinite(*e.Delta) {
		return false
	}
	return true
}

// Number is a float64 that serializes non-finite values as the NaN sentinel
// string instead of invalid JSON.
type Number float64

// Finite reports whether n is neither NaN nor infinite.
func (n Number) Finite() bool {
	return isFinite(float64(n))
}

// MarshalJSON writes finite values as a JSON number rounded to PriceScale and
// non-finite values as "NaN".
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Finite() {
		return json.Marshal(NaNSentinel)
	}
	return []byte(decimal.NewFromFloat(float64(n)).Round(PriceScale).String()), nil
}

// UnmarshalJSON accepts a JSON number or the NaN sentinel.
func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != NaNSentinel {
			return fmt.Errorf("model: unexpected number string %q", s)
		}
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
