// Package contract defines the JSON request and response bodies of the
// pricing API, validates requests with struct tags and converts them into
// engine parameters.
package contract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atmx/pricing-engine/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names (S, K, sigma, ...).
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks req against its struct tags. Failures wrap
// model.ErrInvalidInput; an unknown option_type wraps
// model.ErrUnsupportedClass and a lower barrier not below the upper barrier
// wraps model.ErrInvalidBarrierOrder.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	fe := fieldErrs[0]
	switch {
	case fe.Tag() == "ltfield":
		return fmt.Errorf("%w: %s=%v must be below %s", model.ErrInvalidBarrierOrder, fe.Field(), fe.Value(), upperName(fe))
	case fe.Field() == "option_type":
		return fmt.Errorf("%w: %q", model.ErrUnsupportedClass, fe.Value())
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, describe(fe))
}

// upperName maps the Go field named in an ltfield rule to its wire name.
func upperName(fe validator.FieldError) string {
	if fe.Param() == "Upper" {
		return "U"
	}
	return fe.Param()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
