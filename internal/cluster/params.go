package cluster

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidParams is wrapped by every ParamError.
var ErrInvalidParams = errors.New("invalid parameters")

// ParamError identifies the offending configuration parameter.
type ParamError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Param, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParams }

// Params control windowing and the campaign-level minimums.
type Params struct {
	WindowDays    int     `param:"window_days" validate:"gt=0"`
	LookbackDays  int     `param:"lookback_days" validate:"gt=0"`
	MinInsiders   int     `param:"min_insiders" validate:"gte=0"`
	MinTotalValue float64 `param:"min_total_value" validate:"finite,gte=0"`
	MinTradeValue float64 `param:"min_trade_value" validate:"finite,gte=0"`
	// AsOf anchors the lookback horizon. Zero means the latest transaction date in the input.
	AsOf time.Time `param:"as_of"`
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	return ValidateStruct(p)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("param"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = validate.RegisterValidation("finite", isFinite)
	})
	return validate
}

// ValidateStruct runs the `validate` tags of v and converts the first failure
// into a *ParamError named after the field's `param` tag.
func ValidateStruct(v interface{}) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	fe := fieldErrs[0]
	return &ParamError{Param: fe.Field(), Value: fe.Value(), Reason: describe(fe)}
}

// isFinite rejects NaN and infinities on float fields.
func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return true
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "must be a finite number"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
