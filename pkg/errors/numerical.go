package errors

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NumericalInstabilityError reports NaN or Inf produced by a solver.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	shown := e.Values
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	if len(e.Values) > len(shown) {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("loanrisk: %s produced non-finite values at iteration %d: [%s]",
		e.Operation, e.Iteration, strings.Join(parts, ", "))
}

func (e *NumericalInstabilityError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NumericalInstabilityError").
		Str("operation", e.Operation).
		Int("iteration", e.Iteration).
		Floats64("values", e.Values)
}

func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Iteration: iteration})
}

// CheckNumericalStability returns a NumericalInstabilityError if any value
// is NaN or Inf.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar is CheckNumericalStability for a single value.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// SafeDivide returns 0 when the denominator is zero or close to it.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}

// StabilizeLog computes log(max(value, 1e-15)).
func StabilizeLog(value float64) float64 {
	const epsilon = 1e-15
	if value < epsilon {
		return math.Log(epsilon)
	}
	return math.Log(value)
}

// Sigmoid is the logistic function, evaluated without overflow for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}
