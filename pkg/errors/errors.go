// Package errors holds the error and warning types shared by loanrisk.
// Constructors attach a stack trace through cockroachdb/errors, and most
// types implement zerolog.LogObjectMarshaler so pkg/log can emit their
// fields.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyData means an operation received no rows or no columns.
	ErrEmptyData = New("empty data")

	// ErrMissingValues means an operation needs complete data and got nulls.
	ErrMissingValues = New("missing values present")
)

// NotFittedError is returned when Transform or Predict runs before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("loanrisk: %s.%s called before Fit", e.ModelName, e.Method)
}

func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NotFittedError").Str("model_name", e.ModelName).Str("method", e.Method)
}

func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError is a size mismatch along Axis: 0 for rows, 1 for features.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("loanrisk: %s: expected %d %s, got %d", e.Op, e.Expected, e.axisName(), e.Got)
}

func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "DimensionError").
		Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("axis", e.axisName())
}

func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError rejects a parameter or configuration value.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("loanrisk: invalid %s: %s (got %v)", e.ParamName, e.Reason, e.Value)
}

func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ValidationError").
		Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value)
}

func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError is an argument of the right type whose content is unusable,
// for example a target column holding a 2.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("loanrisk: %s: %s", e.Op, e.Message)
}

func (e *ValueError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ValueError").Str("operation", e.Op).Str("message", e.Message)
}

func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is an estimator failure of the given Kind, wrapping Err.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("loanrisk: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("loanrisk: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ColumnTypeError is a cell that contradicts its column's declared kind,
// such as text in a numeric column. No width can be chosen for such a
// column, so callers abort rather than recover.
type ColumnTypeError struct {
	Column   string
	Row      int
	Value    string
	Declared string
	Observed string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("loanrisk: column '%s' is declared %s but row %d holds %s value %q",
		e.Column, e.Declared, e.Row, e.Observed, e.Value)
}

func (e *ColumnTypeError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ColumnTypeError").
		Str("column", e.Column).
		Int("row", e.Row).
		Str("value", e.Value).
		Str("declared", e.Declared).
		Str("observed", e.Observed)
}

func NewColumnTypeError(column string, row int, value, declared, observed string) error {
	return errors.WithStack(&ColumnTypeError{
		Column: column, Row: row, Value: value, Declared: declared, Observed: observed,
	})
}

// ColumnNotFoundError names a column missing from a table.
type ColumnNotFoundError struct {
	Op     string
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("loanrisk: %s: no column '%s'", e.Op, e.Column)
}

func (e *ColumnNotFoundError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ColumnNotFoundError").Str("operation", e.Op).Str("column", e.Column)
}

func NewColumnNotFoundError(op, column string) error {
	return errors.WithStack(&ColumnNotFoundError{Op: op, Column: column})
}

// Thin wrappers so callers import a single errors package.

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func New(message string) error {
	return errors.New(message)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
