package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/rs/zerolog"
)

var (
	warnMu sync.Mutex
	// fallback writes through the standard logger until pkg/log installs
	// a structured sink.
	fallback = func(w error) { log.Printf("loanrisk-warning: %v", w) }
	sink     func(error)
)

// SetWarningHandler replaces the handler used when no structured sink is
// installed. Tests use it to silence or capture warnings.
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	fallback = handler
}

// SetZerologWarnFunc installs the structured sink. pkg/log calls it from
// SetLogger so this package does not import pkg/log.
func SetZerologWarnFunc(fn func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	sink = fn
}

// Warn reports a non-fatal condition. The structured sink takes precedence
// over the fallback handler.
func Warn(w error) {
	warnMu.Lock()
	defer warnMu.Unlock()
	switch {
	case sink != nil:
		sink(w)
	case fallback != nil:
		fallback(w)
	}
}

// ConvergenceWarning means an iterative solver hit its iteration cap.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	msg := w.Message
	if msg == "" {
		msg = "increase max_iter or scale the features"
	}
	return fmt.Sprintf("%s did not converge in %d iterations: %s", w.Algorithm, w.Iterations, msg)
}

func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "ConvergenceWarning").
		Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message)
}

func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// DataConversionWarning flags a column whose storage changed in a way the
// caller may not expect, such as a fill value forcing a wider type.
type DataConversionWarning struct {
	Column   string
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	subject := "data"
	if w.Column != "" {
		subject = fmt.Sprintf("column '%s'", w.Column)
	}
	return fmt.Sprintf("%s converted %s -> %s: %s", subject, w.FromType, w.ToType, w.Reason)
}

func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "DataConversionWarning").
		Str("column", w.Column).
		Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason)
}

func NewDataConversionWarning(column, from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{Column: column, FromType: from, ToType: to, Reason: reason}
}

// UndefinedMetricWarning means a metric had no defined value for the input
// and Result was substituted.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%s is undefined (%s); using %g", w.Metric, w.Condition, w.Result)
}

func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "UndefinedMetricWarning").
		Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result)
}

func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}
