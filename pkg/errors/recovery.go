// Panic recovery for pipeline stages. A stage that panics on malformed data
// is turned into a PanicError so the run aborts with a readable error
// instead of crashing the process.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError is an error built from a recovered panic.
type PanicError struct {
	// PanicValue is the value passed to panic()
	PanicValue interface{}

	// StackTrace is the goroutine stack at recovery time
	StackTrace string

	// Operation names the stage or call that panicked
	Operation string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String includes the stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic", fmt.Sprint(e.PanicValue)).
		Str("type", "PanicError")
}

// NewPanicError captures the current stack for a recovered panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use with defer:
//
//	func (s *stage) run() (err error) {
//	    defer Recover(&err, "downcast")
//	    ...
//	}
//
// An error already set on *err is kept in the chain.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		if *err != nil {
			*err = Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		*err = panicErr
	}
}

// SafeExecute runs fn and converts a panic into a PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
