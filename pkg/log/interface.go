// Package log is the structured logging layer of loanrisk. Callers depend
// on the Logger interface; the zerolog-backed implementation lives in
// logger.go and the shared attribute keys in attributes.go.
//
//	logger := log.GetLoggerWithName("preprocessing").With(log.ModelNameKey, "Downcaster")
//	logger.Info("memory usage decreased",
//	    log.OperationKey, log.OperationTransform,
//	    log.BytesSavedKey, 1<<20,
//	)
package log

import (
	"context"
	"fmt"
	"strings"

	lrerrors "github.com/YuminosukeSato/loanrisk/pkg/errors"
)

// Logger takes a message plus alternating key/value fields, in the style
// of log/slog. Error additionally accepts an error as its first field.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether a record at level would be written. Use it
	// to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level uses the same numeric values as slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// The empty string means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, lrerrors.NewValidationError("log level", "must be debug, info, warn or error", s)
	}
}
