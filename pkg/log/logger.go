package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	lrerrors "github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger writes JSON records at or above level to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	appendFields(l.zl.Debug(), fields).Msg(msg)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	appendFields(l.zl.Info(), fields).Msg(msg)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	appendFields(l.zl.Warn(), fields).Msg(msg)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	appendFields(l.zl.Error(), fields).Msg(msg)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	c := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			c = c.Str(key, err.Error())
			continue
		}
		c = c.Interface(key, fields[i+1])
	}
	return &ZerologLogger{zl: c.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// Zerolog exposes the underlying logger.
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZerologLogger(os.Stderr, LevelInfo)
)

// SetupLogger installs the process-wide logger. format is "json" or
// "text" (human-readable console output). Warnings raised through
// pkg/errors.Warn are routed to the same logger.
func SetupLogger(level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	switch format {
	case "", "json":
	case "text":
		// no ANSI colour when stderr is redirected to a file or pipe
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
		}
	default:
		return lrerrors.NewValidationError("log format", "must be json or text", format)
	}

	SetLogger(NewZerologLogger(w, lvl))
	return nil
}

// SetLogger replaces the process-wide logger.
func SetLogger(l Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()

	lrerrors.SetZerologWarnFunc(func(w error) {
		l.Warn(w.Error(), "warning", w)
	})
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// ErrAttr pairs an error with the standard "error" key, for use as
// logger.Error("msg", log.ErrAttr(err)...).
func ErrAttr(err error) []any {
	return []any{zerolog.ErrorFieldName, err}
}
