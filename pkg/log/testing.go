package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger captures records in memory as JSON lines, using the same
// level names and message key as the zerolog backend.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	pruner := feature_selection.NewCorrelationPruner(feature_selection.WithPrunerLogger(logger))
//	...
//	if !logger.ContainsField(log.DroppedKey, ...) { ... }
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  Level
	fields map[string]any
}

// NewTestLogger returns a TestLogger and the buffer it writes to.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{
		mu:     &sync.Mutex{},
		buffer: buffer,
		level:  level,
		fields: make(map[string]any),
	}, buffer
}

// Debug implements Logger.Debug.
func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }

// Info implements Logger.Info.
func (t *TestLogger) Info(msg string, fields ...any) { t.write(LevelInfo, msg, fields) }

// Warn implements Logger.Warn.
func (t *TestLogger) Warn(msg string, fields ...any) { t.write(LevelWarn, msg, fields) }

// Error implements Logger.Error.
func (t *TestLogger) Error(msg string, fields ...any) { t.write(LevelError, msg, fields) }

// With implements Logger.With.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	putFields(merged, fields)
	return &TestLogger{mu: t.mu, buffer: t.buffer, level: t.level, fields: merged}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]any{
		"level":   strings.ToLower(level.String()),
		"message": msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			entry["error"] = err.Error()
			fields = fields[1:]
		}
	}
	putFields(entry, fields)

	line, _ := json.Marshal(entry)
	t.mu.Lock()
	t.buffer.Write(line)
	t.buffer.WriteByte('\n')
	t.mu.Unlock()
}

func putFields(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// Entries parses every captured record.
func (t *TestLogger) Entries() ([]map[string]any, error) {
	t.mu.Lock()
	raw := t.buffer.String()
	t.mu.Unlock()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record mentions message.
func (t *TestLogger) ContainsMessage(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Contains(t.buffer.String(), message)
}

// ContainsField reports whether some record has key set to value. Numbers
// come back from JSON as float64.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && fmt.Sprint(v) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

// Clear drops all captured output.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	t.buffer.Reset()
	t.mu.Unlock()
}
