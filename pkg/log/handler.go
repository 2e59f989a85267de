package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// appendField adds one key/value pair to a zerolog event. Errors get their
// cockroachdb/errors stack trace attached under StacktraceKey, and values
// that know how to marshal themselves are emitted as objects.
func appendField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case error:
		e = e.AnErr(key, v)
		if st := extractStacktrace(v); st != "" {
			e = e.Str(StacktraceKey, st)
		}
		var m zerolog.LogObjectMarshaler
		if errors.As(v, &m) {
			e = e.Object(ErrorTypeKey, m)
		}
		return e
	case zerolog.LogObjectMarshaler:
		return e.Object(key, v)
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case float64:
		return e.Float64(key, v)
	case bool:
		return e.Bool(key, v)
	case []string:
		return e.Strs(key, v)
	default:
		return e.Interface(key, v)
	}
}

// appendFields consumes alternating key/value pairs. A leading error
// without a key is logged under "error".
func appendFields(e *zerolog.Event, fields []any) *zerolog.Event {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = appendField(e, zerolog.ErrorFieldName, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		e = appendField(e, fmt.Sprint(fields[i]), fields[i+1])
	}
	return e
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
