package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/apache/arrow-go/v18/arrow/float16"
)

// Exact ranges of the float widths: every integer strictly inside the
// bound is representable without gaps.
const (
	float16ExactBound = 1 << 11
	float32ExactBound = 1 << 24
)

// ColumnChange records one column rewritten to a narrower width.
type ColumnChange struct {
	Name        string
	From        frame.Kind
	To          frame.Kind
	BytesBefore int64
	BytesAfter  int64
}

// DowncastReport summarizes a Downcaster run. It is informational only.
type DowncastReport struct {
	Changes     []ColumnChange
	BytesBefore int64
	BytesAfter  int64
}

// SavedBytes is BytesBefore - BytesAfter.
func (r *DowncastReport) SavedBytes() int64 {
	return r.BytesBefore - r.BytesAfter
}

// SavedPercent is the reduction relative to BytesBefore, in percent.
func (r *DowncastReport) SavedPercent() float64 {
	if r.BytesBefore == 0 {
		return 0
	}
	return 100 * float64(r.SavedBytes()) / float64(r.BytesBefore)
}

// Downcaster rewrites every numeric column to the narrowest width that
// holds all of its values.
//
// Integer columns take the first of int8, int16, int32, int64 whose range
// strictly contains [min, max]. Float columns take the first of float16,
// float32, float64 whose exact range strictly contains [min, max] and in
// which every value round-trips unchanged. Columns are never widened, so
// the transform is idempotent. Categorical, empty and all-missing columns
// pass through untouched.
type Downcaster struct {
	floats bool
	logger log.Logger
}

// DowncastOption configures a Downcaster.
type DowncastOption func(*Downcaster)

// WithDowncastLogger sets the logger.
func WithDowncastLogger(logger log.Logger) DowncastOption {
	return func(d *Downcaster) {
		d.logger = logger
	}
}

// WithFloatDowncast enables or disables float narrowing. Integer narrowing
// always applies.
func WithFloatDowncast(enabled bool) DowncastOption {
	return func(d *Downcaster) {
		d.floats = enabled
	}
}

// NewDowncaster returns a Downcaster with float narrowing enabled.
func NewDowncaster(opts ...DowncastOption) *Downcaster {
	d := &Downcaster{floats: true}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.GetLoggerWithName("preprocessing").With(log.ModelNameKey, "Downcaster")
	}
	return d
}

// Downcast runs a default Downcaster.
func Downcast(t *frame.Table) (*frame.Table, *DowncastReport) {
	return NewDowncaster().Transform(t)
}

// Transform returns a table with the same columns, order and nulls in
// which numeric columns are stored at their minimal width.
func (d *Downcaster) Transform(t *frame.Table) (*frame.Table, *DowncastReport) {
	report := &DowncastReport{BytesBefore: t.Bytes()}

	cols := t.Columns()
	for i, col := range cols {
		target := d.TargetKind(col)
		if target.Bits() >= col.Kind().Bits() {
			continue
		}
		narrowed, err := col.Cast(target)
		if err != nil {
			d.logger.Warn("cast failed", err, log.ColumnKey, col.Name())
			continue
		}
		cols[i] = narrowed
		report.Changes = append(report.Changes, ColumnChange{
			Name:        col.Name(),
			From:        col.Kind(),
			To:          target,
			BytesBefore: col.Bytes(),
			BytesAfter:  narrowed.Bytes(),
		})
		d.logger.Debug("column narrowed",
			log.ColumnKey, col.Name(),
			log.KindFromKey, col.Kind().String(),
			log.KindToKey, target.String(),
		)
	}

	// Same names and lengths as t, so this cannot fail.
	out := frame.MustNewTable(cols...)
	report.BytesAfter = out.Bytes()

	d.logger.Info(fmt.Sprintf("memory usage decreased to %.2f MB (%.1f%% reduction)",
		float64(report.BytesAfter)/(1<<20), report.SavedPercent()),
		log.OperationKey, log.OperationTransform,
		log.ColumnsKey, len(report.Changes),
		log.BytesSavedKey, report.SavedBytes(),
	)
	return out, report
}

// TargetKind is the width Transform would choose for col, before the
// never-widen check. Columns with nothing to measure keep their kind.
func (d *Downcaster) TargetKind(col *frame.Column) frame.Kind {
	switch {
	case col.Kind().IsInteger():
		return integerKind(col)
	case col.Kind().IsFloat() && d.floats:
		return d.floatKind(col)
	default:
		return col.Kind()
	}
}

func integerKind(col *frame.Column) frame.Kind {
	lo, hi, ok := intRange(col)
	if !ok {
		return col.Kind()
	}
	switch {
	case lo > math.MinInt8 && hi < math.MaxInt8:
		return frame.Int8
	case lo > math.MinInt16 && hi < math.MaxInt16:
		return frame.Int16
	case lo > math.MinInt32 && hi < math.MaxInt32:
		return frame.Int32
	default:
		return frame.Int64
	}
}

func intRange(col *frame.Column) (lo, hi int64, ok bool) {
	lo, hi = math.MaxInt64, math.MinInt64
	for i := 0; i < col.Len(); i++ {
		v, present := col.Int64(i)
		if !present {
			continue
		}
		ok = true
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, ok
}

func (d *Downcaster) floatKind(col *frame.Column) frame.Kind {
	lo, hi, ok := col.MinMax()
	if !ok {
		return col.Kind()
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		errors.Warn(errors.NewDataConversionWarning(col.Name(), col.Kind().String(), frame.Float64.String(),
			"column holds infinite values"))
		return frame.Float64
	}

	values := col.Float64s()
	if lo > -float16ExactBound && hi < float16ExactBound && roundTrips(values, toFloat16) {
		return frame.Float16
	}
	if lo > -float32ExactBound && hi < float32ExactBound && roundTrips(values, toFloat32) {
		return frame.Float32
	}
	return frame.Float64
}

func toFloat16(v float64) float64 { return float64(float16.New(float32(v)).Float32()) }
func toFloat32(v float64) float64 { return float64(float32(v)) }

// roundTrips reports whether every non-missing value survives conversion.
func roundTrips(values []float64, conv func(float64) float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if conv(v) != v {
			return false
		}
	}
	return true
}
