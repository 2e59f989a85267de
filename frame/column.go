package frame

import (
	"fmt"
	"math"
	"strconv"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var mem = memory.DefaultAllocator

// Column is a named, immutable Arrow array.
type Column struct {
	name string
	kind Kind
	arr  arrow.Array
}

// NewColumn wraps an existing Arrow array. Only signed integers, floats and
// strings are accepted.
func NewColumn(name string, arr arrow.Array) (*Column, error) {
	kind, ok := kindOf(arr.DataType())
	if !ok {
		return nil, errors.NewValueError("NewColumn",
			fmt.Sprintf("column '%s': unsupported Arrow type %s", name, arr.DataType()))
	}
	return &Column{name: name, kind: kind, arr: arr}, nil
}

// NewInt64Column builds an int64 column. A nil valid slice marks every
// value present.
func NewInt64Column(name string, values []int64, valid []bool) *Column {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return &Column{name: name, kind: Int64, arr: b.NewArray()}
}

// NewFloat64Column builds a float64 column. NaN values are stored as nulls.
func NewFloat64Column(name string, values []float64, valid []bool) *Column {
	v := make([]bool, len(values))
	for i, x := range values {
		v[i] = !math.IsNaN(x) && (valid == nil || valid[i])
	}
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, v)
	return &Column{name: name, kind: Float64, arr: b.NewArray()}
}

// NewStringColumn builds a categorical column.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return &Column{name: name, kind: Categorical, arr: b.NewArray()}
}

// Name returns the column header.
func (c *Column) Name() string { return c.name }

// Kind returns the storage kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows, missing ones included.
func (c *Column) Len() int { return c.arr.Len() }

// NullN returns the number of missing cells.
func (c *Column) NullN() int { return c.arr.NullN() }

// IsNull reports whether row i is missing.
func (c *Column) IsNull(i int) bool { return c.arr.IsNull(i) }

// Array returns the backing Arrow array. The column keeps ownership.
func (c *Column) Array() arrow.Array { return c.arr }

// Renamed returns the same data under a new name.
func (c *Column) Renamed(name string) *Column {
	return &Column{name: name, kind: c.kind, arr: c.arr}
}

// Float64 returns the value at row i widened to float64. ok is false for
// nulls and categorical columns.
func (c *Column) Float64(i int) (float64, bool) {
	if c.arr.IsNull(i) {
		return 0, false
	}
	switch a := c.arr.(type) {
	case *array.Int8:
		return float64(a.Value(i)), true
	case *array.Int16:
		return float64(a.Value(i)), true
	case *array.Int32:
		return float64(a.Value(i)), true
	case *array.Int64:
		return float64(a.Value(i)), true
	case *array.Float16:
		return float64(a.Value(i).Float32()), true
	case *array.Float32:
		return float64(a.Value(i)), true
	case *array.Float64:
		return a.Value(i), true
	default:
		return 0, false
	}
}

// Int64 returns the value at row i of an integer column.
func (c *Column) Int64(i int) (int64, bool) {
	if c.arr.IsNull(i) {
		return 0, false
	}
	switch a := c.arr.(type) {
	case *array.Int8:
		return int64(a.Value(i)), true
	case *array.Int16:
		return int64(a.Value(i)), true
	case *array.Int32:
		return int64(a.Value(i)), true
	case *array.Int64:
		return a.Value(i), true
	default:
		return 0, false
	}
}

// String returns the textual form of row i for any kind.
func (c *Column) String(i int) (string, bool) {
	if c.arr.IsNull(i) {
		return "", false
	}
	if s, ok := c.arr.(*array.String); ok {
		return s.Value(i), true
	}
	if v, ok := c.Int64(i); ok {
		return strconv.FormatInt(v, 10), true
	}
	v, _ := c.Float64(i)
	bits := 64
	if c.kind == Float32 || c.kind == Float16 {
		bits = 32
	}
	return strconv.FormatFloat(v, 'g', -1, bits), true
}

// Float64s copies the column into a float64 slice with NaN for missing
// values. Categorical columns yield all NaN.
func (c *Column) Float64s() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		v, ok := c.Float64(i)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// MinMax scans the non-missing values. NaN is treated as missing. ok is
// false when nothing was observed.
func (c *Column) MinMax() (lo, hi float64, ok bool) {
	if !c.kind.IsNumeric() {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < c.Len(); i++ {
		v, present := c.Float64(i)
		if !present || math.IsNaN(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// Bytes is the storage footprint of the column: value buffers plus the
// validity bitmap when the column has nulls.
func (c *Column) Bytes() int64 {
	n := int64(c.Len())
	var bitmap int64
	if c.NullN() > 0 {
		bitmap = (n + 7) / 8
	}
	if s, ok := c.arr.(*array.String); ok {
		return (n+1)*4 + int64(len(s.ValueBytes())) + bitmap
	}
	return n*int64(c.kind.Bits())/8 + bitmap
}

type valueBuilder[T any] interface {
	Append(T)
	AppendNull()
	Reserve(int)
	NewArray() arrow.Array
	Release()
}

func fill[T any](n int, isNull func(int) bool, b valueBuilder[T], at func(int) T) arrow.Array {
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		if isNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(at(i))
	}
	return b.NewArray()
}

// Cast rewrites a numeric column to another numeric width. Nulls stay
// nulls; values are converted with Go conversion rules, so callers must
// check the range first when narrowing.
func (c *Column) Cast(k Kind) (*Column, error) {
	if k == c.kind {
		return c, nil
	}
	if !c.kind.IsNumeric() || !k.IsNumeric() {
		return nil, errors.NewValueError("Cast",
			fmt.Sprintf("column '%s': cannot cast %s to %s", c.name, c.kind, k))
	}

	n := c.Len()
	null := c.arr.IsNull
	f := func(i int) float64 { v, _ := c.Float64(i); return v }
	iv := func(i int) int64 {
		if v, ok := c.Int64(i); ok {
			return v
		}
		return int64(f(i))
	}

	var out arrow.Array
	switch k {
	case Int8:
		out = fill(n, null, array.NewInt8Builder(mem), func(i int) int8 { return int8(iv(i)) })
	case Int16:
		out = fill(n, null, array.NewInt16Builder(mem), func(i int) int16 { return int16(iv(i)) })
	case Int32:
		out = fill(n, null, array.NewInt32Builder(mem), func(i int) int32 { return int32(iv(i)) })
	case Int64:
		out = fill(n, null, array.NewInt64Builder(mem), iv)
	case Float16:
		out = fill(n, null, array.NewFloat16Builder(mem), func(i int) float16.Num { return float16.New(float32(f(i))) })
	case Float32:
		out = fill(n, null, array.NewFloat32Builder(mem), func(i int) float32 { return float32(f(i)) })
	case Float64:
		out = fill(n, null, array.NewFloat64Builder(mem), f)
	}
	return &Column{name: c.name, kind: k, arr: out}, nil
}

// Take returns the rows at the given positions, in that order.
func (c *Column) Take(rows []int) *Column {
	n := len(rows)
	null := func(i int) bool { return c.arr.IsNull(rows[i]) }

	var out arrow.Array
	switch a := c.arr.(type) {
	case *array.Int8:
		out = fill(n, null, array.NewInt8Builder(mem), func(i int) int8 { return a.Value(rows[i]) })
	case *array.Int16:
		out = fill(n, null, array.NewInt16Builder(mem), func(i int) int16 { return a.Value(rows[i]) })
	case *array.Int32:
		out = fill(n, null, array.NewInt32Builder(mem), func(i int) int32 { return a.Value(rows[i]) })
	case *array.Int64:
		out = fill(n, null, array.NewInt64Builder(mem), func(i int) int64 { return a.Value(rows[i]) })
	case *array.Float16:
		out = fill(n, null, array.NewFloat16Builder(mem), func(i int) float16.Num { return a.Value(rows[i]) })
	case *array.Float32:
		out = fill(n, null, array.NewFloat32Builder(mem), func(i int) float32 { return a.Value(rows[i]) })
	case *array.Float64:
		out = fill(n, null, array.NewFloat64Builder(mem), func(i int) float64 { return a.Value(rows[i]) })
	case *array.String:
		out = fill(n, null, array.NewStringBuilder(mem), func(i int) string { return a.Value(rows[i]) })
	}
	return &Column{name: c.name, kind: c.kind, arr: out}
}
