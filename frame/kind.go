// Package frame holds the tabular data model: an immutable Table of named
// Columns, each backed by a typed Apache Arrow array. Missing values are
// Arrow nulls.
package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the storage type of a column.
type Kind int

const (
	Int8 Kind = iota
	Int16
	Int32
	Int64
	Float16
	Float32
	Float64
	Categorical
)

// IsNumeric reports whether the kind holds numbers.
func (k Kind) IsNumeric() bool {
	return k != Categorical
}

// IsInteger reports whether the kind is a signed integer width.
func (k Kind) IsInteger() bool {
	return k >= Int8 && k <= Int64
}

// IsFloat reports whether the kind is a floating-point width.
func (k Kind) IsFloat() bool {
	return k >= Float16 && k <= Float64
}

// Bits is the storage width of one value. Categorical returns 0.
func (k Kind) Bits() int {
	switch k {
	case Int8:
		return 8
	case Int16, Float16:
		return 16
	case Int32, Float32:
		return 32
	case Int64, Float64:
		return 64
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Categorical:
		return "category"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := Int8; k <= Categorical; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// DataType returns the Arrow type that stores this kind.
func (k Kind) DataType() arrow.DataType {
	switch k {
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float16:
		return arrow.FixedWidthTypes.Float16
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func kindOf(dt arrow.DataType) (Kind, bool) {
	switch dt.ID() {
	case arrow.INT8:
		return Int8, true
	case arrow.INT16:
		return Int16, true
	case arrow.INT32:
		return Int32, true
	case arrow.INT64:
		return Int64, true
	case arrow.FLOAT16:
		return Float16, true
	case arrow.FLOAT32:
		return Float32, true
	case arrow.FLOAT64:
		return Float64, true
	case arrow.STRING:
		return Categorical, true
	default:
		return 0, false
	}
}
