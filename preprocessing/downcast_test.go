package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietDowncaster(opts ...DowncastOption) *Downcaster {
	logger, _ := log.NewTestLogger(log.LevelError)
	return NewDowncaster(append([]DowncastOption{WithDowncastLogger(logger)}, opts...)...)
}

func TestDowncastIntegerWidths(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   frame.Kind
	}{
		{"int8 range", []int64{-100, 100}, frame.Int8},
		{"int8 upper bound is exclusive", []int64{0, 127}, frame.Int16},
		{"int8 lower bound is exclusive", []int64{-128, 0}, frame.Int16},
		{"int32 from int16 overflow", []int64{-40000, 40000}, frame.Int32},
		{"int16 fits", []int64{-1000, 32000}, frame.Int16},
		{"int32", []int64{0, 2_000_000_000}, frame.Int32},
		{"int64", []int64{0, 1 << 40}, frame.Int64},
		{"single value", []int64{5}, frame.Int8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := frame.MustNewTable(frame.NewInt64Column("x", tt.values, nil))

			out, _ := quietDowncaster().Transform(tbl)

			col, _ := out.Column("x")
			assert.Equal(t, tt.want, col.Kind())
			for i, want := range tt.values {
				got, ok := col.Int64(i)
				require.True(t, ok)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestDowncastFloatWidths(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   frame.Kind
	}{
		{"large magnitude stays double", []float64{0.0, 1e10}, frame.Float64},
		{"half exact", []float64{0.5, -1.25, 100}, frame.Float16},
		{"half bound is exclusive", []float64{0, 2048}, frame.Float32},
		{"single exact", []float64{0.5, 100000}, frame.Float32},
		{"inexact decimals stay double", []float64{10.65, 15.27}, frame.Float64},
		{"infinity stays double", []float64{1, math.Inf(1)}, frame.Float64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := frame.MustNewTable(frame.NewFloat64Column("x", tt.values, nil))

			out, _ := quietDowncaster().Transform(tbl)

			col, _ := out.Column("x")
			assert.Equal(t, tt.want, col.Kind())
			for i, want := range tt.values {
				got, ok := col.Float64(i)
				require.True(t, ok)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestDowncastAllMissingColumns(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.NewFloat64Column("f", []float64{math.NaN(), math.NaN()}, nil),
		frame.NewInt64Column("i", []int64{0, 0}, []bool{false, false}),
	)

	out, report := quietDowncaster().Transform(tbl)

	f, _ := out.Column("f")
	i, _ := out.Column("i")
	assert.Equal(t, frame.Float64, f.Kind())
	assert.Equal(t, frame.Int64, i.Kind())
	assert.Equal(t, 2, f.NullN())
	assert.Empty(t, report.Changes)
	assert.Zero(t, report.SavedBytes())
}

func TestDowncastEmptyTable(t *testing.T) {
	tbl := frame.MustNewTable(frame.NewInt64Column("x", nil, nil))

	out, report := quietDowncaster().Transform(tbl)

	col, _ := out.Column("x")
	assert.Equal(t, frame.Int64, col.Kind())
	assert.Zero(t, report.SavedPercent())
}

func TestDowncastPreservesNullsAndOrder(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.NewStringColumn("grade", []string{"A", "B", "C"}, nil),
		frame.NewInt64Column("term", []int64{36, 0, 60}, []bool{true, false, true}),
		frame.NewFloat64Column("rate", []float64{0.5, math.NaN(), 0.25}, nil),
	)

	out, report := quietDowncaster().Transform(tbl)

	assert.Equal(t, tbl.Names(), out.Names())
	grade, _ := out.Column("grade")
	assert.Equal(t, frame.Categorical, grade.Kind())

	term, _ := out.Column("term")
	assert.Equal(t, frame.Int8, term.Kind())
	assert.True(t, term.IsNull(1))

	rate, _ := out.Column("rate")
	assert.Equal(t, frame.Float16, rate.Kind())
	assert.True(t, rate.IsNull(1))

	require.Len(t, report.Changes, 2)
	assert.Equal(t, ColumnChange{
		Name:        "term",
		From:        frame.Int64,
		To:          frame.Int8,
		BytesBefore: 3*8 + 1,
		BytesAfter:  3 + 1,
	}, report.Changes[0])
	assert.Greater(t, report.SavedPercent(), 0.0)
	assert.Equal(t, tbl.Bytes()-out.Bytes(), report.SavedBytes())
}

func TestDowncastIdempotent(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.NewInt64Column("a", []int64{-100, 100}, nil),
		frame.NewInt64Column("b", []int64{0, 70000}, nil),
		frame.NewFloat64Column("c", []float64{0.5, 3}, nil),
		frame.NewFloat64Column("d", []float64{0, 1e10}, nil),
	)
	d := quietDowncaster()

	once, _ := d.Transform(tbl)
	twice, report := d.Transform(once)

	assert.Empty(t, report.Changes)
	for i := 0; i < once.NumCols(); i++ {
		assert.Equal(t, once.ColumnAt(i).Kind(), twice.ColumnAt(i).Kind())
	}
}

func TestDowncastNeverWidens(t *testing.T) {
	half, err := frame.NewFloat64Column("h", []float64{0.5, 1}, nil).Cast(frame.Float16)
	require.NoError(t, err)
	tbl := frame.MustNewTable(half)

	out, report := quietDowncaster().Transform(tbl)

	col, _ := out.Column("h")
	assert.Equal(t, frame.Float16, col.Kind())
	assert.Empty(t, report.Changes)
}

func TestDowncastFloatDisabled(t *testing.T) {
	tbl := frame.MustNewTable(
		frame.NewFloat64Column("f", []float64{0.5, 1}, nil),
		frame.NewInt64Column("i", []int64{1, 2}, nil),
	)

	out, _ := quietDowncaster(WithFloatDowncast(false)).Transform(tbl)

	f, _ := out.Column("f")
	i, _ := out.Column("i")
	assert.Equal(t, frame.Float64, f.Kind())
	assert.Equal(t, frame.Int8, i.Kind())
}

func TestDowncastLogsSummary(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	tbl := frame.MustNewTable(frame.NewInt64Column("x", []int64{1, 2, 3}, nil))

	NewDowncaster(WithDowncastLogger(logger)).Transform(tbl)

	assert.True(t, logger.ContainsMessage("memory usage decreased to"))
	assert.True(t, logger.ContainsField(log.ColumnsKey, 1))
}
