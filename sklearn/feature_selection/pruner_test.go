package feature_selection

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietPruner(opts ...PrunerOption) *CorrelationPruner {
	logger, _ := log.NewTestLogger(log.LevelError)
	return NewCorrelationPruner(append([]PrunerOption{WithPrunerLogger(logger)}, opts...)...)
}

func floats(name string, values ...float64) *frame.Column {
	return frame.NewFloat64Column(name, values, nil)
}

func TestRedundantColumnsChain(t *testing.T) {
	// corr(a,b)=0.95, corr(a,c)=0.10, corr(b,c)=0.92
	m := newCorrelationMatrix([]string{"a", "b", "c"}, []float64{
		1, 0.95, 0.10,
		0.95, 1, 0.92,
		0.10, 0.92, 1,
	})

	assert.Equal(t, []string{"b", "c"}, redundantColumns(m, 0.90))
}

func TestRedundantColumnsLaterIndexDropped(t *testing.T) {
	m := newCorrelationMatrix([]string{"x", "y"}, []float64{
		1, 0.99,
		0.99, 1,
	})
	assert.Equal(t, []string{"y"}, redundantColumns(m, 0.90))

	atThreshold := newCorrelationMatrix([]string{"x", "y"}, []float64{
		1, 0.90,
		0.90, 1,
	})
	assert.Empty(t, redundantColumns(atThreshold, 0.90), "threshold comparison is strict")
}

func TestRedundantColumnsNaNNeverExceeds(t *testing.T) {
	nan := math.NaN()
	m := newCorrelationMatrix([]string{"x", "y"}, []float64{
		1, nan,
		nan, 1,
	})
	assert.Empty(t, redundantColumns(m, 0.5))
}

func TestCorrelationPrunerChainFromData(t *testing.T) {
	// rho(a,b) = rho(b,c) = 0.943, rho(a,c) = 0.886
	tbl := frame.MustNewTable(
		floats("a", 1, 2, 3, 4, 5, 6),
		floats("b", 1, 2, 3, 4, 6, 5),
		floats("c", 2, 1, 3, 4, 6, 5),
	)

	p := quietPruner()
	out, err := p.FitTransform(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, p.DropSet().Names())
	assert.Equal(t, []string{"a"}, out.Names())

	ac, ok := p.Matrix().Get("a", "c")
	require.True(t, ok)
	assert.InDelta(t, 1-24.0/210, ac, 1e-12)
}

func TestCorrelationPrunerExcludesTarget(t *testing.T) {
	tbl := frame.MustNewTable(
		floats("loan_amnt", 1, 2, 3, 4, 5),
		frame.NewInt64Column("target", []int64{1, 2, 3, 4, 5}, nil),
		floats("installment", 2, 4, 6, 8, 10),
		frame.NewStringColumn("grade", []string{"A", "B", "C", "D", "E"}, nil),
	)

	p := quietPruner(WithExclude("target"))
	out, err := p.FitTransform(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"installment"}, p.DropSet().Names())
	assert.Equal(t, []string{"loan_amnt", "target", "grade"}, out.Names())
	assert.Equal(t, -1, p.Matrix().Index("target"), "excluded columns are never examined")
	assert.Equal(t, -1, p.Matrix().Index("grade"))
}

func TestCorrelationPrunerNegativeCorrelation(t *testing.T) {
	tbl := frame.MustNewTable(
		floats("dti", 1, 2, 3, 4),
		floats("inverse", 4, 3, 2, 1),
	)
	p := quietPruner()
	require.NoError(t, p.Fit(tbl))
	assert.True(t, p.DropSet().Contains("inverse"))
}

func TestCorrelationPrunerValidation(t *testing.T) {
	tbl := frame.MustNewTable(floats("a", 1, 2))

	for _, th := range []float64{0, -0.5, 1.5, math.NaN()} {
		err := quietPruner(WithThreshold(th)).Fit(tbl)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "threshold %v", th)
	}

	_, err := quietPruner().Transform(tbl)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestCorrelationPrunerLogsDropSet(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	tbl := frame.MustNewTable(
		floats("a", 1, 2, 3),
		floats("b", 2, 4, 6),
	)

	p := NewCorrelationPruner(WithPrunerLogger(logger))
	require.NoError(t, p.Fit(tbl))

	assert.True(t, logger.ContainsMessage("1 of 2 columns exceed the correlation threshold"))
	assert.True(t, logger.ContainsField(log.ThresholdKey, 0.9))
}

func TestSpearmanMatrixSymmetric(t *testing.T) {
	nan := math.NaN()
	tbl := frame.MustNewTable(
		floats("a", 1, 5, 2, 8, 3, nan),
		floats("b", 3, 1, 4, 1, 5, 9),
		floats("c", 2, 7, 1, 8, 2, 8),
		floats("d", 7, 7, 7, 7, 7, 7),
	)
	names := tbl.NumericNames()

	m, err := SpearmanMatrix(tbl, names)
	require.NoError(t, err)
	require.Equal(t, 4, m.Dims())

	for i := range names {
		assert.Equal(t, 1.0, m.At(i, i))
		for j := range names {
			a, b := m.At(i, j), m.At(j, i)
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b))
				continue
			}
			assert.Equal(t, a, b)
			assert.GreaterOrEqual(t, a, 0.0)
			assert.LessOrEqual(t, a, 1.0+1e-12)
		}
	}

	ad, _ := m.Get("a", "d")
	assert.True(t, math.IsNaN(ad), "constant column has undefined correlation")
}

func TestSpearmanMatrixErrors(t *testing.T) {
	tbl := frame.MustNewTable(
		floats("a", 1, 2),
		frame.NewStringColumn("grade", []string{"A", "B"}, nil),
	)

	_, err := SpearmanMatrix(tbl, []string{"a", "missing"})
	var nf *errors.ColumnNotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = SpearmanMatrix(tbl, []string{"grade"})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestSpearman(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"perfect monotone", []float64{1, 2, 3, 4}, []float64{10, 100, 1000, 10000}, 1},
		{"perfect inverse", []float64{1, 2, 3}, []float64{3, 2, 1}, -1},
		{"pairwise complete", []float64{1, 2, nan, 3}, []float64{1, 2, 0, 3}, 1},
		{"one complete row", []float64{1, nan}, []float64{1, 2}, nan},
		{"constant", []float64{1, 2, 3}, []float64{5, 5, 5}, nan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Spearman(tt.x, tt.y)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRankAveragesTies(t *testing.T) {
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, rank([]float64{1, 2, 2, 3}))
	assert.Equal(t, []float64{3, 1, 2}, rank([]float64{9, -1, 0}))
}

func TestUndefinedCorrelations(t *testing.T) {
	tbl := frame.MustNewTable(
		floats("loan_amnt", 1, 2, 3, 4),
		floats("policy_code", 1, 1, 1, 1),
		floats("sparse", 5, math.NaN(), math.NaN(), math.NaN()),
		frame.NewInt64Column("target", []int64{0, 1, 0, 1}, nil),
	)

	undefined, err := UndefinedCorrelations(tbl, "target")
	require.NoError(t, err)
	assert.Equal(t, []string{"policy_code", "sparse"}, undefined)

	_, err = UndefinedCorrelations(tbl, "nope")
	assert.Error(t, err)
}

func TestDropSetUnion(t *testing.T) {
	a := newDropSet([]string{"b", "c"})
	b := newDropSet([]string{"d", "b"})

	u := a.Union(b)
	assert.Equal(t, []string{"b", "c", "d"}, u.Names())
	assert.Equal(t, 3, u.Len())
	assert.True(t, u.Contains("d"))
}
