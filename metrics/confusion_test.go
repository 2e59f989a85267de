package metrics

import (
	"math"
	"sync"
	"testing"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

// collectWarnings captures warnings emitted while the test runs.
func collectWarnings(t *testing.T) func() []error {
	t.Helper()
	var mu sync.Mutex
	var got []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), got...)
	}
}

func TestConfusionMatrix(t *testing.T) {
	c, err := ConfusionMatrix(vec(0, 0, 0, 1, 1, 1, 1), vec(0, 1, 0, 1, 1, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, Confusion{TN: 2, FP: 1, FN: 1, TP: 3}, *c)
	assert.Equal(t, []float64{2, 1, 1, 3}, c.Matrix().RawMatrix().Data)
	assert.Equal(t, "[[2 1]\n [1 3]]", c.String())

	assert.InDelta(t, 0.75, c.Precision(), 1e-12)
	assert.InDelta(t, 0.75, c.Recall(), 1e-12)
	assert.InDelta(t, 0.75, c.F1(), 1e-12)

	_, err = ConfusionMatrix(vec(0, 2), vec(0, 1))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, err = ConfusionMatrix(vec(0, 1), vec(0))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := vec(1, 1, 0, 0, 1)
	yPred := vec(1, 0, 1, 0, 1)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, p, 1e-12)

	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, r, 1e-12)

	f, err := F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, f, 1e-12)
}

func TestUndefinedMetricsWarn(t *testing.T) {
	warnings := collectWarnings(t)

	p, err := Precision(vec(0, 1), vec(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	f, err := F1(vec(0, 1), vec(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)

	auc, err := AUC(vec(1, 1), vec(0.2, 0.9))
	require.NoError(t, err)
	assert.Equal(t, 0.5, auc)

	got := warnings()
	require.NotEmpty(t, got)
	for _, w := range got {
		var uw *errors.UndefinedMetricWarning
		assert.True(t, errors.As(w, &uw), "unexpected warning %v", w)
	}
}

func TestROCCurve(t *testing.T) {
	fpr, tpr, thresholds, err := ROCCurve(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, fpr)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, tpr)
	assert.True(t, math.IsInf(thresholds[0], 1))
	assert.Equal(t, []float64{0.8, 0.4, 0.35, 0.1}, thresholds[1:])

	// trapezoids over the curve agree with AUC
	var area float64
	for k := 1; k < len(fpr); k++ {
		area += (fpr[k] - fpr[k-1]) * (tpr[k] + tpr[k-1]) / 2
	}
	auc, err := AUC(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)
	assert.InDelta(t, auc, area, 1e-12)

	_, _, _, err = ROCCurve(vec(1, 1), vec(0.1, 0.2))
	assert.Error(t, err)
}

func TestROCCurveTies(t *testing.T) {
	fpr, tpr, _, err := ROCCurve(vec(0, 1, 0, 1), vec(0.5, 0.5, 0.2, 0.9))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0.5, 1}, fpr)
	assert.Equal(t, []float64{0, 0.5, 1, 1}, tpr)
}

func TestBrierScore(t *testing.T) {
	got, err := BrierScore(vec(0, 1, 1), vec(0.1, 0.9, 0.6))
	require.NoError(t, err)
	assert.InDelta(t, (0.01+0.01+0.16)/3, got, 1e-12)

	_, err = BrierScore(vec(0, 3), vec(0.1, 0.9))
	assert.Error(t, err)
}

func TestClassificationReport(t *testing.T) {
	r, err := ClassificationReport(vec(0, 0, 0, 0, 1, 1), vec(0, 0, 0, 0, 1, 0))
	require.NoError(t, err)

	require.Len(t, r.Classes, 2)
	assert.Equal(t, "0", r.Classes[0].Label)
	assert.InDelta(t, 0.8, r.Classes[0].Precision, 1e-12)
	assert.Equal(t, 4, r.Classes[0].Support)
	assert.InDelta(t, 0.5, r.Classes[1].Recall, 1e-12)
	assert.InDelta(t, 5.0/6, r.Accuracy, 1e-12)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "classification_report", []byte(r.String()))
}

func TestClassificationReportRejectsFractionalLabels(t *testing.T) {
	_, err := ClassificationReport(vec(0, 0.5), vec(0, 1))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}
