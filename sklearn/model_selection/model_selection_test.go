package model_selection

import (
	"context"
	"testing"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/YuminosukeSato/loanrisk/sklearn/naive_bayes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// labelled returns n rows whose single feature equals the row index, with
// every third row labelled 1.
func labelled(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i%3 == 0 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func assertPartition(t *testing.T, n int, folds []Fold) {
	t.Helper()
	seen := make(map[int]int)
	for _, f := range folds {
		assert.Equal(t, n, len(f.TrainIndices)+len(f.TestIndices))
		assert.IsIncreasing(t, f.TestIndices)
		assert.IsIncreasing(t, f.TrainIndices)
		for _, idx := range f.TestIndices {
			seen[idx]++
		}
	}
	require.Len(t, seen, n)
	for idx, count := range seen {
		assert.Equal(t, 1, count, "row %d tested %d times", idx, count)
	}
}

func TestKFold(t *testing.T) {
	X, _ := labelled(10)

	folds, err := NewKFold(3, false, 0).Split(X, nil)
	require.NoError(t, err)
	require.Len(t, folds, 3)
	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].TestIndices)
	assert.Equal(t, []int{4, 5, 6}, folds[1].TestIndices)
	assert.Equal(t, []int{7, 8, 9}, folds[2].TestIndices)
	assertPartition(t, 10, folds)

	shuffled, err := NewKFold(3, true, 42).Split(X, nil)
	require.NoError(t, err)
	assertPartition(t, 10, shuffled)
	again, err := NewKFold(3, true, 42).Split(X, nil)
	require.NoError(t, err)
	assert.Equal(t, shuffled, again, "same seed, same folds")

	assert.Equal(t, 5, NewKFold(1, false, 0).NSplits())

	_, err = NewKFold(5, false, 0).Split(mat.NewDense(3, 1, nil), nil)
	assert.Error(t, err)
}

func TestStratifiedKFold(t *testing.T) {
	X, y := labelled(12) // 4 positives, 8 negatives

	folds, err := NewStratifiedKFold(4, true, 7).Split(X, y)
	require.NoError(t, err)
	assertPartition(t, 12, folds)

	for _, f := range folds {
		pos := 0
		for _, idx := range f.TestIndices {
			if y.At(idx, 0) == 1 {
				pos++
			}
		}
		assert.Equal(t, 1, pos, "each fold gets one positive")
		assert.Len(t, f.TestIndices, 3)
	}

	_, err = NewStratifiedKFold(2, false, 0).Split(X, mat.NewDense(3, 1, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestTrainTestSplit(t *testing.T) {
	X, y := labelled(30) // 10 positives

	split, err := TrainTestSplit(X, y, 0.2, true, 1)
	require.NoError(t, err)

	assert.Len(t, split.TestIndices, 6)
	assert.Len(t, split.TrainIndices, 24)
	pos := 0
	for i := 0; i < 6; i++ {
		if split.YTest.At(i, 0) == 1 {
			pos++
		}
	}
	assert.Equal(t, 2, pos, "class ratio preserved")

	// rows line up with their labels
	for i, idx := range split.TestIndices {
		assert.Equal(t, float64(idx), split.XTest.At(i, 0))
		assert.Equal(t, y.At(idx, 0), split.YTest.At(i, 0))
	}

	again, err := TrainTestSplit(X, y, 0.2, true, 1)
	require.NoError(t, err)
	assert.Equal(t, split.TestIndices, again.TestIndices)

	plain, err := TrainTestSplit(X, y, 0.25, false, 3)
	require.NoError(t, err)
	assert.Len(t, plain.TestIndices, 8)
}

func TestTrainTestSplitRareClass(t *testing.T) {
	tests := []struct {
		name         string
		positives    []int
		wantTestPos  int
		wantTestRows int
	}{
		// round(0.2*2) is 0 but a class of two still reaches the test part
		{"two positives", []int{3, 30}, 1, 9},
		{"single positive stays in training", []int{17}, 0, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 40
			X := mat.NewDense(n, 1, nil)
			y := mat.NewDense(n, 1, nil)
			for i := 0; i < n; i++ {
				X.Set(i, 0, float64(i))
			}
			for _, i := range tt.positives {
				y.Set(i, 0, 1)
			}

			split, err := TrainTestSplit(X, y, 0.2, true, 11)
			require.NoError(t, err)
			assert.Len(t, split.TestIndices, tt.wantTestRows)
			assert.Equal(t, float64(tt.wantTestPos), mat.Sum(split.YTest))
			assert.Equal(t, float64(len(tt.positives)-tt.wantTestPos), mat.Sum(split.YTrain))
		})
	}
}

func TestTrainTestSplitValidation(t *testing.T) {
	X, y := labelled(10)
	for _, size := range []float64{0, 1, -0.1, 1.5} {
		_, err := TrainTestSplit(X, y, size, false, 0)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "test size %v", size)
	}

	_, err := TrainTestSplit(X, mat.NewDense(4, 1, nil), 0.2, false, 0)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestCrossValScore(t *testing.T) {
	// two well separated clusters, alternating labels by row
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X.Set(i, 0, float64(i)*0.01)
		} else {
			X.Set(i, 0, 10+float64(i)*0.01)
			y.Set(i, 0, 1)
		}
	}
	logger, _ := log.NewTestLogger(log.LevelError)
	factory := func() model.Classifier { return naive_bayes.NewGaussianNB(naive_bayes.WithNBLogger(logger)) }

	scores, err := CrossValScore(context.Background(), factory, X, y, NewStratifiedKFold(5, true, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, scores)
	assert.Equal(t, 1.0, Mean(scores))
	assert.Equal(t, 0.0, Std(scores))

	auc, err := CrossValScore(context.Background(), factory, X, y, NewStratifiedKFold(4, false, 0), ROCAUCScorer)
	require.NoError(t, err)
	assert.Len(t, auc, 4)
	for _, s := range auc {
		assert.Equal(t, 1.0, s)
	}
}

func TestCrossValScorePropagatesErrors(t *testing.T) {
	X, y := labelled(6)

	logger, _ := log.NewTestLogger(log.LevelError)
	factory := func() model.Classifier { return naive_bayes.NewGaussianNB(naive_bayes.WithNBLogger(logger)) }

	_, err := CrossValScore(context.Background(), factory, X, mat.NewDense(5, 1, nil), NewStratifiedKFold(2, false, 0), nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CrossValScore(ctx, factory, X, y, NewKFold(3, false, 0), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanStd(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Std([]float64{3}))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 1.0, Std([]float64{1, 2, 3}), 1e-12)
}
