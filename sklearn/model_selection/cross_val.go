package model_selection

import (
	"context"
	"fmt"
	"math"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/metrics"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Factory returns a fresh, unfitted classifier for each fold.
type Factory func() model.Classifier

// Scorer evaluates a fitted classifier on held-out data; higher is better.
type Scorer func(clf model.Classifier, X, y mat.Matrix) (float64, error)

// AccuracyScorer scores with the classifier's own Score method.
func AccuracyScorer(clf model.Classifier, X, y mat.Matrix) (float64, error) {
	return clf.Score(X, y)
}

// ROCAUCScorer scores a binary classifier by the AUC of the probability it
// assigns to the larger class label.
func ROCAUCScorer(clf model.Classifier, X, y mat.Matrix) (float64, error) {
	classes := clf.Classes()
	if len(classes) != 2 {
		return 0, errors.NewValueError("ROCAUCScorer",
			fmt.Sprintf("needs a binary classifier, got %d classes", len(classes)))
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}
	n, _ := proba.Dims()
	yTrue := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if int(y.At(i, 0)) == classes[1] {
			yTrue.SetVec(i, 1)
		}
	}
	return metrics.AUC(yTrue, mat.NewVecDense(n, mat.Col(nil, 1, proba)))
}

// CrossValScore fits a new classifier on the training rows of every fold
// and returns the scorer's result on the test rows, in fold order. Folds
// run concurrently; the first error cancels the rest.
func CrossValScore(ctx context.Context, factory Factory, X, y mat.Matrix, splitter Splitter, scorer Scorer) ([]float64, error) {
	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = AccuracyScorer
	}

	scores := make([]float64, len(folds))
	g, ctx := errgroup.WithContext(ctx)
	for i, fold := range folds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return errors.SafeExecute(fmt.Sprintf("fold %d", i), func() error {
				XTrain, yTrain := Subset(X, y, fold.TrainIndices)
				XTest, yTest := Subset(X, y, fold.TestIndices)

				clf := factory()
				if err := clf.Fit(XTrain, yTrain); err != nil {
					return errors.Wrapf(err, "fold %d fit", i)
				}
				score, err := scorer(clf, XTest, yTest)
				if err != nil {
					return errors.Wrapf(err, "fold %d score", i)
				}
				scores[i] = score
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Mean of the fold scores, 0 for none.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// Std is the sample standard deviation of the fold scores, 0 for fewer
// than two.
func Std(scores []float64) float64 {
	if len(scores) <= 1 {
		return 0
	}
	mean := Mean(scores)
	var sumSq float64
	for _, s := range scores {
		sumSq += (s - mean) * (s - mean)
	}
	return math.Sqrt(sumSq / float64(len(scores)-1))
}
