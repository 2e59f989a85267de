// Package model defines the estimator interfaces shared by the
// preprocessing, feature selection and model packages.
package model

import "gonum.org/v1/gonum/mat"

// Fitter learns from features X and labels y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces one prediction per row of X.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer evaluates predictions for X against y. Classifiers return
// accuracy.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Classifier is a supervised model with class probabilities.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns one column per class, in Classes order.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during Fit.
	Classes() []int

	IsFitted() bool
}

// ParameterGetter exposes hyperparameters, mainly for logging.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
