// Package naive_bayes provides Gaussian naive Bayes classification.
package naive_bayes

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var _ model.Classifier = (*GaussianNB)(nil)

// GaussianNB models each feature as an independent normal distribution per
// class.
type GaussianNB struct {
	state *model.StateManager

	// varSmoothing is the share of the largest feature variance added to
	// every variance.
	varSmoothing float64
	priors       []float64 // user supplied, nil to estimate

	classes_    []int
	classPrior_ []float64
	classCount_ []float64
	theta_      [][]float64 // class × feature means
	var_        [][]float64 // class × feature variances, smoothed
	epsilon_    float64
	nFeatures_  int

	logger log.Logger
}

// GaussianNBOption configures a GaussianNB.
type GaussianNBOption func(*GaussianNB)

// WithVarSmoothing sets the variance smoothing factor, 1e-9 by default.
func WithVarSmoothing(v float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.varSmoothing = v
	}
}

// WithPriors fixes the class priors, in sorted class order.
func WithPriors(priors ...float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.priors = append([]float64(nil), priors...)
	}
}

// WithNBLogger sets the logger.
func WithNBLogger(logger log.Logger) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.logger = logger
	}
}

// NewGaussianNB returns an unfitted classifier.
func NewGaussianNB(opts ...GaussianNBOption) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	if nb.logger == nil {
		nb.logger = log.GetLoggerWithName("naive_bayes").With(log.ModelNameKey, "GaussianNB")
	}
	return nb
}

// Fit estimates per-class feature means and variances.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if nb.varSmoothing < 0 || math.IsNaN(nb.varSmoothing) {
		return errors.NewValidationError("var_smoothing", "must be non-negative", nb.varSmoothing)
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("GaussianNB.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("GaussianNB.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GaussianNB.Fit", 1, yCols, 1)
	}

	rowsByClass := make(map[int][]int)
	for i := 0; i < nSamples; i++ {
		c := int(y.At(i, 0))
		rowsByClass[c] = append(rowsByClass[c], i)
	}
	classes := make([]int, 0, len(rowsByClass))
	for c := range rowsByClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	if nb.priors != nil {
		if len(nb.priors) != len(classes) {
			return errors.NewDimensionError("GaussianNB.Fit", len(classes), len(nb.priors), 0)
		}
		if math.Abs(floats.Sum(nb.priors)-1) > 1e-8 {
			return errors.NewValidationError("priors", "must sum to 1", nb.priors)
		}
	}

	cols := make([][]float64, nFeatures)
	var maxVar float64
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
		if err := errors.CheckNumericalStability("GaussianNB.Fit", cols[j], 0); err != nil {
			return errors.Wrapf(errors.ErrMissingValues, "GaussianNB.Fit: feature %d", j)
		}
		_, v := stat.PopMeanVariance(cols[j], nil)
		maxVar = math.Max(maxVar, v)
	}
	nb.epsilon_ = nb.varSmoothing * maxVar
	if nb.epsilon_ == 0 {
		// every feature constant
		nb.epsilon_ = nb.varSmoothing
	}

	nb.classes_ = classes
	nb.classCount_ = make([]float64, len(classes))
	nb.classPrior_ = make([]float64, len(classes))
	nb.theta_ = make([][]float64, len(classes))
	nb.var_ = make([][]float64, len(classes))

	values := make([]float64, 0, nSamples)
	for k, c := range classes {
		rows := rowsByClass[c]
		nb.classCount_[k] = float64(len(rows))
		nb.theta_[k] = make([]float64, nFeatures)
		nb.var_[k] = make([]float64, nFeatures)
		for j := 0; j < nFeatures; j++ {
			values = values[:0]
			for _, i := range rows {
				values = append(values, cols[j][i])
			}
			mean, variance := stat.PopMeanVariance(values, nil)
			nb.theta_[k][j] = mean
			nb.var_[k][j] = variance + nb.epsilon_
		}
		if nb.priors != nil {
			nb.classPrior_[k] = nb.priors[k]
		} else {
			nb.classPrior_[k] = nb.classCount_[k] / float64(nSamples)
		}
	}
	nb.nFeatures_ = nFeatures

	nb.state.MarkFitted(nFeatures, nSamples)
	nb.logger.Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"classes", len(classes),
	)
	return nil
}

// jointLogLikelihood returns log P(c) + log P(x|c) per row and class.
func (nb *GaussianNB) jointLogLikelihood(X mat.Matrix, method string) (*mat.Dense, error) {
	nSamples, nFeatures := X.Dims()
	if err := nb.state.CheckInput("GaussianNB", method, nFeatures); err != nil {
		return nil, err
	}

	out := mat.NewDense(nSamples, len(nb.classes_), nil)
	for k := range nb.classes_ {
		var norm float64
		for _, v := range nb.var_[k] {
			norm += math.Log(2 * math.Pi * v)
		}
		logPrior := math.Log(nb.classPrior_[k])
		for i := 0; i < nSamples; i++ {
			var sq float64
			for j := 0; j < nFeatures; j++ {
				d := X.At(i, j) - nb.theta_[k][j]
				sq += d * d / nb.var_[k][j]
			}
			out.Set(i, k, logPrior-0.5*(norm+sq))
		}
	}
	return out, nil
}

// PredictProba returns class posteriors in Classes order.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	r, c := jll.Dims()
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, jll)
		lse := floats.LogSumExp(row)
		for k := range row {
			jll.Set(i, k, math.Exp(row[k]-lse))
		}
	}
	return jll, nil
}

// Predict returns the maximum a posteriori class per row.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood(X, "Predict")
	if err != nil {
		return nil, err
	}
	r, _ := jll.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, float64(nb.classes_[floats.MaxIdx(jll.RawRowView(i))]))
	}
	return out, nil
}

// Score returns the mean accuracy on X and y.
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	pred, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	if yr, _ := y.Dims(); yr != r {
		return 0, errors.NewDimensionError("GaussianNB.Score", r, yr, 0)
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// Classes returns the sorted labels seen during Fit.
func (nb *GaussianNB) Classes() []int { return append([]int(nil), nb.classes_...) }

// ClassPrior returns the prior per class.
func (nb *GaussianNB) ClassPrior() []float64 { return append([]float64(nil), nb.classPrior_...) }

// Theta returns the per-class feature means as a classes × features matrix.
func (nb *GaussianNB) Theta() *mat.Dense { return rowsToDense(nb.theta_) }

// Var returns the smoothed per-class feature variances.
func (nb *GaussianNB) Var() *mat.Dense { return rowsToDense(nb.var_) }

// Epsilon is the variance added to every feature.
func (nb *GaussianNB) Epsilon() float64 { return nb.epsilon_ }

// IsFitted reports whether Fit has completed.
func (nb *GaussianNB) IsFitted() bool { return nb.state.IsFitted() }

// GetParams returns the hyperparameters.
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"var_smoothing": nb.varSmoothing,
		"priors":        nb.priors,
	}
}

func (nb *GaussianNB) String() string {
	if !nb.IsFitted() {
		return "GaussianNB()"
	}
	return fmt.Sprintf("GaussianNB(classes=%v, features=%d)", nb.classes_, nb.nFeatures_)
}

func rowsToDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}
