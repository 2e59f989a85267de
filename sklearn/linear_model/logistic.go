package linear_model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"gonum.org/v1/gonum/mat"
)

var _ model.Classifier = (*LogisticRegression)(nil)

// LogisticRegression is a binary or one-vs-rest logistic classifier fitted
// by full-batch gradient descent.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	classWeight  string  // Class weight: "balanced", "none"
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance on the largest gradient component

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []int
	nClasses_  int
	nFeatures_ int
	nIter_     []int // iterations used per coefficient row

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		classWeight:  "none",
		maxIter:      100,
		tol:          1e-4,
	}

	for _, opt := range opts {
		opt(lr)
	}
	if lr.logger == nil {
		lr.logger = log.GetLoggerWithName("linear_model").With(log.ModelNameKey, "LogisticRegression")
	}
	return lr
}

// WithLRPenalty sets the regularization type, "l2" or "none".
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRClassWeight sets the class weighting. "balanced" weights each
// sample by n_samples / (n_classes * count(class)).
func WithLRClassWeight(weight string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.classWeight = weight
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRLogger sets the logger.
func WithLRLogger(logger log.Logger) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.logger = logger
	}
}

func (lr *LogisticRegression) validate() error {
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "must be 'l2' or 'none'", lr.penalty)
	}
	switch lr.classWeight {
	case "", "none", "balanced":
	default:
		return errors.NewValidationError("class_weight", "must be 'balanced' or 'none'", lr.classWeight)
	}
	if !(lr.C > 0) {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if lr.tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", lr.tol)
	}
	return nil
}

// Fit trains the logistic regression model. y is a column of integer
// class labels.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	labels := make([]int, nSamples)
	seen := make(map[int]bool)
	lr.classes_ = lr.classes_[:0]
	for i := range labels {
		labels[i] = int(y.At(i, 0))
		if !seen[labels[i]] {
			seen[labels[i]] = true
			lr.classes_ = append(lr.classes_, labels[i])
		}
	}
	sort.Ints(lr.classes_)
	lr.nClasses_ = len(lr.classes_)
	if lr.nClasses_ < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", lr.nClasses_))
	}
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	Xd := mat.DenseCopyOf(X)
	weights := lr.sampleWeights(labels)

	if lr.nClasses_ == 2 {
		if err := lr.fitClass(Xd, labels, weights, 0, lr.classes_[1]); err != nil {
			return err
		}
	} else {
		for k, class := range lr.classes_ {
			if err := lr.fitClass(Xd, labels, weights, k, class); err != nil {
				return err
			}
		}
	}

	lr.state.MarkFitted(nFeatures, nSamples)
	lr.logger.Debug("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.IterationKey, lr.nIter_,
	)
	return nil
}

// initializeWeights allocates zeroed coefficients
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	rows := lr.nClasses_
	if rows == 2 {
		rows = 1
	}
	lr.coef_ = make([][]float64, rows)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
	}
	lr.intercept_ = make([]float64, rows)
	lr.nIter_ = make([]int, rows)
}

// sampleWeights returns one weight per sample, all 1 unless class
// weighting is balanced.
func (lr *LogisticRegression) sampleWeights(labels []int) []float64 {
	w := make([]float64, len(labels))
	if lr.classWeight != "balanced" {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	n, k := float64(len(labels)), float64(len(counts))
	for i, l := range labels {
		w[i] = n / (k * float64(counts[l]))
	}
	return w
}

// fitClass fits coefficient row k to separate positive from every other
// label. It minimises the weighted mean log-loss plus lambda/2 * ||w||^2,
// lambda = 1/(C*n), with a fixed step 1/L where L bounds the curvature of
// that objective.
func (lr *LogisticRegression) fitClass(X *mat.Dense, labels []int, sw []float64, k, positive int) error {
	nSamples, nFeatures := X.Dims()
	n := float64(nSamples)

	lambda := 0.0
	if lr.penalty == "l2" {
		lambda = 1.0 / (lr.C * n)
	}
	var curvature float64
	for i := 0; i < nSamples; i++ {
		row := X.RawRowView(i)
		norm := 1.0
		for _, v := range row {
			norm += v * v
		}
		curvature = math.Max(curvature, sw[i]*norm)
	}
	step := 1.0 / (0.25*curvature + lambda)

	target := make([]float64, nSamples)
	for i, l := range labels {
		if l == positive {
			target[i] = 1
		}
	}

	weights := lr.coef_[k]
	intercept := &lr.intercept_[k]
	gradWeights := make([]float64, nFeatures)
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0
		loss := 0.0

		for i := 0; i < nSamples; i++ {
			row := X.RawRowView(i)
			z := *intercept
			for j, v := range row {
				z += v * weights[j]
			}
			p := errors.Sigmoid(z)
			loss -= sw[i] * (target[i]*errors.StabilizeLog(p) + (1-target[i])*errors.StabilizeLog(1-p))

			e := sw[i] * (p - target[i])
			gradIntercept += e
			for j, v := range row {
				gradWeights[j] += e * v
			}
		}

		loss /= n
		gradIntercept /= n
		for j := range gradWeights {
			gradWeights[j] = gradWeights[j]/n + lambda*weights[j]
			loss += 0.5 * lambda * weights[j] * weights[j]
		}
		if err := errors.CheckScalar("LogisticRegression.Fit", loss, iter); err != nil {
			return err
		}

		for j := range weights {
			weights[j] -= step * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= step * gradIntercept
		} else {
			gradIntercept = 0
		}
		lr.nIter_[k] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter,
			fmt.Sprintf("class %d did not reach tol=%g", positive, lr.tol)))
	}
	return nil
}

func (lr *LogisticRegression) checkInput(X mat.Matrix, method string) error {
	_, c := X.Dims()
	return lr.state.CheckInput("LogisticRegression", method, c)
}

// DecisionFunction returns the linear scores, one column for binary
// problems and one per class otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkInput(X, "DecisionFunction"); err != nil {
		return nil, err
	}
	return lr.decision(X), nil
}

func (lr *LogisticRegression) decision(X mat.Matrix) *mat.Dense {
	nSamples, _ := X.Dims()
	scores := mat.NewDense(nSamples, len(lr.coef_), nil)
	for i := 0; i < nSamples; i++ {
		for k, w := range lr.coef_ {
			z := lr.intercept_[k]
			for j, wj := range w {
				z += X.At(i, j) * wj
			}
			scores.Set(i, k, z)
		}
	}
	return scores
}

// PredictProba returns class probabilities in Classes order. One-vs-rest
// scores are normalized to sum to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkInput(X, "PredictProba"); err != nil {
		return nil, err
	}
	scores := lr.decision(X)
	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, lr.nClasses_, nil)

	for i := 0; i < nSamples; i++ {
		if lr.nClasses_ == 2 {
			p := errors.Sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
			continue
		}
		sum := 0.0
		for k := 0; k < lr.nClasses_; k++ {
			p := errors.Sigmoid(scores.At(i, k))
			probas.Set(i, k, p)
			sum += p
		}
		for k := 0; k < lr.nClasses_; k++ {
			if sum > 0 {
				probas.Set(i, k, probas.At(i, k)/sum)
			} else {
				probas.Set(i, k, 1/float64(lr.nClasses_))
			}
		}
	}
	return probas, nil
}

// Predict returns the most probable class label per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(probas, lr.classes_), nil
}

// Score returns the mean accuracy on X and y.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y, "LogisticRegression.Score")
}

// Classes returns the sorted labels seen during Fit.
func (lr *LogisticRegression) Classes() []int { return append([]int(nil), lr.classes_...) }

// Coef returns the coefficients, one row per fitted decision function.
func (lr *LogisticRegression) Coef() *mat.Dense {
	if len(lr.coef_) == 0 {
		return nil
	}
	c := mat.NewDense(len(lr.coef_), lr.nFeatures_, nil)
	for k, w := range lr.coef_ {
		c.SetRow(k, w)
	}
	return c
}

// Intercept returns the intercept per decision function.
func (lr *LogisticRegression) Intercept() []float64 {
	return append([]float64(nil), lr.intercept_...)
}

// NIter returns the iterations used per decision function.
func (lr *LogisticRegression) NIter() []int { return append([]int(nil), lr.nIter_...) }

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

// GetParams returns the hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  lr.classWeight,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "penalty":
			lr.penalty = value.(string)
		case "C":
			lr.C = value.(float64)
		case "fit_intercept":
			lr.fitIntercept = value.(bool)
		case "class_weight":
			lr.classWeight = value.(string)
		case "max_iter":
			lr.maxIter = value.(int)
		case "tol":
			lr.tol = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// argmaxLabels maps each probability row to the label of its largest
// column; ties go to the first.
func argmaxLabels(probas mat.Matrix, classes []int) *mat.Dense {
	r, c := probas.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for k := 1; k < c; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, float64(classes[best]))
	}
	return out
}

func accuracy(pred, y mat.Matrix, op string) (float64, error) {
	r, _ := pred.Dims()
	yr, _ := y.Dims()
	if r != yr {
		return 0, errors.NewDimensionError(op, r, yr, 0)
	}
	if r == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}
