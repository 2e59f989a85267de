package model

// EstimatorState is the training state of an estimator.
type EstimatorState int

const (
	// NotFitted is the state before Fit succeeds.
	NotFitted EstimatorState = iota
	// Fitted is the state after Fit succeeds.
	Fitted
)

// BaseEstimator is embedded by estimators that track only whether they
// have been fitted. It is not safe for concurrent Fit calls; use
// StateManager for that.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether Fit has succeeded.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the estimator to NotFitted.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
