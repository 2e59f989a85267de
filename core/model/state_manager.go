package model

import (
	"sync"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
)

// StateManager records whether an estimator has been fitted and the
// shape of the data it saw. Safe for concurrent use.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager returns an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// MarkFitted records a successful fit on nSamples rows of nFeatures columns.
func (s *StateManager) MarkFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// IsFitted reports whether MarkFitted has been called.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// Dimensions returns the feature and sample counts seen by the last fit.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError for modelName.method when the
// estimator has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckInput combines RequireFitted with a column count check against the
// fitted width.
func (s *StateManager) CheckInput(modelName, method string, nFeatures int) error {
	if err := s.RequireFitted(modelName, method); err != nil {
		return err
	}
	want, _ := s.Dimensions()
	if nFeatures != want {
		return errors.NewDimensionError(modelName+"."+method, want, nFeatures, 1)
	}
	return nil
}
