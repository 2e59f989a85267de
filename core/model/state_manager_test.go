package model

import (
	"testing"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
)

func TestStateManagerCheckInput(t *testing.T) {
	s := NewStateManager()

	err := s.CheckInput("PCA", "Transform", 3)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("before fit: got %v, want NotFittedError", err)
	}

	s.MarkFitted(3, 120)
	if !s.IsFitted() {
		t.Fatal("IsFitted() = false after MarkFitted")
	}
	if f, n := s.Dimensions(); f != 3 || n != 120 {
		t.Errorf("Dimensions() = (%d, %d), want (3, 120)", f, n)
	}

	tests := []struct {
		name      string
		nFeatures int
		wantDim   bool
	}{
		{"matching width", 3, false},
		{"narrower", 2, true},
		{"wider", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CheckInput("PCA", "Transform", tt.nFeatures)
			var de *errors.DimensionError
			if got := errors.As(err, &de); got != tt.wantDim {
				t.Fatalf("CheckInput(%d) = %v, want dimension error %v", tt.nFeatures, err, tt.wantDim)
			}
			if tt.wantDim && (de.Expected != 3 || de.Got != tt.nFeatures) {
				t.Errorf("DimensionError = %+v", de)
			}
		})
	}
}

func TestBaseEstimator(t *testing.T) {
	var e BaseEstimator
	if e.IsFitted() {
		t.Fatal("zero BaseEstimator reports fitted")
	}
	e.SetFitted()
	if !e.IsFitted() {
		t.Fatal("SetFitted did not stick")
	}
	e.Reset()
	if e.IsFitted() {
		t.Fatal("Reset did not clear the fit")
	}
}
