package model

import (
	"github.com/YuminosukeSato/loanrisk/frame"
	"gonum.org/v1/gonum/mat"
)

// Transformer learns a feature-space mapping on matrices.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// TableTransformer learns a mapping on tables. Transform never modifies
// its input.
type TableTransformer interface {
	Fit(t *frame.Table) error
	Transform(t *frame.Table) (*frame.Table, error)
	FitTransform(t *frame.Table) (*frame.Table, error)
}
