// Package preprocessing prepares loan tables for modelling: storage
// narrowing, missing-value handling, categorical encoding, conversion to
// gonum matrices and feature scaling.
package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	_ model.Transformer = (*StandardScaler)(nil)
	_ model.Transformer = (*MinMaxScaler)(nil)
)

// constantTol is the spread below which a feature is treated as constant
// and left unscaled.
const constantTol = 1e-8

// affine is the fitted state shared by the scalers: each column maps as
// (x - shift) / scale.
type affine struct {
	model.BaseEstimator
	shift, scale []float64
}

func (a *affine) apply(name, method string, X mat.Matrix, inverse bool) (mat.Matrix, error) {
	if !a.IsFitted() {
		return nil, errors.NewNotFittedError(name, method)
	}
	r, c := X.Dims()
	if c != len(a.scale) {
		return nil, errors.NewDimensionError(name+"."+method, len(a.scale), c, 1)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		if inverse {
			return v*a.scale[j] + a.shift[j]
		}
		return (v - a.shift[j]) / a.scale[j]
	}, X)
	return out, nil
}

// observed returns the non-NaN values of column j.
func observed(X mat.Matrix, j int) []float64 {
	r, _ := X.Dims()
	vals := make([]float64, 0, r)
	for i := 0; i < r; i++ {
		if v := X.At(i, j); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

func checkNonEmpty(op string, X mat.Matrix) (int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return c, nil
}

// StandardScaler centers features on their mean and divides by the
// population standard deviation. NaN cells are skipped when fitting and
// stay NaN after Transform.
type StandardScaler struct {
	affine

	WithMean bool
	WithStd  bool

	Mean  []float64
	Scale []float64
}

// NewStandardScaler creates a StandardScaler.
//
//	s := preprocessing.NewStandardScaler(true, true)
//	Xs, err := s.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{WithMean: withMean, WithStd: withStd}
}

// NewStandardScalerDefault centers and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit learns the per-column mean and standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	c, err := checkNonEmpty("StandardScaler.Fit", X)
	if err != nil {
		return err
	}
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		s.Scale[j] = 1
		vals := observed(X, j)
		if len(vals) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(vals, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		if s.WithStd && std >= constantTol {
			s.Scale[j] = std
		}
	}
	s.shift, s.scale = s.Mean, s.Scale
	s.SetFitted()
	return nil
}

func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("StandardScaler", "Transform", X, false)
}

func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform undoes Transform.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("StandardScaler", "InverseTransform", X, true)
}

func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": s.WithMean, "with_std": s.WithStd}
}

func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

// MinMaxScaler maps each feature's training range onto FeatureRange.
// Constant features map to the lower bound.
type MinMaxScaler struct {
	affine

	FeatureRange [2]float64

	DataMin []float64
	DataMax []float64
}

// NewMinMaxScaler creates a MinMaxScaler for the given output range.
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault scales to [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

// Fit learns the per-column minimum and maximum.
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	c, err := checkNonEmpty("MinMaxScaler.Fit", X)
	if err != nil {
		return err
	}
	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	if lo >= hi {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}

	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.shift = make([]float64, c)
	m.scale = make([]float64, c)
	for j := 0; j < c; j++ {
		if vals := observed(X, j); len(vals) > 0 {
			m.DataMin[j], m.DataMax[j] = floats.Min(vals), floats.Max(vals)
		}
		span := m.DataMax[j] - m.DataMin[j]
		if span < constantTol {
			span = hi - lo
		}
		// x' = (x - min) / span * (hi - lo) + lo
		m.scale[j] = span / (hi - lo)
		m.shift[j] = m.DataMin[j] - lo*m.scale[j]
	}
	m.SetFitted()
	return nil
}

// Transform applies the fitted bounds. Values outside the training range
// land outside FeatureRange.
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("MinMaxScaler", "Transform", X, false)
}

func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform undoes Transform.
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("MinMaxScaler", "InverseTransform", X, true)
}

func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.FeatureRange[0], m.FeatureRange[1])
}
