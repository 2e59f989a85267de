package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ToMatrix copies the named numeric columns into a dense matrix, one
// column per feature. Missing values are an error; impute first.
func ToMatrix(t *frame.Table, features []string) (*mat.Dense, error) {
	if t.NumRows() == 0 || len(features) == 0 {
		return nil, errors.NewModelError("ToMatrix", "empty data", errors.ErrEmptyData)
	}
	X := mat.NewDense(t.NumRows(), len(features), nil)
	for j, name := range features {
		values, err := numericValues(t, name, "ToMatrix")
		if err != nil {
			return nil, err
		}
		X.SetCol(j, values)
	}
	return X, nil
}

// LabelVector returns the named column as an n×1 matrix.
func LabelVector(t *frame.Table, name string) (*mat.Dense, error) {
	if t.NumRows() == 0 {
		return nil, errors.NewModelError("LabelVector", "empty data", errors.ErrEmptyData)
	}
	values, err := numericValues(t, name, "LabelVector")
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(values), 1, values), nil
}

func numericValues(t *frame.Table, name, op string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError(op, name)
	}
	if !c.Kind().IsNumeric() {
		return nil, errors.NewValueError(op, fmt.Sprintf("column '%s' is %s, encode it first", name, c.Kind()))
	}
	values := c.Float64s()
	for _, v := range values {
		if math.IsNaN(v) {
			return nil, errors.Wrapf(errors.ErrMissingValues, "%s: column %s", op, name)
		}
	}
	return values, nil
}
