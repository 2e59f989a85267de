package metrics

import (
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MSE is the mean squared error between yTrue and yPred.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("MSE", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix computes MSE for n×1 matrices.
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yt, yp, err := columnPair("MSEMatrix", yTrue, yPred, true)
	if err != nil {
		return 0, err
	}
	return MSE(yt, yp)
}

// columnPair converts two single-column matrices into vectors. With strict
// set, wider matrices are rejected; otherwise the first column is used.
func columnPair(op string, yTrue, yPred mat.Matrix, strict bool) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if strict && (cTrue != 1 || cPred != 1) {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	yt := mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue))
	yp := mat.NewVecDense(rPred, mat.Col(nil, 0, yPred))
	return yt, yp, nil
}
