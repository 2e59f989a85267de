package metrics

import (
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PrecisionRecallCurve returns precision and recall at every distinct
// score, highest threshold first.
func PrecisionRecallCurve(yTrue, yScore *mat.VecDense) (precision, recall, thresholds []float64, err error) {
	if _, err = checkPair("PrecisionRecallCurve", yTrue, yScore); err != nil {
		return nil, nil, nil, err
	}
	pos, err := checkBinary("PrecisionRecallCurve", yTrue)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkScores("PrecisionRecallCurve", yScore); err != nil {
		return nil, nil, nil, err
	}
	if pos == 0 {
		return nil, nil, nil, errors.NewValueError("PrecisionRecallCurve", "y_true has no positive samples")
	}

	points := rocPoints(yTrue, yScore)[1:]
	precision = make([]float64, len(points))
	recall = make([]float64, len(points))
	thresholds = make([]float64, len(points))
	for k, p := range points {
		precision[k] = float64(p.tp) / float64(p.tp+p.fp)
		recall[k] = float64(p.tp) / float64(pos)
		thresholds[k] = p.threshold
	}
	return precision, recall, thresholds, nil
}

// AveragePrecision summarises the precision-recall curve as the
// recall-weighted mean of precision, sum((R_k - R_k-1) * P_k). Without
// positive labels it is undefined and 0 is returned with a warning.
func AveragePrecision(yTrue, yScore *mat.VecDense) (float64, error) {
	if _, err := checkPair("AveragePrecision", yTrue, yScore); err != nil {
		return 0, err
	}
	pos, err := checkBinary("AveragePrecision", yTrue)
	if err != nil {
		return 0, err
	}
	if err := checkScores("AveragePrecision", yScore); err != nil {
		return 0, err
	}
	if pos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("average precision", "no positive samples in y_true", 0))
		return 0, nil
	}

	precision, recall, _, err := PrecisionRecallCurve(yTrue, yScore)
	if err != nil {
		return 0, err
	}
	var ap, prev float64
	for k := range precision {
		ap += (recall[k] - prev) * precision[k]
		prev = recall[k]
	}
	return ap, nil
}
