// Package metrics provides evaluation metrics for binary and multiclass
// classifiers.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const logLossEpsilon = 1e-15

// checkPair validates two vectors of equal, non-zero length.
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary requires every label to be exactly 0 or 1 and returns the
// positive count.
func checkBinary(op string, y *mat.VecDense) (int, error) {
	pos := 0
	for i := 0; i < y.Len(); i++ {
		switch y.AtVec(i) {
		case 0:
		case 1:
			pos++
		default:
			return 0, errors.NewValueError(op,
				fmt.Sprintf("labels must be 0 or 1, got %v at index %d", y.AtVec(i), i))
		}
	}
	return pos, nil
}

// checkScores rejects NaN and infinite scores, which have no rank.
func checkScores(op string, yScore *mat.VecDense) error {
	for i := 0; i < yScore.Len(); i++ {
		if v := yScore.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValueError(op, fmt.Sprintf("scores must be finite, got %v at index %d", v, i))
		}
	}
	return nil
}

// rocPoint is one threshold of the ROC curve.
type rocPoint struct {
	fp, tp    int
	threshold float64
}

// rocPoints walks the scores from high to low, emitting a point after each
// group of tied scores. The first point is (0, 0) at +Inf.
func rocPoints(yTrue, yScore *mat.VecDense) []rocPoint {
	n := yTrue.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return yScore.AtVec(order[a]) > yScore.AtVec(order[b])
	})

	points := []rocPoint{{threshold: math.Inf(1)}}
	fp, tp := 0, 0
	for k := 0; k < n; {
		score := yScore.AtVec(order[k])
		for start := k; k < n && (k == start || yScore.AtVec(order[k]) == score); k++ {
			if yTrue.AtVec(order[k]) == 1 {
				tp++
			} else {
				fp++
			}
		}
		points = append(points, rocPoint{fp: fp, tp: tp, threshold: score})
	}
	return points
}

// AUC returns the area under the ROC curve of binary labels yTrue against
// scores yScore. Tied scores contribute half credit. With a single class
// present the area is undefined and 0.5 is returned with a warning.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	pos, err := checkBinary("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	if err := checkScores("AUC", yScore); err != nil {
		return 0, err
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	points := rocPoints(yTrue, yScore)
	var area float64
	for k := 1; k < len(points); k++ {
		dx := float64(points[k].fp - points[k-1].fp)
		area += dx * float64(points[k].tp+points[k-1].tp) / 2
	}
	return area / (float64(pos) * float64(neg)), nil
}

// AUCMatrix computes AUC from the first column of each matrix.
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	yt, ys, err := columnPair("AUCMatrix", yTrue, yScore, false)
	if err != nil {
		return 0, err
	}
	return AUC(yt, ys)
}

// ROCCurve returns false and true positive rates at every distinct score,
// highest threshold first. Both classes must be present.
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := checkPair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}
	pos, err := checkBinary("ROCCurve", yTrue)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkScores("ROCCurve", yScore); err != nil {
		return nil, nil, nil, err
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return nil, nil, nil, errors.NewValueError("ROCCurve", "y_true must contain both classes")
	}

	points := rocPoints(yTrue, yScore)
	fpr = make([]float64, len(points))
	tpr = make([]float64, len(points))
	thresholds = make([]float64, len(points))
	for k, p := range points {
		fpr[k] = float64(p.fp) / float64(neg)
		tpr[k] = float64(p.tp) / float64(pos)
		thresholds[k] = p.threshold
	}
	return fpr, tpr, thresholds, nil
}

// BinaryLogLoss is the mean negative log-likelihood of binary labels under
// predicted probabilities, clipped to [eps, 1-eps].
func BinaryLogLoss(yTrue, yProba *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProba)
	if err != nil {
		return 0, err
	}
	if _, err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yProba.AtVec(i), logLossEpsilon), 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BrierScore is the mean squared difference between binary labels and
// predicted probabilities.
func BrierScore(yTrue, yProba *mat.VecDense) (float64, error) {
	if _, err := checkPair("BrierScore", yTrue, yProba); err != nil {
		return 0, err
	}
	if _, err := checkBinary("BrierScore", yTrue); err != nil {
		return 0, err
	}
	return MSE(yTrue, yProba)
}

// Accuracy is the fraction of exact label matches.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError is 1 - Accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// Confusion is a binary confusion matrix with 1 as the positive label.
type Confusion struct {
	TN, FP, FN, TP int
}

// ConfusionMatrix counts binary outcomes. Both vectors must hold 0/1 labels.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*Confusion, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if _, err := checkBinary("ConfusionMatrix", yTrue); err != nil {
		return nil, err
	}
	if _, err := checkBinary("ConfusionMatrix", yPred); err != nil {
		return nil, err
	}

	c := &Confusion{}
	for i := 0; i < n; i++ {
		switch {
		case yTrue.AtVec(i) == 1 && yPred.AtVec(i) == 1:
			c.TP++
		case yTrue.AtVec(i) == 1:
			c.FN++
		case yPred.AtVec(i) == 1:
			c.FP++
		default:
			c.TN++
		}
	}
	return c, nil
}

// Matrix lays the counts out as [[TN FP] [FN TP]].
func (c *Confusion) Matrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		float64(c.TN), float64(c.FP),
		float64(c.FN), float64(c.TP),
	})
}

func (c *Confusion) String() string {
	return fmt.Sprintf("[[%d %d]\n [%d %d]]", c.TN, c.FP, c.FN, c.TP)
}

// Precision is TP / (TP + FP); 0 with a warning when nothing is predicted
// positive.
func (c *Confusion) Precision() float64 {
	return ratio("precision", c.TP, c.TP+c.FP, "no predicted samples")
}

// Recall is TP / (TP + FN); 0 with a warning when no positives exist.
func (c *Confusion) Recall() float64 {
	return ratio("recall", c.TP, c.TP+c.FN, "no true samples")
}

// F1 is the harmonic mean of precision and recall.
func (c *Confusion) F1() float64 {
	return f1(c.Precision(), c.Recall())
}

func ratio(metric string, num, den int, condition string) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return float64(num) / float64(den)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Precision of the positive label 1.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.Precision(), nil
}

// Recall of the positive label 1.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.Recall(), nil
}

// F1 of the positive label 1.
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.F1(), nil
}

// ClassScores holds the per-label rows of a classification report.
type ClassScores struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises a classification per label, in sorted label order.
type Report struct {
	Classes     []ClassScores
	Accuracy    float64
	MacroAvg    ClassScores
	WeightedAvg ClassScores
}

// ClassificationReport computes precision, recall, F1 and support for every
// integer label seen in yTrue or yPred.
func ClassificationReport(yTrue, yPred *mat.VecDense) (*Report, error) {
	n, err := checkPair("ClassificationReport", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		for _, v := range []float64{yTrue.AtVec(i), yPred.AtVec(i)} {
			if v != math.Trunc(v) {
				return nil, errors.NewValueError("ClassificationReport",
					fmt.Sprintf("labels must be integers, got %v", v))
			}
			seen[int(v)] = true
		}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	r := &Report{
		MacroAvg:    ClassScores{Label: "macro avg", Support: n},
		WeightedAvg: ClassScores{Label: "weighted avg", Support: n},
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	r.Accuracy = float64(correct) / float64(n)

	for _, label := range labels {
		var c Confusion
		for i := 0; i < n; i++ {
			t, p := int(yTrue.AtVec(i)) == label, int(yPred.AtVec(i)) == label
			switch {
			case t && p:
				c.TP++
			case t:
				c.FN++
			case p:
				c.FP++
			}
		}
		s := ClassScores{
			Label:     strconv.Itoa(label),
			Precision: c.Precision(),
			Recall:    c.Recall(),
			Support:   c.TP + c.FN,
		}
		s.F1 = f1(s.Precision, s.Recall)
		r.Classes = append(r.Classes, s)

		k := float64(len(labels))
		w := float64(s.Support) / float64(n)
		r.MacroAvg.Precision += s.Precision / k
		r.MacroAvg.Recall += s.Recall / k
		r.MacroAvg.F1 += s.F1 / k
		r.WeightedAvg.Precision += s.Precision * w
		r.WeightedAvg.Recall += s.Recall * w
		r.WeightedAvg.F1 += s.F1 * w
	}
	return r, nil
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	var b strings.Builder
	row := func(s ClassScores) {
		fmt.Fprintf(&b, "%12s%10.2f%10.2f%10.2f%10d\n", s.Label, s.Precision, s.Recall, s.F1, s.Support)
	}

	fmt.Fprintf(&b, "%12s%10s%10s%10s%10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, s := range r.Classes {
		row(s)
	}
	fmt.Fprintf(&b, "\n%12s%10s%10s%10.2f%10d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}
