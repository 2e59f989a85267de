package preprocessing

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
)

var _ model.TableTransformer = (*MeanImputer)(nil)

// MeanImputer fills missing values with statistics learned on Fit: the mean
// for float columns, the rounded mean for integer columns and the most
// frequent value for categorical columns. Fill values are stored at the
// column's own width.
type MeanImputer struct {
	model.BaseEstimator

	// Numeric holds the learned fill value per numeric column.
	Numeric map[string]float64

	// Categorical holds the learned fill value per categorical column.
	Categorical map[string]string
}

// NewMeanImputer returns an unfitted MeanImputer.
func NewMeanImputer() *MeanImputer {
	return &MeanImputer{}
}

// Fit learns one fill value per column. Columns with no observed value get
// none and are left as is by Transform.
func (m *MeanImputer) Fit(t *frame.Table) error {
	if t.NumRows() == 0 {
		return errors.NewModelError("MeanImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	m.Numeric = make(map[string]float64)
	m.Categorical = make(map[string]string)

	for _, c := range t.Columns() {
		if c.Kind() == frame.Categorical {
			if v, ok := mostFrequent(c); ok {
				m.Categorical[c.Name()] = v
			}
			continue
		}
		mean, ok := nanMean(c.Float64s())
		if !ok {
			continue
		}
		if c.Kind().IsInteger() {
			mean = math.Round(mean)
		}
		m.Numeric[c.Name()] = mean
	}

	m.SetFitted()
	return nil
}

// Transform returns t with missing values filled.
func (m *MeanImputer) Transform(t *frame.Table) (*frame.Table, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MeanImputer", "Transform")
	}

	cols := t.Columns()
	for i, c := range cols {
		if c.NullN() == 0 {
			continue
		}
		if fill, ok := m.Numeric[c.Name()]; ok && c.Kind().IsNumeric() {
			filled, err := fillNumeric(c, fill)
			if err != nil {
				return nil, err
			}
			cols[i] = filled
			continue
		}
		if fill, ok := m.Categorical[c.Name()]; ok && c.Kind() == frame.Categorical {
			values := make([]string, c.Len())
			for r := range values {
				if v, present := c.String(r); present {
					values[r] = v
				} else {
					values[r] = fill
				}
			}
			cols[i] = frame.NewStringColumn(c.Name(), values, nil)
		}
	}
	return frame.NewTable(cols...)
}

// FitTransform fits on t and fills it.
func (m *MeanImputer) FitTransform(t *frame.Table) (*frame.Table, error) {
	if err := m.Fit(t); err != nil {
		return nil, err
	}
	return m.Transform(t)
}

func fillNumeric(c *frame.Column, fill float64) (*frame.Column, error) {
	if c.Kind().IsInteger() {
		values := make([]int64, c.Len())
		for r := range values {
			if v, ok := c.Int64(r); ok {
				values[r] = v
			} else {
				values[r] = int64(fill)
			}
		}
		return keepWidth(c.Kind(), frame.NewInt64Column(c.Name(), values, nil))
	}
	values := c.Float64s()
	for r, v := range values {
		if math.IsNaN(v) {
			values[r] = fill
		}
	}
	return keepWidth(c.Kind(), frame.NewFloat64Column(c.Name(), values, nil))
}

// keepWidth stores filled at kind, or wider when the fill value does not
// fit a column narrowed on other data.
func keepWidth(kind frame.Kind, filled *frame.Column) (*frame.Column, error) {
	if need := widthChecker.TargetKind(filled); need.Bits() > kind.Bits() {
		kind = need
	}
	return filled.Cast(kind)
}

var widthChecker = &Downcaster{floats: true}

func nanMean(values []float64) (float64, bool) {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// mostFrequent breaks ties by the smallest value.
func mostFrequent(c *frame.Column) (string, bool) {
	counts := make(map[string]int)
	for r := 0; r < c.Len(); r++ {
		if v, ok := c.String(r); ok {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}
