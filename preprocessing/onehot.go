package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
)

var _ model.TableTransformer = (*OneHotEncoder)(nil)

// OneHotEncoder replaces categorical columns with float64 indicator
// columns named <column>_<category>.
type OneHotEncoder struct {
	model.BaseEstimator

	// Columns to encode. Empty means every categorical column seen on Fit.
	Columns []string

	// Categories holds the sorted categories learned per column.
	Categories map[string][]string
}

// NewOneHotEncoder encodes the given columns, or all categorical columns
// when none are given.
func NewOneHotEncoder(columns ...string) *OneHotEncoder {
	return &OneHotEncoder{Columns: columns}
}

// Fit learns the categories of each encoded column.
func (e *OneHotEncoder) Fit(t *frame.Table) error {
	columns := e.Columns
	if len(columns) == 0 {
		columns = t.CategoricalNames()
	}

	e.Categories = make(map[string][]string, len(columns))
	for _, name := range columns {
		c, ok := t.Column(name)
		if !ok {
			return errors.NewColumnNotFoundError("OneHotEncoder.Fit", name)
		}
		seen := make(map[string]bool)
		var cats []string
		for r := 0; r < c.Len(); r++ {
			v, present := c.String(r)
			if !present || seen[v] {
				continue
			}
			seen[v] = true
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[name] = cats
	}
	e.Columns = columns

	e.SetFitted()
	return nil
}

// Transform swaps each encoded column for its indicator columns at the
// same position. Missing and unseen values encode as all zeros.
func (e *OneHotEncoder) Transform(t *frame.Table) (*frame.Table, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	for _, name := range e.Columns {
		if !t.Has(name) {
			return nil, errors.NewColumnNotFoundError("OneHotEncoder.Transform", name)
		}
	}

	var out []*frame.Column
	for _, c := range t.Columns() {
		cats, encoded := e.Categories[c.Name()]
		if !encoded {
			out = append(out, c)
			continue
		}
		for _, cat := range cats {
			values := make([]float64, c.Len())
			for r := range values {
				if v, ok := c.String(r); ok && v == cat {
					values[r] = 1
				}
			}
			out = append(out, frame.NewFloat64Column(c.Name()+"_"+cat, values, nil))
		}
	}
	return frame.NewTable(out...)
}

// FitTransform fits on t and encodes it.
func (e *OneHotEncoder) FitTransform(t *frame.Table) (*frame.Table, error) {
	if err := e.Fit(t); err != nil {
		return nil, err
	}
	return e.Transform(t)
}
