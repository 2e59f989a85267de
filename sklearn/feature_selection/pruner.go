package feature_selection

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
)

var _ model.TableTransformer = (*CorrelationPruner)(nil)

// DefaultThreshold is the absolute correlation above which a later column
// is considered redundant.
const DefaultThreshold = 0.90

// DropSet is an ordered set of column names, in table column order.
type DropSet struct {
	names []string
	set   map[string]bool
}

func newDropSet(names []string) *DropSet {
	d := &DropSet{names: names, set: make(map[string]bool, len(names))}
	for _, n := range names {
		d.set[n] = true
	}
	return d
}

// Contains reports whether name is marked for removal.
func (d *DropSet) Contains(name string) bool { return d.set[name] }

// Len returns the number of dropped columns.
func (d *DropSet) Len() int { return len(d.names) }

// Names returns a copy of the dropped names in the order they were found.
func (d *DropSet) Names() []string { return append([]string(nil), d.names...) }

// Union returns the names of d followed by the names of other not in d.
func (d *DropSet) Union(other *DropSet) *DropSet {
	names := d.Names()
	for _, n := range other.names {
		if !d.set[n] {
			names = append(names, n)
		}
	}
	return newDropSet(names)
}

// CorrelationPruner drops numeric columns that are redundant with an
// earlier column.
//
// Columns are scanned left to right; column j is dropped when some column
// i < j has |spearman(i, j)| > Threshold. The comparison includes columns
// that are themselves dropped, so in a chain a-b-c both b and c go even if
// a and c are unrelated. Undefined (NaN) correlations never exceed the
// threshold. Excluded columns, usually the target, are neither examined
// nor dropped.
type CorrelationPruner struct {
	state *model.StateManager

	Threshold float64
	Exclude   []string

	matrix  *CorrelationMatrix
	dropSet *DropSet
	logger  log.Logger
}

// PrunerOption configures a CorrelationPruner.
type PrunerOption func(*CorrelationPruner)

// WithThreshold sets the drop threshold, in (0, 1].
func WithThreshold(threshold float64) PrunerOption {
	return func(p *CorrelationPruner) {
		p.Threshold = threshold
	}
}

// WithExclude keeps the named columns out of the analysis.
func WithExclude(names ...string) PrunerOption {
	return func(p *CorrelationPruner) {
		p.Exclude = append(p.Exclude, names...)
	}
}

// WithPrunerLogger sets the logger.
func WithPrunerLogger(logger log.Logger) PrunerOption {
	return func(p *CorrelationPruner) {
		p.logger = logger
	}
}

// NewCorrelationPruner returns a pruner with DefaultThreshold.
//
//	pruner := feature_selection.NewCorrelationPruner(
//	    feature_selection.WithExclude("target"),
//	)
//	reduced, err := pruner.FitTransform(train)
func NewCorrelationPruner(opts ...PrunerOption) *CorrelationPruner {
	p := &CorrelationPruner{
		state:     model.NewStateManager(),
		Threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("feature_selection").With(log.ModelNameKey, "CorrelationPruner")
	}
	return p
}

// Fit computes the correlation matrix over the numeric, non-excluded
// columns of t and derives the drop set.
func (p *CorrelationPruner) Fit(t *frame.Table) error {
	if math.IsNaN(p.Threshold) || p.Threshold <= 0 || p.Threshold > 1 {
		return errors.NewValidationError("threshold", "must be in (0, 1]", p.Threshold)
	}

	names := t.NumericNames(p.Exclude...)
	m, err := SpearmanMatrix(t, names)
	if err != nil {
		return errors.Wrap(err, "CorrelationPruner.Fit")
	}

	dropped := redundantColumns(m, p.Threshold)

	p.matrix = m
	p.dropSet = newDropSet(dropped)
	p.state.MarkFitted(len(names), t.NumRows())

	p.logger.Info(fmt.Sprintf("%d of %d columns exceed the correlation threshold", len(dropped), len(names)),
		log.OperationKey, log.OperationFit,
		log.ThresholdKey, p.Threshold,
		log.FeaturesKey, len(names),
		log.DroppedKey, dropped,
		log.ExcludedKey, p.Exclude,
	)
	return nil
}

// Transform drops the fitted drop set from t. Names absent from t are
// ignored, so a drop set learned on one table can be applied to another.
func (p *CorrelationPruner) Transform(t *frame.Table) (*frame.Table, error) {
	if err := p.state.RequireFitted("CorrelationPruner", "Transform"); err != nil {
		return nil, err
	}
	return t.Drop(p.dropSet.names...), nil
}

// FitTransform fits on t and drops the redundant columns from it.
func (p *CorrelationPruner) FitTransform(t *frame.Table) (*frame.Table, error) {
	if err := p.Fit(t); err != nil {
		return nil, err
	}
	return p.Transform(t)
}

// DropSet returns the fitted drop set, or nil before Fit.
func (p *CorrelationPruner) DropSet() *DropSet { return p.dropSet }

// Matrix returns the fitted correlation matrix, or nil before Fit.
func (p *CorrelationPruner) Matrix() *CorrelationMatrix { return p.matrix }

// IsFitted reports whether Fit has completed.
func (p *CorrelationPruner) IsFitted() bool { return p.state.IsFitted() }

// redundantColumns scans the matrix in column order and returns every
// column j with some i < j above threshold.
func redundantColumns(m *CorrelationMatrix, threshold float64) []string {
	var dropped []string
	for j := 0; j < m.Dims(); j++ {
		for i := 0; i < j; i++ {
			// NaN > threshold is false
			if m.At(i, j) > threshold {
				dropped = append(dropped, m.names[j])
				break
			}
		}
	}
	return dropped
}

// UndefinedCorrelations lists the numeric feature columns whose Spearman
// correlation with target is undefined, in column order.
func UndefinedCorrelations(t *frame.Table, target string) ([]string, error) {
	tc, ok := t.Column(target)
	if !ok {
		return nil, errors.NewColumnNotFoundError("UndefinedCorrelations", target)
	}
	if !tc.Kind().IsNumeric() {
		return nil, errors.NewValueError("UndefinedCorrelations",
			fmt.Sprintf("target '%s' is %s, not numeric", target, tc.Kind()))
	}
	y := tc.Float64s()

	var undefined []string
	for _, name := range t.NumericNames(target) {
		c, _ := t.Column(name)
		if math.IsNaN(Spearman(c.Float64s(), y)) {
			undefined = append(undefined, name)
		}
	}
	return undefined, nil
}
