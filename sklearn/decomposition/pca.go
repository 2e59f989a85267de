// Package decomposition provides linear dimensionality reduction.
package decomposition

import (
	"fmt"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var _ model.Transformer = (*PCA)(nil)

// PCA projects centered data onto its leading principal components,
// computed by SVD through gonum's stat.PC.
type PCA struct {
	state *model.StateManager

	// NComponentsRequested is the fixed component count, 0 when unset.
	NComponentsRequested int

	// VarianceRatio selects the smallest number of components whose
	// cumulative explained variance reaches it, 0 when unset.
	VarianceRatio float64

	mean                   []float64
	components             *mat.Dense // features × k
	explainedVariance      []float64
	explainedVarianceRatio []float64
}

// PCAOption configures a PCA.
type PCAOption func(*PCA)

// WithNComponents keeps exactly k components.
func WithNComponents(k int) PCAOption {
	return func(p *PCA) {
		p.NComponentsRequested = k
	}
}

// WithVarianceRatio keeps enough components to explain ratio of the
// variance, with ratio in (0, 1].
func WithVarianceRatio(ratio float64) PCAOption {
	return func(p *PCA) {
		p.VarianceRatio = ratio
	}
}

// NewPCA returns an unfitted PCA. Without options every component is kept.
func NewPCA(opts ...PCAOption) *PCA {
	p := &PCA{state: model.NewStateManager()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit computes the principal axes of X.
func (p *PCA) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("PCA.Fit", "empty data", errors.ErrEmptyData)
	}
	if p.NComponentsRequested < 0 || p.NComponentsRequested > c {
		return errors.NewValidationError("n_components",
			fmt.Sprintf("must be between 0 and n_features=%d", c), p.NComponentsRequested)
	}
	if p.VarianceRatio < 0 || p.VarianceRatio > 1 {
		return errors.NewValidationError("variance_ratio", "must be in (0, 1]", p.VarianceRatio)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return errors.NewModelError("PCA.Fit", "singular value decomposition failed", nil)
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	var total float64
	for _, v := range vars {
		total += v
	}
	ratios := make([]float64, len(vars))
	for i, v := range vars {
		ratios[i] = errors.SafeDivide(v, total)
	}

	k := len(vars)
	switch {
	case p.NComponentsRequested > 0:
		k = min(p.NComponentsRequested, len(vars))
	case p.VarianceRatio > 0:
		var cum float64
		for i, ratio := range ratios {
			cum += ratio
			if cum >= p.VarianceRatio-1e-12 {
				k = i + 1
				break
			}
		}
	}

	p.mean = make([]float64, c)
	for j := 0; j < c; j++ {
		p.mean[j] = stat.Mean(mat.Col(nil, j, X), nil)
	}
	p.components = mat.DenseCopyOf(vecs.Slice(0, c, 0, k))
	p.explainedVariance = vars[:k]
	p.explainedVarianceRatio = ratios[:k]

	p.state.MarkFitted(c, r)
	return nil
}

// Transform projects X onto the fitted components.
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := p.state.CheckInput("PCA", "Transform", c); err != nil {
		return nil, err
	}

	centered := mat.NewDense(r, c, nil)
	centered.Apply(func(i, j int, v float64) float64 {
		return v - p.mean[j]
	}, X)

	var out mat.Dense
	out.Mul(centered, p.components)
	return &out, nil
}

// FitTransform fits on X and projects it.
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// NComponents is the number of kept components.
func (p *PCA) NComponents() int {
	if p.components == nil {
		return 0
	}
	_, k := p.components.Dims()
	return k
}

// Components returns the principal axes as a features × k matrix.
func (p *PCA) Components() mat.Matrix { return p.components }

// ExplainedVariance is the variance along each kept component.
func (p *PCA) ExplainedVariance() []float64 {
	return append([]float64(nil), p.explainedVariance...)
}

// ExplainedVarianceRatio is the share of total variance per kept component.
func (p *PCA) ExplainedVarianceRatio() []float64 {
	return append([]float64(nil), p.explainedVarianceRatio...)
}

// IsFitted reports whether Fit has completed.
func (p *PCA) IsFitted() bool { return p.state.IsFitted() }

// GetParams returns the constructor parameters.
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components":   p.NComponentsRequested,
		"variance_ratio": p.VarianceRatio,
	}
}
