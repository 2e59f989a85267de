// Package feature_selection removes redundant features. Its main type,
// CorrelationPruner, drops columns that are strongly rank-correlated with
// an earlier column.
package feature_selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/loanrisk/core/parallel"
	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix holds absolute Spearman correlations between named
// columns. Undefined entries are NaN; the diagonal is 1.
type CorrelationMatrix struct {
	names []string
	index map[string]int
	data  *mat.SymDense
}

// Names returns a copy of the column names in matrix order.
func (m *CorrelationMatrix) Names() []string { return append([]string(nil), m.names...) }

// Dims returns the number of columns, which is both dimensions.
func (m *CorrelationMatrix) Dims() int { return len(m.names) }

// At returns the absolute correlation between columns i and j, or NaN.
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Index returns the position of name, or -1.
func (m *CorrelationMatrix) Index(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the correlation between two named columns.
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.data.At(i, j), true
}

// Sym exposes the underlying symmetric matrix.
func (m *CorrelationMatrix) Sym() mat.Symmetric { return m.data }

// SpearmanMatrix computes absolute Spearman rank correlations between the
// named numeric columns over pairwise-complete rows. Pairs with fewer than
// two complete rows or a constant side are NaN.
func SpearmanMatrix(t *frame.Table, names []string) (*CorrelationMatrix, error) {
	cols := make([][]float64, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("SpearmanMatrix", name)
		}
		if !c.Kind().IsNumeric() {
			return nil, errors.NewValueError("SpearmanMatrix",
				fmt.Sprintf("column '%s' is %s, not numeric", name, c.Kind()))
		}
		if seen[name] {
			return nil, errors.NewValueError("SpearmanMatrix", fmt.Sprintf("duplicate column '%s'", name))
		}
		cols[i] = c.Float64s()
		seen[name] = true
	}

	p := len(names)
	type pair struct{ i, j int }
	pairs := make([]pair, 0, p*(p-1)/2)
	for i := 0; i < p; i++ {
		for j := i + 1; j < p; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	data := make([]float64, p*p)
	for i := 0; i < p; i++ {
		data[i*p+i] = 1
	}
	// Each pair owns two distinct cells, so workers never share a write.
	parallel.ParallelizeWithThreshold(len(pairs), 64, func(start, end int) {
		for _, pr := range pairs[start:end] {
			rho := math.Abs(Spearman(cols[pr.i], cols[pr.j]))
			data[pr.i*p+pr.j] = rho
			data[pr.j*p+pr.i] = rho
		}
	})

	return newCorrelationMatrix(names, data), nil
}

// newCorrelationMatrix takes a row-major p×p symmetric slice.
func newCorrelationMatrix(names []string, data []float64) *CorrelationMatrix {
	m := &CorrelationMatrix{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		m.index[n] = i
	}
	if len(names) > 0 {
		m.data = mat.NewSymDense(len(names), data)
	}
	return m
}

// Spearman returns the signed Spearman rank correlation of x and y. NaN
// entries in either slice drop the row.
func Spearman(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	rx, ry := rank(xs), rank(ys)
	if constant(rx) || constant(ry) {
		return math.NaN()
	}
	return stat.Correlation(rx, ry, nil)
}

// rank assigns 1-based ranks, averaging ties.
func rank(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, len(values))
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && values[order[end]] == values[order[start]] {
			end++
		}
		avg := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			ranks[order[k]] = avg
		}
		start = end
	}
	return ranks
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
