// Package report renders evaluation and feature diagnostics as image
// files. The output format follows the file extension: png, svg, pdf, eps,
// jpg or tiff.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/sklearn/feature_selection"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var formats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true, ".eps": true,
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

func checkPath(op, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !formats[ext] {
		return errors.NewValueError(op, fmt.Sprintf("unsupported image format %q", ext))
	}
	return nil
}

// SaveROCCurve plots a ROC curve against the chance diagonal.
func SaveROCCurve(path string, fpr, tpr []float64, auc float64) error {
	if err := checkPath("SaveROCCurve", path); err != nil {
		return err
	}
	if len(fpr) != len(tpr) {
		return errors.NewDimensionError("SaveROCCurve", len(fpr), len(tpr), 0)
	}
	if len(fpr) < 2 {
		return errors.NewValueError("SaveROCCurve", "need at least two points")
	}

	p := plot.New()
	p.Title.Text = "ROC curve"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i].X, pts[i].Y = fpr[i], tpr[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "SaveROCCurve")
	}
	curve.Width = vg.Points(2)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "SaveROCCurve")
	}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(curve, chance)
	p.Legend.Add(fmt.Sprintf("model (AUC = %.3f)", auc), curve)
	p.Legend.Add("chance", chance)
	p.Legend.Top = false
	p.Legend.Left = false

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "SaveROCCurve: %s", path)
	}
	return nil
}

// correlationGrid adapts a CorrelationMatrix to plotter.GridXYZ. Row 0 is
// drawn at the top.
type correlationGrid struct {
	m *feature_selection.CorrelationMatrix
}

func (g correlationGrid) Dims() (c, r int)   { return g.m.Dims(), g.m.Dims() }
func (g correlationGrid) Z(c, r int) float64 { return g.m.At(g.m.Dims()-1-r, c) }
func (g correlationGrid) X(c int) float64    { return float64(c) }
func (g correlationGrid) Y(r int) float64    { return float64(r) }

// SaveCorrelationHeatmap draws the absolute correlation matrix on a
// diverging palette over [0, 1]. Undefined cells are left blank.
func SaveCorrelationHeatmap(path string, m *feature_selection.CorrelationMatrix) error {
	if err := checkPath("SaveCorrelationHeatmap", path); err != nil {
		return err
	}
	if m == nil || m.Dims() == 0 {
		return errors.NewValueError("SaveCorrelationHeatmap", "empty correlation matrix")
	}

	colors := moreland.SmoothBlueRed()
	colors.SetMin(0)
	colors.SetMax(1)

	grid := correlationGrid{m: m}
	heat := plotter.NewHeatMap(grid, colors.Palette(255))
	heat.Min, heat.Max = 0, 1

	p := plot.New()
	p.Title.Text = "Spearman correlation (absolute)"
	p.Add(heat)

	names := m.Names()
	n := len(names)
	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	for i, name := range names {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Rotation = 1.5708 // 90°
	p.X.Tick.Label.XAlign = -1

	side := vg.Length(max(n, 4)) * vg.Points(24)
	if err := p.Save(side+2*vg.Inch, side+2*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "SaveCorrelationHeatmap: %s", path)
	}
	return nil
}
