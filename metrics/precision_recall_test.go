package metrics

import (
	"math"
	"testing"
)

func TestAveragePrecision(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yScore  []float64
		want    float64
		wantErr bool
	}{
		{"defaulters ranked first", []float64{1, 1, 0, 0}, []float64{0.9, 0.8, 0.3, 0.1}, 1, false},
		// precision 1/2 at recall 1/2, 2/4 at recall 1
		{"interleaved", []float64{0, 1, 0, 1}, []float64{0.9, 0.8, 0.7, 0.6}, 0.5, false},
		// the tied pair enters as one step: 1/2 at recall 1/2, then 2/3 at recall 1
		{"tied scores", []float64{1, 0, 1}, []float64{0.7, 0.7, 0.2}, 0.25 + 1.0/3, false},
		{"every row defaults", []float64{1, 1, 1}, []float64{0.2, 0.4, 0.1}, 1, false},
		{"no defaulters", []float64{0, 0, 0}, []float64{0.2, 0.4, 0.1}, 0, false},
		{"fractional label", []float64{0.2, 1}, []float64{0.3, 0.9}, 0, true},
		{"length mismatch", []float64{0, 1}, []float64{0.5}, 0, true},
		{"empty", nil, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AveragePrecision(optVec(tt.yTrue), optVec(tt.yScore))
			if (err != nil) != tt.wantErr {
				t.Fatalf("AveragePrecision() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AveragePrecision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrecisionRecallCurve(t *testing.T) {
	precision, recall, thresholds, err := PrecisionRecallCurve(
		vec(1, 0, 1, 0, 0),
		vec(0.95, 0.6, 0.6, 0.3, 0.05),
	)
	if err != nil {
		t.Fatal(err)
	}
	wantP := []float64{1, 2.0 / 3, 0.5, 0.4}
	wantR := []float64{0.5, 1, 1, 1}
	wantT := []float64{0.95, 0.6, 0.3, 0.05}
	if len(precision) != len(wantP) {
		t.Fatalf("got %d points, want %d", len(precision), len(wantP))
	}
	for k := range wantP {
		if math.Abs(precision[k]-wantP[k]) > 1e-12 || recall[k] != wantR[k] || thresholds[k] != wantT[k] {
			t.Errorf("point %d = (%v, %v, %v), want (%v, %v, %v)",
				k, precision[k], recall[k], thresholds[k], wantP[k], wantR[k], wantT[k])
		}
	}

	if _, _, _, err := PrecisionRecallCurve(vec(0, 0), vec(0.1, 0.2)); err == nil {
		t.Error("expected an error without positive labels")
	}
}
