package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "loanrisk: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "loanrisk: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Transform", 10, 8, 1)

	want := "loanrisk: Transform: expected 10 features, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("CorrelationPruner", "Transform")

	want := "loanrisk: CorrelationPruner.Transform called before Fit"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewColumnTypeError(t *testing.T) {
	err := NewColumnTypeError("loan_amnt", 7, "n/a", "float64", "category")

	want := `loanrisk: column 'loan_amnt' is declared float64 but row 7 holds category value "n/a"`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var typeErr *ColumnTypeError
	if !As(err, &typeErr) {
		t.Fatal("Error should be castable to *ColumnTypeError")
	}
	if typeErr.Column != "loan_amnt" || typeErr.Observed != "category" {
		t.Errorf("unexpected fields: %+v", typeErr)
	}
}

func TestNewColumnNotFoundError(t *testing.T) {
	err := Wrap(NewColumnNotFoundError("Select", "grade"), "building features")

	var nf *ColumnNotFoundError
	if !As(err, &nf) {
		t.Fatal("Error should be castable to *ColumnNotFoundError")
	}
	if nf.Column != "grade" {
		t.Errorf("Column = %q, want grade", nf.Column)
	}
	if !strings.Contains(err.Error(), "building features") {
		t.Errorf("expected wrap message in %q", err.Error())
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("LogisticRegression", 100, "gradient above tolerance")

	want := "LogisticRegression did not converge in 100 iterations: gradient above tolerance"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnUsesZerologSink(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "precision is undefined (no predicted samples); using 0") {
		t.Errorf("unexpected warning text: %v", got[0])
	}
}

func TestWarnFallbackHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(func(w error) {})

	Warn(NewDataConversionWarning("id", "int64", "int64", "already narrowest"))

	if got == nil {
		t.Fatal("fallback handler was not called")
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in MeanImputer.Fit")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in MeanImputer.Fit") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrMissingValues, "in %s: column %s", "ToMatrix", "annual_inc")

	if !Is(wrapped, ErrMissingValues) {
		t.Error("Expected Is(wrapped, ErrMissingValues) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in ToMatrix: column annual_inc") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("loss", []float64{0.1, 0.2}, 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := CheckNumericalStability("loss", []float64{0.1, math.NaN()}, 4)
	var ni *NumericalInstabilityError
	if !As(err, &ni) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if ni.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", ni.Iteration)
	}

	if err := CheckScalar("loss", math.Inf(1), 0); err == nil {
		t.Error("expected error for +Inf")
	}
}

func TestSigmoid(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{0, 0.5},
		{800, 1},
		{-800, 0},
	}
	for _, tt := range tests {
		got := Sigmoid(tt.z)
		if math.IsNaN(got) || math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Sigmoid(%v) = %v, want %v", tt.z, got, tt.want)
		}
	}
}
