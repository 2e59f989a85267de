package dataset

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVFileInference(t *testing.T) {
	tbl, err := ReadCSVFile(filepath.Join("testdata", "train.csv"))
	require.NoError(t, err)

	assert.Equal(t, 5, tbl.NumRows())
	assert.Equal(t, []string{"id", "loan_amnt", "int_rate", "grade", "emp_length", "target"}, tbl.Names())

	kinds := map[string]frame.Kind{
		"id":         frame.Int64,
		"loan_amnt":  frame.Int64,
		"int_rate":   frame.Float64,
		"grade":      frame.Categorical,
		"emp_length": frame.Int64,
		"target":     frame.Int64,
	}
	for name, want := range kinds {
		col, ok := tbl.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, want, col.Kind(), name)
	}

	emp, _ := tbl.Column("emp_length")
	assert.Equal(t, 2, emp.NullN())
	grade, _ := tbl.Column("grade")
	assert.True(t, grade.IsNull(3))
}

func TestReadCSVAllMissingColumnIsFloat(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b\n1,\n2,NA\n"))
	require.NoError(t, err)

	b, _ := tbl.Column("b")
	assert.Equal(t, frame.Float64, b.Kind())
	assert.Equal(t, 2, b.NullN())
}

func TestReadCSVDeclaredSchemaTypeError(t *testing.T) {
	in := "loan_amnt,grade\n1000,A\nn/a,B\n"

	_, err := ReadCSV(strings.NewReader(in), WithSchema(map[string]frame.Kind{"loan_amnt": frame.Float64}))
	require.Error(t, err)

	var typeErr *errors.ColumnTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "loan_amnt", typeErr.Column)
	assert.Equal(t, 3, typeErr.Row)
	assert.Equal(t, "n/a", typeErr.Value)
	assert.Equal(t, "float64", typeErr.Declared)
	assert.Equal(t, "category", typeErr.Observed)
}

func TestReadCSVDeclaredIntegerRejectsFraction(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("term\n36\n36.5\n"), WithSchema(map[string]frame.Kind{"term": frame.Int32}))

	var typeErr *errors.ColumnTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "float64", typeErr.Observed)
}

func TestReadCSVCustomMissingTokens(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("x\n1\n?\n"), WithMissingTokens("?"))
	require.NoError(t, err)

	x, _ := tbl.Column("x")
	assert.Equal(t, frame.Int64, x.Kind())
	assert.True(t, x.IsNull(1))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestReadExcelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"id", "annual_inc", "purpose"},
		{1, 24000.5, "car"},
		{2, nil, "wedding"},
		{3, 31000},
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.NumRows())
	inc, _ := tbl.Column("annual_inc")
	assert.Equal(t, frame.Float64, inc.Kind())
	assert.True(t, inc.IsNull(1))
	purpose, _ := tbl.Column("purpose")
	assert.Equal(t, frame.Categorical, purpose.Kind())
	assert.True(t, purpose.IsNull(2))
}

func TestReadFileUnsupportedExtension(t *testing.T) {
	_, err := ReadFile("loans.parquet")
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestReadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.csv")
	require.NoError(t, writeFile(path, "id,loan_status\n0103,\n101,\n"))

	ids, err := ReadTemplate(path, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"0103", "101"}, ids)

	_, err = ReadTemplate(path, "member_id")
	var nf *errors.ColumnNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestWriteSubmissionTemplateOrder(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSubmission(&buf, "id", "loan_status",
		[]string{"101", "102", "103"},
		[]float64{0.1, 0, 0.75},
		[]string{"103", "101", "102"},
	)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "submission", buf.Bytes())
}

func TestWriteSubmissionErrors(t *testing.T) {
	var buf bytes.Buffer

	err := WriteSubmission(&buf, "id", "p", []string{"1"}, []float64{0.5, 0.2}, nil)
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	err = WriteSubmission(&buf, "id", "p", []string{"1"}, []float64{math.Pi}, []string{"2"})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}
