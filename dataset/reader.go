// Package dataset loads delimited and spreadsheet files into frame.Tables
// and writes submission files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/xuri/excelize/v2"
)

// DefaultMissingTokens are the cell values read as missing.
var DefaultMissingTokens = []string{"", "NA", "NaN", "nan", "null"}

type readOptions struct {
	schema  map[string]frame.Kind
	missing map[string]bool
	logger  log.Logger
}

// Option configures a reader.
type Option func(*readOptions)

// WithSchema declares the kind of some columns instead of inferring it.
// Integer kinds are read into int64 storage and float kinds into float64;
// narrowing is left to the downcaster.
func WithSchema(schema map[string]frame.Kind) Option {
	return func(o *readOptions) {
		o.schema = schema
	}
}

// WithMissingTokens replaces DefaultMissingTokens.
func WithMissingTokens(tokens ...string) Option {
	return func(o *readOptions) {
		o.missing = make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			o.missing[tok] = true
		}
	}
}

// WithLogger sets the logger used by the reader.
func WithLogger(logger log.Logger) Option {
	return func(o *readOptions) {
		o.logger = logger
	}
}

func newReadOptions(opts []Option) *readOptions {
	o := &readOptions{}
	WithMissingTokens(DefaultMissingTokens...)(o)
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("dataset")
	}
	return o
}

// ReadCSV reads a CSV stream whose first record is the header.
func ReadCSV(r io.Reader, opts ...Option) (*frame.Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return fromRecords(records, newReadOptions(opts))
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path string, opts ...Option) (*frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	t, err := ReadCSV(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// ReadExcelFile reads one sheet of a workbook. An empty sheet name selects
// the first sheet.
func ReadExcelFile(path, sheet string, opts ...Option) (*frame.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Wrapf(errors.ErrEmptyData, "load %s: no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s: sheet %q", path, sheet)
	}

	// GetRows trims trailing empty cells, so pad every row to the header width.
	if len(rows) > 0 {
		width := len(rows[0])
		for i, row := range rows[1:] {
			for len(row) < width {
				row = append(row, "")
			}
			rows[i+1] = row[:width]
		}
	}

	t, err := fromRecords(rows, newReadOptions(opts))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// ReadFile dispatches on the file extension: .csv, .xlsx or .xlsm.
func ReadFile(path string, opts ...Option) (*frame.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path, opts...)
	case ".xlsx", ".xlsm":
		return ReadExcelFile(path, "", opts...)
	default:
		return nil, errors.NewValueError("ReadFile", fmt.Sprintf("unsupported file type %q", filepath.Ext(path)))
	}
}

// ReadTemplate returns the ids of a submission template in file order.
func ReadTemplate(path, idColumn string) ([]string, error) {
	t, err := ReadFile(path, WithSchema(map[string]frame.Kind{idColumn: frame.Categorical}))
	if err != nil {
		return nil, err
	}
	col, ok := t.Column(idColumn)
	if !ok {
		return nil, errors.NewColumnNotFoundError("ReadTemplate", idColumn)
	}
	ids := make([]string, col.Len())
	for i := range ids {
		id, ok := col.String(i)
		if !ok {
			return nil, errors.NewValueError("ReadTemplate", fmt.Sprintf("row %d has no id", i+2))
		}
		ids[i] = id
	}
	return ids, nil
}

func fromRecords(records [][]string, o *readOptions) (*frame.Table, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "missing header row")
	}
	header := records[0]
	body := records[1:]

	cols := make([]*frame.Column, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		cells := make([]string, len(body))
		for i, rec := range body {
			cells[i] = strings.TrimSpace(rec[j])
		}
		col, err := parseColumn(name, cells, o)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}

	t, err := frame.NewTable(cols...)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("table loaded",
		log.SamplesKey, t.NumRows(),
		log.ColumnsKey, t.NumCols(),
		log.DataSizeKey, t.Bytes(),
	)
	return t, nil
}

func parseColumn(name string, cells []string, o *readOptions) (*frame.Column, error) {
	valid := make([]bool, len(cells))
	for i, s := range cells {
		valid[i] = !o.missing[s]
	}

	kind, declared := o.schema[name]
	if !declared {
		kind = infer(cells, valid)
	}

	switch {
	case kind.IsInteger():
		values := make([]int64, len(cells))
		for i, s := range cells {
			if !valid[i] {
				continue
			}
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errors.NewColumnTypeError(name, i+2, s, kind.String(), observedKind(s))
			}
			values[i] = v
		}
		return frame.NewInt64Column(name, values, valid), nil
	case kind.IsFloat():
		values := make([]float64, len(cells))
		for i, s := range cells {
			if !valid[i] {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.NewColumnTypeError(name, i+2, s, kind.String(), observedKind(s))
			}
			values[i] = v
		}
		return frame.NewFloat64Column(name, values, valid), nil
	default:
		return frame.NewStringColumn(name, cells, valid), nil
	}
}

// infer picks Int64 when every present value parses as an integer, Float64
// when every one parses as a float, and Categorical otherwise. A column with
// no present values is Float64.
func infer(cells []string, valid []bool) frame.Kind {
	kind := frame.Int64
	for i, s := range cells {
		if !valid[i] {
			continue
		}
		switch observedKind(s) {
		case frame.Categorical.String():
			return frame.Categorical
		case frame.Float64.String():
			kind = frame.Float64
		}
	}
	if kind == frame.Int64 && !anyTrue(valid) {
		return frame.Float64
	}
	return kind
}

func observedKind(s string) string {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return frame.Int64.String()
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return frame.Float64.String()
	}
	return frame.Categorical.String()
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}
