package frame

import (
	"fmt"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/apache/arrow-go/v18/arrow"
)

// Table is an ordered set of uniquely named columns of equal length.
// Tables are immutable: every operation returns a new Table.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewTable fails on duplicate names or columns of different lengths.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.index[c.Name()]; dup {
			return nil, errors.NewValueError("NewTable", fmt.Sprintf("duplicate column '%s'", c.Name()))
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, errors.NewDimensionError("NewTable", t.rows, c.Len(), 0)
		}
		t.cols[i] = c
		t.index[c.Name()] = i
	}
	return t, nil
}

// MustNewTable is NewTable that panics on error. Intended for tests and
// literals known to be valid.
func MustNewTable(cols ...*Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count shared by every column.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// Columns returns the columns in order. The slice is a copy.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether the table holds a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	kept := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !skip[c.Name()] {
			kept = append(kept, c)
		}
	}
	return t.rebuild(kept)
}

// Select keeps the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Select", n)
		}
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

// WithColumn replaces the column of the same name in place, or appends it.
func (t *Table) WithColumn(col *Column) (*Table, error) {
	cols := t.Columns()
	if i, ok := t.index[col.Name()]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return NewTable(cols...)
}

// NumericNames lists numeric columns in order, skipping exclude.
func (t *Table) NumericNames(exclude ...string) []string {
	return t.namesWhere(func(k Kind) bool { return k.IsNumeric() }, exclude)
}

// CategoricalNames lists categorical columns in order, skipping exclude.
func (t *Table) CategoricalNames(exclude ...string) []string {
	return t.namesWhere(func(k Kind) bool { return k == Categorical }, exclude)
}

func (t *Table) namesWhere(match func(Kind) bool, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		skip[n] = true
	}
	var names []string
	for _, c := range t.cols {
		if match(c.Kind()) && !skip[c.Name()] {
			names = append(names, c.Name())
		}
	}
	return names
}

// Bytes sums Column.Bytes over all columns.
func (t *Table) Bytes() int64 {
	var total int64
	for _, c := range t.cols {
		total += c.Bytes()
	}
	return total
}

// Schema describes the table as an Arrow schema. All fields are nullable.
func (t *Table) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(t.cols))
	for i, c := range t.cols {
		fields[i] = arrow.Field{Name: c.Name(), Type: c.Array().DataType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Take returns the given rows of every column.
func (t *Table) Take(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, errors.NewValueError("Take", fmt.Sprintf("row %d out of range [0, %d)", r, t.rows))
		}
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Take(rows)
	}
	return NewTable(cols...)
}

func (t *Table) rebuild(cols []*Column) *Table {
	out := &Table{cols: cols, index: make(map[string]int, len(cols)), rows: t.rows}
	for i, c := range cols {
		out.index[c.Name()] = i
	}
	if len(cols) == 0 {
		out.rows = 0
	}
	return out
}
