package models

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/desertthunder/spotistats/internal/shared"
)

// Row is a single flattened record keyed by column name.
type Row map[string]any

// Table is an ordered set of rows sharing a fixed column list.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: []Row{}}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Append adds a row, keeping only the table's columns.
func (t *Table) Append(row Row) {
	projected := make(Row, len(t.Columns))
	for _, col := range t.Columns {
		projected[col] = row[col]
	}
	t.Rows = append(t.Rows, projected)
}

// Value returns the cell at row i and column name.
func (t *Table) Value(i int, name string) (any, error) {
	if i < 0 || i >= len(t.Rows) {
		return nil, fmt.Errorf("%w: row %d out of range", shared.ErrInvalidArgument, i)
	}
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: unknown column %q", shared.ErrDataShape, name)
	}
	return t.Rows[i][name], nil
}

// Column returns every value of a column in row order.
func (t *Table) Column(name string) ([]any, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: unknown column %q", shared.ErrDataShape, name)
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values, nil
}

// StringColumn returns a column whose cells must all be strings.
func (t *Table) StringColumn(name string) ([]string, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: column %q row %d is %T, want string", shared.ErrDataShape, name, i, v)
		}
		out[i] = s
	}
	return out, nil
}

// Clone returns a copy whose rows can be modified without touching t.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// WithColumn returns a copy of t with a new column appended.
// Adding a column that already exists is an error; existing columns are never rewritten.
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if t.HasColumn(name) {
		return nil, fmt.Errorf("%w: column %q already exists", shared.ErrInvalidArgument, name)
	}
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("%w: column %q has %d values for %d rows", shared.ErrInvalidArgument, name, len(values), len(t.Rows))
	}

	out := t.Clone()
	out.Columns = append(out.Columns, name)
	for i := range out.Rows {
		out.Rows[i][name] = values[i]
	}
	return out, nil
}

// Filter returns a copy of t holding only rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := NewTable(t.Columns...)
	for _, row := range t.Clone().Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// DecodeTable parses the {"columns", "rows"} JSON form written by the JSON exporter and the SQLite sink.
func DecodeTable(data []byte) (*Table, error) {
	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataShape, err)
	}
	if table.Columns == nil {
		return nil, fmt.Errorf("%w: table has no columns", shared.ErrDataShape)
	}
	if table.Rows == nil {
		table.Rows = []Row{}
	}
	return &table, nil
}
