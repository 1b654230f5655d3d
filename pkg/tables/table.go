package tables

import (
	"errors"
	"fmt"
	"slices"
)

var ErrMissingColumn = errors.New("missing column")

// Table is an in-memory batch of rows sharing one ordered column schema.
//
// Cells hold nil (null), string, int64, float64, bool or []string. Every row
// has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Source is one parsed input file before category concatenation.
type Source struct {
	Name  string
	Table *Table
}

// Shape is the (rows, cols) dimension pair reported in summaries.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func New(columns []string, rows ...[]any) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{}
}

func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

func (t *Table) Shape() Shape {
	return Shape{Rows: t.NumRows(), Cols: t.NumColumns()}
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	return slices.Index(t.Columns, name)
}

func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns the cells of the named column in row order.
func (t *Table) Column(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	result := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		result[i] = row[idx]
	}
	return result, nil
}

// SetColumn replaces the named column, or appends it when absent.
func (t *Table) SetColumn(name string, values []any) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	if idx >= 0 {
		for i, row := range t.Rows {
			row[idx] = values[i]
		}
		return nil
	}
	t.Columns = append(t.Columns, name)
	for i, row := range t.Rows {
		t.Rows[i] = append(row, values[i])
	}
	return nil
}

// DropColumns removes the named columns that exist and returns them in
// table order.
func (t *Table) DropColumns(names ...string) []string {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	var keep []int
	var dropped []string
	for i, c := range t.Columns {
		if drop[c] {
			dropped = append(dropped, c)
			continue
		}
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return nil
	}

	t.Columns = pick(t.Columns, keep)
	for i, row := range t.Rows {
		t.Rows[i] = pick(row, keep)
	}
	return dropped
}

// Rename applies mapping to the column names and returns "old -> new" for
// each column that changed.
func (t *Table) Rename(mapping map[string]string) []string {
	var changes []string
	for i, c := range t.Columns {
		to, ok := mapping[c]
		if !ok || to == c {
			continue
		}
		t.Columns[i] = to
		changes = append(changes, fmt.Sprintf("%s -> %s", c, to))
	}
	return changes
}

// Select projects the table onto columns, in the given order.
func (t *Table) Select(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}

	result := &Table{
		Columns: slices.Clone(columns),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		result.Rows[i] = pick(row, idx)
	}
	return result, nil
}

// Take returns a table holding copies of the rows at the given positions.
func (t *Table) Take(rows []int) *Table {
	result := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([][]any, len(rows)),
	}
	for i, r := range rows {
		result.Rows[i] = slices.Clone(t.Rows[r])
	}
	return result
}

// Clone copies the column list and every row. Cell values are shared.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	result := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		result.Rows[i] = slices.Clone(row)
	}
	return result
}

// DuplicateColumns lists column names appearing more than once.
func (t *Table) DuplicateColumns() []string {
	seen := make(map[string]int, len(t.Columns))
	var dups []string
	for _, c := range t.Columns {
		seen[c]++
		if seen[c] == 2 {
			dups = append(dups, c)
		}
	}
	return dups
}

func pick[T any](values []T, idx []int) []T {
	result := make([]T, len(idx))
	for i, j := range idx {
		result[i] = values[j]
	}
	return result
}
