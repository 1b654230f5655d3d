package tables

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Rename(t *testing.T) {
	tbl := New([]string{"A", "B", "C"}, []any{"1", "2", "3"})

	changes := tbl.Rename(map[string]string{"B": "Beta", "Z": "Zeta", "C": "C"})

	assert.Equal(t, []string{"A", "Beta", "C"}, tbl.Columns)
	assert.Equal(t, []string{"B -> Beta"}, changes)
}

func TestTable_DropColumns(t *testing.T) {
	tbl := New([]string{"A", "B", "C"},
		[]any{"a1", "b1", "c1"},
		[]any{"a2", nil, "c2"},
	)

	dropped := tbl.DropColumns("C", "missing", "A")

	assert.Equal(t, []string{"A", "C"}, dropped)
	want := New([]string{"B"}, []any{"b1"}, []any{nil})
	if diff := cmp.Diff(want, tbl); diff != "" {
		t.Errorf("DropColumns() mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Select(t *testing.T) {
	tbl := New([]string{"A", "B", "C"}, []any{"a", "b", "c"})

	got, err := tbl.Select([]string{"C", "A"})
	require.NoError(t, err)
	assert.Equal(t, New([]string{"C", "A"}, []any{"c", "a"}), got)

	_, err = tbl.Select([]string{"D"})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestTable_SetColumn(t *testing.T) {
	tbl := New([]string{"A"}, []any{"a1"}, []any{"a2"})

	require.NoError(t, tbl.SetColumn("n", []any{int64(1), int64(2)}))
	require.NoError(t, tbl.SetColumn("A", []any{"x", nil}))
	assert.Error(t, tbl.SetColumn("short", []any{int64(1)}))

	want := New([]string{"A", "n"},
		[]any{"x", int64(1)},
		[]any{nil, int64(2)},
	)
	assert.Equal(t, want, tbl)
}

func TestTable_TakeCopiesRows(t *testing.T) {
	tbl := New([]string{"A"}, []any{"a0"}, []any{"a1"}, []any{"a2"})

	got := tbl.Take([]int{2, 0})
	got.Rows[0][0] = "changed"

	assert.Equal(t, [][]any{{"changed"}, {"a0"}}, got.Rows)
	assert.Equal(t, "a2", tbl.Rows[2][0])
}

func TestTable_DuplicateColumns(t *testing.T) {
	tbl := New([]string{"A", "B", "A", "A"})
	assert.Equal(t, []string{"A"}, tbl.DuplicateColumns())
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	assert.Equal(t, Shape{}, tbl.Shape())
	assert.False(t, tbl.HasColumn("A"))
}
