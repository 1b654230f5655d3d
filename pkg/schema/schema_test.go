package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

func source(name string, columns []string, rows ...[]any) tables.Source {
	return tables.Source{Name: name, Table: tables.New(columns, rows...)}
}

func TestRenameColumns(t *testing.T) {
	categories := map[string][]tables.Source{
		"PRJ": {
			source("RePORTER_PRJ_C_FY2020", []string{"APPLICATION_ID", "ABSTRACT"}),
			source("RePORTER_PRJ_C_FY2021", []string{"APPLICATION_ID", "PROJECT_TERMS"}),
		},
	}

	changes := RenameColumns(categories, map[string]string{"ABSTRACT": "ABSTRACT_TEXT", "UNUSED": "X"}, nil)

	assert.Equal(t, map[string][]string{"RePORTER_PRJ_C_FY2020": {"ABSTRACT -> ABSTRACT_TEXT"}}, changes)
	assert.Equal(t, []string{"APPLICATION_ID", "ABSTRACT_TEXT"}, categories["PRJ"][0].Table.Columns)
	assert.Equal(t, []string{"APPLICATION_ID", "PROJECT_TERMS"}, categories["PRJ"][1].Table.Columns)
}

func TestRenameColumns_NoRules(t *testing.T) {
	categories := map[string][]tables.Source{"PRJ": {source("a", []string{"A"})}}
	assert.Empty(t, RenameColumns(categories, nil, nil))
}

func TestAppendByCategory_Mismatch(t *testing.T) {
	categories := map[string][]tables.Source{
		"PRJ": {
			source("one", []string{"A", "B", "C"}, []any{"a", "b", "c"}),
			source("two", []string{"A", "B", "D"}, []any{"a", "b", "d"}),
		},
	}

	appended, summaries := AppendByCategory(categories, false, nil)

	assert.NotContains(t, appended, "PRJ")
	summary := summaries["PRJ"]
	assert.Equal(t, []string{"C", "D"}, summary.UnexpectedColumns)
	assert.Equal(t, 2, summary.UnexpectedColumnsAdded)
	assert.True(t, summary.Skipped)
	assert.Equal(t, report.StatusSkipped, summary.Status)
}

func TestAppendByCategory_Force(t *testing.T) {
	categories := map[string][]tables.Source{
		"PRJ": {
			source("one", []string{"A", "B", "C"}, []any{"a1", "b1", "c1"}),
			source("two", []string{"B", "A", "D"}, []any{"b2", "a2", "d2"}, []any{"b3", "a3", nil}),
		},
	}

	appended, summaries := AppendByCategory(categories, true, nil)

	want := tables.New([]string{"A", "B", "C", "D"},
		[]any{"a1", "b1", "c1", nil},
		[]any{"a2", "b2", nil, "d2"},
		[]any{"a3", "b3", nil, nil},
	)
	if diff := cmp.Diff(want, appended["PRJ"]); diff != "" {
		t.Errorf("AppendByCategory() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, report.StatusOK, summaries["PRJ"].Status)
	assert.False(t, summaries["PRJ"].Skipped)
	assert.Equal(t, 3, summaries["PRJ"].TotalRows)
	assert.Equal(t, 4, summaries["PRJ"].TotalColumns)
}

// Matching schemas append to exactly the sum of the file row counts.
func TestAppendByCategory_RowCount(t *testing.T) {
	columns := []string{"APPLICATION_ID", "PROJECT_NUMBER"}
	categories := map[string][]tables.Source{
		"PRJ": {
			source("a", columns, []any{"1", "X1"}, []any{"2", "X2"}),
			source("b", columns),
			source("c", columns, []any{"3", "X3"}),
		},
		"PUBLINK": {
			source("a", []string{"PMID"}, []any{"100"}),
		},
	}

	appended, summaries := AppendByCategory(categories, false, nil)

	require.Contains(t, appended, "PRJ")
	assert.Equal(t, 3, appended["PRJ"].NumRows())
	assert.Equal(t, []any{"1", "2", "3"}, firstColumn(appended["PRJ"]))
	assert.Equal(t, 1, appended["PUBLINK"].NumRows())
	assert.Empty(t, summaries["PRJ"].UnexpectedColumns)
}

func TestAppendByCategory_DuplicateColumn(t *testing.T) {
	categories := map[string][]tables.Source{
		"PRJ": {source("a", []string{"A", "A"}, []any{"1", "2"})},
	}

	appended, summaries := AppendByCategory(categories, true, nil)

	assert.Empty(t, appended)
	assert.Equal(t, report.StatusFailed, summaries["PRJ"].Status)
	assert.Contains(t, summaries["PRJ"].Reason, "duplicate column")
}

func TestDropColumns(t *testing.T) {
	appended := map[string]*tables.Table{
		"PRJ":     tables.New([]string{"A", "B", "C"}, []any{"a", "b", "c"}),
		"PUBLINK": tables.New([]string{"PMID"}, []any{"1"}),
	}
	dropMap := map[string][]string{
		"PRJ":     {"B", "Z"},
		"Patents": {"PATENT_ORG"},
	}

	missing := ValidateDropHeaders(appended, dropMap, nil)
	dropped := DropColumns(appended, dropMap, nil)

	assert.Equal(t, map[string][]string{"PRJ": {"Z"}, "Patents": {"PATENT_ORG"}}, missing)
	assert.Equal(t, map[string][]string{"PRJ": {"B"}}, dropped)
	assert.Equal(t, []string{"A", "C"}, appended["PRJ"].Columns)
	assert.Equal(t, []any{"a", "c"}, appended["PRJ"].Rows[0])
	assert.Equal(t, []string{"PMID"}, appended["PUBLINK"].Columns)
}

func firstColumn(t *tables.Table) []any {
	var result []any
	for _, row := range t.Rows {
		result = append(result, row[0])
	}
	return result
}
