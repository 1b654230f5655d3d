package link

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

func TestLeftJoin(t *testing.T) {
	prj := tables.New([]string{tables.ApplicationID, tables.ProjectNumber, "FY"},
		[]any{" 101 ", "R01CA1", "2020"},
		[]any{"102", "R01CA2", "2020"},
		[]any{nil, "R01CA3", "2021"},
		[]any{int64(104), "R01CA4", "2021"},
	)
	prjabs := tables.New([]string{tables.ApplicationID, "ABSTRACT_TEXT", "FY"},
		[]any{"101", "first abstract", "2020"},
		[]any{"104", "fourth abstract", "2021"},
		[]any{"104", "fourth again", "2021"},
		[]any{nil, "orphan", "2021"},
	)

	got, summary, err := LeftJoin(prj, prjabs, tables.ApplicationID)
	require.NoError(t, err)

	want := tables.New([]string{tables.ApplicationID, tables.ProjectNumber, "FY_x", "ABSTRACT_TEXT", "FY_y"},
		[]any{"101", "R01CA1", "2020", "first abstract", "2020"},
		[]any{"102", "R01CA2", "2020", nil, nil},
		[]any{nil, "R01CA3", "2021", nil, nil},
		[]any{"104", "R01CA4", "2021", "fourth abstract", "2021"},
		[]any{"104", "R01CA4", "2021", "fourth again", "2021"},
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LeftJoin() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, report.StatusOK, summary.Status)
	assert.Equal(t, tables.Shape{Rows: 5, Cols: 5}, summary.MergedShape)
	assert.Equal(t, report.LinkChange{RowsAdded: 1, ColsAdded: 2}, summary.Changes)
}

func TestLeftJoin_InputsUnchanged(t *testing.T) {
	left := tables.New([]string{tables.ProjectNumber, "A"}, []any{" r01ca1 ", "a"})
	right := tables.New([]string{tables.ProjectNumber, "B"}, []any{"R01CA1 ", "b"})

	got, _, err := LeftJoin(left, right, tables.ProjectNumber)
	require.NoError(t, err)

	assert.Equal(t, []any{" r01ca1 ", "a"}, left.Rows[0])
	assert.Equal(t, []any{"R01CA1 ", "b"}, right.Rows[0])
	assert.Equal(t, [][]any{{"R01CA1", "a", "b"}}, got.Rows)
}

func TestLeftJoin_MissingKey(t *testing.T) {
	left := tables.New([]string{"A"})
	right := tables.New([]string{tables.ApplicationID})

	_, _, err := LeftJoin(left, right, tables.ApplicationID)
	assert.ErrorIs(t, err, tables.ErrMissingColumn)
}

// The result never has fewer rows than the left table, and has exactly as
// many when no key matches more than one right row.
func TestLeftJoin_Cardinality(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 50; trial++ {
		nLeft, nRight := rng.Intn(20), rng.Intn(20)
		left := tables.New([]string{"K", "L"})
		for i := 0; i < nLeft; i++ {
			left.Rows = append(left.Rows, []any{strconv.Itoa(rng.Intn(8)), int64(i)})
		}
		right := tables.New([]string{"K", "R"})
		rightKeys := map[string]int{}
		for i := 0; i < nRight; i++ {
			k := strconv.Itoa(rng.Intn(8))
			rightKeys[k]++
			right.Rows = append(right.Rows, []any{k, int64(i)})
		}

		got, _, err := LeftJoin(left, right, "K")
		require.NoError(t, err)

		atMostOne := true
		for _, row := range left.Rows {
			if rightKeys[row[0].(string)] > 1 {
				atMostOne = false
			}
		}

		assert.GreaterOrEqual(t, got.NumRows(), left.NumRows())
		if atMostOne {
			assert.Equal(t, left.NumRows(), got.NumRows())
		} else {
			assert.Greater(t, got.NumRows(), left.NumRows())
		}
	}
}

func TestCategories(t *testing.T) {
	categories := map[string]*tables.Table{
		"PRJ":    tables.New([]string{tables.ApplicationID, "A"}, []any{"1", "a"}),
		"PRJABS": tables.New([]string{tables.ApplicationID, "B"}, []any{"1", "b"}, []any{"1", "c"}),
	}

	linked, summaries := Categories(categories, DefaultSpec(), nil)

	require.Contains(t, linked, "PRJ_PRJABS")
	assert.Equal(t, 2, linked["PRJ_PRJABS"].NumRows())
	summary := summaries["PRJ_PRJABS"]
	assert.Equal(t, map[string]tables.Shape{
		"PRJ":    {Rows: 1, Cols: 2},
		"PRJABS": {Rows: 2, Cols: 2},
	}, summary.SourceShapes)
	assert.Equal(t, "PRJ", summary.Left)
}

func TestCategories_MissingSource(t *testing.T) {
	categories := map[string]*tables.Table{
		"PRJ": tables.New([]string{tables.ApplicationID}),
	}

	linked, summaries := Categories(categories, DefaultSpec(), nil)

	assert.Empty(t, linked)
	assert.Equal(t, report.StatusSkipped, summaries["PRJ_PRJABS"].Status)
	assert.Contains(t, summaries["PRJ_PRJABS"].Reason, "PRJABS")
}
