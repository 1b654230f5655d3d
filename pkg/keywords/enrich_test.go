package keywords

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

func projects() *tables.Table {
	return tables.New([]string{tables.ApplicationID, "ABSTRACT_TEXT", "PROJECT_TITLE"},
		[]any{"1", "A therapy trial", "Cancer therapy"},
		[]any{"2", "nothing here", nil},
		[]any{"3", nil, "THERAPY"},
	)
}

func TestEnrich(t *testing.T) {
	pools := Pools{Treatment: []string{"therapy"}, Disease: []string{"cancer"}}
	opts := EnrichOptions{
		TextColumns: []string{"PROJECT_TITLE", "ABSTRACT_TEXT", "PROJECT_TERMS"},
		Workers:     2,
	}

	got, summary := Enrich(context.Background(), projects(), pools, opts, nil)

	require.Equal(t, []string{
		tables.ApplicationID, "ABSTRACT_TEXT", "PROJECT_TITLE",
		tables.TotalCount, tables.TotalUniqueCount, tables.Flagged,
	}, got.Columns)
	assert.Equal(t, []any{"1", "A therapy trial", "Cancer therapy", int64(3), int64(2), []string{"cancer", "therapy"}}, got.Rows[0])
	assert.Equal(t, []any{"2", "nothing here", nil, int64(0), int64(0), []string{}}, got.Rows[1])
	assert.Equal(t, []any{"3", nil, "THERAPY", int64(1), int64(1), []string{"therapy"}}, got.Rows[2])

	assert.Equal(t, report.EnrichmentSummary{
		Result:             report.OK(),
		TotalRowsProcessed: 3,
		TextColumnsUsed:    []string{"PROJECT_TITLE", "ABSTRACT_TEXT"},
		MaxWorkers:         2,
		ChunkSize:          1,
		KeywordPoolSize:    2,
		TreatmentPoolSize:  1,
		DiseasePoolSize:    1,
		TotalKeywordHits:   4,
		AvgHitsPerRow:      1.33,
		AvgUniquePerRow:    1,
		RowsWithHits:       2,
		RowsWithHitsPct:    66.67,
		RowsWithoutHits:    1,
		RowsWithoutHitsPct: 33.33,
		RowsFlagged:        2,
		TopFlaggedTerms: []report.TermCount{
			{Term: "therapy", Count: 2},
			{Term: "cancer", Count: 1},
		},
	}, summary)
}

func TestEnrich_DoesNotModifyInput(t *testing.T) {
	in := projects()

	_, _ = Enrich(context.Background(), in, Pools{Disease: []string{"cancer"}}, EnrichOptions{TextColumns: []string{"PROJECT_TITLE"}}, nil)

	assert.Equal(t, projects(), in)
}

func TestEnrich_NoTextColumns(t *testing.T) {
	in := projects()

	got, summary := Enrich(context.Background(), in, Pools{Disease: []string{"cancer"}}, EnrichOptions{TextColumns: []string{"PROJECT_TERMS"}}, nil)

	assert.Same(t, in, got)
	assert.False(t, got.HasColumn(tables.TotalCount))
	assert.Equal(t, report.StatusSkipped, summary.Status)
}

// Row i's result always describes row i's text, whatever the chunking.
func TestEnrich_PreservesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	words := []string{"alpha", "beta", "gamma", "delta", "filler", "noise", "text"}
	keywords := []string{"alpha", "beta", "gamma", "delta"}

	in := tables.New([]string{"ID", "TEXT"})
	for i := 0; i < 97; i++ {
		n := rng.Intn(6)
		parts := make([]string, n)
		for j := range parts {
			parts[j] = words[rng.Intn(len(words))]
		}
		in.Rows = append(in.Rows, []any{fmt.Sprint(i), strings.Join(parts, " ")})
	}
	matcher := NewMatcher(keywords)

	for workers := 1; workers <= 9; workers++ {
		got, summary := Enrich(context.Background(), in, Pools{Treatment: keywords}, EnrichOptions{TextColumns: []string{"TEXT"}, Workers: workers}, nil)
		require.Equal(t, report.StatusOK, summary.Status)
		require.Equal(t, in.NumRows(), got.NumRows())

		totals, err := got.Column(tables.TotalCount)
		require.NoError(t, err)
		for i, row := range in.Rows {
			assert.Equal(t, got.Rows[i][0], row[0])
			assert.Equal(t, int64(len(matcher.Extract(row[1].(string)))), totals[i], "workers=%d row=%d", workers, i)
		}
	}
}

func TestEnrich_EmptyTable(t *testing.T) {
	in := tables.New([]string{"TEXT"})

	got, summary := Enrich(context.Background(), in, Pools{Treatment: []string{"x"}}, EnrichOptions{TextColumns: []string{"TEXT"}, Workers: 4}, nil)

	assert.Equal(t, report.StatusOK, summary.Status)
	assert.Equal(t, 0, got.NumRows())
	assert.Equal(t, 0, summary.TotalRowsProcessed)
	assert.Zero(t, summary.AvgHitsPerRow)
}

func TestPrepare(t *testing.T) {
	pools, summary := Prepare([]string{"therapy", "the"}, []string{"virus"}, true, nil)

	assert.Equal(t, []string{"therapies", "therapy", "therapys"}, pools.Treatment)
	assert.Equal(t, []string{"virus", "viruses"}, pools.Disease)
	assert.Equal(t, 5, len(pools.All()))
	assert.Equal(t, 2, summary.TreatmentSeeds)
	assert.Equal(t, 3, summary.TreatmentCount)
	assert.True(t, summary.StopwordsRemoved)
	assert.Equal(t, report.StatusOK, summary.Status)
}
