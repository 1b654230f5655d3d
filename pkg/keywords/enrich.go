package keywords

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/parallel"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

// TextSeparator joins the text columns of a row before matching.
const TextSeparator = " | "

const topTerms = 10

// EnrichOptions control one enrichment pass.
type EnrichOptions struct {
	TextColumns []string
	Workers     int

	// Progress, when set, receives a bar counting scored rows.
	Progress *mpb.Progress
}

type scored struct {
	total   int
	flagged []string
}

// Enrich scores every row of t against the keyword pools and returns a copy
// with "total count", "total unique count" and "flagged" appended. When no
// configured text column exists, t is returned unchanged.
func Enrich(ctx context.Context, t *tables.Table, pools Pools, opts EnrichOptions, logger *slog.Logger) (*tables.Table, report.EnrichmentSummary) {
	logger = logging.Or(logger)

	all := pools.All()
	workers := max(1, opts.Workers)
	summary := report.EnrichmentSummary{
		MaxWorkers:        workers,
		KeywordPoolSize:   len(all),
		TreatmentPoolSize: len(slices.Compact(slices.Sorted(slices.Values(pools.Treatment)))),
		DiseasePoolSize:   len(slices.Compact(slices.Sorted(slices.Values(pools.Disease)))),
	}

	var textIdx []int
	for _, c := range opts.TextColumns {
		if idx := t.ColumnIndex(c); idx >= 0 {
			textIdx = append(textIdx, idx)
			summary.TextColumnsUsed = append(summary.TextColumnsUsed, c)
		}
	}
	if len(textIdx) == 0 {
		logger.Warn("no configured text columns in table, skipping enrichment",
			slog.Any("text_columns", opts.TextColumns))
		summary.Result = report.Skipped("none of the text columns %v present", opts.TextColumns)
		return t, summary
	}

	n := t.NumRows()
	summary.ChunkSize = parallel.ChunkSize(n, workers)
	chunks := parallel.Chunks(n, summary.ChunkSize)
	matcher := NewMatcher(all)

	var bar *mpb.Bar
	if opts.Progress != nil && n > 0 {
		bar = opts.Progress.AddBar(int64(n),
			mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
			mpb.PrependDecorators(decor.Name("enrichment")),
			mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
			mpb.BarRemoveOnComplete())
	}
	start := time.Now()

	results, err := parallel.Map(ctx, workers, chunks, func(_ context.Context, r parallel.Range) ([]scored, error) {
		out := make([]scored, 0, r.Len())
		for _, row := range t.Rows[r.Start:r.End] {
			hits := matcher.Extract(rowText(row, textIdx))
			out = append(out, scored{total: len(hits), flagged: firstSeen(hits)})
		}
		if bar != nil {
			bar.IncrBy(r.Len(), time.Since(start))
		}
		return out, nil
	})
	if err != nil {
		logger.Error("enrichment interrupted", slog.Any("error", err))
		summary.Result = report.Failed(err)
		return t, summary
	}

	totals := make([]any, 0, n)
	uniques := make([]any, 0, n)
	flagged := make([]any, 0, n)
	for _, chunk := range results {
		for _, s := range chunk {
			totals = append(totals, int64(s.total))
			uniques = append(uniques, int64(len(s.flagged)))
			flagged = append(flagged, s.flagged)
		}
	}

	result := t.Clone()
	for _, c := range []struct {
		name   string
		values []any
	}{
		{tables.TotalCount, totals},
		{tables.TotalUniqueCount, uniques},
		{tables.Flagged, flagged},
	} {
		if err := result.SetColumn(c.name, c.values); err != nil {
			logger.Error("attaching enrichment column", slog.String("column", c.name), slog.Any("error", err))
			summary.Result = report.Failed(err)
			return t, summary
		}
	}

	summarize(&summary, totals, flagged)
	summary.Result = report.OK()
	logger.Info("enriched rows",
		slog.Int("rows", summary.TotalRowsProcessed),
		slog.Int("hits", summary.TotalKeywordHits),
		slog.Int("rows_with_hits", summary.RowsWithHits))
	return result, summary
}

// rowText lowercases and joins the non-null text cells of a row.
func rowText(row []any, idx []int) string {
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		if row[i] == nil {
			continue
		}
		parts = append(parts, strings.ToLower(tables.String(row[i])))
	}
	return strings.Join(parts, TextSeparator)
}

func firstSeen(hits []string) []string {
	if len(hits) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(hits))
	result := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		result = append(result, h)
	}
	return result
}

func summarize(s *report.EnrichmentSummary, totals, flagged []any) {
	n := len(totals)
	s.TotalRowsProcessed = n

	uniqueHits := 0
	order := make(map[string]int)
	counts := make(map[string]int)
	for i := range totals {
		total := int(totals[i].(int64))
		terms := flagged[i].([]string)

		s.TotalKeywordHits += total
		uniqueHits += len(terms)
		if total > 0 {
			s.RowsWithHits++
		}
		if len(terms) > 0 {
			s.RowsFlagged++
		}
		for _, term := range terms {
			if _, ok := order[term]; !ok {
				order[term] = len(order)
			}
			counts[term]++
		}
	}
	s.RowsWithoutHits = n - s.RowsWithHits

	if n > 0 {
		s.AvgHitsPerRow = round2(float64(s.TotalKeywordHits) / float64(n))
		s.AvgUniquePerRow = round2(float64(uniqueHits) / float64(n))
		s.RowsWithHitsPct = round2(100 * float64(s.RowsWithHits) / float64(n))
		s.RowsWithoutHitsPct = round2(100 * float64(s.RowsWithoutHits) / float64(n))
	}

	top := make([]report.TermCount, 0, len(counts))
	for term, count := range counts {
		top = append(top, report.TermCount{Term: term, Count: count})
	}
	slices.SortFunc(top, func(a, b report.TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(order[a.Term], order[b.Term])
	})
	s.TopFlaggedTerms = top[:min(topTerms, len(top))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
