// Package training splits the enriched table into the rows kept for model
// training and the rows dropped by the keyword cutoff.
package training

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

var ErrFilter = errors.New("filtering training set")

// Options select the count column, the cutoff and the exported columns.
type Options struct {
	CountColumn string
	Cutoff      int64
	MLColumns   []string
}

// Split is the result of Filter. Both tables are projected onto the ML
// columns.
type Split struct {
	Retained *tables.Table
	Dropped  *tables.Table
}

// Filter keeps rows whose count is at least the cutoff and drops the rest.
//
// An empty input, a missing count column, an empty column list or a missing
// ML column yields two empty tables and a failed summary. A count cell that
// is not an integer is returned as an error.
func Filter(t *tables.Table, opts Options, logger *slog.Logger) (Split, report.FilterSummary, error) {
	logger = logging.Or(logger)
	summary := report.FilterSummary{
		MLColumnsUsed: opts.MLColumns,
		CountColumn:   opts.CountColumn,
		CutoffValue:   opts.Cutoff,
	}
	empty := Split{Retained: tables.Empty(), Dropped: tables.Empty()}

	fail := func(format string, args ...any) (Split, report.FilterSummary, error) {
		err := fmt.Errorf("%w: "+format, append([]any{ErrFilter}, args...)...)
		logger.Error("training filter failed", slog.Any("error", err))
		summary.Result = report.Failed(err)
		return empty, summary, nil
	}

	switch {
	case t.NumRows() == 0:
		return fail("input table is empty")
	case !t.HasColumn(opts.CountColumn):
		return fail("count column %q absent", opts.CountColumn)
	case len(opts.MLColumns) == 0:
		return fail("no ML columns configured")
	}
	for _, c := range opts.MLColumns {
		if !t.HasColumn(c) {
			return fail("ML column %q absent", c)
		}
	}
	summary.TotalInputRows = t.NumRows()

	counts, err := t.Column(opts.CountColumn)
	if err != nil {
		return empty, summary, fmt.Errorf("%w: %w", ErrFilter, err)
	}

	var retained, dropped []int
	for i, v := range counts {
		n, err := tables.Int(v)
		if err != nil {
			logger.Error("unexpected count value", slog.Int("row", i), slog.Any("error", err))
			return empty, summary, fmt.Errorf("%w: row %d: %w", ErrFilter, i, err)
		}
		if n >= opts.Cutoff {
			retained = append(retained, i)
		} else {
			dropped = append(dropped, i)
		}
	}

	projected, err := t.Select(opts.MLColumns)
	if err != nil {
		return empty, summary, fmt.Errorf("%w: %w", ErrFilter, err)
	}
	split := Split{Retained: projected.Take(retained), Dropped: projected.Take(dropped)}

	total := float64(summary.TotalInputRows)
	summary.TotalRetainedRows = len(retained)
	summary.TotalDroppedRows = len(dropped)
	summary.PercentRetained = percent(len(retained), total)
	summary.PercentDropped = percent(len(dropped), total)
	summary.RetainedIndexRange = indexRange(retained)
	summary.DroppedIndexRange = indexRange(dropped)
	summary.Result = report.OK()

	logger.Info("filtered training set",
		slog.Int64("cutoff", opts.Cutoff),
		slog.Int("retained", len(retained)),
		slog.Int("dropped", len(dropped)))
	return split, summary, nil
}

func percent(n int, total float64) *float64 {
	p := math.Round(10000*float64(n)/total) / 100
	return &p
}

// indexRange is nil for an empty split.
func indexRange(rows []int) *[2]int {
	if len(rows) == 0 {
		return nil
	}
	return &[2]int{rows[0], rows[len(rows)-1]}
}
