// Package dedupe removes exact duplicate rows and counts how many there were.
package dedupe

import (
	"fmt"
	"log/slog"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

// Rows removes all but the first occurrence of every fully identical row.
// List cells compare element-wise. The input table is not modified.
func Rows(t *tables.Table, label string, logger *slog.Logger) (*tables.Table, map[string]report.DuplicateStats) {
	logger = logging.Or(logger)
	logger.Info("checking for duplicate rows", slog.String("label", label))

	keep, stats := scan(t, func(row []any) (string, bool) {
		return tables.EncodeKey(row...), true
	})

	logStats(logger, label, stats)
	if stats.TotalDuplicates > 0 {
		logger.Info("duplicates removed",
			slog.String("label", label),
			slog.Int("rows", len(keep)),
			slog.Int("columns", t.NumColumns()))
	}

	return t.Take(keep), map[string]report.DuplicateStats{label: stats}
}

// ByKey removes all but the first row of every group sharing the values of
// columns. Rows whose key contains a null are kept and never counted as
// duplicates.
func ByKey(t *tables.Table, columns []string, label string, logger *slog.Logger) (*tables.Table, map[string]report.DuplicateStats, error) {
	logger = logging.Or(logger)

	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, nil, fmt.Errorf("%w: %q", tables.ErrMissingColumn, c)
		}
	}

	key := make([]any, len(idx))
	keep, stats := scan(t, func(row []any) (string, bool) {
		for i, j := range idx {
			if row[j] == nil {
				return "", false
			}
			key[i] = row[j]
		}
		return tables.EncodeKey(key...), true
	})

	logStats(logger, label, stats)
	return t.Take(keep), map[string]report.DuplicateStats{label: stats}, nil
}

// scan returns the positions of the rows to keep, in order, and the
// duplicate statistics under the equality defined by key. Rows for which key
// reports false are always kept.
func scan(t *tables.Table, key func(row []any) (string, bool)) ([]int, report.DuplicateStats) {
	counts := make(map[string]int, t.NumRows())
	keep := make([]int, 0, t.NumRows())

	for i, row := range t.Rows {
		k, ok := key(row)
		if !ok {
			keep = append(keep, i)
			continue
		}
		counts[k]++
		if counts[k] == 1 {
			keep = append(keep, i)
		}
	}

	var stats report.DuplicateStats
	for _, n := range counts {
		if n < 2 {
			continue
		}
		stats.UniqueDuplicateRows++
		stats.TotalDuplicates += n
	}
	stats.ExtraDuplicates = stats.TotalDuplicates - stats.UniqueDuplicateRows

	return keep, stats
}

func logStats(logger *slog.Logger, label string, stats report.DuplicateStats) {
	logger.Info("duplicate statistics",
		slog.String("label", label),
		slog.Int("unique_duplicate_rows", stats.UniqueDuplicateRows),
		slog.Int("total_duplicates", stats.TotalDuplicates),
		slog.Int("extra_duplicates", stats.ExtraDuplicates))
}
