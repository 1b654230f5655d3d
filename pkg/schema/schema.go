// Package schema reconciles the column schemas of the files loaded for each
// category: renaming, concatenation and column removal.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

var ErrDuplicateColumn = errors.New("duplicate column")

// RenameColumns applies mapping to the columns of every source table, in
// place. The result lists "old -> new" changes per file name; files without
// changes are omitted.
func RenameColumns(categories map[string][]tables.Source, mapping map[string]string, logger *slog.Logger) map[string][]string {
	logger = logging.Or(logger)
	result := make(map[string][]string)

	if len(mapping) == 0 {
		logger.Warn("no column rename rules configured")
		return result
	}
	logger.Info("applying column rename rules", slog.Int("rules", len(mapping)))

	for _, category := range sortedKeys(categories) {
		for _, src := range categories[category] {
			changes := src.Table.Rename(mapping)
			if len(changes) == 0 {
				continue
			}
			logger.Info("renamed columns",
				slog.String("category", category),
				slog.String("file", src.Name),
				slog.Any("changes", changes))
			result[src.Name] = changes
		}
	}
	return result
}

// AppendByCategory concatenates the source tables of each category in file
// order. The output columns are the union of the input columns in order of
// first appearance, with nulls where a file lacked a column.
//
// A category whose files disagree on their columns is left out of the
// result unless force is set. It is always present in the summaries.
func AppendByCategory(categories map[string][]tables.Source, force bool, logger *slog.Logger) (map[string]*tables.Table, map[string]report.AppendSummary) {
	logger = logging.Or(logger)
	appended := make(map[string]*tables.Table)
	summaries := make(map[string]report.AppendSummary)

	for _, category := range sortedKeys(categories) {
		sources := categories[category]
		summary := report.AppendSummary{
			Result:            report.OK(),
			Folder:            category,
			NumFiles:          len(sources),
			UnexpectedColumns: []string{},
		}

		union, unexpected, err := compareColumns(sources)
		if err != nil {
			summary.Result = report.Failed(err)
			logger.Error("appending category", slog.String("category", category), slog.Any("error", err))
			summaries[category] = summary
			continue
		}

		summary.UnexpectedColumns = unexpected
		summary.UnexpectedColumnsAdded = len(unexpected)

		if len(unexpected) > 0 && !force {
			logger.Warn("column mismatch, skipping append",
				slog.String("category", category),
				slog.Any("unexpected_columns", unexpected))
			summary.Result = report.Skipped("column mismatch: %v", unexpected)
			summary.Skipped = true
			summaries[category] = summary
			continue
		}

		t := concat(union, sources)
		appended[category] = t
		summary.TotalRows = t.NumRows()
		summary.TotalColumns = t.NumColumns()

		logger.Info("appended category",
			slog.String("category", category),
			slog.Int("files", len(sources)),
			slog.Int("rows", summary.TotalRows),
			slog.Int("columns", summary.TotalColumns))
		summaries[category] = summary
	}

	return appended, summaries
}

// compareColumns returns the ordered union of the source columns and the
// sorted names not shared by every source.
func compareColumns(sources []tables.Source) ([]string, []string, error) {
	var union []string
	seen := make(map[string]int)

	for _, src := range sources {
		if dups := src.Table.DuplicateColumns(); len(dups) > 0 {
			return nil, nil, fmt.Errorf("%w in %q: %v", ErrDuplicateColumn, src.Name, dups)
		}
		for _, c := range src.Table.Columns {
			if seen[c] == 0 {
				union = append(union, c)
			}
			seen[c]++
		}
	}

	unexpected := []string{}
	for _, c := range union {
		if seen[c] != len(sources) {
			unexpected = append(unexpected, c)
		}
	}
	sort.Strings(unexpected)

	return union, unexpected, nil
}

func concat(columns []string, sources []tables.Source) *tables.Table {
	total := 0
	for _, src := range sources {
		total += src.Table.NumRows()
	}

	result := &tables.Table{
		Columns: slices.Clone(columns),
		Rows:    make([][]any, 0, total),
	}
	for _, src := range sources {
		positions := make([]int, len(columns))
		for i, c := range columns {
			positions[i] = src.Table.ColumnIndex(c)
		}
		for _, row := range src.Table.Rows {
			out := make([]any, len(columns))
			for i, p := range positions {
				if p >= 0 {
					out[i] = row[p]
				}
			}
			result.Rows = append(result.Rows, out)
		}
	}
	return result
}

// ValidateDropHeaders reports, per category, the configured drop columns
// that the appended table does not have. Categories that were not appended
// are reported with all of their drop columns.
func ValidateDropHeaders(appended map[string]*tables.Table, dropMap map[string][]string, logger *slog.Logger) map[string][]string {
	logger = logging.Or(logger)
	missing := make(map[string][]string)

	if len(dropMap) == 0 {
		logger.Warn("no drop columns configured, skipping header validation")
		return missing
	}

	for _, category := range sortedKeys(dropMap) {
		expected := dropMap[category]
		t, ok := appended[category]
		if !ok {
			logger.Warn("drop columns configured for a category that was not appended",
				slog.String("category", category))
			missing[category] = sortedCopy(expected)
			continue
		}

		var absent []string
		for _, c := range expected {
			if !t.HasColumn(c) {
				absent = append(absent, c)
			}
		}
		if len(absent) > 0 {
			sort.Strings(absent)
			logger.Warn("missing expected drop columns",
				slog.String("category", category),
				slog.Any("columns", absent))
			missing[category] = absent
			continue
		}
		logger.Info("passed header validation", slog.String("category", category))
	}
	return missing
}

// DropColumns removes each category's configured columns from its appended
// table, in place, and returns the columns actually removed.
func DropColumns(appended map[string]*tables.Table, dropMap map[string][]string, logger *slog.Logger) map[string][]string {
	logger = logging.Or(logger)
	result := make(map[string][]string)

	for _, category := range sortedKeys(dropMap) {
		t, ok := appended[category]
		if !ok {
			continue
		}
		dropped := t.DropColumns(dropMap[category]...)
		if len(dropped) == 0 {
			continue
		}
		logger.Info("dropped columns",
			slog.String("category", category),
			slog.Any("columns", dropped))
		result[category] = dropped
	}
	return result
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func sortedCopy(s []string) []string {
	result := slices.Clone(s)
	sort.Strings(result)
	return result
}
