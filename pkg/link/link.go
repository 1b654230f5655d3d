// Package link joins two category tables on a shared identifier.
package link

import (
	"fmt"
	"log/slog"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

// Spec names the two categories to join and the identifier column. The
// joined table is stored under Name.
type Spec struct {
	Name  string `yaml:"name" validate:"required"`
	Left  string `yaml:"left" validate:"required"`
	Right string `yaml:"right" validate:"required"`
	On    string `yaml:"on" validate:"required"`
}

// DefaultSpec joins project records to their abstracts.
func DefaultSpec() Spec {
	return Spec{Name: "PRJ_PRJABS", Left: "PRJ", Right: "PRJABS", On: tables.ApplicationID}
}

// Categories joins spec.Left and spec.Right from categories. When either is
// absent or cannot be joined, the result map is empty and the summary says
// why.
func Categories(categories map[string]*tables.Table, spec Spec, logger *slog.Logger) (map[string]*tables.Table, map[string]report.LinkSummary) {
	logger = logging.Or(logger)
	linked := make(map[string]*tables.Table)
	summary := report.LinkSummary{Left: spec.Left, Right: spec.Right, On: spec.On}

	var missing []string
	for _, name := range []string{spec.Left, spec.Right} {
		if _, ok := categories[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		logger.Warn("missing link sources", slog.Any("categories", missing))
		summary.Result = report.Skipped("missing link sources: %v", missing)
		return linked, map[string]report.LinkSummary{spec.Name: summary}
	}

	left, right := categories[spec.Left], categories[spec.Right]
	joined, summary, err := LeftJoin(left, right, spec.On)
	summary.Left, summary.Right = spec.Left, spec.Right
	summary.SourceShapes = map[string]tables.Shape{
		spec.Left:  left.Shape(),
		spec.Right: right.Shape(),
	}
	if err != nil {
		logger.Error("linking categories",
			slog.String("left", spec.Left),
			slog.String("right", spec.Right),
			slog.Any("error", err))
		summary.Result = report.Failed(err)
		return linked, map[string]report.LinkSummary{spec.Name: summary}
	}

	logger.Info("linked categories",
		slog.String("name", spec.Name),
		slog.Int("rows", summary.MergedShape.Rows),
		slog.Int("columns", summary.MergedShape.Cols))
	linked[spec.Name] = joined
	return linked, map[string]report.LinkSummary{spec.Name: summary}
}

// LeftJoin keeps every left row once per matching right row, or once with
// null right columns when nothing matches. Keys are matched cast to string,
// trimmed and uppercased, and the key column of the result holds that form.
// Null keys match nothing. Neither input is modified.
//
// The key column appears once. Other columns present on both sides are
// suffixed with _x (left) and _y (right).
func LeftJoin(left, right *tables.Table, on string) (*tables.Table, report.LinkSummary, error) {
	summary := report.LinkSummary{On: on}

	leftKey := left.ColumnIndex(on)
	if leftKey < 0 {
		return nil, summary, fmt.Errorf("left table: %w: %q", tables.ErrMissingColumn, on)
	}
	rightKey := right.ColumnIndex(on)
	if rightKey < 0 {
		return nil, summary, fmt.Errorf("right table: %w: %q", tables.ErrMissingColumn, on)
	}

	matches := make(map[string][]int)
	for i, row := range right.Rows {
		if key, ok := tables.NormalizeKey(row[rightKey]); ok {
			matches[key] = append(matches[key], i)
		}
	}

	columns, rightColumns := joinColumns(left, right, rightKey)
	result := &tables.Table{Columns: columns}
	for _, row := range left.Rows {
		key, ok := tables.NormalizeKey(row[leftKey])
		newRow := func() []any {
			out := make([]any, len(columns))
			copy(out, row)
			if ok {
				out[leftKey] = key
			}
			return out
		}

		var found []int
		if ok {
			found = matches[key]
		}
		if len(found) == 0 {
			result.Rows = append(result.Rows, newRow())
			continue
		}
		for _, r := range found {
			out := newRow()
			for k, j := range rightColumns {
				out[len(row)+k] = right.Rows[r][j]
			}
			result.Rows = append(result.Rows, out)
		}
	}

	summary.Result = report.OK()
	summary.MergedShape = result.Shape()
	summary.Changes = report.LinkChange{
		RowsAdded: result.NumRows() - left.NumRows(),
		ColsAdded: result.NumColumns() - left.NumColumns(),
	}
	return result, summary, nil
}

// joinColumns returns the output column names and the right-hand column
// positions copied after the left columns.
func joinColumns(left, right *tables.Table, rightKey int) ([]string, []int) {
	key := right.Columns[rightKey]
	inRight := make(map[string]bool, right.NumColumns())
	for _, c := range right.Columns {
		inRight[c] = true
	}

	columns := make([]string, 0, left.NumColumns()+right.NumColumns()-1)
	inLeft := make(map[string]bool, left.NumColumns())
	for _, c := range left.Columns {
		inLeft[c] = true
		if c != key && inRight[c] {
			c += tables.SuffixLeft
		}
		columns = append(columns, c)
	}

	var rightColumns []int
	for j, c := range right.Columns {
		if j == rightKey {
			continue
		}
		if inLeft[c] {
			c += tables.SuffixRight
		}
		columns = append(columns, c)
		rightColumns = append(rightColumns, j)
	}
	return columns, rightColumns
}
