package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/willbeason/nih-exporter/pkg/tables"
)

// readXLSX reads the first sheet of a workbook. Its first row is the
// header. Short rows are padded with nulls; rows longer than the header
// are skipped and counted.
func readXLSX(r io.Reader, logger *slog.Logger) (*tables.Table, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: opening workbook: %w", ErrIngest, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("%w: workbook has no sheets", ErrIngest)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading sheet %q: %w", ErrIngest, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: empty file", ErrIngest)
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		columns[i] = cleanHeader(h)
	}
	t := tables.New(columns)

	skipped := 0
	for i, record := range rows[1:] {
		if len(record) > len(columns) {
			logger.Warn("skipping row with wrong field count",
				slog.Int("row", i+2),
				slog.Int("fields", len(record)),
				slog.Int("expected", len(columns)))
			skipped++
			continue
		}

		row := make([]any, len(columns))
		for j, v := range record {
			if v != "" {
				row[j] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, skipped, nil
}
