package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

var ErrCSV = errors.New("csv table")

// WriteCSV writes the table with a header row. Nulls become empty fields and
// list cells are written as JSON arrays.
func WriteCSV(path string, t *Table) error {
	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %w", ErrCSV, path, err)
	}
	defer func() {
		err := outFile.Close()
		if err != nil {
			fmt.Println(err)
		}
	}()

	writer := csv.NewWriter(outFile)

	err = writer.Write(t.Columns)
	if err != nil {
		return fmt.Errorf("%w: writing header: %w", ErrCSV, err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j, v := range row {
			record[j], err = csvField(v)
			if err != nil {
				return fmt.Errorf("%w: column %q: %w", ErrCSV, t.Columns[j], err)
			}
		}
		err = writer.Write(record)
		if err != nil {
			return fmt.Errorf("%w: writing row: %w", ErrCSV, err)
		}
	}

	writer.Flush()
	if err = writer.Error(); err != nil {
		return fmt.Errorf("%w: flushing %q: %w", ErrCSV, path, err)
	}
	return nil
}

func csvField(v any) (string, error) {
	list, ok := v.([]string)
	if !ok {
		return String(v), nil
	}
	bs, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
