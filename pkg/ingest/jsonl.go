package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/goccy/go-json"
	"github.com/willbeason/bondsmith/jsonio"

	"github.com/willbeason/nih-exporter/pkg/tables"
)

// readJSONL reads one JSON object per line. Columns appear in the order
// keys are first seen, each object's keys taken in sorted order.
func readJSONL(r io.Reader) (*tables.Table, error) {
	entries := jsonio.NewReader(r, func() *map[string]any {
		v := make(map[string]any)
		return &v
	})

	var records []map[string]any
	index := make(map[string]int)
	var columns []string

	for entry, err := range entries.Read() {
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: record %d: %w", ErrIngest, len(records)+1, err)
		}

		keys := make([]string, 0, len(*entry))
		for k := range *entry {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if _, ok := index[k]; !ok {
				index[k] = len(columns)
				columns = append(columns, k)
			}
		}
		records = append(records, *entry)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrIngest)
	}

	t := tables.New(columns)
	for _, record := range records {
		row := make([]any, len(columns))
		for k, v := range record {
			cell, err := toCell(v)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %w", ErrIngest, k, err)
			}
			row[index[k]] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// toCell converts a decoded JSON value to a table cell. Integral numbers
// become int64 and arrays of strings become lists; other arrays and objects
// are kept as their JSON text.
func toCell(v any) (any, error) {
	switch o := v.(type) {
	case nil, string, bool:
		return o, nil
	case float64:
		if o == math.Trunc(o) && math.Abs(o) < 1<<53 {
			return int64(o), nil
		}
		return o, nil
	case []any:
		list := make([]string, 0, len(o))
		for _, e := range o {
			s, ok := e.(string)
			if !ok {
				return encode(o)
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return encode(o)
	}
}

func encode(v any) (any, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}
