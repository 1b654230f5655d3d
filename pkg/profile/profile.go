package profile

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/willbeason/nih-exporter/pkg/tables"
)

// Columns profiles every column of t into fields, keyed by column name.
// Elements of list cells are profiled under "<column>[]". Fields already
// in the map are extended, so several tables may share one map.
func Columns(t *tables.Table, fields map[string]Field) {
	for i, name := range t.Columns {
		for _, row := range t.Rows {
			if list, ok := row[i].([]string); ok {
				for _, e := range list {
					add(fields, name+"[]", e)
				}
				continue
			}
			add(fields, name, row[i])
		}
		if _, ok := fields[name]; !ok {
			fields[name] = &EmptyField{}
		}
	}
}

func add(fields map[string]Field, key string, v any) {
	f := fields[key]
	if f == nil {
		f = &EmptyField{}
	}
	fields[key] = f.Add(v)
}

// Write prints one "column;profile" line per field in column name order.
func Write(w io.Writer, fields map[string]Field) error {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if _, err := fmt.Fprintf(w, "%s;%s\n", name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}
