package tables

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/gzip"
)

const batchSize = 1 << 20

var ErrParquet = errors.New("parquet table")

// Schema infers an Arrow schema from the cells of each column. Columns
// mixing incompatible kinds fall back to strings.
func (t *Table) Schema(description string) *arrow.Schema {
	fields := make([]arrow.Field, len(t.Columns))
	for j, name := range t.Columns {
		fields[j] = arrow.Field{
			Name:     name,
			Type:     t.columnType(j),
			Nullable: true,
			Metadata: ColumnMetadata(name),
		}
	}
	return arrow.NewSchema(fields, NewMetadataBuilder().AddIf(
		comment, description,
	).Add(
		source, DataSource,
	).BuildReference())
}

func (t *Table) columnType(j int) arrow.DataType {
	var sawInt, sawFloat, sawBool, sawString, sawList bool
	for _, row := range t.Rows {
		switch row[j].(type) {
		case nil:
		case int64, int:
			sawInt = true
		case float64:
			sawFloat = true
		case bool:
			sawBool = true
		case []string:
			sawList = true
		default:
			sawString = true
		}
	}

	switch {
	case sawString:
		return arrow.BinaryTypes.String
	case sawList:
		if sawInt || sawFloat || sawBool {
			return arrow.BinaryTypes.String
		}
		return arrow.ListOf(arrow.BinaryTypes.String)
	case sawBool:
		if sawInt || sawFloat {
			return arrow.BinaryTypes.String
		}
		return arrow.FixedWidthTypes.Boolean
	case sawFloat:
		return arrow.PrimitiveTypes.Float64
	case sawInt:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

// WriteParquet writes the table as a single gzip-compressed row group.
func WriteParquet(path string, t *Table, description string) error {
	if t.NumColumns() == 0 {
		return fmt.Errorf("%w: %q: table has no columns", ErrParquet, path)
	}

	schema := t.Schema(description)
	allocator := memory.NewGoAllocator()
	recordBuilder := array.NewRecordBuilder(allocator, schema)
	defer recordBuilder.Release()

	for j := range schema.Fields() {
		err := appendColumn(recordBuilder.Field(j), t, j)
		if err != nil {
			return fmt.Errorf("%w: column %q: %w", ErrParquet, t.Columns[j], err)
		}
	}

	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %w", ErrParquet, path, err)
	}
	// Don't close outFile; parquet handles closing it.
	writer, err := pqarrow.NewFileWriter(
		schema,
		outFile,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Gzip),
			parquet.WithCompressionLevel(gzip.BestCompression)),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		_ = outFile.Close()
		return fmt.Errorf("%w: creating writer for %q: %w", ErrParquet, path, err)
	}

	record := recordBuilder.NewRecord()
	defer record.Release()

	err = writer.Write(record)
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("%w: writing %q: %w", ErrParquet, path, err)
	}
	return writer.Close()
}

func appendColumn(builder array.Builder, t *Table, j int) error {
	switch b := builder.(type) {
	case *array.StringBuilder:
		for _, row := range t.Rows {
			if row[j] == nil {
				b.AppendNull()
			} else {
				b.Append(String(row[j]))
			}
		}
	case *array.Int64Builder:
		for _, row := range t.Rows {
			if row[j] == nil {
				b.AppendNull()
				continue
			}
			n, err := Int(row[j])
			if err != nil {
				return err
			}
			b.Append(n)
		}
	case *array.Float64Builder:
		for _, row := range t.Rows {
			switch v := row[j].(type) {
			case nil:
				b.AppendNull()
			case float64:
				b.Append(v)
			case int64:
				b.Append(float64(v))
			case int:
				b.Append(float64(v))
			default:
				return fmt.Errorf("unexpected %T in float column", v)
			}
		}
	case *array.BooleanBuilder:
		for _, row := range t.Rows {
			if row[j] == nil {
				b.AppendNull()
			} else {
				b.Append(row[j].(bool))
			}
		}
	case *array.ListBuilder:
		values := b.ValueBuilder().(*array.StringBuilder)
		for _, row := range t.Rows {
			if row[j] == nil {
				b.AppendNull()
				continue
			}
			b.Append(true)
			for _, s := range row[j].([]string) {
				values.Append(s)
			}
		}
	default:
		return fmt.Errorf("unsupported builder %T", builder)
	}
	return nil
}

// ReadParquet loads every row group of a Parquet file into memory.
func ReadParquet(ctx context.Context, path string) (*Table, error) {
	allocator := memory.NewGoAllocator()
	inFileReader, err := file.OpenParquetFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrParquet, path, err)
	}
	defer func() {
		_ = inFileReader.Close()
	}()

	inReader, err := pqarrow.NewFileReader(inFileReader,
		pqarrow.ArrowReadProperties{Parallel: true, BatchSize: batchSize},
		allocator,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pqarrow FileReader: %w", ErrParquet, err)
	}

	schema, err := inReader.Schema()
	if err != nil {
		return nil, fmt.Errorf("%w: getting schema: %w", ErrParquet, err)
	}

	recordReader, err := inReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: getting record reader: %w", ErrParquet, err)
	}
	defer recordReader.Release()

	result := &Table{Columns: make([]string, schema.NumFields())}
	for j, field := range schema.Fields() {
		result.Columns[j] = field.Name
	}

	var record arrow.Record
	for record, err = recordReader.Read(); err == nil; record, err = recordReader.Read() {
		rows := make([][]any, record.NumRows())
		for i := range rows {
			rows[i] = make([]any, len(result.Columns))
		}
		for j, column := range record.Columns() {
			for i := range rows {
				rows[i][j] = cellAt(column, i)
			}
		}
		result.Rows = append(result.Rows, rows...)
	}
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading records: %w", ErrParquet, err)
	}

	return result, nil
}

func cellAt(column arrow.Array, i int) any {
	if column.IsNull(i) {
		return nil
	}

	switch c := column.(type) {
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Int64:
		return c.Value(i)
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Uint64:
		return int64(c.Value(i))
	case *array.Uint32:
		return int64(c.Value(i))
	case *array.Uint16:
		return int64(c.Value(i))
	case *array.Uint8:
		return int64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Boolean:
		return c.Value(i)
	case *array.List:
		start, end := c.ValueOffsets(i)
		values := c.ListValues()
		result := make([]string, 0, end-start)
		for k := start; k < end; k++ {
			result = append(result, String(cellAt(values, int(k))))
		}
		return result
	default:
		return column.ValueStr(i)
	}
}
