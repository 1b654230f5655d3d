package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/willbeason/nih-exporter/pkg/tables"
)

var ErrEncoding = errors.New("unsupported encoding")

// Encoding resolves a configured encoding name. UTF-8 resolves to nil, as
// no decoding is needed.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return nil, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrEncoding, name)
	}
	return enc, nil
}

// Byte order marks, as UTF-8 and as read through latin1.
var headerReplacer = strings.NewReplacer("\ufeff", "", "ï»¿", "")

func cleanHeader(name string) string {
	name = headerReplacer.Replace(name)
	return strings.Trim(strings.TrimSpace(name), `"'`)
}

// readDelimited parses delimited text. Rows whose field count differs from
// the header, and unparseable lines, are skipped and counted. Repeated
// header lines, as produced by concatenated parts, are dropped.
func readDelimited(r io.Reader, comma rune, enc encoding.Encoding, logger *slog.Logger) (*tables.Table, int, error) {
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: empty file", ErrIngest)
	} else if err != nil {
		return nil, 0, fmt.Errorf("%w: reading header: %w", ErrIngest, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = cleanHeader(h)
	}
	t := tables.New(columns)

	skipped := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.Warn("skipping malformed line", slog.Int("line", parseErr.Line), slog.Any("error", err))
			skipped++
			continue
		} else if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrIngest, err)
		}

		if len(record) != len(columns) {
			line, _ := cr.FieldPos(0)
			logger.Warn("skipping line with wrong field count",
				slog.Int("line", line),
				slog.Int("fields", len(record)),
				slog.Int("expected", len(columns)))
			skipped++
			continue
		}
		if isHeader(record, columns) {
			continue
		}

		row := make([]any, len(record))
		for i, v := range record {
			if v != "" {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, skipped, nil
}

func isHeader(record, columns []string) bool {
	return slices.EqualFunc(record, columns, func(a, b string) bool {
		return cleanHeader(a) == b
	})
}
