// Package ingest reads the source extract files of every category folder
// into tables.
package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"github.com/willbeason/bondsmith"
	"github.com/willbeason/bondsmith/fileio"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/parallel"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

var ErrIngest = errors.New("reading source file")

// Options locate the category folders and control how files are read.
type Options struct {
	Folder     string
	Subfolders []string
	Encoding   string

	// Parallel reads the files of one folder concurrently, at most Workers
	// at a time.
	Parallel bool
	Workers  int

	Progress *mpb.Progress
}

// Load reads every category folder. Categories whose folder is missing or
// holds no readable file are absent from the result; their summaries say
// why. Summaries follow the order of Subfolders.
func Load(ctx context.Context, opts Options, logger *slog.Logger) (map[string][]tables.Source, []report.LoadSummary, error) {
	logger = logging.Or(logger)

	enc, err := Encoding(opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	result := make(map[string][]tables.Source)
	summaries := make([]report.LoadSummary, 0, len(opts.Subfolders))
	for _, sub := range opts.Subfolders {
		dir := filepath.Join(opts.Folder, sub)
		sources, summary := loadFolder(ctx, dir, enc, opts, logger.With(slog.String("folder", sub)))
		summary.Folder = sub
		summaries = append(summaries, summary)
		if len(sources) > 0 {
			result[sub] = sources
		}
	}
	return result, summaries, ctx.Err()
}

type loaded struct {
	source  tables.Source
	summary report.FileSummary
}

func loadFolder(ctx context.Context, dir string, enc encoding.Encoding, opts Options, logger *slog.Logger) ([]tables.Source, report.LoadSummary) {
	var summary report.LoadSummary

	inputs, err := discover(dir)
	if err != nil {
		logger.Warn("category folder unreadable", slog.Any("error", err))
		summary.Result = report.Skipped("folder %q unreadable", dir)
		return nil, summary
	}
	if len(inputs) == 0 {
		logger.Warn("no readable files in category folder", slog.String("dir", dir))
		summary.Result = report.Skipped("no readable files in %q", dir)
		return nil, summary
	}

	workers := 1
	if opts.Parallel {
		workers = max(1, opts.Workers)
	}

	var bar *mpb.Bar
	if opts.Progress != nil {
		bar = opts.Progress.AddBar(int64(len(inputs)),
			mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
			mpb.PrependDecorators(decor.Name(filepath.Base(dir))),
			mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
			mpb.BarRemoveOnComplete())
	}
	start := time.Now()

	results, err := parallel.Map(ctx, workers, inputs, func(_ context.Context, in input) (loaded, error) {
		l, _ := readInput(in, enc, logger)
		if bar != nil {
			bar.IncrBy(1, time.Since(start))
		}
		return l, nil
	})
	if err != nil {
		summary.Result = report.Failed(err)
		return nil, summary
	}

	var sources []tables.Source
	var memory int64
	for _, l := range results {
		summary.Files = append(summary.Files, l.summary)
		summary.TotalBytes += l.summary.Bytes
		if !l.summary.IsOK() {
			continue
		}
		sources = append(sources, l.source)
		summary.FileCount++
		summary.TotalRows += l.source.Table.NumRows()
		memory += footprint(l.source.Table)
	}
	summary.TotalMemory = fmt.Sprintf("%.2f MB", float64(memory)/(1<<20))

	if len(sources) == 0 {
		summary.Result = report.Skipped("no file in %q could be read", dir)
		return nil, summary
	}
	summary.Result = report.OK()
	logger.Info("loaded category",
		slog.Int("files", summary.FileCount),
		slog.Int("rows", summary.TotalRows),
		slog.String("memory", summary.TotalMemory))
	return sources, summary
}

// ReadFile reads one source file of any supported format.
func ReadFile(path, encodingName string, logger *slog.Logger) (*tables.Table, report.FileSummary, error) {
	enc, err := Encoding(encodingName)
	if err != nil {
		return nil, report.FileSummary{}, err
	}

	stem, f := detect(filepath.Base(path))
	if f == formatUnknown {
		return nil, report.FileSummary{}, fmt.Errorf("%w: unsupported file %q", ErrIngest, path)
	}

	l, err := readInput(input{Name: stem, Paths: []string{path}, Format: f}, enc, logging.Or(logger))
	if err != nil {
		return nil, l.summary, err
	}
	return l.source.Table, l.summary, nil
}

// readInput reports a file that cannot be read in its summary as well as
// in the returned error.
func readInput(in input, enc encoding.Encoding, logger *slog.Logger) (loaded, error) {
	logger = logger.With(slog.String("file", in.Name))
	s := report.FileSummary{Name: in.Name, Path: in.Paths[0]}
	if len(in.Paths) > 1 {
		s.Parts = len(in.Paths)
	}

	t, err := read(in, enc, &s, logger)
	if err != nil {
		logger.Error("skipping file", slog.Any("error", err))
		s.Result = report.Failed(err)
		return loaded{summary: s}, err
	}

	s.Result = report.OK()
	s.Rows = t.NumRows()
	s.Columns = t.NumColumns()
	if s.SkippedLines > 0 {
		logger.Warn("skipped malformed lines", slog.Int("lines", s.SkippedLines))
	}
	logger.Info("loaded file", slog.Int("rows", s.Rows), slog.Int("columns", s.Columns))
	return loaded{source: tables.Source{Name: in.Name, Table: t}, summary: s}, nil
}

func read(in input, enc encoding.Encoding, s *report.FileSummary, logger *slog.Logger) (*tables.Table, error) {
	var raw io.Reader
	if len(in.Paths) == 1 {
		f, err := os.Open(in.Paths[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIngest, err)
		}
		defer func() {
			_ = f.Close()
		}()
		raw = f
	} else {
		mr := fileio.NewMultiFileReader(in.Paths)
		if c, ok := any(mr).(io.Closer); ok {
			defer func() {
				_ = c.Close()
			}()
		}
		raw = mr
	}

	hash, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	counter := bondsmith.NewCountReader(raw)
	tee := io.TeeReader(counter, hash)

	// gzip handles concatenated members, so split archives read as one.
	var r io.Reader = tee
	if in.gzipped() {
		gz, err := gzip.NewReader(tee)
		if err != nil {
			return nil, fmt.Errorf("%w: starting gzip reader: %w", ErrIngest, err)
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}

	var t *tables.Table
	switch in.Format {
	case formatCSV:
		t, s.SkippedLines, err = readDelimited(r, ',', enc, logger)
	case formatTSV:
		t, s.SkippedLines, err = readDelimited(r, '\t', enc, logger)
	case formatXLSX:
		t, s.SkippedLines, err = readXLSX(r, logger)
	case formatJSONL, formatJSONLGzip:
		t, err = readJSONL(r)
	default:
		err = fmt.Errorf("%w: unsupported file %q", ErrIngest, in.Name)
	}
	if err != nil {
		return nil, err
	}

	// Drain so the fingerprint and byte count cover the whole input.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIngest, err)
	}
	s.Bytes = int64(counter.Count())
	s.Fingerprint = hex.EncodeToString(hash.Sum(nil))
	return t, nil
}

// footprint approximates the in-memory size of a table.
func footprint(t *tables.Table) int64 {
	const cell = 16
	var n int64
	for _, row := range t.Rows {
		for _, v := range row {
			n += cell
			switch o := v.(type) {
			case string:
				n += int64(len(o))
			case []string:
				for _, s := range o {
					n += cell + int64(len(s))
				}
			}
		}
	}
	return n
}
