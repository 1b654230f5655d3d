package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/dedupe"
	"github.com/willbeason/nih-exporter/pkg/ingest"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/schema"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

// Preprocess loads every category folder, reconciles column names,
// concatenates each category's files and writes one <category>.parquet per
// category that could be appended.
func (r *Runner) Preprocess(ctx context.Context) (report.PreprocessSummary, error) {
	cfg := r.Config
	logger := r.Logger.With(slog.String("stage", config.StagePreprocess))
	summary := report.PreprocessSummary{
		Stage:      report.StartStage(r.RunID, config.StagePreprocess),
		FileDedupe: make(map[string]report.DuplicateStats),
		Outputs:    make(map[string]tables.Shape),
	}
	dir := cfg.StageDir(config.StagePreprocess)

	sources, loads, err := ingest.Load(ctx, ingest.Options{
		Folder:     cfg.Folder,
		Subfolders: cfg.Subfolders,
		Encoding:   cfg.Encoding,
		Parallel:   cfg.Parallel,
		Workers:    cfg.Workers,
		Progress:   r.Progress,
	}, logger)
	summary.Load = loads
	if err != nil {
		return summary, err
	}

	if len(sources) == 0 {
		logger.Warn("no category could be loaded", slog.String("folder", cfg.Folder))
		summary.Result = report.Skipped("no category under %q could be loaded", cfg.Folder)
		return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
	}

	summary.Renamed = schema.RenameColumns(sources, cfg.RenameColumns, logger)

	if cfg.DedupePerFile {
		for _, category := range slices.Sorted(maps.Keys(sources)) {
			for i, s := range sources[category] {
				t, stats := dedupe.Rows(s.Table, category+"/"+s.Name, logger)
				sources[category][i].Table = t
				maps.Copy(summary.FileDedupe, stats)
			}
		}
	}

	appended, appendSummaries := schema.AppendByCategory(sources, cfg.ForceAppend, logger)
	summary.Appended = appendSummaries

	summary.MissingDrops = schema.ValidateDropHeaders(appended, cfg.DropColumns, logger)
	summary.Dropped = schema.DropColumns(appended, cfg.DropColumns, logger)

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return summary, fmt.Errorf("%w: creating %q: %w", ErrPipeline, dir, err)
	}

	for _, category := range cfg.Subfolders {
		path := filepath.Join(dir, category+tables.ParquetExt)
		t, ok := appended[category]
		if !ok || t.NumColumns() == 0 {
			// Metrics reads whatever this directory holds.
			if err := os.Remove(path); err != nil && !isNotExist(err) {
				return summary, fmt.Errorf("%w: removing stale %q: %w", ErrPipeline, path, err)
			}
			continue
		}

		err := tables.WriteParquet(path, t, fmt.Sprintf("NIH ExPORTER %s records", category))
		if err != nil {
			return summary, err
		}
		summary.Outputs[category] = t.Shape()
		summary.TotalRows += t.NumRows()
		summary.TotalColumns += t.NumColumns()
		logger.Info("wrote category table",
			slog.String("category", category),
			slog.String("path", path),
			slog.Int("rows", t.NumRows()),
			slog.Int("columns", t.NumColumns()))
	}

	if len(summary.Outputs) == 0 {
		summary.Result = report.Skipped("no category could be appended")
	} else {
		summary.Result = report.OK()
	}
	return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
}
