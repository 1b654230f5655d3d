package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
	"github.com/willbeason/nih-exporter/pkg/training"
)

// Finalize splits the keywords table on cutoff and writes the retained rows
// as mlexport.csv and mlexport.parquet, plus dropped_rows.csv when the
// configuration asks for it. input defaults to the keywords table.
//
// An error from the filter is logged, recorded in the summary and returned.
func (r *Runner) Finalize(ctx context.Context, input string, cutoff int64) (report.FinalizeSummary, error) {
	cfg := r.Config
	logger := r.Logger.With(slog.String("stage", config.StageFinalize))
	summary := report.FinalizeSummary{
		Stage: report.StartStage(r.RunID, config.StageFinalize),
	}
	dir := cfg.StageDir(config.StageFinalize)

	if input == "" {
		input = filepath.Join(cfg.StageDir(config.StageKeywords), tables.KeywordsName+tables.ParquetExt)
	}

	err := clearOutputs(dir, input,
		tables.MLExportName+tables.ParquetExt,
		tables.MLExportName+tables.CSVExt,
		tables.DroppedRowsName+tables.CSVExt)
	if err != nil {
		return summary, err
	}

	t, err := readTable(ctx, input, logger)
	switch {
	case isNotExist(err):
		logger.Warn("finalize input absent", slog.String("path", input))
		summary.Result = report.Skipped("input %q absent", input)
		return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
	case err != nil:
		return summary, err
	}

	split, filter, err := training.Filter(t, training.Options{
		CountColumn: tables.TotalUniqueCount,
		Cutoff:      cutoff,
		MLColumns:   cfg.MLColumns,
	}, logger)
	summary.Filter = filter
	if err != nil {
		logger.Error("training filter failed",
			slog.String("input", input),
			slog.Int64("cutoff", cutoff),
			slog.Any("error", err))
		summary.Filter.Result = report.Failed(err)
		summary.Result = summary.Filter.Result
		if cerr := r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary); cerr != nil {
			logger.Error("writing finalize summary", slog.Any("error", cerr))
		}
		return summary, err
	}

	if !filter.IsOK() {
		summary.Result = report.Skipped("%s", filter.Reason)
		return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
	}

	if err := writeTables(dir, tables.MLExportName, split.Retained, "training set"); err != nil {
		return summary, err
	}
	summary.Dimensions.TotalRows = split.Retained.NumRows()
	summary.Dimensions.TotalColumns = split.Retained.NumColumns()

	if cfg.ExportDropOutput {
		path := filepath.Join(dir, tables.DroppedRowsName+tables.CSVExt)
		if err := tables.WriteCSV(path, split.Dropped); err != nil {
			return summary, err
		}
		summary.Dimensions.ExportedDroppedRows = split.Dropped.NumRows()
		logger.Info("wrote dropped rows", slog.String("path", path), slog.Int("rows", split.Dropped.NumRows()))
	}

	logger.Info("wrote training set",
		slog.String("dir", dir),
		slog.Int("rows", summary.Dimensions.TotalRows),
		slog.Int("columns", summary.Dimensions.TotalColumns))

	summary.Result = report.OK()
	return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
}
