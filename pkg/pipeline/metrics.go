package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/dedupe"
	"github.com/willbeason/nih-exporter/pkg/link"
	"github.com/willbeason/nih-exporter/pkg/outcomes"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

// Metrics links the project tables written by Preprocess, adds one outcome
// count column per outcome category and removes duplicate rows. The result
// is written as metrics.parquet and metrics.csv.
func (r *Runner) Metrics(ctx context.Context) (report.MetricsSummary, error) {
	cfg := r.Config
	logger := r.Logger.With(slog.String("stage", config.StageMetrics))
	summary := report.MetricsSummary{
		Stage: report.StartStage(r.RunID, config.StageMetrics),
	}
	dir := cfg.StageDir(config.StageMetrics)

	err := clearOutputs(dir, "", tables.MetricsName+tables.ParquetExt, tables.MetricsName+tables.CSVExt)
	if err != nil {
		return summary, err
	}

	categories, err := r.readCategories(ctx, logger)
	if err != nil {
		return summary, err
	}

	linked, linkSummaries := link.Categories(categories, cfg.Link, logger)
	summary.Linked = linkSummaries

	aggregated, aggregate := outcomes.Aggregate(linked[cfg.Link.Name], categories, cfg.Outcomes, logger)
	summary.Aggregate = aggregate

	metrics, stats := dedupe.Rows(aggregated, tables.AggregateOutput, logger)
	summary.Dedupe = stats
	summary.Dimensions = metrics.Shape()

	if !aggregate.IsOK() {
		summary.Result = report.Skipped("%s", aggregate.Reason)
		return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
	}

	if err := writeTables(dir, tables.MetricsName, metrics, "NIH ExPORTER projects with outcome counts"); err != nil {
		return summary, err
	}
	logger.Info("wrote metrics table",
		slog.String("dir", dir),
		slog.Int("rows", metrics.NumRows()),
		slog.Int("columns", metrics.NumColumns()))

	summary.Result = report.OK()
	return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
}

// readCategories reads the preprocessed tables the link and the outcome
// categories name. Absent tables are left out.
func (r *Runner) readCategories(ctx context.Context, logger *slog.Logger) (map[string]*tables.Table, error) {
	cfg := r.Config
	dir := cfg.StageDir(config.StagePreprocess)

	names := []string{cfg.Link.Left, cfg.Link.Right}
	for _, oc := range cfg.Outcomes {
		names = append(names, oc.Category)
	}

	categories := make(map[string]*tables.Table)
	for _, name := range names {
		if _, done := categories[name]; done {
			continue
		}

		path := filepath.Join(dir, name+tables.ParquetExt)
		t, err := readTable(ctx, path, logger)
		switch {
		case isNotExist(err):
			logger.Warn("category table absent", slog.String("category", name), slog.String("path", path))
			continue
		case err != nil:
			return nil, err
		}

		logger.Info("read category table",
			slog.String("category", name),
			slog.Int("rows", t.NumRows()),
			slog.Int("columns", t.NumColumns()))
		categories[name] = t
	}
	return categories, nil
}
