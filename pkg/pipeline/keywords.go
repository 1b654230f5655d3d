package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/keywords"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

// Keywords expands the seed vocabularies and counts keyword occurrences in
// the text columns of every row. input defaults to the metrics table.
func (r *Runner) Keywords(ctx context.Context, input string) (report.KeywordsStageSummary, error) {
	cfg := r.Config
	logger := r.Logger.With(slog.String("stage", config.StageKeywords))
	summary := report.KeywordsStageSummary{
		Stage: report.StartStage(r.RunID, config.StageKeywords),
	}
	dir := cfg.StageDir(config.StageKeywords)

	if input == "" {
		input = filepath.Join(cfg.StageDir(config.StageMetrics), tables.MetricsName+tables.ParquetExt)
	}

	err := clearOutputs(dir, input, tables.KeywordsName+tables.ParquetExt, tables.KeywordsName+tables.CSVExt)
	if err != nil {
		return summary, err
	}

	t, err := readTable(ctx, input, logger)
	switch {
	case isNotExist(err):
		logger.Warn("keywords input absent", slog.String("path", input))
		summary.Result = report.Skipped("input %q absent", input)
		return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
	case err != nil:
		return summary, err
	}
	logger.Info("read keywords input",
		slog.String("path", input),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumColumns()))

	pools, kw := keywords.Prepare(cfg.Keywords.Treatment, cfg.Keywords.Disease, cfg.RemoveStopwords, logger)
	summary.Keywords = kw

	enriched, enrichment := keywords.Enrich(ctx, t, pools, keywords.EnrichOptions{
		TextColumns: cfg.TextColumns,
		Workers:     cfg.Workers,
		Progress:    r.Progress,
	}, logger)
	summary.Enrichment = enrichment
	summary.Dimensions = enriched.Shape()

	if enriched.NumColumns() == 0 {
		summary.Result = report.Skipped("input %q has no columns", input)
		return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
	}

	if err := writeTables(dir, tables.KeywordsName, enriched, "NIH ExPORTER projects with keyword counts"); err != nil {
		return summary, err
	}
	logger.Info("wrote keywords table",
		slog.String("dir", dir),
		slog.Int("rows", enriched.NumRows()),
		slog.Int("columns", enriched.NumColumns()))

	summary.Result = enrichment.Result
	return summary, r.conclude(ctx, &summary.Stage, summary.Result, dir, &summary)
}
