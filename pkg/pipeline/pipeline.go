// Package pipeline runs the four stages that turn raw extract folders into
// a training set: preprocess, metrics, keywords and finalize. Each stage
// reads the previous stage's output directory and writes its own tables and
// a JSON summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vbauerster/mpb"
	"golang.org/x/term"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/ingest"
	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

var ErrPipeline = errors.New("running pipeline")

const (
	summarySuffix = "_summary"
	runSummary    = "run_summary"
)

// Runner executes stages with one configuration. Every summary it writes
// carries RunID.
type Runner struct {
	Config *config.Config
	RunID  string
	Logger *slog.Logger

	// History, when set, receives every stage summary.
	History *report.History

	// Progress, when set, displays ingestion and enrichment progress.
	Progress *mpb.Progress

	closers []io.Closer
}

// NewRunner returns a Runner with a fresh run identifier.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	runID := uuid.NewString()
	return &Runner{
		Config: cfg,
		RunID:  runID,
		Logger: logging.Or(logger).With(slog.String("run_id", runID)),
	}
}

// Open loads the configuration at configPath and builds a Runner with the
// configured logger, run history and progress display. Close releases them.
func Open(ctx context.Context, configPath string) (*Runner, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	r := NewRunner(cfg, logger)
	r.closers = append(r.closers, logCloser)

	if cfg.ReportDB != "" {
		history, err := report.OpenHistory(ctx, cfg.ReportDB)
		if err != nil {
			_ = r.Close(err)
			return nil, err
		}
		r.History = history
		r.closers = append(r.closers, history)
	}

	if cfg.Progress {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 80
		}
		r.Progress = mpb.New(mpb.WithWidth(width))
	}

	r.Logger.Info("loaded configuration",
		slog.String("path", configPath),
		slog.String("folder", cfg.Folder),
		slog.Any("subfolders", cfg.Subfolders),
		slog.Int("workers", cfg.Workers))
	return r, nil
}

// Close waits for progress bars to finish when the run succeeded, then
// releases the history database and log file. It returns runErr, or the
// first error from closing when runErr is nil.
func (r *Runner) Close(runErr error) error {
	if runErr == nil && r.Progress != nil {
		r.Progress.Wait()
	}

	err := runErr
	for i := len(r.closers) - 1; i >= 0; i-- {
		if cerr := r.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	r.closers = nil
	return err
}

// RunAll runs every stage in order and writes run_summary.json to the
// output directory. A stage error stops the run.
func (r *Runner) RunAll(ctx context.Context) (report.RunSummary, error) {
	summary := report.RunSummary{RunID: r.RunID}

	var err error
	summary.Preprocess, err = r.Preprocess(ctx)
	if err != nil {
		return summary, err
	}

	summary.Metrics, err = r.Metrics(ctx)
	if err != nil {
		return summary, err
	}

	summary.Keywords, err = r.Keywords(ctx, "")
	if err != nil {
		return summary, err
	}

	summary.Finalize, err = r.Finalize(ctx, "", r.Config.CutoffValue)
	if err != nil {
		return summary, err
	}

	path := filepath.Join(r.Config.OutputDir, runSummary+tables.JSONExt)
	if err := report.WriteJSON(path, summary); err != nil {
		return summary, err
	}
	r.Logger.Info("pipeline complete", slog.String("summary", path))
	return summary, nil
}

// conclude stamps the elapsed time, then writes the stage summary to
// <dir>/<stage>_summary.json and records it in the history.
func (r *Runner) conclude(ctx context.Context, stage *report.Stage, result report.Result, dir string, summary any) error {
	stage.Finish()

	path := filepath.Join(dir, stage.Name+summarySuffix+tables.JSONExt)
	if err := report.WriteJSON(path, summary); err != nil {
		return err
	}
	if err := r.History.Record(ctx, r.RunID, stage.Name, result.Status, summary); err != nil {
		return err
	}

	r.Logger.Info("stage finished",
		slog.String("stage", stage.Name),
		slog.String("status", string(result.Status)),
		slog.String("elapsed", stage.Elapsed),
		slog.String("summary", path))
	return nil
}

// readTable reads a stage input: Parquet by extension, any other supported
// source format through ingest. A missing input returns fs.ErrNotExist.
func readTable(ctx context.Context, path string, logger *slog.Logger) (*tables.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	if filepath.Ext(path) == tables.ParquetExt {
		return tables.ReadParquet(ctx, path)
	}

	t, _, err := ingest.ReadFile(path, "utf-8", logger)
	return t, err
}

// writeTables writes t as <dir>/<name>.parquet and <dir>/<name>.csv.
func writeTables(dir, name string, t *tables.Table, description string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("%w: creating %q: %w", ErrPipeline, dir, err)
	}
	if err := tables.WriteParquet(filepath.Join(dir, name+tables.ParquetExt), t, description); err != nil {
		return err
	}
	return tables.WriteCSV(filepath.Join(dir, name+tables.CSVExt), t)
}

// clearOutputs removes a stage's outputs of an earlier run from dir. keep is
// never removed.
func clearOutputs(dir, keep string, names ...string) error {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if keep != "" && filepath.Clean(keep) == filepath.Clean(path) {
			continue
		}
		if err := os.Remove(path); err != nil && !isNotExist(err) {
			return fmt.Errorf("%w: removing stale %q: %w", ErrPipeline, path, err)
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
