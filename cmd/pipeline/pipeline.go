package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/pipeline"
)

const FlagConfig = "config"

func init() {
	cmd.Flags().String(FlagConfig, config.DefaultPath, "pipeline configuration file")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "pipeline",
	Short:   "runs preprocess, metrics, keywords and finalize in order",
	Args:    cobra.NoArgs,
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	configPath, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return err
	}

	runner, err := pipeline.Open(ctx, configPath)
	if err != nil {
		return err
	}

	summary, err := runner.RunAll(ctx)
	err = runner.Close(err)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d training rows, %d dropped\n",
		summary.RunID,
		summary.Finalize.Filter.TotalRetainedRows,
		summary.Finalize.Filter.TotalDroppedRows)
	return nil
}
