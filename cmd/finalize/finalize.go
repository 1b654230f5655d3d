package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/pipeline"
)

const (
	FlagConfig = "config"
	FlagInput  = "input"
	FlagCutoff = "cutoff"
)

func init() {
	cmd.Flags().String(FlagConfig, config.DefaultPath, "pipeline configuration file")
	cmd.Flags().String(FlagInput, "", "enriched table (default: the keywords stage output)")
	cmd.Flags().Int64(FlagCutoff, 0, "minimum keyword count of a retained row (default: cutoff_value)")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "finalize",
	Short:   "splits the enriched table into the training set and the dropped rows",
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
	input, err := cmd.Flags().GetString(FlagInput)
	if err != nil {
		return err
	}

	runner, err := pipeline.Open(ctx, configPath)
	if err != nil {
		return err
	}

	cutoff, err := getCutoff(cmd, runner.Config.CutoffValue)
	if err != nil {
		return runner.Close(err)
	}

	_, err = runner.Finalize(ctx, input, cutoff)
	return runner.Close(err)
}

func getCutoff(cmd *cobra.Command, configured int64) (int64, error) {
	// Check if the user set the cutoff manually.
	cutoffSet := false
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == FlagCutoff {
			cutoffSet = true
		}
	})

	if !cutoffSet {
		return configured, nil
	}
	return cmd.Flags().GetInt64(FlagCutoff)
}
