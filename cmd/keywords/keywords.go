package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/willbeason/nih-exporter/pkg/config"
	"github.com/willbeason/nih-exporter/pkg/pipeline"
)

const (
	FlagConfig = "config"
	FlagInput  = "input"
)

func init() {
	cmd.Flags().String(FlagConfig, config.DefaultPath, "pipeline configuration file")
	cmd.Flags().String(FlagInput, "", "table to enrich (default: the metrics stage output)")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "keywords",
	Short:   "counts treatment and disease keywords in project text",
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

	_, err = runner.Keywords(ctx, input)
	return runner.Close(err)
}
