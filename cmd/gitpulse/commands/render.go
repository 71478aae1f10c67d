package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/plot"
)

// NewRenderCommand builds the render subcommand.
func NewRenderCommand() *cobra.Command {
	var (
		configPath string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render HTML line charts for all collected metrics",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRender(configPath, outputDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "gitpulse-charts", "directory the charts are written to")

	return cmd
}

func runRender(configPath, outputDir string) error {
	cfg, loadErr := config.Load(configPath)
	if loadErr != nil {
		return loadErr
	}

	fileStore, storeErr := openStore(cfg)
	if storeErr != nil {
		return storeErr
	}

	commits, indexErr := fileStore.ReadCommitIndex()
	if indexErr != nil {
		return fmt.Errorf("no collected data in %s: %w", cfg.Storage.ResultsDir, indexErr)
	}

	metrics, metricsErr := fileStore.Metrics()
	if metricsErr != nil {
		return metricsErr
	}

	mkdirErr := os.MkdirAll(outputDir, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create output directory: %w", mkdirErr)
	}

	for _, metric := range metrics {
		series, seriesErr := buildSeries(fileStore, metric, commits)
		if seriesErr != nil {
			return seriesErr
		}

		writeErr := writeChart(outputDir, series)
		if writeErr != nil {
			return writeErr
		}
	}

	indexWriteErr := writeIndex(outputDir, metrics)
	if indexWriteErr != nil {
		return indexWriteErr
	}

	color.New(color.FgGreen).Fprintf(os.Stdout, "Rendered %d charts to %s\n", len(metrics), outputDir)

	return nil
}

func writeChart(outputDir string, series plot.Series) error {
	file, createErr := os.Create(filepath.Join(outputDir, series.Metric+".html"))
	if createErr != nil {
		return fmt.Errorf("create chart file: %w", createErr)
	}
	defer file.Close()

	return plot.RenderMetric(file, series)
}

func writeIndex(outputDir string, metrics []string) error {
	file, createErr := os.Create(filepath.Join(outputDir, "index.html"))
	if createErr != nil {
		return fmt.Errorf("create index file: %w", createErr)
	}
	defer file.Close()

	return plot.RenderIndex(file, metrics)
}
