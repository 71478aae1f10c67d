package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/plot"
)

// Query output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// NewQueryCommand builds the query subcommand.
func NewQueryCommand() *cobra.Command {
	var (
		configPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "query <metric>",
		Short: "Print the collected series for one metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(configPath, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")

	return cmd
}

func runQuery(configPath, metric, format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown output format %q", format)
	}

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

	series, seriesErr := buildSeries(fileStore, metric, commits)
	if seriesErr != nil {
		return seriesErr
	}

	if format == formatJSON {
		return printSeriesJSON(series)
	}

	printSeriesTable(series)

	return nil
}

func printSeriesJSON(series plot.Series) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	return nil
}

func printSeriesTable(series plot.Series) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)

	tbl.AppendHeader(table.Row{"Commit", "Date", series.Metric})

	for _, point := range series.Points {
		tbl.AppendRow(table.Row{
			shortHash(point.CommitHash),
			point.When.Format(time.DateOnly),
			point.Total,
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d commits", len(series.Points))})
	tbl.Render()
}
