// Package commands implements the gitpulse subcommands.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/history"
	"github.com/Sumatoshi-tech/gitpulse/pkg/persist"
	"github.com/Sumatoshi-tech/gitpulse/pkg/plot"
	"github.com/Sumatoshi-tech/gitpulse/pkg/store"
)

const shortHashLength = 8

// openStore opens the result store described by the configuration.
func openStore(cfg *config.Config) (*store.FileStore, error) {
	codec, codecErr := persist.NewCodec(cfg.Storage.Codec)
	if codecErr != nil {
		return nil, codecErr
	}

	fileStore, storeErr := store.NewFileStore(cfg.Storage.ResultsDir, codec)
	if storeErr != nil {
		return nil, storeErr
	}

	return fileStore, nil
}

// reposDir resolves the clone directory, defaulting to ~/.gitpulse/repos
// when the configuration leaves it empty.
func reposDir(cfg *config.Config) (string, error) {
	if cfg.Storage.ReposDir != "" {
		return cfg.Storage.ReposDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".gitpulse", "repos"), nil
}

// buildSeries assembles the chronological series for one metric from the
// store, ordered by the commit index.
func buildSeries(fileStore *store.FileStore, metric string, commits []history.Commit) (plot.Series, error) {
	records := make(map[string]store.Record)

	for record, err := range fileStore.Query(store.Filter{Metric: metric}) {
		if err != nil {
			return plot.Series{}, err
		}

		records[record.CommitHash.String()] = record
	}

	series := plot.Series{Metric: metric}

	for _, commit := range commits {
		record, ok := records[commit.Hash.String()]
		if !ok {
			continue
		}

		series.Points = append(series.Points, plot.Point{
			CommitHash: commit.Hash.String(),
			When:       commit.Committer.When,
			Total:      record.Value.Total,
		})
	}

	return series, nil
}

func shortHash(hash string) string {
	if len(hash) > shortHashLength {
		return hash[:shortHashLength]
	}

	return hash
}
