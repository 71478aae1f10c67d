// Package store persists collected metric records on disk, one file per
// (commit, metric) pair, so interrupted runs resume without recomputing
// finished pairs.
package store

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/gitpulse/pkg/collectors"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/history"
	"github.com/Sumatoshi-tech/gitpulse/pkg/persist"
)

// ErrNoCommitIndex is returned when the commit index sidecar has not been
// written yet.
var ErrNoCommitIndex = errors.New("commit index not found")

// Layout names under the store root.
const (
	metricsDir      = "metrics"
	commitIndexName = "commits"
)

// Record is one persisted measurement: the value a collector produced for
// one metric at one commit.
type Record struct {
	CommitHash  gitlib.Hash      `json:"commit_hash"`
	Metric      string           `json:"metric"`
	Value       collectors.Value `json:"value"`
	CollectedAt time.Time        `json:"collected_at"`
}

// Filter narrows a Query. The zero value matches every record.
type Filter struct {
	// Metric restricts results to one metric when non-empty.
	Metric string
	// Commits restricts results to the given hashes when non-empty.
	Commits []gitlib.Hash
}

// FileStore lays records out as metrics/<metric>/<commit>.<ext> under its
// root directory. The extension follows the configured codec; a store
// written with one codec must be read with the same codec.
type FileStore struct {
	root  string
	codec persist.Codec
}

// NewFileStore opens (creating if needed) a store rooted at root.
func NewFileStore(root string, codec persist.Codec) (*FileStore, error) {
	err := os.MkdirAll(filepath.Join(root, metricsDir), 0o750)
	if err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	return &FileStore{root: root, codec: codec}, nil
}

// Root returns the store root directory.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) metricDir(metric string) string {
	return filepath.Join(s.root, metricsDir, metric)
}

// Exists reports whether a record for the (commit, metric) pair has been
// fully persisted.
func (s *FileStore) Exists(commit gitlib.Hash, metric string) bool {
	path := filepath.Join(s.metricDir(metric), commit.String()+s.codec.Extension())

	_, err := os.Stat(path)

	return err == nil
}

// Append persists the record, overwriting any previous record for the
// same (commit, metric) pair. The write is atomic.
func (s *FileStore) Append(record Record) error {
	dir := s.metricDir(record.Metric)

	mkdirErr := os.MkdirAll(dir, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create metric directory: %w", mkdirErr)
	}

	saveErr := persist.SaveRecord(dir, record.CommitHash.String(), s.codec, record)
	if saveErr != nil {
		return fmt.Errorf("save record %s/%s: %w", record.Metric, record.CommitHash, saveErr)
	}

	return nil
}

// Metrics returns the metric names present in the store, sorted.
func (s *FileStore) Metrics() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, metricsDir))
	if err != nil {
		return nil, fmt.Errorf("list metric directories: %w", err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	slices.Sort(names)

	return names, nil
}

// Query returns a lazy, restartable sequence over the stored records that
// match the filter. Records stream in metric order, then commit-hash
// order; iteration stops early when yield returns false. A read error is
// yielded with a zero Record and ends the sequence.
func (s *FileStore) Query(filter Filter) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		metricNames, err := s.queryMetrics(filter)
		if err != nil {
			yield(Record{}, err)

			return
		}

		wanted := make(map[gitlib.Hash]bool, len(filter.Commits))
		for _, hash := range filter.Commits {
			wanted[hash] = true
		}

		for _, metric := range metricNames {
			if !s.yieldMetric(metric, wanted, yield) {
				return
			}
		}
	}
}

func (s *FileStore) queryMetrics(filter Filter) ([]string, error) {
	if filter.Metric != "" {
		return []string{filter.Metric}, nil
	}

	return s.Metrics()
}

func (s *FileStore) yieldMetric(metric string, wanted map[gitlib.Hash]bool, yield func(Record, error) bool) bool {
	dir := s.metricDir(metric)

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return true
		}

		return yield(Record{}, fmt.Errorf("list records for %s: %w", metric, readErr))
	}

	extension := s.codec.Extension()

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, extension) {
			continue
		}

		hash, parseErr := gitlib.ParseHash(strings.TrimSuffix(name, extension))
		if parseErr != nil {
			continue
		}

		if len(wanted) > 0 && !wanted[hash] {
			continue
		}

		var record Record

		loadErr := persist.LoadRecord(dir, hash.String(), s.codec, &record)
		if loadErr != nil {
			return yield(Record{}, fmt.Errorf("load record %s/%s: %w", metric, hash, loadErr))
		}

		if !yield(record, nil) {
			return false
		}
	}

	return true
}

// WriteCommitIndex writes the commits.json sidecar recording the full
// enumeration order of the run. Readers use it to order series
// chronologically without reopening the repository.
func (s *FileStore) WriteCommitIndex(commits []history.Commit) error {
	err := persist.SaveRecord(s.root, commitIndexName, persist.NewJSONCodec(), commits)
	if err != nil {
		return fmt.Errorf("write commit index: %w", err)
	}

	return nil
}

// ReadCommitIndex loads the commits.json sidecar.
func (s *FileStore) ReadCommitIndex() ([]history.Commit, error) {
	var commits []history.Commit

	err := persist.LoadRecord(s.root, commitIndexName, persist.NewJSONCodec(), &commits)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCommitIndex
		}

		return nil, fmt.Errorf("read commit index: %w", err)
	}

	return commits, nil
}
