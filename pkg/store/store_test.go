package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/collectors"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/history"
	"github.com/Sumatoshi-tech/gitpulse/pkg/persist"
	"github.com/Sumatoshi-tech/gitpulse/pkg/store"
)

var (
	commitA = gitlib.MustParseHash("0000000000000000000000000000000000000001")
	commitB = gitlib.MustParseHash("0000000000000000000000000000000000000002")
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()

	fileStore, err := store.NewFileStore(t.TempDir(), persist.NewJSONCodec())
	require.NoError(t, err)

	return fileStore
}

func sampleRecord(commit gitlib.Hash, metric string, total int64) store.Record {
	return store.Record{
		CommitHash:  commit,
		Metric:      metric,
		Value:       collectors.Value{Total: total},
		CollectedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func collectAll(t *testing.T, fileStore *store.FileStore, filter store.Filter) []store.Record {
	t.Helper()

	var records []store.Record

	for record, err := range fileStore.Query(filter) {
		require.NoError(t, err)

		records = append(records, record)
	}

	return records
}

func TestAppendAndExists(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	assert.False(t, fileStore.Exists(commitA, "code-lines"))

	require.NoError(t, fileStore.Append(sampleRecord(commitA, "code-lines", 42)))

	assert.True(t, fileStore.Exists(commitA, "code-lines"))
	assert.False(t, fileStore.Exists(commitB, "code-lines"))
	assert.False(t, fileStore.Exists(commitA, "todo-count"))
}

func TestAppendOverwrites(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	require.NoError(t, fileStore.Append(sampleRecord(commitA, "code-lines", 1)))
	require.NoError(t, fileStore.Append(sampleRecord(commitA, "code-lines", 2)))

	records := collectAll(t, fileStore, store.Filter{Metric: "code-lines"})
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Value.Total)
}

func TestQueryFilters(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	require.NoError(t, fileStore.Append(sampleRecord(commitA, "code-lines", 10)))
	require.NoError(t, fileStore.Append(sampleRecord(commitB, "code-lines", 20)))
	require.NoError(t, fileStore.Append(sampleRecord(commitA, "todo-count", 3)))

	assert.Len(t, collectAll(t, fileStore, store.Filter{}), 3)
	assert.Len(t, collectAll(t, fileStore, store.Filter{Metric: "code-lines"}), 2)

	byCommit := collectAll(t, fileStore, store.Filter{Commits: []gitlib.Hash{commitA}})
	require.Len(t, byCommit, 2)

	for _, record := range byCommit {
		assert.Equal(t, commitA, record.CommitHash)
	}
}

func TestQueryUnknownMetric(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	assert.Empty(t, collectAll(t, fileStore, store.Filter{Metric: "absent"}))
}

func TestQueryStopsEarly(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	require.NoError(t, fileStore.Append(sampleRecord(commitA, "code-lines", 10)))
	require.NoError(t, fileStore.Append(sampleRecord(commitB, "code-lines", 20)))

	seen := 0

	for _, err := range fileStore.Query(store.Filter{}) {
		require.NoError(t, err)

		seen++

		break
	}

	assert.Equal(t, 1, seen)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	require.NoError(t, fileStore.Append(sampleRecord(commitA, "todo-count", 1)))
	require.NoError(t, fileStore.Append(sampleRecord(commitA, "code-lines", 2)))

	names, err := fileStore.Metrics()
	require.NoError(t, err)
	assert.Equal(t, []string{"code-lines", "todo-count"}, names)
}

func TestCommitIndexRoundTrip(t *testing.T) {
	t.Parallel()

	fileStore := newTestStore(t)

	_, err := fileStore.ReadCommitIndex()
	require.ErrorIs(t, err, store.ErrNoCommitIndex)

	commits := []history.Commit{
		{Hash: commitA, Message: "first"},
		{Hash: commitB, Message: "second"},
	}
	require.NoError(t, fileStore.WriteCommitIndex(commits))

	loaded, err := fileStore.ReadCommitIndex()
	require.NoError(t, err)
	assert.Equal(t, commits, loaded)

	raw, err := os.ReadFile(filepath.Join(fileStore.Root(), "commits.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), commitA.String())
}

func TestGobCodecStore(t *testing.T) {
	t.Parallel()

	fileStore, err := store.NewFileStore(t.TempDir(), persist.NewGobCodec())
	require.NoError(t, err)

	record := sampleRecord(commitA, "code-lines", 7)
	require.NoError(t, fileStore.Append(record))

	records := collectAll(t, fileStore, store.Filter{})
	require.Len(t, records, 1)
	assert.Equal(t, record.Value.Total, records[0].Value.Total)
}
