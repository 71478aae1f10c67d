package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const validConfig = `
reference:
  url: https://example.com/project.git
  branch: main
metrics:
  code-lines:
    kind: loc
  todo-count:
    kind: patterns
    pattern: "TODO"
`

func TestLoadValid(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, validConfig)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/project.git", cfg.Reference.URL)
	assert.Equal(t, "main", cfg.Reference.Branch)

	require.Len(t, cfg.Metrics, 2)
	assert.Equal(t, config.KindLOC, cfg.Metrics["code-lines"].Kind)
	assert.Equal(t, "TODO", cfg.Metrics["todo-count"].Pattern)
}

func TestLoadFillsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, validConfig)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Storage.Codec)
	assert.Equal(t, "gitpulse-out", cfg.Storage.ResultsDir)
	assert.Equal(t, 10*time.Minute, cfg.Timeouts.Sync)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.Collector)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "text", cfg.Observability.LogFormat)
}

func TestLoadFillsMetricNameAndFrequency(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, validConfig)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	for name, def := range cfg.Metrics {
		assert.Equal(t, name, def.Name)
		assert.Equal(t, config.FrequencyPerCommit, def.Frequency)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "missing url",
			content: `
metrics:
  code-lines:
    kind: loc
`,
			wantErr: config.ErrNoURL,
		},
		{
			name: "no metrics",
			content: `
reference:
  url: https://example.com/project.git
`,
			wantErr: config.ErrNoMetrics,
		},
		{
			name: "unknown kind",
			content: `
reference:
  url: https://example.com/project.git
metrics:
  bad:
    kind: cyclomatic
`,
			wantErr: config.ErrUnknownKind,
		},
		{
			name: "patterns without pattern",
			content: `
reference:
  url: https://example.com/project.git
metrics:
  todo-count:
    kind: patterns
`,
			wantErr: config.ErrMissingPattern,
		},
		{
			name: "unsupported frequency",
			content: `
reference:
  url: https://example.com/project.git
metrics:
  code-lines:
    kind: loc
    frequency: weekly
`,
			wantErr: config.ErrBadFrequency,
		},
		{
			name: "unknown codec",
			content: `
reference:
  url: https://example.com/project.git
metrics:
  code-lines:
    kind: loc
storage:
  codec: cbor
`,
			wantErr: config.ErrBadCodec,
		},
		{
			name: "negative timeout",
			content: `
reference:
  url: https://example.com/project.git
metrics:
  code-lines:
    kind: loc
timeouts:
  sync: -1s
`,
			wantErr: config.ErrInvalidTimeout,
		},
		{
			name: "unknown log level",
			content: `
reference:
  url: https://example.com/project.git
metrics:
  code-lines:
    kind: loc
observability:
  log_level: trace
`,
			wantErr: config.ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfigFile(t, tt.content)

			_, err := config.Load(path)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
referrence:
  url: https://example.com/project.git
metrics:
  code-lines:
    kind: loc
`)

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrSchema)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := config.Load("")
	require.ErrorIs(t, err, config.ErrNoURL)
}

func TestMetricNamesSorted(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Metrics: map[string]config.MetricDefinition{
			"zeta":  {Kind: config.KindLOC},
			"alpha": {Kind: config.KindLOC},
			"mid":   {Kind: config.KindLOC},
		},
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, cfg.MetricNames())
}
