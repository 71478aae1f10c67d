// Package config loads and validates the gitpulse collection configuration.
// Validation happens entirely at this boundary; the pipeline packages trust
// the Config they receive and never re-validate.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Collector kinds understood by the built-in registry.
const (
	KindLOC       = "loc"
	KindPatterns  = "patterns"
	KindFileCount = "filecount"
	KindDiffStat  = "diffstat"
)

// FrequencyPerCommit is the only collection frequency currently implemented.
// The field exists in the schema so stores stay compatible when sampled
// frequencies (daily, weekly, ...) land.
const FrequencyPerCommit = "per-commit"

// Sentinel validation errors.
var (
	ErrNoURL           = errors.New("repository url is required")
	ErrNoMetrics       = errors.New("at least one metric must be configured")
	ErrUnknownKind     = errors.New("unknown collector kind")
	ErrMissingPattern  = errors.New("patterns metric requires a pattern")
	ErrBadFrequency    = errors.New("unsupported collection frequency")
	ErrBadCodec        = errors.New("unknown store codec")
	ErrInvalidTimeout  = errors.New("timeout must be positive")
	ErrInvalidLogLevel = errors.New("unknown log level")
)

// Default configuration values.
const (
	defaultCodec            = "json"
	defaultSyncTimeout      = 10 * time.Minute
	defaultCollectorTimeout = 5 * time.Minute
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
)

var knownKinds = map[string]bool{
	KindLOC:       true,
	KindPatterns:  true,
	KindFileCount: true,
	KindDiffStat:  true,
}

var knownCodecs = map[string]bool{
	"json":     true,
	"gob":      true,
	"json.lz4": true,
	"gob.lz4":  true,
}

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Reference identifies the repository and branch to collect from.
// Empty Branch means the mainline branch is probed at sync time.
type Reference struct {
	URL    string `mapstructure:"url"`
	Branch string `mapstructure:"branch"`
}

// MetricDefinition describes one configured metric. Name is the unique key
// within a run; Kind selects the collector variant.
type MetricDefinition struct {
	Name      string `mapstructure:"-"`
	Kind      string `mapstructure:"kind"`
	Pattern   string `mapstructure:"pattern"`
	Frequency string `mapstructure:"frequency"`
}

// StorageConfig holds the on-disk layout settings.
type StorageConfig struct {
	ReposDir   string `mapstructure:"repos_dir"`
	ResultsDir string `mapstructure:"results_dir"`
	Codec      string `mapstructure:"codec"`
}

// TimeoutConfig bounds the blocking pipeline operations.
type TimeoutConfig struct {
	Sync      time.Duration `mapstructure:"sync"`
	Collector time.Duration `mapstructure:"collector"`
}

// ObservabilityConfig holds logging and diagnostics settings.
type ObservabilityConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Listen    string `mapstructure:"listen"`
}

// Config is the fully validated collection configuration.
type Config struct {
	Reference     Reference                   `mapstructure:"reference"`
	Metrics       map[string]MetricDefinition `mapstructure:"metrics"`
	Storage       StorageConfig               `mapstructure:"storage"`
	Timeouts      TimeoutConfig               `mapstructure:"timeouts"`
	Observability ObservabilityConfig         `mapstructure:"observability"`
}

// MetricNames returns the configured metric names in sorted-stable order.
func (c *Config) MetricNames() []string {
	names := make([]string, 0, len(c.Metrics))
	for name := range c.Metrics {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Load reads the configuration from the given file (plus GITPULSE_*
// environment overrides), applies defaults, and validates it.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("gitpulse")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
	}

	viperCfg.SetEnvPrefix("GITPULSE")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("read config file: %w", readErr)
		}
	}

	schemaErr := validateSchema(viperCfg.AllSettings())
	if schemaErr != nil {
		return nil, schemaErr
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	for name, def := range cfg.Metrics {
		def.Name = name
		if def.Frequency == "" {
			def.Frequency = FrequencyPerCommit
		}

		cfg.Metrics[name] = def
	}

	validateErr := validate(&cfg)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("storage.repos_dir", "")
	viperCfg.SetDefault("storage.results_dir", "gitpulse-out")
	viperCfg.SetDefault("storage.codec", defaultCodec)

	viperCfg.SetDefault("timeouts.sync", defaultSyncTimeout)
	viperCfg.SetDefault("timeouts.collector", defaultCollectorTimeout)

	viperCfg.SetDefault("observability.log_level", defaultLogLevel)
	viperCfg.SetDefault("observability.log_format", defaultLogFormat)
	viperCfg.SetDefault("observability.listen", "")
}

func validate(cfg *Config) error {
	if cfg.Reference.URL == "" {
		return ErrNoURL
	}

	if len(cfg.Metrics) == 0 {
		return ErrNoMetrics
	}

	for name, def := range cfg.Metrics {
		err := validateMetric(name, def)
		if err != nil {
			return err
		}
	}

	if !knownCodecs[cfg.Storage.Codec] {
		return fmt.Errorf("%w: %q", ErrBadCodec, cfg.Storage.Codec)
	}

	if cfg.Timeouts.Sync <= 0 || cfg.Timeouts.Collector <= 0 {
		return ErrInvalidTimeout
	}

	if !knownLogLevels[cfg.Observability.LogLevel] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Observability.LogLevel)
	}

	return nil
}

func validateMetric(name string, def MetricDefinition) error {
	if !knownKinds[def.Kind] {
		return fmt.Errorf("%w: metric %q has kind %q", ErrUnknownKind, name, def.Kind)
	}

	if def.Kind == KindPatterns && def.Pattern == "" {
		return fmt.Errorf("%w: metric %q", ErrMissingPattern, name)
	}

	if def.Frequency != FrequencyPerCommit {
		return fmt.Errorf("%w: metric %q has frequency %q", ErrBadFrequency, name, def.Frequency)
	}

	return nil
}
