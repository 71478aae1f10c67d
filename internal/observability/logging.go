// Package observability provides structured logging, OTel run metrics,
// and the optional diagnostics HTTP endpoint for gitpulse.
package observability

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
)

// Setup builds the slog logger described by cfg and installs it as the
// process default.
func Setup(cfg config.ObservabilityConfig) (*slog.Logger, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}
