package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/internal/observability"
	"github.com/Sumatoshi-tech/gitpulse/pkg/collectors"
	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gateway"
	"github.com/Sumatoshi-tech/gitpulse/pkg/runner"
)

// NewCollectCommand builds the collect subcommand.
func NewCollectCommand() *cobra.Command {
	var (
		configPath string
		offline    bool
		noResume   bool
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run metric collection across the repository history",
		Long: `Collect acquires the configured repository, walks its history
oldest-first, runs every configured collector against each commit, and
persists the results. Pairs that already have a record are skipped
unless --no-resume is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollect(cmd.Context(), configPath, offline, noResume, listen)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip all network operations; the clone must already exist")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "recollect pairs that already have records")
	cmd.Flags().StringVar(&listen, "listen", "", "serve /healthz, /readyz and /metrics at this address during the run")

	return cmd
}

func runCollect(ctx context.Context, configPath string, offline, noResume bool, listen string) error {
	cfg, loadErr := config.Load(configPath)
	if loadErr != nil {
		return loadErr
	}

	logger, logErr := observability.Setup(cfg.Observability)
	if logErr != nil {
		return logErr
	}

	telemetry, telemetryErr := observability.NewTelemetry()
	if telemetryErr != nil {
		return telemetryErr
	}

	defer func() {
		shutdownErr := telemetry.Shutdown(context.Background())
		if shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	addr := listen
	if addr == "" {
		addr = cfg.Observability.Listen
	}

	if addr != "" {
		server, serverErr := observability.NewDiagnosticsServer(addr, telemetry.Handler())
		if serverErr != nil {
			return serverErr
		}

		defer func() {
			closeErr := server.Close()
			if closeErr != nil {
				logger.Warn("diagnostics close failed", "error", closeErr)
			}
		}()

		logger.Info("diagnostics listening", "addr", server.Addr())
	}

	runMetrics, metricsErr := observability.NewRunMetrics(telemetry.Meter())
	if metricsErr != nil {
		return metricsErr
	}

	fileStore, storeErr := openStore(cfg)
	if storeErr != nil {
		return storeErr
	}

	clonesDir, dirErr := reposDir(cfg)
	if dirErr != nil {
		return dirErr
	}

	gw := gateway.New(cfg.Reference.URL, cfg.Reference.Branch, gateway.Options{
		ReposDir: clonesDir,
		Offline:  offline,
	})
	defer gw.Close()

	run := runner.New(gw, fileStore, collectors.NewRegistry(), logger, runner.Options{
		Metrics:          cfg.Metrics,
		Resume:           !noResume,
		SyncTimeout:      cfg.Timeouts.Sync,
		CollectorTimeout: cfg.Timeouts.Collector,
		RunMetrics:       runMetrics,
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := run.Run(runCtx)
	if runErr != nil {
		return runErr
	}

	printSummary(summary)

	return nil
}

func printSummary(summary *runner.Summary) {
	elapsed := summary.Elapsed.Round(time.Millisecond)

	color.New(color.FgGreen).Fprintf(os.Stdout, "Collected %s records across %s commits in %s\n",
		humanize.Comma(int64(summary.Collected)),
		humanize.Comma(int64(summary.Commits)),
		elapsed)

	if summary.Reused > 0 {
		fmt.Fprintf(os.Stdout, "Reused %s existing records, checked out %s commits\n",
			humanize.Comma(int64(summary.Reused)),
			humanize.Comma(int64(summary.CheckedOut)))
	}

	for _, skipped := range summary.Skipped {
		color.New(color.FgYellow).Fprintf(os.Stdout, "  skipped %s %s: %s\n",
			shortHash(skipped.Commit.String()), skipped.Metric, skipped.Reason)
	}
}
