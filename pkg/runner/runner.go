// Package runner orchestrates a collection run: acquire and sync the
// repository, enumerate its history oldest-first, and for every commit
// run the pending collectors and persist their records.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/gitpulse/internal/observability"
	"github.com/Sumatoshi-tech/gitpulse/pkg/collectors"
	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gateway"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/history"
	"github.com/Sumatoshi-tech/gitpulse/pkg/store"
)

// Gateway is the repository access the runner needs.
type Gateway interface {
	Acquire(ctx context.Context) error
	Sync(ctx context.Context) (gitlib.Hash, error)
	Checkout(ctx context.Context, hash gitlib.Hash) (*gateway.WorkingTree, error)
	Repository() *gitlib.Repository
}

// Store is the record persistence the runner needs.
type Store interface {
	Exists(commit gitlib.Hash, metric string) bool
	Append(record store.Record) error
	WriteCommitIndex(commits []history.Commit) error
}

// EnumerateFunc lists the commits to collect over, oldest first.
type EnumerateFunc func(ctx context.Context, repo *gitlib.Repository, tip gitlib.Hash) ([]history.Commit, error)

// Options configure a run.
type Options struct {
	// Metrics are the validated metric definitions keyed by name.
	Metrics map[string]config.MetricDefinition
	// Resume skips (commit, metric) pairs that already have a record.
	Resume bool
	// SyncTimeout bounds Acquire and Sync together.
	SyncTimeout time.Duration
	// CollectorTimeout bounds each individual collector invocation.
	CollectorTimeout time.Duration
	// RunMetrics receives per-pair instrument updates. Nil disables.
	RunMetrics *observability.RunMetrics
	// Enumerate overrides history enumeration. Nil means history.List.
	Enumerate EnumerateFunc
}

// SkippedPair is a (commit, metric) pair no record was produced for.
type SkippedPair struct {
	Commit gitlib.Hash
	Metric string
	Reason string
}

// Summary describes what a finished run did. Skipped pairs do not make a
// run unsuccessful.
type Summary struct {
	Commits    int
	CheckedOut int
	Collected  int
	Reused     int
	Skipped    []SkippedPair
	Elapsed    time.Duration
}

// Runner executes collection runs. Construct with New; a Runner is
// reusable but not safe for concurrent runs.
type Runner struct {
	gateway     Gateway
	store       Store
	registry    *collectors.Registry
	logger      *slog.Logger
	opts        Options
	enumerate   EnumerateFunc
	metricNames []string
}

// New builds a runner over the given gateway, store, and collector
// registry.
func New(gw Gateway, st Store, registry *collectors.Registry, logger *slog.Logger, opts Options) *Runner {
	enumerate := opts.Enumerate
	if enumerate == nil {
		enumerate = history.List
	}

	metricNames := make([]string, 0, len(opts.Metrics))
	for name := range opts.Metrics {
		metricNames = append(metricNames, name)
	}

	slices.Sort(metricNames)

	return &Runner{
		gateway:     gw,
		store:       st,
		registry:    registry,
		logger:      logger,
		opts:        opts,
		enumerate:   enumerate,
		metricNames: metricNames,
	}
}

// Run executes one collection pass. Collector failures are logged and
// reported in the summary; repository and persistence failures abort the
// run. The error of an aborted run names the in-flight commit.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	commits, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Commits: len(commits)}

	for _, commit := range commits {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, ctxErr
		}

		processErr := r.processCommit(ctx, commit, summary)
		if processErr != nil {
			return nil, fmt.Errorf("commit %s: %w", commit.Hash, processErr)
		}
	}

	summary.Elapsed = time.Since(start)

	r.logger.Info("run finished",
		"commits", summary.Commits,
		"checked_out", summary.CheckedOut,
		"collected", summary.Collected,
		"reused", summary.Reused,
		"skipped", len(summary.Skipped),
		"elapsed", summary.Elapsed)

	return summary, nil
}

// prepare acquires and syncs the clone, then enumerates and indexes the
// history to walk.
func (r *Runner) prepare(ctx context.Context) ([]history.Commit, error) {
	syncCtx := ctx

	if r.opts.SyncTimeout > 0 {
		var cancel context.CancelFunc

		syncCtx, cancel = context.WithTimeout(ctx, r.opts.SyncTimeout)
		defer cancel()
	}

	acquireErr := r.gateway.Acquire(syncCtx)
	if acquireErr != nil {
		return nil, acquireErr
	}

	tip, syncErr := r.gateway.Sync(syncCtx)
	if syncErr != nil {
		return nil, syncErr
	}

	r.logger.Info("repository synced", "tip", tip)

	commits, listErr := r.enumerate(ctx, r.gateway.Repository(), tip)
	if listErr != nil {
		return nil, listErr
	}

	indexErr := r.store.WriteCommitIndex(commits)
	if indexErr != nil {
		return nil, indexErr
	}

	return commits, nil
}

func (r *Runner) processCommit(ctx context.Context, commit history.Commit, summary *Summary) error {
	pending := r.pendingMetrics(ctx, commit.Hash, summary)
	if len(pending) == 0 {
		return nil
	}

	tree, checkoutErr := r.gateway.Checkout(ctx, commit.Hash)
	if checkoutErr != nil {
		return checkoutErr
	}

	summary.CheckedOut++

	for _, name := range pending {
		collectErr := r.collectPair(ctx, tree, name, summary)
		if collectErr != nil {
			return collectErr
		}
	}

	return nil
}

// pendingMetrics returns the metric names still missing a record for the
// commit, in stable order. With resume off every metric is pending.
func (r *Runner) pendingMetrics(ctx context.Context, commit gitlib.Hash, summary *Summary) []string {
	var pending []string

	for _, name := range r.metricNames {
		if r.opts.Resume && r.store.Exists(commit, name) {
			summary.Reused++

			if r.opts.RunMetrics != nil {
				r.opts.RunMetrics.RecordReused(ctx, name)
			}

			continue
		}

		pending = append(pending, name)
	}

	return pending
}

// collectPair runs one collector against the tree and persists its
// record. Collector errors become skipped pairs; persistence errors are
// fatal.
func (r *Runner) collectPair(ctx context.Context, tree *gateway.WorkingTree, name string, summary *Summary) error {
	def := r.opts.Metrics[name]

	collector, lookupErr := r.registry.Lookup(def.Kind)
	if lookupErr != nil {
		r.skipPair(ctx, tree.Commit(), name, lookupErr, summary)

		return nil
	}

	collectCtx := ctx

	if r.opts.CollectorTimeout > 0 {
		var cancel context.CancelFunc

		collectCtx, cancel = context.WithTimeout(ctx, r.opts.CollectorTimeout)
		defer cancel()
	}

	started := time.Now()

	value, collectErr := collector.Collect(collectCtx, tree.Root(), def)

	duration := time.Since(started)

	if collectErr != nil {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		r.skipPair(ctx, tree.Commit(), name, &collectors.CollectionError{Metric: name, Err: collectErr}, summary)

		return nil
	}

	record := store.Record{
		CommitHash:  tree.Commit(),
		Metric:      name,
		Value:       value,
		CollectedAt: time.Now().UTC(),
	}

	appendErr := r.store.Append(record)
	if appendErr != nil {
		return appendErr
	}

	summary.Collected++

	if r.opts.RunMetrics != nil {
		r.opts.RunMetrics.RecordCollected(ctx, name, duration)
	}

	return nil
}

func (r *Runner) skipPair(ctx context.Context, commit gitlib.Hash, name string, reason error, summary *Summary) {
	r.logger.Warn("collector failed",
		"commit", commit,
		"metric", name,
		"error", reason)

	summary.Skipped = append(summary.Skipped, SkippedPair{
		Commit: commit,
		Metric: name,
		Reason: reason.Error(),
	})

	if r.opts.RunMetrics != nil {
		r.opts.RunMetrics.RecordFailed(ctx, name)
	}
}
