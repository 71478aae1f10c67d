// Package collectors defines the metric collector capability and the
// built-in collectors that ship with gitpulse. A collector computes one
// structured Value from a checked-out working tree and must never mutate
// the tree it reads.
package collectors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
)

// ErrUnknownCollector is returned by Registry.Lookup for kinds that were
// never registered.
var ErrUnknownCollector = errors.New("unknown collector kind")

// Match is one pattern occurrence inside the working tree. Line and Column
// are 1-based; Column counts bytes.
type Match struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Value is the structured result every collector produces. Scalar consumers
// read Total; the remaining fields are populated only by collectors that
// have something to put there.
type Value struct {
	Total      int64            `json:"total"`
	ByLanguage map[string]int64 `json:"by_language,omitempty"`
	Matches    []Match          `json:"matches,omitempty"`
	Files      int64            `json:"files,omitempty"`
}

// Collector computes one metric from a working tree rooted at root.
type Collector interface {
	// Kind returns the configuration kind string this collector serves.
	Kind() string
	// Collect reads the tree and returns the metric value. Implementations
	// honor ctx cancellation and treat the tree as read-only.
	Collect(ctx context.Context, root string, def config.MetricDefinition) (Value, error)
}

// CollectionError wraps a collector failure with the metric it was
// computing, so callers can report and continue without losing the name.
type CollectionError struct {
	Metric string
	Err    error
}

// Error implements the error interface.
func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect metric %q: %v", e.Metric, e.Err)
}

// Unwrap returns the underlying collector error.
func (e *CollectionError) Unwrap() error {
	return e.Err
}

// Registry maps collector kinds to implementations.
type Registry struct {
	byKind map[string]Collector
}

// NewRegistry returns a registry pre-populated with the built-in
// collectors.
func NewRegistry() *Registry {
	registry := &Registry{byKind: map[string]Collector{}}

	registry.Register(NewLOC())
	registry.Register(NewPatterns())
	registry.Register(NewFileCount())
	registry.Register(NewDiffStat())

	return registry
}

// Register adds a collector, replacing any previous one of the same kind.
func (r *Registry) Register(collector Collector) {
	r.byKind[collector.Kind()] = collector
}

// Lookup returns the collector for the given kind.
func (r *Registry) Lookup(kind string) (Collector, error) {
	collector, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollector, kind)
	}

	return collector, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.byKind))
	for kind := range r.byKind {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	return kinds
}

// walkFiles visits every regular file under root except the .git metadata
// directory, calling fn with the absolute path and the slash-separated path
// relative to root. Walk order is lexical, so results are deterministic.
func walkFiles(ctx context.Context, root string, fn func(path, rel string) error) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if entry.Name() == gitMetadataDir {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relativize %s: %w", path, relErr)
		}

		return fn(path, filepath.ToSlash(rel))
	})
}

const gitMetadataDir = ".git"
