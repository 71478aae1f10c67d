package collectors

import (
	"context"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
)

// FileCount counts the regular files present in the working tree.
type FileCount struct{}

// NewFileCount returns the file-count collector.
func NewFileCount() *FileCount {
	return &FileCount{}
}

// Kind implements Collector.
func (*FileCount) Kind() string {
	return config.KindFileCount
}

// Collect implements Collector.
func (*FileCount) Collect(ctx context.Context, root string, _ config.MetricDefinition) (Value, error) {
	var count int64

	walkErr := walkFiles(ctx, root, func(_, _ string) error {
		count++

		return nil
	})
	if walkErr != nil {
		return Value{}, walkErr
	}

	return Value{Total: count, Files: count}, nil
}
