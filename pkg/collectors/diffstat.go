package collectors

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// DiffStat reports the size of the change the checked-out commit made
// against its first parent. Root commits diff against the empty tree.
type DiffStat struct{}

// NewDiffStat returns the diff-stat collector.
func NewDiffStat() *DiffStat {
	return &DiffStat{}
}

// Kind implements Collector.
func (*DiffStat) Kind() string {
	return config.KindDiffStat
}

// Collect implements Collector. The working tree root must be a git
// checkout; the collector reads the repository, never the files.
func (*DiffStat) Collect(_ context.Context, root string, _ config.MetricDefinition) (Value, error) {
	repo, openErr := gitlib.OpenRepository(root)
	if openErr != nil {
		return Value{}, fmt.Errorf("open repository: %w", openErr)
	}
	defer repo.Free()

	head, headErr := repo.Head()
	if headErr != nil {
		return Value{}, fmt.Errorf("resolve head: %w", headErr)
	}

	stat, statErr := repo.DiffStatToParent(head)
	if statErr != nil {
		return Value{}, fmt.Errorf("diff %s against parent: %w", head, statErr)
	}

	return Value{
		Total: int64(stat.Insertions + stat.Deletions),
		Files: int64(stat.FilesChanged),
	}, nil
}
