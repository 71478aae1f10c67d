package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNoMainBranch is returned when none of the well-known mainline branch
// names exist on the origin remote.
var ErrNoMainBranch = errors.New("could not determine mainline branch")

// mainBranchCandidates are probed in order when no branch is configured.
var mainBranchCandidates = []string{"master", "main", "dev", "development", "develop"}

// originRemote is the remote all fetch/branch operations target.
const originRemote = "origin"

// Repository wraps a libgit2 repository rooted at a working tree.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens an existing git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Clone clones the repository at url into path and returns the opened clone.
func Clone(url, path string) (*Repository, error) {
	repo, err := git2go.Clone(url, path, &git2go.CloneOptions{})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the working tree path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// RemoteURL returns the URL of the origin remote.
func (r *Repository) RemoteURL() (string, error) {
	remote, err := r.repo.Remotes.Lookup(originRemote)
	if err != nil {
		return "", fmt.Errorf("lookup remote %s: %w", originRemote, err)
	}
	defer remote.Free()

	return remote.Url(), nil
}

// FetchOrigin fetches all refs from the origin remote.
func (r *Repository) FetchOrigin() error {
	remote, err := r.repo.Remotes.Lookup(originRemote)
	if err != nil {
		return fmt.Errorf("lookup remote %s: %w", originRemote, err)
	}
	defer remote.Free()

	err = remote.Fetch(nil, &git2go.FetchOptions{}, "")
	if err != nil {
		return fmt.Errorf("fetch %s: %w", originRemote, err)
	}

	return nil
}

// FindMainBranch probes the well-known mainline branch names on origin and
// returns the first that exists.
func (r *Repository) FindMainBranch() (string, error) {
	for _, name := range mainBranchCandidates {
		branch, err := r.repo.LookupBranch(originRemote+"/"+name, git2go.BranchRemote)
		if err != nil {
			continue
		}

		branch.Free()

		return name, nil
	}

	return "", ErrNoMainBranch
}

// BranchTip returns the commit hash at the tip of origin/<name>.
func (r *Repository) BranchTip(name string) (Hash, error) {
	branch, err := r.repo.LookupBranch(originRemote+"/"+name, git2go.BranchRemote)
	if err != nil {
		return Hash{}, fmt.Errorf("lookup branch %s/%s: %w", originRemote, name, err)
	}
	defer branch.Free()

	return HashFromOid(branch.Target()), nil
}

// Head returns the hash HEAD points at.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash from the local object
// store. Use IsNotFound to distinguish an absent object from other failures.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// IsNotFound reports whether err denotes an object absent from the local
// object store.
func IsNotFound(err error) bool {
	var gitErr *git2go.GitError
	if errors.As(err, &gitErr) {
		return gitErr.Code == git2go.ErrorCodeNotFound
	}

	return false
}

// CheckoutDetached force-checkouts the working tree at the given commit and
// detaches HEAD to it. Local modifications and untracked files are
// discarded, so the tree afterwards matches the commit content exactly.
func (r *Repository) CheckoutDetached(hash Hash) error {
	commit, err := r.LookupCommit(hash)
	if err != nil {
		return err
	}
	defer commit.Free()

	tree, err := commit.commit.Tree()
	if err != nil {
		return fmt.Errorf("get tree of %s: %w", hash, err)
	}
	defer tree.Free()

	checkoutErr := r.repo.CheckoutTree(tree, &git2go.CheckoutOptions{
		Strategy: git2go.CheckoutForce | git2go.CheckoutRemoveUntracked,
	})
	if checkoutErr != nil {
		return fmt.Errorf("checkout tree of %s: %w", hash, checkoutErr)
	}

	headErr := r.repo.SetHeadDetached(hash.ToOid())
	if headErr != nil {
		return fmt.Errorf("detach HEAD at %s: %w", hash, headErr)
	}

	return nil
}

// DiffStat summarizes a commit's diff against its first parent.
type DiffStat struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// DiffStatToParent diffs the given commit against its first parent. Root
// commits are diffed against the empty tree.
func (r *Repository) DiffStatToParent(hash Hash) (DiffStat, error) {
	commit, err := r.LookupCommit(hash)
	if err != nil {
		return DiffStat{}, err
	}
	defer commit.Free()

	newTree, err := commit.commit.Tree()
	if err != nil {
		return DiffStat{}, fmt.Errorf("get tree of %s: %w", hash, err)
	}
	defer newTree.Free()

	var oldTree *git2go.Tree

	if commit.commit.ParentCount() > 0 {
		parent := commit.commit.Parent(0)
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return DiffStat{}, fmt.Errorf("get parent tree of %s: %w", hash, err)
		}
		defer oldTree.Free()
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return DiffStat{}, fmt.Errorf("get diff options: %w", err)
	}

	diff, err := r.repo.DiffTreeToTree(oldTree, newTree, &opts)
	if err != nil {
		return DiffStat{}, fmt.Errorf("diff %s to parent: %w", hash, err)
	}
	defer func() { _ = diff.Free() }()

	stats, err := diff.Stats()
	if err != nil {
		return DiffStat{}, fmt.Errorf("diff stats of %s: %w", hash, err)
	}
	defer func() { _ = stats.Free() }()

	return DiffStat{
		FilesChanged: stats.FilesChanged(),
		Insertions:   stats.Insertions(),
		Deletions:    stats.Deletions(),
	}, nil
}

// LogOptions configures history walks.
type LogOptions struct {
	// From is the commit to start walking from. Zero means HEAD.
	From Hash

	// OldestFirst reverses the walk so history comes out chronologically.
	OldestFirst bool
}

// Log returns a commit iterator over history reachable from opts.From.
// Commits come out in time+topological order, which is deterministic for a
// fixed repository state.
func (r *Repository) Log(opts LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	from := opts.From
	if from.IsZero() {
		from, err = r.Head()
		if err != nil {
			walk.Free()

			return nil, err
		}
	}

	err = walk.Push(from.ToOid())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push %s to revwalk: %w", from, err)
	}

	sorting := git2go.SortTime | git2go.SortTopological
	if opts.OldestFirst {
		sorting |= git2go.SortReverse
	}

	walk.Sorting(sorting)

	return &CommitIter{walk: walk, repo: r}, nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}
