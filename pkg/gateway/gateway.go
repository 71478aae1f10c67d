// Package gateway owns the local clone of the analyzed repository: it
// acquires the clone, syncs it with its origin, and checks out individual
// commits for the collectors to read.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// Fatal pipeline errors. Everything a Gateway returns wraps one of these,
// so callers can classify failures without string matching.
var (
	ErrAcquire       = errors.New("acquire repository")
	ErrSync          = errors.New("sync repository")
	ErrURLMismatch   = errors.New("clone belongs to a different remote")
	ErrCommitMissing = errors.New("commit missing from repository")
)

// repoKeyLength is the number of leading hash bytes used for the clone
// directory name.
const repoKeyLength = 8

// Options control how the gateway acquires and syncs the clone.
type Options struct {
	// ReposDir is the directory clones live under.
	ReposDir string
	// Offline skips all network operations; the clone must already exist.
	Offline bool
}

// Gateway manages one repository clone. Not safe for concurrent use; the
// working tree it checks out is shared mutable state.
type Gateway struct {
	url    string
	branch string
	opts   Options
	repo   *gitlib.Repository
}

// New returns a gateway for the repository at url. An empty branch means
// the mainline branch is probed during Sync.
func New(url, branch string, opts Options) *Gateway {
	return &Gateway{url: url, branch: branch, opts: opts}
}

// RepoDir returns the clone directory for url under reposDir. The name is
// a short hash of the URL, so distinct remotes never collide.
func RepoDir(reposDir, url string) string {
	sum := sha256.Sum256([]byte(url))

	return filepath.Join(reposDir, hex.EncodeToString(sum[:repoKeyLength]))
}

// Acquire opens the existing clone or creates it. An existing directory
// whose origin points elsewhere is rejected rather than reused.
func (g *Gateway) Acquire(ctx context.Context) error {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return ctxErr
	}

	path := RepoDir(g.opts.ReposDir, g.url)

	_, statErr := os.Stat(path)
	if statErr == nil {
		return g.openExisting(path)
	}

	if !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", ErrAcquire, path, statErr)
	}

	if g.opts.Offline {
		return fmt.Errorf("%w: no clone at %s and offline mode is on", ErrAcquire, path)
	}

	repo, cloneErr := gitlib.Clone(g.url, path)
	if cloneErr != nil {
		return fmt.Errorf("%w: %w", ErrAcquire, cloneErr)
	}

	g.repo = repo

	return nil
}

func (g *Gateway) openExisting(path string) error {
	repo, openErr := gitlib.OpenRepository(path)
	if openErr != nil {
		return fmt.Errorf("%w: %w", ErrAcquire, openErr)
	}

	remoteURL, urlErr := repo.RemoteURL()
	if urlErr != nil {
		repo.Free()

		return fmt.Errorf("%w: %w", ErrAcquire, urlErr)
	}

	if remoteURL != g.url {
		repo.Free()

		return fmt.Errorf("%w: %w: %s has origin %q, want %q",
			ErrAcquire, ErrURLMismatch, path, remoteURL, g.url)
	}

	g.repo = repo

	return nil
}

// Sync fetches from origin (unless offline), resolves the branch tip, and
// force-checks-out the tip so the working tree is in a known state. It
// returns the tip hash history enumeration starts from.
func (g *Gateway) Sync(ctx context.Context) (gitlib.Hash, error) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return gitlib.ZeroHash(), ctxErr
	}

	if !g.opts.Offline {
		fetchErr := g.repo.FetchOrigin()
		if fetchErr != nil {
			return gitlib.ZeroHash(), fmt.Errorf("%w: %w", ErrSync, fetchErr)
		}
	}

	branch := g.branch
	if branch == "" {
		mainBranch, probeErr := g.repo.FindMainBranch()
		if probeErr != nil {
			return gitlib.ZeroHash(), fmt.Errorf("%w: %w", ErrSync, probeErr)
		}

		branch = mainBranch
	}

	tip, tipErr := g.repo.BranchTip(branch)
	if tipErr != nil {
		return gitlib.ZeroHash(), fmt.Errorf("%w: resolve branch %q: %w", ErrSync, branch, tipErr)
	}

	checkoutErr := g.repo.CheckoutDetached(tip)
	if checkoutErr != nil {
		return gitlib.ZeroHash(), fmt.Errorf("%w: %w", ErrSync, checkoutErr)
	}

	return tip, nil
}

// Checkout materializes the given commit in the working tree. A hash the
// repository no longer has (history rewritten upstream) maps to
// ErrCommitMissing.
func (g *Gateway) Checkout(ctx context.Context, hash gitlib.Hash) (*WorkingTree, error) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, ctxErr
	}

	checkoutErr := g.repo.CheckoutDetached(hash)
	if checkoutErr != nil {
		if gitlib.IsNotFound(checkoutErr) {
			return nil, fmt.Errorf("%w: %s", ErrCommitMissing, hash)
		}

		return nil, fmt.Errorf("checkout %s: %w", hash, checkoutErr)
	}

	return &WorkingTree{root: g.repo.Path(), commit: hash}, nil
}

// Repository exposes the underlying handle for history enumeration.
func (g *Gateway) Repository() *gitlib.Repository {
	return g.repo
}

// Close frees the repository handle.
func (g *Gateway) Close() {
	if g.repo != nil {
		g.repo.Free()
		g.repo = nil
	}
}

// WorkingTree is a checkout of one commit. Root stays valid only until
// the next Checkout call on the same gateway.
type WorkingTree struct {
	root   string
	commit gitlib.Hash
}

// NewWorkingTree wraps an already materialized checkout.
func NewWorkingTree(root string, commit gitlib.Hash) *WorkingTree {
	return &WorkingTree{root: root, commit: commit}
}

// Root returns the working tree directory.
func (w *WorkingTree) Root() string {
	return w.root
}

// Commit returns the commit the tree is checked out at.
func (w *WorkingTree) Commit() gitlib.Hash {
	return w.commit
}
