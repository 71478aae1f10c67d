package gitlib_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// testRepo builds a throwaway repository for integration tests.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
	when   time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{
		t:      t,
		path:   dir,
		native: repo,
		when:   time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

// createFile writes a file in the working directory.
func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	dir := filepath.Dir(path)

	if dir != tr.path {
		err := os.MkdirAll(dir, 0o755)
		require.NoError(tr.t, err)
	}

	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(tr.t, err)
}

// deleteFile removes a file from the working directory.
func (tr *testRepo) deleteFile(name string) {
	tr.t.Helper()

	err := os.Remove(filepath.Join(tr.path, name))
	require.NoError(tr.t, err)
}

// commit stages everything and creates a commit. Each commit gets a
// distinct, increasing timestamp so time-ordered walks are stable.
func (tr *testRepo) commit(message string) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(tr.t, err)

	err = index.Write()
	require.NoError(tr.t, err)

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	tr.when = tr.when.Add(time.Minute)

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  tr.when,
	}

	var parents []*git2go.Commit

	head, err := tr.native.Head()
	if err == nil {
		headCommit, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

func TestOpenRepository(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("test.txt", "content\n")
	tr.commit("initial")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	assert.Equal(t, tr.path, repo.Path())
	assert.NotNil(t, repo.Native())
}

func TestOpenRepositoryNotFound(t *testing.T) {
	repo, err := gitlib.OpenRepository(filepath.Join(t.TempDir(), "missing"))

	assert.Nil(t, repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}

func TestRepositoryHead(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("test.txt", "hello\n")
	expected := tr.commit("initial")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, expected, head)
}

func TestLookupCommit(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("file.go", "package main\n")
	hash := tr.commit("add file")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(hash)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, hash, commit.Hash())
	assert.Contains(t, commit.Message(), "add file")
	assert.Equal(t, "Test User", commit.Author().Name)
	assert.Equal(t, "test@example.com", commit.Author().Email)
	assert.Equal(t, "Test User", commit.Committer().Name)
}

func TestLookupCommitNotFound(t *testing.T) {
	tr := newTestRepo(t)
	tr.createFile("test.txt", "x\n")
	tr.commit("init")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	missing := gitlib.MustParseHash("1234567890123456789012345678901234567890")

	commit, err := repo.LookupCommit(missing)
	assert.Nil(t, commit)
	require.Error(t, err)
	assert.True(t, gitlib.IsNotFound(err))
}

func TestLogOldestFirst(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "a\n")
	first := tr.commit("first")

	tr.createFile("b.txt", "b\n")
	second := tr.commit("second")

	tr.createFile("c.txt", "c\n")
	third := tr.commit("third")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	iter, err := repo.Log(gitlib.LogOptions{From: third, OldestFirst: true})
	require.NoError(t, err)

	defer iter.Close()

	var hashes []gitlib.Hash

	err = iter.ForEach(func(commit *gitlib.Commit) error {
		hashes = append(hashes, commit.Hash())

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []gitlib.Hash{first, second, third}, hashes)
}

func TestLogNewestFirstByDefault(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "a\n")
	first := tr.commit("first")

	tr.createFile("b.txt", "b\n")
	second := tr.commit("second")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	iter, err := repo.Log(gitlib.LogOptions{})
	require.NoError(t, err)

	defer iter.Close()

	commit, err := iter.Next()
	require.NoError(t, err)

	assert.Equal(t, second, commit.Hash())
	commit.Free()

	commit, err = iter.Next()
	require.NoError(t, err)

	assert.Equal(t, first, commit.Hash())
	commit.Free()

	_, err = iter.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestCheckoutDetached(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("keep.txt", "version one\n")
	first := tr.commit("first")

	tr.createFile("keep.txt", "version two\n")
	tr.createFile("extra.txt", "later file\n")
	second := tr.commit("second")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	err = repo.CheckoutDetached(first)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(tr.path, "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "version one\n", string(content))

	assert.NoFileExists(t, filepath.Join(tr.path, "extra.txt"))

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, first, head)

	err = repo.CheckoutDetached(second)
	require.NoError(t, err)

	content, err = os.ReadFile(filepath.Join(tr.path, "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "version two\n", string(content))
	assert.FileExists(t, filepath.Join(tr.path, "extra.txt"))
}

func TestDiffStatRootCommit(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "one\ntwo\n")
	root := tr.commit("root")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	stat, err := repo.DiffStatToParent(root)
	require.NoError(t, err)

	assert.Equal(t, 1, stat.FilesChanged)
	assert.Equal(t, 2, stat.Insertions)
	assert.Zero(t, stat.Deletions)
}

func TestDiffStatToParent(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "one\ntwo\n")
	tr.createFile("gone.txt", "doomed\n")
	tr.commit("first")

	tr.createFile("a.txt", "one\ntwo\nthree\n")
	tr.createFile("b.txt", "bee\n")
	tr.deleteFile("gone.txt")
	second := tr.commit("second")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	stat, err := repo.DiffStatToParent(second)
	require.NoError(t, err)

	assert.Equal(t, 3, stat.FilesChanged)
	assert.Equal(t, 2, stat.Insertions)
	assert.Equal(t, 1, stat.Deletions)
}
