package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return dir, wt
}

func commitFile(t *testing.T, dir string, wt *git.Worktree, rel, content, message string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	_, err := wt.Add(rel)
	require.NoError(t, err)
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Jo Dev", Email: "jo@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestFor_NewestCommitWins(t *testing.T) {
	dir, wt := initRepo(t)
	commitFile(t, dir, wt, "docs/page.md", "v1", "add page")
	commitFile(t, dir, wt, "docs/page.md", "v2", "update page\n\nlonger body")

	repo, err := Open(filepath.Join(dir, "docs"))
	require.NoError(t, err)

	info, err := repo.For(filepath.Join(dir, "docs", "page.md"))
	require.NoError(t, err)
	require.Equal(t, "update page", info.Subject)
	require.Equal(t, "Jo Dev", info.Author)
	require.Len(t, info.AbbreviatedHash, 8)
}

func TestFor_UntrackedFile(t *testing.T) {
	dir, wt := initRepo(t)
	commitFile(t, dir, wt, "tracked.md", "x", "initial")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.md"), []byte("y"), 0o644))

	repo, err := Open(dir)
	require.NoError(t, err)

	_, err = repo.For(filepath.Join(dir, "untracked.md"))
	require.ErrorIs(t, err, ErrNoCommits)
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
}
