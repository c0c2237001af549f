package book

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCopy_MirrorsOutputTree(t *testing.T) {
	dir := t.TempDir()
	bookDir := filepath.Join(dir, "guide")
	target := filepath.Join(dir, "build")
	writeFile(t, filepath.Join(bookDir, "index.html"), "<h1>Guide</h1>")
	writeFile(t, filepath.Join(bookDir, "ch1", "index.html"), "<h1>One</h1>")

	copied, err := Copy(bookDir, target, false)
	require.NoError(t, err)
	require.Equal(t, 2, copied)

	content, err := os.ReadFile(filepath.Join(target, "guide", "ch1", "index.html"))
	require.NoError(t, err)
	require.Equal(t, "<h1>One</h1>", string(content))
}

func TestCopy_DraftSectionSkippedInRelease(t *testing.T) {
	dir := t.TempDir()
	bookDir := filepath.Join(dir, "guide")
	target := filepath.Join(dir, "build")
	writeFile(t, filepath.Join(bookDir, "index.html"), "<h1>Guide</h1>")
	writeFile(t, filepath.Join(bookDir, "wip", DraftMarker), "")
	writeFile(t, filepath.Join(bookDir, "wip", "index.html"), "<h1>WIP</h1>")

	copied, err := Copy(bookDir, target, true)
	require.NoError(t, err)
	require.Equal(t, 1, copied)
	_, statErr := os.Stat(filepath.Join(target, "guide", "wip"))
	require.True(t, os.IsNotExist(statErr))

	// Debug profile keeps the section but never copies the marker.
	copied, err = Copy(bookDir, target, false)
	require.NoError(t, err)
	require.Equal(t, 2, copied)
	_, statErr = os.Stat(filepath.Join(target, "guide", "wip", DraftMarker))
	require.True(t, os.IsNotExist(statErr))
}

func TestCopy_MissingDirectory(t *testing.T) {
	_, err := Copy(filepath.Join(t.TempDir(), "nope"), t.TempDir(), false)
	require.Error(t, err)
}
