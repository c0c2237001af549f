package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uwe-app/app-sub001/internal/config"
	"github.com/uwe-app/app-sub001/internal/metrics"
)

func TestBuildAll_CopiesBooksIntoEachVariantSubtree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.md"), []byte("# Home\n"), 0o644))

	bookDir := filepath.Join(dir, "manual")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "index.html"), []byte("<p>book</p>"), 0o644))

	cfg := &config.Config{
		Source:     src,
		Target:     filepath.Join(dir, "build"),
		Link:       config.LinkConfig{Clean: true},
		Extensions: config.ExtensionConfig{Render: []string{".md"}},
		Locales:    config.LocaleConfig{Primary: "en", Alternates: []string{"fr"}},
		Book:       &config.BookConfig{Paths: []string{bookDir}},
	}

	require.NoError(t, buildAll(context.Background(), cfg, "", metrics.NoopRecorder{}))

	for _, root := range []string{cfg.Target, filepath.Join(cfg.Target, "fr")} {
		_, err := os.Stat(filepath.Join(root, "manual", "index.html"))
		require.NoError(t, err, "book output missing under %s", root)
		_, err = os.Stat(filepath.Join(root, "index.html"))
		require.NoError(t, err, "rendered page missing under %s", root)
	}
}
