package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "host: example.com\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "example.com", cfg.Host)
	require.True(t, filepath.IsAbs(cfg.Source))
	require.Equal(t, "site", filepath.Base(cfg.Source))
	require.Equal(t, "build", filepath.Base(cfg.Target))
	require.ElementsMatch(t, []string{".md", ".html"}, cfg.Extensions.Render)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SITE_HOST", "docs.example.com")
	path := writeConfig(t, "host: ${SITE_HOST}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "docs.example.com", cfg.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate_SourceEqualsTarget(t *testing.T) {
	cfg := &Config{Source: "/site", Target: "/site"}
	require.Error(t, cfg.Validate())
}

func TestValidate_AbsolutePagesKeyRejected(t *testing.T) {
	cfg := &Config{
		Source: "/site/source",
		Target: "/site/build",
		Pages:  PageTable{"/abs/path.md": {}},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_SearchRequiresPath(t *testing.T) {
	cfg := &Config{
		Source: "/site/source",
		Target: "/site/build",
		Search: &SearchConfig{},
	}
	require.Error(t, cfg.Validate())
}

func TestExtensionConfig_Resolved(t *testing.T) {
	e := ExtensionConfig{
		Render: []string{".md", "html"},
		Map:    map[string]string{".md": ".html"},
	}
	resolved := e.Resolved()
	require.Equal(t, ".html", resolved[".md"])
	require.Equal(t, ".html", resolved[".html"])
}

func TestPageConfig_MergePrecedence(t *testing.T) {
	draft := true
	base := PageConfig{
		Title: "Default",
		Data:  map[string]any{"author": "ops", "section": "docs"},
	}
	over := PageConfig{
		Title: "Override",
		Draft: &draft,
		Data:  map[string]any{"author": "writer"},
	}

	merged := base.Merge(over)
	require.Equal(t, "Override", merged.Title)
	require.NotNil(t, merged.Draft)
	require.True(t, *merged.Draft)
	require.Equal(t, "writer", merged.Data["author"])
	require.Equal(t, "docs", merged.Data["section"])

	// base is untouched
	require.Equal(t, "ops", base.Data["author"])
}

func TestFromFields(t *testing.T) {
	pc := FromFields(map[string]any{
		"title":      "Hello",
		"standalone": true,
		"render":     false,
		"custom":     42,
	})
	require.Equal(t, "Hello", pc.Title)
	require.NotNil(t, pc.Standalone)
	require.True(t, *pc.Standalone)
	require.NotNil(t, pc.Render)
	require.False(t, *pc.Render)
	require.Equal(t, 42, pc.Data["custom"])
}
