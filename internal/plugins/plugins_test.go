package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uwe-app/app-sub001/internal/collation"
	"github.com/uwe-app/app-sub001/internal/config"
)

type staticPlugin struct {
	name    string
	layouts map[string]string
	assets  []string
}

func (p staticPlugin) Name() string               { return p.name }
func (p staticPlugin) Layouts() map[string]string { return p.layouts }
func (p staticPlugin) Assets() []string           { return p.assets }

func buildCollation(t *testing.T) *collation.Collation {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Source:     filepath.Join(dir, "site"),
		Target:     filepath.Join(dir, "build"),
		Link:       config.LinkConfig{Clean: true},
		Extensions: config.ExtensionConfig{Render: []string{".md"}},
	}
	index := filepath.Join(cfg.Source, "index.md")
	require.NoError(t, os.MkdirAll(cfg.Source, 0o755))
	require.NoError(t, os.WriteFile(index, []byte("# Home\n"), 0o644))

	coll, err := (&collation.Builder{Config: cfg}).Walk()
	require.NoError(t, err)
	return coll
}

func TestApply_InjectsLayoutsAndAssets(t *testing.T) {
	coll := buildCollation(t)

	pluginDir := t.TempDir()
	layout := filepath.Join(pluginDir, "doc.html")
	asset := filepath.Join(pluginDir, "theme.css")
	require.NoError(t, os.WriteFile(layout, []byte("{{.content}}"), 0o644))
	require.NoError(t, os.WriteFile(asset, []byte("body{}"), 0o644))

	err := Apply(coll, staticPlugin{
		name:    "theme",
		layouts: map[string]string{"doc": layout},
		assets:  []string{asset},
	})
	require.NoError(t, err)

	// The layout is addressable by its namespaced key.
	layoutPath, ok := coll.LayoutFor(&collation.Page{Layout: LayoutKey("theme", "doc")})
	require.True(t, ok)
	require.Equal(t, layout, layoutPath)

	// The asset joined the destination set under the plugin namespace.
	src, ok := coll.GetLink("/assets/plugins/theme/theme.css")
	require.True(t, ok)
	require.FileExists(t, src)
}

func TestApply_MissingLayoutFails(t *testing.T) {
	coll := buildCollation(t)

	err := Apply(coll, staticPlugin{
		name:    "broken",
		layouts: map[string]string{"doc": filepath.Join(t.TempDir(), "absent.html")},
	})
	require.Error(t, err)
}
