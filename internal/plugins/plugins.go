// Package plugins injects third-party layouts and static assets into a
// collation. A plugin's assets are copied into a namespaced directory
// under the source tree and collated like any other file; its layouts
// become addressable as "plugin/<name>/<layout>".
package plugins

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/uwe-app/app-sub001/internal/collation"
)

// AssetRoot is the source-relative directory plugin assets land in.
const AssetRoot = "assets/plugins"

// Plugin contributes layouts and static assets.
type Plugin interface {
	// Name is the unique plugin name, used as a namespace.
	Name() string
	// Layouts maps layout names to absolute template paths.
	Layouts() map[string]string
	// Assets lists absolute paths of files to publish.
	Assets() []string
}

// LayoutKey returns the collation layout key for a plugin layout, the
// value pages reference in their layout field.
func LayoutKey(plugin, layout string) string {
	return "plugin/" + plugin + "/" + layout
}

// Apply injects every plugin into the collation: layouts are
// registered under their namespaced keys and assets are copied into
// the source tree and upserted. Apply runs strictly between scheduler
// passes.
func Apply(coll *collation.Collation, list ...Plugin) error {
	for _, p := range list {
		if p.Name() == "" {
			return fmt.Errorf("plugin with empty name")
		}

		for name, path := range p.Layouts() {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("plugin %s layout %s: %w", p.Name(), name, err)
			}
			coll.AddLayout(LayoutKey(p.Name(), name), path)
		}

		assetDir := filepath.Join(coll.SourceRoot(), filepath.FromSlash(AssetRoot), p.Name())
		for _, asset := range p.Assets() {
			dest := filepath.Join(assetDir, filepath.Base(asset))
			if err := copyFile(asset, dest); err != nil {
				return fmt.Errorf("plugin %s asset %s: %w", p.Name(), asset, err)
			}
			if err := coll.Upsert(dest); err != nil {
				return fmt.Errorf("plugin %s asset %s: %w", p.Name(), asset, err)
			}
		}

		slog.Debug("Applied plugin",
			"plugin", p.Name(),
			"layouts", len(p.Layouts()),
			"assets", len(p.Assets()))
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
