// Package manifest persists the incremental-rebuild cache: a flat map
// from a source file identity to its last-known modification time.
//
// The cache is advisory. Presence of a fresh entry means "safe to skip";
// absence always means "must rebuild". Loading never fails the build: a
// missing or corrupt sidecar degrades to an empty cache.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry records the last-seen modification time of one source file.
type Entry struct {
	Modified time.Time `json:"modified"`
}

// Manifest is the incremental-rebuild cache for one build target. It is
// safe for concurrent Touch calls from scheduler workers.
type Manifest struct {
	mu          sync.Mutex
	path        string
	incremental bool
	entries     map[string]Entry
}

// SidecarPath computes the manifest file path: a JSON file named after
// the build-target directory, sibling to it.
func SidecarPath(target string) string {
	target = filepath.Clean(target)
	return filepath.Join(filepath.Dir(target), filepath.Base(target)+".json")
}

// New creates a manifest for a build target. When incremental is false
// the manifest reports everything dirty and never persists.
func New(target string, incremental bool) *Manifest {
	return &Manifest{
		path:        SidecarPath(target),
		incremental: incremental,
		entries:     make(map[string]Entry),
	}
}

// Load reads the persisted sidecar. A missing or corrupt file is not an
// error; the cache starts empty and everything rebuilds.
func (m *Manifest) Load() {
	if !m.incremental {
		return
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read build manifest, rebuilding everything",
				"path", m.path, "error", err)
		}
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("Corrupt build manifest, rebuilding everything",
			"path", m.path, "error", err)
		return
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()

	slog.Debug("Loaded build manifest", "path", m.path, "entries", len(entries))
}

// IsDirty reports whether a source file must be rebuilt. It is true
// when incremental mode is off, force is set, or the destination does
// not exist; otherwise a missing cache entry means dirty, and a present
// entry is dirty iff the source modification time is strictly newer
// than the cached one.
func (m *Manifest) IsDirty(source, dest string, force bool) bool {
	if !m.incremental || force {
		return true
	}
	if _, err := os.Stat(dest); err != nil {
		return true
	}

	m.mu.Lock()
	entry, ok := m.entries[source]
	m.mu.Unlock()
	if !ok {
		return true
	}

	info, err := os.Stat(source)
	if err != nil {
		return true
	}
	return info.ModTime().After(entry.Modified)
}

// Touch records the current modification time of a successfully built
// source file. A vanished source removes its key instead, propagating
// deletes into the cache.
func (m *Manifest) Touch(source string) {
	info, err := os.Stat(source)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.entries, source)
		return
	}
	m.entries[source] = Entry{Modified: info.ModTime()}
}

// Save persists the cache. A no-op when incremental mode is disabled.
func (m *Manifest) Save() error {
	if !m.incremental {
		return nil
	}

	m.mu.Lock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Len reports the number of cached entries.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
