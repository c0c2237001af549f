// Package walker provides the ignore-aware directory walk feeding the
// collation. Patterns in an ignore file at the source root are matched
// with doublestar globs; exclusion roots are never entered.
package walker

import (
	"bufio"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName is looked up at the walk root.
const IgnoreFileName = ".ignore"

// Entry is one discovered filesystem entry.
type Entry struct {
	// Path is the absolute path of the entry.
	Path string
	// IsFile is false for directories.
	IsFile bool
}

// Walker yields source tree entries honoring ignore conventions.
type Walker interface {
	Walk(root string, fn func(Entry) error) error
}

// FS walks the real filesystem.
type FS struct {
	// Exclusions are absolute roots the walk must never enter.
	Exclusions []string
}

// New creates a filesystem walker with the given absolute exclusion roots.
func New(exclusions ...string) *FS {
	cleaned := make([]string, 0, len(exclusions))
	for _, e := range exclusions {
		cleaned = append(cleaned, filepath.Clean(e))
	}
	return &FS{Exclusions: cleaned}
}

// Walk visits every entry below root in lexical order, skipping excluded
// roots and ignore-matched paths. Directories are reported before their
// contents.
func (w *FS) Walk(root string, fn func(Entry) error) error {
	root = filepath.Clean(root)

	patterns, err := loadIgnorePatterns(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.excluded(path) {
				slog.Debug("Skipping excluded root", "path", path)
				return filepath.SkipDir
			}
			if matchIgnore(patterns, rel) {
				return filepath.SkipDir
			}
			return fn(Entry{Path: path})
		}

		if filepath.Base(path) == IgnoreFileName {
			return nil
		}
		if matchIgnore(patterns, rel) {
			return nil
		}
		return fn(Entry{Path: path, IsFile: true})
	})
}

func (w *FS) excluded(path string) bool {
	path = filepath.Clean(path)
	for _, root := range w.Exclusions {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads doublestar patterns, one per line. A missing
// file means no patterns.
func loadIgnorePatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !doublestar.ValidatePattern(line) {
			return nil, fmt.Errorf("invalid ignore pattern %q in %s", line, path)
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	return patterns, nil
}

func matchIgnore(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
