// Package book copies prebuilt book compiler output into the site
// target tree. A section directory containing a ".draft" marker file
// is skipped entirely in the release profile.
package book

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DraftMarker is the file name marking a book section as a draft.
const DraftMarker = ".draft"

// Copy mirrors the book output at bookDir into targetRoot/<book-name>.
// It returns the number of files copied.
func Copy(bookDir, targetRoot string, release bool) (int, error) {
	bookDir = filepath.Clean(bookDir)
	info, err := os.Stat(bookDir)
	if err != nil {
		return 0, fmt.Errorf("book directory %s: %w", bookDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("book path %s is not a directory", bookDir)
	}

	dest := filepath.Join(targetRoot, filepath.Base(bookDir))
	copied := 0

	err = filepath.WalkDir(bookDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(bookDir, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if release && isDraftSection(path) {
				slog.Debug("Skipping draft book section", "section", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == DraftMarker {
			return nil
		}

		out := filepath.Join(dest, rel)
		if err := copyFile(path, out); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy book %s: %w", bookDir, err)
	}

	slog.Debug("Copied book output", "book", filepath.Base(bookDir), "files", copied)
	return copied, nil
}

func isDraftSection(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, DraftMarker))
	return err == nil
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
