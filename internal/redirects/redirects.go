// Package redirects validates the redirect graph and materializes it as
// static stub pages. Validation is all-or-nothing: no stub is written
// while any chain is cyclic or too deep.
package redirects

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	enginerr "github.com/uwe-app/app-sub001/internal/errors"
)

// MaxRedirects bounds the length of a redirect chain.
const MaxRedirects = 4

var (
	// ErrTooManyRedirects indicates a chain longer than MaxRedirects hops.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrCyclicRedirect indicates a chain that revisits a key.
	ErrCyclicRedirect = errors.New("cyclic redirect")
	// ErrRedirectFileExists indicates a stub destination already occupied.
	ErrRedirectFileExists = errors.New("redirect file already exists")
)

// Validate walks every chain in the redirect map. A value that is not
// itself a key terminates its chain.
func Validate(redirects map[string]string) error {
	for key, value := range redirects {
		seen := make(map[string]bool)
		if err := follow(redirects, key, value, seen); err != nil {
			return enginerr.Wrap(err, enginerr.CategoryRedirect, fmt.Sprintf("redirect %s", key))
		}
	}
	return nil
}

func follow(redirects map[string]string, key, value string, seen map[string]bool) error {
	if len(seen) >= MaxRedirects {
		return ErrTooManyRedirects
	}

	norm := normalize(key)
	if seen[norm] {
		return ErrCyclicRedirect
	}
	seen[norm] = true

	next, ok := redirects[value]
	if !ok {
		next, ok = redirects[strings.TrimSuffix(value, "/")]
	}
	if !ok {
		return nil
	}
	return follow(redirects, value, next, seen)
}

func normalize(key string) string {
	if key == "/" {
		return key
	}
	return strings.TrimSuffix(key, "/")
}

// Write materializes validated redirects below the output root. Stub
// destinations are checked up front so either every stub is written or
// none is.
func Write(redirects map[string]string, outputRoot string) error {
	if err := Validate(redirects); err != nil {
		return err
	}

	stubs := make(map[string]string, len(redirects))
	for key, target := range redirects {
		dest := stubPath(outputRoot, key)
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: %s", ErrRedirectFileExists, dest)
		}
		stubs[dest] = target
	}

	for dest, target := range stubs {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("write redirect %s: %w", dest, err)
		}
		if err := os.WriteFile(dest, []byte(stub(target)), 0o644); err != nil {
			return fmt.Errorf("write redirect %s: %w", dest, err)
		}
		slog.Debug("Wrote redirect stub", "path", dest, "target", target)
	}
	return nil
}

// stubPath computes where a redirect key lives in the output tree: the
// key itself when it names a file, otherwise an index below it.
func stubPath(outputRoot, key string) string {
	rel := strings.TrimPrefix(normalize(key), "/")
	if path.Ext(rel) == "" {
		rel = path.Join(rel, "index.html")
	}
	return filepath.Join(outputRoot, filepath.FromSlash(rel))
}

// stub is a minimal HTML page redirecting via meta refresh with a
// script fallback.
func stub(target string) string {
	escaped := html.EscapeString(target)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <meta http-equiv="refresh" content="0; url=%s">
    <script>location.replace(%q);</script>
  </head>
  <body></body>
</html>
`, escaped, target)
}
