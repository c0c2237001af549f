// Package resolver computes output destinations and public hrefs for
// source files. All functions are deterministic: a valid source path
// inside the root maps to exactly one destination.
package resolver

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideSourceTree indicates a source path that does not live under
// the configured source root.
var ErrOutsideSourceTree = errors.New("path is outside the source tree")

// DefaultIndexName is the output index file name used when none is configured.
const DefaultIndexName = "index.html"

// Options carries the path conventions for one build target.
type Options struct {
	// SourceRoot is the cleaned root of the source tree.
	SourceRoot string

	// BaseHref is an optional directory prefix below the root that is
	// stripped from every computed path.
	BaseHref string

	// Clean enables the name.ext -> name/index.html rewrite.
	Clean bool

	// IncludeIndex keeps index file names in computed hrefs.
	IncludeIndex bool

	// IndexName overrides the output index file name.
	IndexName string

	// Extensions maps source extensions to output extensions for
	// page-shaped files, e.g. ".md" -> ".html".
	Extensions map[string]string

	// HasSibling reports whether a sibling index source already exists
	// for a file stem, in which case the clean rewrite is skipped to
	// avoid a destination collision. Nil means no sibling exists.
	HasSibling func(dir, stem string) bool
}

func (o Options) indexName() string {
	if o.IndexName != "" {
		return o.IndexName
	}
	return DefaultIndexName
}

// Passthrough reports whether an href is exempt from all rewriting:
// absolute http(s) URLs and inputs without a leading slash.
func Passthrough(href string) bool {
	if strings.HasPrefix(href, "http:") || strings.HasPrefix(href, "https:") {
		return true
	}
	return !strings.HasPrefix(href, "/")
}

// relativeToRoot strips the source root (and base href prefix, when set)
// from src and returns a slash-separated relative path.
func relativeToRoot(src string, o Options) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(o.SourceRoot), filepath.Clean(src))
	if err != nil {
		return "", ErrOutsideSourceTree
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrOutsideSourceTree
	}
	if rel == "." {
		rel = ""
	}
	if o.BaseHref != "" {
		base := strings.Trim(filepath.ToSlash(o.BaseHref), "/")
		if rel == base {
			rel = ""
		} else if strings.HasPrefix(rel, base+"/") {
			rel = rel[len(base)+1:]
		}
	}
	return rel, nil
}

// rewrite applies the extension map and, when enabled, the clean-URL
// rewrite to a root-relative path. It reports whether the clean rewrite
// moved the file one directory deeper.
func rewrite(rel string, o Options) (string, bool) {
	ext := path.Ext(rel)
	out, page := o.Extensions[ext]
	if !page {
		return rel, false
	}

	stem := strings.TrimSuffix(path.Base(rel), ext)
	dir := path.Dir(rel)

	rel = strings.TrimSuffix(rel, ext) + out

	if !o.Clean || stem == "index" {
		return rel, false
	}
	if o.HasSibling != nil && o.HasSibling(dir, stem) {
		return rel, false
	}
	return path.Join(path.Dir(rel), stem, o.indexName()), true
}

// Destination computes the output-relative destination path for a
// source file. Page-shaped extensions are rewritten per the extension
// map; the clean-URL convention maps name.ext to name/index.html.
func Destination(src string, o Options) (string, error) {
	rel, err := relativeToRoot(src, o)
	if err != nil {
		return "", err
	}
	dest, _ := rewrite(rel, o)
	return dest, nil
}

// AbsoluteHref computes the site-root-relative URL for a source file.
// The home index collapses to "/"; extensionless hrefs gain a trailing
// slash; when clean rewriting is on and IncludeIndex is off, a trailing
// index file name is dropped.
func AbsoluteHref(src string, o Options) (string, error) {
	rel, err := relativeToRoot(src, o)
	if err != nil {
		return "", err
	}
	dest, _ := rewrite(rel, o)

	if dest == "" || dest == o.indexName() {
		return "/", nil
	}

	href := "/" + dest
	if o.Clean && !o.IncludeIndex && strings.HasSuffix(href, "/"+o.indexName()) {
		href = strings.TrimSuffix(href, o.indexName())
	}
	if path.Ext(href) == "" && !strings.HasSuffix(href, "/") {
		href += "/"
	}
	return href, nil
}

// RelativeHref rewrites a site-root-relative target href into a link
// relative to the output location of the current source file. A clean
// rewritten page lives one directory deeper than its source, so it
// contributes one extra parent segment.
func RelativeHref(targetHref, currentSrc string, o Options) (string, error) {
	if Passthrough(targetHref) {
		return targetHref, nil
	}

	rel, err := relativeToRoot(currentSrc, o)
	if err != nil {
		return "", err
	}

	depth := 0
	if dir := path.Dir(rel); dir != "." && dir != "" {
		depth = strings.Count(dir, "/") + 1
	}
	if _, cleaned := rewrite(rel, o); cleaned {
		depth++
	}

	href := strings.Repeat("../", depth) + strings.TrimPrefix(targetHref, "/")
	if o.IncludeIndex && (href == "" || strings.HasSuffix(href, "/")) {
		return href + o.indexName(), nil
	}
	if href == "" {
		return "../", nil
	}
	return href, nil
}
