// Package collation builds and queries the in-memory site graph for one
// build target. A collation is constructed by a single source-tree walk,
// then treated as read-only for the duration of a scheduler pass;
// dev-mode upserts happen strictly between passes.
package collation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/uwe-app/app-sub001/internal/config"
	enginerr "github.com/uwe-app/app-sub001/internal/errors"
	"github.com/uwe-app/app-sub001/internal/frontmatter"
	"github.com/uwe-app/app-sub001/internal/manifest"
	"github.com/uwe-app/app-sub001/internal/resolver"
	"github.com/uwe-app/app-sub001/internal/walker"
)

// Target is one entry of the destination set (pages ∪ targets).
type Target struct {
	// Source is the canonical absolute source path.
	Source string
	// Destination is the absolute output path.
	Destination string
	// Operation is what the build performs for this entry.
	Operation Operation
	// Page is nil for plain copy targets.
	Page *Page
}

// Collation owns the site graph for one locale variant.
type Collation struct {
	cfg        *config.Config
	opts       resolver.Options
	locale     string
	targetRoot string

	// pages and targets are mutually exclusive: a source path appears
	// in exactly one of them.
	pages   map[string]*Page
	targets map[string]string

	menus         map[string][]string
	layouts       map[string]string
	defaultLayout string

	// hrefs indexes every computed href back to its source path.
	hrefs map[string]string

	man *manifest.Manifest
}

// Builder constructs a collation from a source tree walk.
type Builder struct {
	Config *config.Config
	// Walker defaults to an ignore-aware filesystem walker excluding
	// the configured exclusion roots.
	Walker walker.Walker
	// Locale is empty for the primary variant; alternates root their
	// output at a locale subdirectory of the target.
	Locale string
}

// Walk runs the single-pass source tree walk and returns the populated
// collation.
func (b *Builder) Walk() (*Collation, error) {
	cfg := b.Config
	source := filepath.Clean(cfg.Source)

	targetRoot := filepath.Clean(cfg.Target)
	if b.Locale != "" {
		targetRoot = filepath.Join(targetRoot, b.Locale)
	}

	extensions := cfg.Extensions.Resolved()
	opts := resolver.Options{
		SourceRoot:   source,
		BaseHref:     cfg.BaseHref,
		Clean:        cfg.Link.Clean,
		IncludeIndex: cfg.Link.IncludeIndex,
		Extensions:   extensions,
		HasSibling: func(dir, stem string) bool {
			for ext := range extensions {
				index := filepath.Join(source, filepath.FromSlash(dir), stem, "index"+ext)
				if _, err := os.Stat(index); err == nil {
					return true
				}
			}
			return false
		},
	}

	c := &Collation{
		cfg:        cfg,
		opts:       opts,
		locale:     b.Locale,
		targetRoot: targetRoot,
		pages:      make(map[string]*Page),
		targets:    make(map[string]string),
		menus:      make(map[string][]string),
		layouts:    make(map[string]string),
		hrefs:      make(map[string]string),
	}

	if err := c.registerLayouts(); err != nil {
		return nil, err
	}

	w := b.Walker
	if w == nil {
		exclusions := make([]string, 0, len(cfg.Exclude))
		for _, rel := range cfg.Exclude {
			exclusions = append(exclusions, filepath.Join(source, filepath.FromSlash(rel)))
		}
		w = walker.New(exclusions...)
	}

	err := w.Walk(source, func(e walker.Entry) error {
		if !e.IsFile {
			return nil
		}
		return c.add(e.Path)
	})
	if err != nil {
		return nil, err
	}

	if err := c.verifyPageTable(); err != nil {
		return nil, err
	}
	if err := c.buildMenus(); err != nil {
		return nil, err
	}

	slog.Debug("Collation walk complete",
		"locale", b.Locale,
		"pages", len(c.pages),
		"targets", len(c.targets))

	return c, nil
}

// registerLayouts records the default layout and per-path overrides.
// Layout files themselves never enter the destination set.
func (c *Collation) registerLayouts() error {
	if c.cfg.Layouts.Default != "" {
		abs := filepath.Join(c.opts.SourceRoot, filepath.FromSlash(c.cfg.Layouts.Default))
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("default layout %s: %w", c.cfg.Layouts.Default, err)
		}
		c.defaultLayout = abs
	}
	for key, layout := range c.cfg.Layouts.Overrides {
		src := filepath.Join(c.opts.SourceRoot, filepath.FromSlash(key))
		c.layouts[filepath.Clean(src)] = filepath.Join(c.opts.SourceRoot, filepath.FromSlash(layout))
	}
	return nil
}

// IsLayout reports whether a source path is registered as a layout
// file. Layout files never enter the destination set; edits to them
// must instead invalidate the template cache and re-render dependents.
func (c *Collation) IsLayout(src string) bool {
	return c.isLayout(filepath.Clean(src))
}

func (c *Collation) isLayout(src string) bool {
	if c.defaultLayout != "" && src == c.defaultLayout {
		return true
	}
	for _, layout := range c.layouts {
		if src == layout {
			return true
		}
	}
	return false
}

// add classifies one file and inserts it into the graph, preserving the
// pages/targets mutual exclusion and the href index.
func (c *Collation) add(path string) error {
	src := filepath.Clean(path)
	if c.isLayout(src) {
		return nil
	}

	ext := filepath.Ext(src)
	if _, page := c.opts.Extensions[ext]; page {
		return c.addPage(src)
	}
	return c.addTarget(src)
}

func (c *Collation) addTarget(src string) error {
	dest, err := resolver.Destination(src, c.opts)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	href, err := resolver.AbsoluteHref(src, c.opts)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	delete(c.pages, src)
	c.targets[src] = dest
	c.hrefs[href] = src
	return nil
}

func (c *Collation) addPage(src string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read page %s: %w", src, err)
	}

	doc, err := frontmatter.Split(content, frontmatter.ForPath(src))
	if err != nil {
		return enginerr.Wrap(err, enginerr.CategoryContent, fmt.Sprintf("front matter in %s", src))
	}

	fields := map[string]any{}
	if doc.Has {
		fields, err = frontmatter.ParseYAML(doc.FrontMatter)
		if err != nil {
			return enginerr.Wrap(err, enginerr.CategoryContent, fmt.Sprintf("front matter in %s", src))
		}
	}

	rel, err := filepath.Rel(c.opts.SourceRoot, src)
	if err != nil {
		return fmt.Errorf("%s: %w", src, resolver.ErrOutsideSourceTree)
	}
	rel = filepath.ToSlash(rel)

	// Precedence: global defaults, then the page table, then front matter.
	merged := c.cfg.Page.Merge(c.cfg.Pages[rel]).Merge(config.FromFields(fields))

	dest, err := resolver.Destination(src, c.opts)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	href, err := resolver.AbsoluteHref(src, c.opts)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	page := &Page{
		SourcePath:  src,
		Destination: dest,
		Href:        href,
		Title:       merged.Title,
		Layout:      merged.Layout,
		Render:      true,
		Data:        merged.Data,
		Body:        doc.Body,
	}
	if merged.Standalone != nil {
		page.Standalone = *merged.Standalone
	}
	if merged.Draft != nil {
		page.Draft = *merged.Draft
	}
	if merged.Render != nil {
		page.Render = *merged.Render
	}
	if page.Data == nil {
		page.Data = map[string]any{}
	}
	if c.locale != "" {
		page.Data["lang"] = c.locale
	}

	delete(c.targets, src)
	c.pages[src] = page
	c.hrefs[href] = src
	return nil
}

// verifyPageTable fails the build when the page table names a file the
// walk never produced.
func (c *Collation) verifyPageTable() error {
	for key := range c.cfg.Pages {
		src := filepath.Join(c.opts.SourceRoot, filepath.FromSlash(key))
		if _, ok := c.pages[filepath.Clean(src)]; !ok {
			return fmt.Errorf("page table references missing file: %s", key)
		}
	}
	return nil
}

// buildMenus converts configured menu entries into ordered hrefs. Entries
// already shaped like hrefs or external URLs pass through verbatim.
func (c *Collation) buildMenus() error {
	for name, entries := range c.cfg.Menus {
		hrefs := make([]string, 0, len(entries))
		for _, entry := range entries {
			if strings.HasPrefix(entry, "/") || strings.Contains(entry, "://") {
				hrefs = append(hrefs, entry)
				continue
			}
			src := filepath.Join(c.opts.SourceRoot, filepath.FromSlash(entry))
			href, err := resolver.AbsoluteHref(src, c.opts)
			if err != nil {
				return fmt.Errorf("menu %s entry %s: %w", name, entry, err)
			}
			if c.cfg.Link.Verify {
				if _, ok := c.hrefs[href]; !ok {
					return fmt.Errorf("menu %s entry %s does not resolve to a known page", name, entry)
				}
			}
			hrefs = append(hrefs, href)
		}
		c.menus[name] = hrefs
	}
	return nil
}

// Resolve returns the page for a canonical source path, or nil.
func (c *Collation) Resolve(src string) *Page {
	return c.pages[filepath.Clean(src)]
}

// GetLink maps an href back to its source path.
func (c *Collation) GetLink(href string) (string, bool) {
	src, ok := c.hrefs[href]
	return src, ok
}

// FindLink locates a source path by partial href match. Exact matches
// win; otherwise the shortest href containing the fragment is chosen.
func (c *Collation) FindLink(partial string) (string, bool) {
	if src, ok := c.hrefs[partial]; ok {
		return src, true
	}
	var bestHref, bestSrc string
	for href, src := range c.hrefs {
		if !strings.Contains(href, partial) {
			continue
		}
		if bestHref == "" || len(href) < len(bestHref) || (len(href) == len(bestHref) && href < bestHref) {
			bestHref, bestSrc = href, src
		}
	}
	return bestSrc, bestHref != ""
}

// Menu returns the ordered hrefs of a named menu.
func (c *Collation) Menu(name string) []string {
	return c.menus[name]
}

// AddLayout registers a namespaced layout, used by the plugin asset
// injector.
func (c *Collation) AddLayout(name, path string) {
	c.layouts[name] = path
}

// LayoutFor resolves the layout for a page: a per-path override first,
// then the page's own layout reference, then the collation default.
// ok is false when the page must render standalone.
func (c *Collation) LayoutFor(p *Page) (string, bool) {
	if layout, ok := c.layouts[p.SourcePath]; ok {
		return layout, true
	}
	if p.Layout != "" {
		if layout, ok := c.layouts[p.Layout]; ok {
			return layout, true
		}
		return filepath.Join(c.opts.SourceRoot, filepath.FromSlash(p.Layout)), true
	}
	if c.defaultLayout != "" {
		return c.defaultLayout, true
	}
	return "", false
}

// Upsert re-collates a single source file, used by the dev watch loop
// strictly between scheduler passes.
func (c *Collation) Upsert(src string) error {
	src = filepath.Clean(src)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("upsert %s: %w", src, err)
	}
	c.dropHrefFor(src)
	return c.add(src)
}

// Remove deletes a vanished source file from the graph and reports the
// absolute output path of its stale artifact.
func (c *Collation) Remove(src string) (string, bool) {
	src = filepath.Clean(src)

	var dest string
	if p, ok := c.pages[src]; ok {
		dest = p.Destination
		delete(c.pages, src)
	} else if d, ok := c.targets[src]; ok {
		dest = d
		delete(c.targets, src)
	} else {
		return "", false
	}

	c.dropHrefFor(src)
	return filepath.Join(c.targetRoot, filepath.FromSlash(dest)), true
}

func (c *Collation) dropHrefFor(src string) {
	for href, s := range c.hrefs {
		if s == src {
			delete(c.hrefs, href)
		}
	}
}

// Destinations returns the full destination set (pages ∪ targets) in
// deterministic source order.
func (c *Collation) Destinations() []Target {
	out := make([]Target, 0, len(c.pages)+len(c.targets))
	for src, p := range c.pages {
		op := NewResource(KindPage, p.Destination).Operation
		if !p.Render {
			op = OpCopy
		}
		out = append(out, Target{
			Source:      src,
			Destination: filepath.Join(c.targetRoot, filepath.FromSlash(p.Destination)),
			Operation:   op,
			Page:        p,
		})
	}
	for src, dest := range c.targets {
		out = append(out, Target{
			Source:      src,
			Destination: filepath.Join(c.targetRoot, filepath.FromSlash(dest)),
			Operation:   NewResource(KindAsset, dest).Operation,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// SourceRoot returns the source tree root this collation was built from.
func (c *Collation) SourceRoot() string { return c.opts.SourceRoot }

// TargetRoot returns the locale-rooted absolute output root.
func (c *Collation) TargetRoot() string { return c.targetRoot }

// Locale returns the locale variant name, empty for the primary.
func (c *Collation) Locale() string { return c.locale }

// ResolverOptions exposes the path conventions shared with templates.
func (c *Collation) ResolverOptions() resolver.Options { return c.opts }

// SetManifest attaches the optional build manifest handle.
func (c *Collation) SetManifest(m *manifest.Manifest) { c.man = m }

// Manifest returns the attached manifest, or nil.
func (c *Collation) Manifest() *manifest.Manifest { return c.man }
