package collation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uwe-app/app-sub001/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func siteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Source:     filepath.Join(dir, "site"),
		Target:     filepath.Join(dir, "build"),
		Link:       config.LinkConfig{Clean: true},
		Extensions: config.ExtensionConfig{Render: []string{".md", ".html"}},
	}
}

func TestWalk_ClassifiesPagesAndTargets(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")
	writeFile(t, filepath.Join(cfg.Source, "about.md"), "+++\ntitle: About\n+++\n# About\n")
	writeFile(t, filepath.Join(cfg.Source, "assets", "app.css"), "body{}")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	about := coll.Resolve(filepath.Join(cfg.Source, "about.md"))
	require.NotNil(t, about)
	require.Equal(t, "About", about.Title)
	require.Equal(t, "# About\n", string(about.Body))
	require.True(t, about.Render)

	require.Nil(t, coll.Resolve(filepath.Join(cfg.Source, "assets", "app.css")))

	targets := coll.Destinations()
	require.Len(t, targets, 3)
	for _, target := range targets {
		switch filepath.Base(target.Source) {
		case "app.css":
			require.Nil(t, target.Page)
			require.Equal(t, filepath.Join(coll.TargetRoot(), "assets", "app.css"), target.Destination)
		case "about.md":
			require.NotNil(t, target.Page)
			require.Equal(t, filepath.Join(coll.TargetRoot(), "about", "index.html"), target.Destination)
		case "index.md":
			require.NotNil(t, target.Page)
			require.Equal(t, filepath.Join(coll.TargetRoot(), "index.html"), target.Destination)
		}
	}
}

func TestWalk_HrefIndexRoundTrips(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "docs", "guide.md"), "# Guide\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	src := filepath.Join(cfg.Source, "docs", "guide.md")
	page := coll.Resolve(src)
	require.NotNil(t, page)
	require.Equal(t, "/docs/guide/", page.Href)

	back, ok := coll.GetLink(page.Href)
	require.True(t, ok)
	require.Equal(t, src, back)
}

func TestFindLink_PrefersExactThenShortest(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "guide.md"), "# A\n")
	writeFile(t, filepath.Join(cfg.Source, "docs", "guide.md"), "# B\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	src, ok := coll.FindLink("/guide/")
	require.True(t, ok)
	require.Equal(t, filepath.Join(cfg.Source, "guide.md"), src)

	src, ok = coll.FindLink("docs/guide")
	require.True(t, ok)
	require.Equal(t, filepath.Join(cfg.Source, "docs", "guide.md"), src)

	_, ok = coll.FindLink("/nowhere/")
	require.False(t, ok)
}

func TestWalk_PageTableMergePrecedence(t *testing.T) {
	cfg := siteConfig(t)
	draft := true
	cfg.Page = config.PageConfig{Title: "Default", Layout: "layouts/base.html"}
	cfg.Pages = config.PageTable{
		"post.md": {Title: "From Table", Draft: &draft},
	}
	writeFile(t, filepath.Join(cfg.Source, "post.md"), "+++\ntitle: From Front Matter\n+++\nbody\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	page := coll.Resolve(filepath.Join(cfg.Source, "post.md"))
	require.NotNil(t, page)
	require.Equal(t, "From Front Matter", page.Title, "front matter wins over the page table")
	require.True(t, page.Draft, "page table wins over defaults")
	require.Equal(t, "layouts/base.html", page.Layout)
}

func TestWalk_PageTableMissingFileFails(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Pages = config.PageTable{"ghost.md": {Title: "Ghost"}}
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")

	_, err := (&Builder{Config: cfg}).Walk()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ghost.md")
}

func TestWalk_LayoutFilesExcludedFromDestinations(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Layouts.Default = "layouts/main.html"
	writeFile(t, filepath.Join(cfg.Source, "layouts", "main.html"), "{{.content}}")
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	for _, target := range coll.Destinations() {
		require.NotEqual(t, "main.html", filepath.Base(target.Source))
	}
}

func TestWalk_Menus(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Link.Verify = true
	cfg.Menus = map[string][]string{
		"main": {"index.md", "docs/guide.md", "/external/", "https://example.com/"},
	}
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")
	writeFile(t, filepath.Join(cfg.Source, "docs", "guide.md"), "# Guide\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)
	require.Equal(t,
		[]string{"/", "/docs/guide/", "/external/", "https://example.com/"},
		coll.Menu("main"))
}

func TestWalk_MenuVerificationFails(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Link.Verify = true
	cfg.Menus = map[string][]string{"main": {"missing.md"}}
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")

	_, err := (&Builder{Config: cfg}).Walk()
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.md")
}

func TestLayoutFor_ResolutionOrder(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Layouts.Default = "layouts/main.html"
	cfg.Layouts.Overrides = map[string]string{"special.md": "layouts/special.html"}
	writeFile(t, filepath.Join(cfg.Source, "layouts", "main.html"), "{{.content}}")
	writeFile(t, filepath.Join(cfg.Source, "layouts", "special.html"), "{{.content}}")
	writeFile(t, filepath.Join(cfg.Source, "special.md"), "# S\n")
	writeFile(t, filepath.Join(cfg.Source, "own.md"), "+++\nlayout: layouts/special.html\n+++\n# O\n")
	writeFile(t, filepath.Join(cfg.Source, "plain.md"), "# P\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	layout, ok := coll.LayoutFor(coll.Resolve(filepath.Join(cfg.Source, "special.md")))
	require.True(t, ok)
	require.Equal(t, filepath.Join(cfg.Source, "layouts", "special.html"), layout)

	layout, ok = coll.LayoutFor(coll.Resolve(filepath.Join(cfg.Source, "own.md")))
	require.True(t, ok)
	require.Equal(t, filepath.Join(cfg.Source, "layouts", "special.html"), layout)

	layout, ok = coll.LayoutFor(coll.Resolve(filepath.Join(cfg.Source, "plain.md")))
	require.True(t, ok)
	require.Equal(t, filepath.Join(cfg.Source, "layouts", "main.html"), layout)
}

func TestLayoutFor_NoLayoutMeansStandalone(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	_, ok := coll.LayoutFor(coll.Resolve(filepath.Join(cfg.Source, "index.md")))
	require.False(t, ok)
}

func TestUpsert_ReclassifiesAndRefreshesHrefs(t *testing.T) {
	cfg := siteConfig(t)
	src := filepath.Join(cfg.Source, "page.md")
	writeFile(t, src, "+++\ntitle: First\n+++\nbody\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)
	require.Equal(t, "First", coll.Resolve(src).Title)

	writeFile(t, src, "+++\ntitle: Second\n+++\nbody\n")
	require.NoError(t, coll.Upsert(src))
	require.Equal(t, "Second", coll.Resolve(src).Title)

	back, ok := coll.GetLink("/page/")
	require.True(t, ok)
	require.Equal(t, src, back)
}

func TestUpsert_MissingFileFails(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	require.Error(t, coll.Upsert(filepath.Join(cfg.Source, "vanished.md")))
}

func TestRemove_ReportsStaleArtifact(t *testing.T) {
	cfg := siteConfig(t)
	src := filepath.Join(cfg.Source, "docs", "old.md")
	writeFile(t, src, "# Old\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	stale, ok := coll.Remove(src)
	require.True(t, ok)
	require.Equal(t, filepath.Join(coll.TargetRoot(), "docs", "old", "index.html"), stale)

	require.Nil(t, coll.Resolve(src))
	_, ok = coll.GetLink("/docs/old/")
	require.False(t, ok)

	_, ok = coll.Remove(src)
	require.False(t, ok)
}

func TestWalk_LocaleVariantRootsOutput(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")

	coll, err := (&Builder{Config: cfg, Locale: "fr"}).Walk()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Target, "fr"), coll.TargetRoot())

	page := coll.Resolve(filepath.Join(cfg.Source, "index.md"))
	require.NotNil(t, page)
	require.Equal(t, "fr", page.Data["lang"])
}

func TestWalk_ExcludedRootsSkipped(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Exclude = []string{"drafts"}
	writeFile(t, filepath.Join(cfg.Source, "index.md"), "# Home\n")
	writeFile(t, filepath.Join(cfg.Source, "drafts", "wip.md"), "# WIP\n")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)
	require.Nil(t, coll.Resolve(filepath.Join(cfg.Source, "drafts", "wip.md")))
	require.Len(t, coll.Destinations(), 1)
}

func TestDestinations_Operations(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.Source, "page.md"), "# Page\n")
	writeFile(t, filepath.Join(cfg.Source, "raw.md"), "+++\nrender: false\n+++\nverbatim\n")
	writeFile(t, filepath.Join(cfg.Source, "app.css"), "body{}")

	coll, err := (&Builder{Config: cfg}).Walk()
	require.NoError(t, err)

	ops := map[string]Operation{}
	for _, target := range coll.Destinations() {
		ops[filepath.Base(target.Source)] = target.Operation
	}
	require.Equal(t, OpRender, ops["page.md"])
	require.Equal(t, OpCopy, ops["raw.md"], "render:false pages are byte-copied")
	require.Equal(t, OpCopy, ops["app.css"])
}

func TestNewResource_Classification(t *testing.T) {
	require.Equal(t, OpNoop, NewResource(KindDirectory, "").Operation)
	require.Equal(t, OpRender, NewResource(KindPage, "a/index.html").Operation)
	require.Equal(t, OpCopy, NewResource(KindAsset, "app.css").Operation)

	require.Equal(t, "page", KindPage.String())
	require.Equal(t, "render", OpRender.String())
	require.Equal(t, "noop", OpNoop.String())
}
