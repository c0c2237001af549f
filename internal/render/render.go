// Package render executes the per-file pipeline: render-vs-copy
// decision, layout resolution, template invocation and the HTML
// post-processing chain.
package render

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/uwe-app/app-sub001/internal/collation"
	"github.com/uwe-app/app-sub001/internal/config"
	"github.com/uwe-app/app-sub001/internal/highlight"
	"github.com/uwe-app/app-sub001/internal/resolver"
	"github.com/uwe-app/app-sub001/internal/search"
	tpl "github.com/uwe-app/app-sub001/internal/template"
)

// Pipeline renders one file at a time against a read-only collation.
// It holds no per-file state, so scheduler workers share one instance.
type Pipeline struct {
	Collation   *collation.Collation
	Engine      tpl.Engine
	Config      *config.Config
	Highlighter highlight.Highlighter
	Search      search.Indexer
}

// RenderFile runs the decision sequence for one destination entry.
// Plain targets and pages with the render flag off are byte-copied;
// drafts are suppressed entirely in the release profile.
func (p *Pipeline) RenderFile(ctx context.Context, t collation.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.Operation != collation.OpRender || t.Page == nil {
		return copyFile(t.Source, t.Destination)
	}

	page := t.Page
	if p.Config.Build.Release && page.Draft {
		slog.Debug("Skipping draft page in release profile", "source", page.SourcePath)
		return nil
	}

	content, err := p.pageContent(page)
	if err != nil {
		return err
	}

	output := string(content)
	if layout, ok := p.layoutFor(page); ok {
		output, err = p.Engine.Render(layout, p.templateData(page, content))
		if err != nil {
			return err
		}
	}

	if isHTML(t.Destination) {
		output, err = p.postProcess(ctx, page, output)
		if err != nil {
			return err
		}
	}

	if err := writeFile(t.Destination, []byte(output)); err != nil {
		return err
	}

	slog.Debug("Rendered page", "source", page.SourcePath, "dest", t.Destination)
	return nil
}

// pageContent converts the page body to HTML. Markdown sources are
// converted; HTML-shaped sources pass through.
func (p *Pipeline) pageContent(page *collation.Page) (htmltemplate.HTML, error) {
	switch strings.ToLower(filepath.Ext(page.SourcePath)) {
	case ".htm", ".html":
		// #nosec G203 -- page bodies are site-author content
		return htmltemplate.HTML(page.Body), nil
	default:
		content, err := tpl.Markdown(page.Body)
		if err != nil {
			return "", fmt.Errorf("page %s: %w", page.SourcePath, err)
		}
		return content, nil
	}
}

// layoutFor applies the standalone override before consulting the
// collation's layout resolution.
func (p *Pipeline) layoutFor(page *collation.Page) (string, bool) {
	if page.Standalone {
		return "", false
	}
	return p.Collation.LayoutFor(page)
}

func (p *Pipeline) templateData(page *collation.Page, content htmltemplate.HTML) map[string]any {
	data := make(map[string]any, len(page.Data)+3)
	for k, v := range page.Data {
		data[k] = v
	}
	data["title"] = page.Title
	data["href"] = page.Href
	data["content"] = content
	return data
}

// postProcess applies minification and the rewrite pipeline to HTML
// output, feeding extracted text to the search indexer.
func (p *Pipeline) postProcess(ctx context.Context, page *collation.Page, output string) (string, error) {
	if p.Config.HTML.Minify {
		output = Minify(output)
	}

	searchConfigured := p.Config.Search != nil && p.Search != nil
	if !p.Config.HTML.Active(searchConfigured) {
		return output, nil
	}

	opts := RewriteOptions{
		AutoID:        p.Config.HTML.AutoID,
		TOC:           p.Config.HTML.TOC,
		StripComments: p.Config.HTML.StripComments,
		ExtractText:   searchConfigured,
	}
	if p.Config.HTML.Highlight && p.Highlighter != nil {
		opts.Highlighter = p.Highlighter
	}

	res, err := Rewrite(output, opts)
	if err != nil {
		return "", fmt.Errorf("rewrite %s: %w", page.SourcePath, err)
	}

	if searchConfigured {
		entry := search.Entry{Href: page.Href, Title: page.Title, Text: res.Text}
		if err := p.Search.Index(ctx, entry); err != nil {
			return "", err
		}
	}
	return res.HTML, nil
}

// TemplateFuncs builds the helper functions templates use to talk to
// the collation. With link verification on, an href that does not
// resolve to a known page fails the render.
func TemplateFuncs(coll *collation.Collation, verify bool) htmltemplate.FuncMap {
	return htmltemplate.FuncMap{
		"menu": coll.Menu,
		"link": func(href string) (string, error) {
			if resolver.Passthrough(href) {
				return href, nil
			}
			if verify {
				if _, ok := coll.GetLink(href); !ok {
					return "", fmt.Errorf("link %q does not resolve to a known page", href)
				}
			}
			return href, nil
		},
	}
}

func isHTML(dest string) bool {
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".htm", ".html":
		return true
	}
	return false
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func writeFile(dest string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
